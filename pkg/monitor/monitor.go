// Package monitor serves the state of a running simulation over HTTP.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-metrics"
	"github.com/raskyld/netagents"
)

// Source is what the monitor observes, usually a *netagents.Simulation.
type Source interface {
	RunID() string
	Agents() []netagents.AgentInfo
	Shutdown()
}

// Monitor exposes a Source, and optionally an in-memory metric sink, as a
// small JSON API.
type Monitor struct {
	src    Source
	sink   *metrics.InmemSink
	logger *slog.Logger
}

// New creates a Monitor. sink may be nil, /api/metrics then answers 404.
func New(src Source, sink *metrics.InmemSink, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		src:    src,
		sink:   sink,
		logger: logger,
	}
}

// Router returns the handler serving every route of the monitor.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/run", m.run).Methods(http.MethodGet)
	r.HandleFunc("/api/agents", m.listAgents).Methods(http.MethodGet)
	r.HandleFunc("/api/agents/{name}", m.agentDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/metrics", m.metrics).Methods(http.MethodGet)
	r.HandleFunc("/api/shutdown", m.shutdown).Methods(http.MethodPost)
	return r
}

// Serve listens on addr until ctx is done. ready, if not nil, is called
// with the bound address once the listener is up.
func (m *Monitor) Serve(ctx context.Context, addr string, ready func(net.Addr)) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	m.logger.Info("monitoring simulation", "addr", listener.Addr().String())
	if ready != nil {
		ready(listener.Addr())
	}

	srv := &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			m.logger.Warn("monitor did not shut down cleanly", netagents.LabelError.L(err))
		}
	}()

	err = srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		<-stopped
		return nil
	}
	return err
}

type agentView struct {
	Name  string               `json:"name"`
	ID    netagents.UniqueID   `json:"id"`
	Kind  string               `json:"kind"`
	State netagents.AgentState `json:"state"`
	Links []netagents.UniqueID `json:"links,omitempty"`
	Error string               `json:"error,omitempty"`
}

func viewOf(info netagents.AgentInfo) agentView {
	view := agentView{
		Name:  info.Name,
		ID:    info.ID,
		Kind:  info.Kind,
		State: info.State,
		Links: info.Links,
	}
	if info.Err != nil {
		view.Error = info.Err.Error()
	}
	return view
}

type runRsp struct {
	RunID  string         `json:"run_id"`
	States map[string]int `json:"states"`
}

func (m *Monitor) run(w http.ResponseWriter, _ *http.Request) {
	rsp := runRsp{
		RunID:  m.src.RunID(),
		States: make(map[string]int),
	}
	for _, info := range m.src.Agents() {
		rsp.States[info.State.String()]++
	}
	m.writeJSON(w, http.StatusOK, rsp)
}

func (m *Monitor) listAgents(w http.ResponseWriter, _ *http.Request) {
	infos := m.src.Agents()
	views := make([]agentView, 0, len(infos))
	for _, info := range infos {
		views = append(views, viewOf(info))
	}
	m.writeJSON(w, http.StatusOK, views)
}

func (m *Monitor) agentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	for _, info := range m.src.Agents() {
		if info.Name == name {
			m.writeJSON(w, http.StatusOK, viewOf(info))
			return
		}
	}
	http.Error(w, "agent not found", http.StatusNotFound)
}

func (m *Monitor) metrics(w http.ResponseWriter, r *http.Request) {
	if m.sink == nil {
		http.Error(w, "metrics are not collected in memory", http.StatusNotFound)
		return
	}

	summary, err := m.sink.DisplayMetrics(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	m.writeJSON(w, http.StatusOK, summary)
}

func (m *Monitor) shutdown(w http.ResponseWriter, _ *http.Request) {
	m.logger.Info("shutdown requested through the monitor")
	m.src.Shutdown()
	w.WriteHeader(http.StatusAccepted)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.logger.Warn("failed to write monitor response", netagents.LabelError.L(err))
	}
}
