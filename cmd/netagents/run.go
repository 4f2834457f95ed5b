package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/raskyld/netagents"
	"github.com/raskyld/netagents/pkg/monitor"
	"github.com/raskyld/netagents/pkg/topology"
	"github.com/raskyld/netagents/pkg/trace"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

const (
	formatFrames = "frames"
	formatSQLite = "sqlite"
)

type runOptions struct {
	topology    string
	duration    time.Duration
	bufferSize  uint
	tracePath   string
	traceFormat string
	monitorAddr string
	logLevel    string
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation declared in a topology file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSimulation(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.topology, "topology", "t", "", "YAML file declaring the agents and their links")
	flags.DurationVarP(&opts.duration, "duration", "d", 0, "stop the simulation after this long, 0 runs until interrupted")
	flags.UintVar(&opts.bufferSize, "buffer", netagents.DefaultBufferSize, "capacity of every inbound endpoint")
	flags.StringVar(&opts.tracePath, "trace", "", "record every message to this path")
	flags.StringVar(&opts.traceFormat, "trace-format", formatFrames, "trace format, frames or sqlite")
	flags.StringVar(&opts.monitorAddr, "monitor", "", "serve the monitoring API on this address")
	flags.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	_ = cmd.MarkFlagRequired("topology")
	return cmd
}

func runSimulation(ctx context.Context, opts runOptions, stdout, stderr io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	handler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})

	file, err := topology.Load(opts.topology)
	if err != nil {
		return err
	}

	simOpts := []netagents.Option{
		netagents.WithLog(handler),
		netagents.WithBufferSize(opts.bufferSize),
	}

	var sink *metrics.InmemSink
	if opts.monitorAddr != "" {
		sink = metrics.NewInmemSink(10*time.Second, time.Minute)
		simOpts = append(simOpts, netagents.WithMetricSink(sink))
	}

	if opts.tracePath != "" {
		rec, err := openRecorder(opts.tracePath, opts.traceFormat)
		if err != nil {
			return err
		}
		closeRec := func() {
			if err := rec.Close(); err != nil {
				slog.New(handler).Error("failed to close trace", netagents.LabelError.L(err))
			}
		}
		onExit := atexit.Register(closeRec)
		defer func() {
			_ = onExit.Cancel()
			closeRec()
		}()
		simOpts = append(simOpts, netagents.WithRecorder(rec))
	}

	sim, err := netagents.Create(simOpts...)
	if err != nil {
		return err
	}
	if err := file.Apply(sim); err != nil {
		return err
	}

	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	if opts.monitorAddr != "" {
		monCtx, stopMonitor := context.WithCancel(context.Background())
		monDone := make(chan struct{})
		go func() {
			defer close(monDone)
			mon := monitor.New(sim, sink, slog.New(handler))
			if err := mon.Serve(monCtx, opts.monitorAddr, nil); err != nil {
				slog.New(handler).Error("monitor failed", netagents.LabelError.L(err))
			}
		}()
		defer func() {
			stopMonitor()
			<-monDone
		}()
	}

	runErr := sim.Run(ctx)
	printSummary(stdout, sim.Agents())
	return runErr
}

func openRecorder(path, format string) (netagents.Recorder, error) {
	switch format {
	case formatFrames:
		rec, err := trace.CreateFile(path)
		if err != nil {
			return nil, err
		}
		return rec, nil
	case formatSQLite:
		rec, err := trace.OpenSQLite(path, 0)
		if err != nil {
			return nil, err
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("unknown trace format %q", format)
	}
}

func printSummary(w io.Writer, infos []netagents.AgentInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID\tKIND\tSTATE\tERROR")
	for _, info := range infos {
		errText := ""
		if info.Err != nil && !errors.Is(info.Err, context.Canceled) {
			errText = info.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", info.Name, info.ID, info.Kind, info.State, errText)
	}
	tw.Flush()
}
