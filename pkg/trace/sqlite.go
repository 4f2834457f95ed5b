package trace

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/raskyld/netagents"

	_ "modernc.org/sqlite"
)

// DefaultBatchSize is how many events a SQLiteRecorder buffers before
// writing them in a single transaction.
const DefaultBatchSize = 256

var _ netagents.Recorder = (*SQLiteRecorder)(nil)

// SQLiteRecorder buffers events and inserts them in batches into the
// events table of an SQLite database.
type SQLiteRecorder struct {
	db        *sql.DB
	batchSize int

	lk      sync.Mutex
	pending []netagents.TraceEvent
	closed  bool
}

// OpenSQLite opens or creates the database at path. A batchSize of zero
// selects DefaultBatchSize.
func OpenSQLite(path string, batchSize int) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)

	if err := configurePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure pragmas: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SQLiteRecorder{
		db:        db,
		batchSize: batchSize,
		pending:   make([]netagents.TraceEvent, 0, batchSize),
	}, nil
}

func configurePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("exec %q: %w", p, err)
		}
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  TEXT    NOT NULL,
	kind    TEXT    NOT NULL,
	at_ns   INTEGER NOT NULL,
	src     INTEGER NOT NULL,
	dst     INTEGER NOT NULL,
	payload BLOB
);
CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, at_ns);
`

func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

func (rec *SQLiteRecorder) Record(evt netagents.TraceEvent) error {
	// The batch outlives the call, the sender may reuse its buffer.
	evt.Msg = evt.Msg.Clone()

	rec.lk.Lock()
	defer rec.lk.Unlock()
	if rec.closed {
		return ErrRecorderClosed
	}

	rec.pending = append(rec.pending, evt)
	if len(rec.pending) < rec.batchSize {
		return nil
	}
	return rec.flushLocked(context.Background())
}

// Flush writes every buffered event.
func (rec *SQLiteRecorder) Flush(ctx context.Context) error {
	rec.lk.Lock()
	defer rec.lk.Unlock()
	if rec.closed {
		return ErrRecorderClosed
	}
	return rec.flushLocked(ctx)
}

func (rec *SQLiteRecorder) flushLocked(ctx context.Context) error {
	if len(rec.pending) == 0 {
		return nil
	}

	err := rec.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO events (run_id, kind, at_ns, src, dst, payload) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, evt := range rec.pending {
			_, err := stmt.ExecContext(ctx,
				evt.RunID,
				evt.Kind.String(),
				evt.At.UnixNano(),
				int64(evt.Msg.Src),
				int64(evt.Msg.Dst),
				evt.Msg.Payload,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert events: %w", err)
	}

	clear(rec.pending)
	rec.pending = rec.pending[:0]
	return nil
}

func (rec *SQLiteRecorder) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := rec.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	return tx.Commit()
}

// Events returns the events of runID in recording order. An empty runID
// selects every run.
func (rec *SQLiteRecorder) Events(ctx context.Context, runID string) ([]netagents.TraceEvent, error) {
	query := `SELECT run_id, kind, at_ns, src, dst, payload FROM events`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY id`

	rows, err := rec.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []netagents.TraceEvent
	for rows.Next() {
		var (
			evt      netagents.TraceEvent
			kind     string
			atNs     int64
			src, dst int64
		)
		if err := rows.Scan(&evt.RunID, &kind, &atNs, &src, &dst, &evt.Msg.Payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Kind = netagents.ParseEventKind(kind)
		evt.At = time.Unix(0, atNs)
		evt.Msg.Src = netagents.UniqueID(uint64(src))
		evt.Msg.Dst = netagents.UniqueID(uint64(dst))
		events = append(events, evt)
	}
	return events, rows.Err()
}

// Close flushes the pending batch and closes the database. It is
// idempotent.
func (rec *SQLiteRecorder) Close() error {
	rec.lk.Lock()
	defer rec.lk.Unlock()
	if rec.closed {
		return nil
	}

	err := rec.flushLocked(context.Background())
	rec.closed = true
	if cerr := rec.db.Close(); err == nil {
		err = cerr
	}
	return err
}
