package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/raskyld/netagents"
	"github.com/raskyld/netagents/pkg/trace"
	"github.com/spf13/cobra"
)

type inspectOptions struct {
	format string
	runID  string
}

func newInspectCmd() *cobra.Command {
	opts := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect TRACE",
		Short: "Print the events of a trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspectTrace(cmd.Context(), args[0], opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.format, "format", formatFrames, "trace format, frames or sqlite")
	flags.StringVar(&opts.runID, "run", "", "only print the events of this run")
	return cmd
}

func inspectTrace(ctx context.Context, path string, opts inspectOptions, w io.Writer) error {
	var (
		events []netagents.TraceEvent
		err    error
	)
	switch opts.format {
	case formatFrames:
		events, err = trace.ReadFile(path)
	case formatSQLite:
		var rec *trace.SQLiteRecorder
		rec, err = trace.OpenSQLite(path, 0)
		if err != nil {
			return err
		}
		defer rec.Close()
		events, err = rec.Events(ctx, opts.runID)
	default:
		return fmt.Errorf("unknown trace format %q", opts.format)
	}
	if err != nil {
		return err
	}

	for _, evt := range events {
		if opts.runID != "" && evt.RunID != opts.runID {
			continue
		}
		fmt.Fprintf(w, "%s %s %-9s %s -> %s %q\n",
			evt.At.UTC().Format(time.RFC3339Nano),
			evt.RunID,
			evt.Kind,
			evt.Msg.Src,
			evt.Msg.Dst,
			evt.Msg.Payload,
		)
	}
	return nil
}
