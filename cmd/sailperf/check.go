package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sailperf/internal/fusion"
	"sailperf/internal/ingest"
	"sailperf/internal/nmea"
	"sailperf/internal/persist"
	"sailperf/internal/source"
)

type checkReport struct {
	Worker      ingest.WorkerSnapshot
	Snapshot    fusion.Snapshot
	Identifiers []string
	Tracks   int
	Wind     int
	Speed    int
}

func newCheckCmd() *cobra.Command {
	var (
		limit    int
		aliases  map[string]string
		logLevel string
	)
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Run a sentence file through the pipeline and report what it decoded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(logLevel, false, nil)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			reg := nmea.NewRegistry()
			for id, name := range aliases {
				kind, ok := nmea.KindFromString(name)
				if !ok {
					return fmt.Errorf("alias %s: unknown kind %q", id, name)
				}
				reg.Alias(id, kind)
			}
			rep, err := checkFile(cmd.Context(), args[0], limit, reg, logger)
			if err != nil {
				return err
			}
			printCheckReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 1000, "Maximum lines to read (0 reads the whole file)")
	cmd.Flags().StringToStringVar(&aliases, "alias", nil, "Extra identifier=KIND decoder aliases, e.g. $TROT=ROT")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level")
	return cmd
}

func checkFile(ctx context.Context, path string, limit int, reg *nmea.Registry, logger *zap.Logger) (checkReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	store := persist.NewMemoryStore()
	policy := &persist.Policy{Store: store, Logger: logger}
	state := fusion.New(fusion.WithTriggerHook(policy.OnTrigger))
	p := ingest.NewPipeline(reg, state, ingest.WithObserver(policy), ingest.WithLogger(logger))

	w := ingest.NewWorker(&source.FileSource{Path: path}, p, ingest.WithLimit(limit), ingest.WithWorkerLogger(logger))
	if err := w.Run(ctx); err != nil {
		return checkReport{}, err
	}
	return checkReport{
		Worker:      w.Snapshot(),
		Snapshot:    state.Snapshot(),
		Identifiers: p.Registry().Identifiers(),
		Tracks:      len(store.Tracks()),
		Wind:        len(store.Wind()),
		Speed:       len(store.BoatSpeed()),
	}, nil
}

func printCheckReport(w io.Writer, rep checkReport) {
	fmt.Fprintf(w, "source: %s\n", rep.Worker.Source)
	fmt.Fprintf(w, "decoders: %s\n", strings.Join(rep.Identifiers, " "))
	fmt.Fprintf(w, "lines: %d\n", rep.Worker.Lines)
	fmt.Fprintf(w, "decoded: %d\n", rep.Worker.Decoded)
	fmt.Fprintf(w, "checksum_errors: %d\n", rep.Snapshot.Session.ChecksumErrors)
	fmt.Fprintf(w, "tracks: %d\n", rep.Tracks)
	fmt.Fprintf(w, "wind_log: %d\n", rep.Wind)
	fmt.Fprintf(w, "boat_speed_log: %d\n", rep.Speed)
	if rep.Worker.LastError != "" {
		fmt.Fprintf(w, "last_error: %s\n", rep.Worker.LastError)
	}

	fmt.Fprintf(w, "talkers:\n")
	ids := make([]string, 0, len(rep.Snapshot.Talkers))
	for id := range rep.Snapshot.Talkers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "  %s: %d\n", id, rep.Snapshot.Talkers[id])
	}

	fmt.Fprintf(w, "snapshot:\n")
	rec := persist.FormatRecord(time.Now(), rep.Snapshot)
	for _, line := range strings.Split(strings.TrimRight(rec, "\n"), "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
}
