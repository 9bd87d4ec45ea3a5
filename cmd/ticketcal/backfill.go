package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/MikeSquared-Agency/ticketcal/internal/backfill"
	"github.com/MikeSquared-Agency/ticketcal/internal/config"
)

func runBackfill(ctx context.Context, cfg config.Config, h backfill.TicketHandler, args []string) error {
	fs := flag.NewFlagSet("backfill", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "list tickets without processing them")
	since := fs.String("since", "", "only tickets modified on or after this date (YYYY-MM-DD)")
	statePath := fs.String("state", filepath.Join(cfg.OutputDir, backfill.StateFile), "resume state file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	bc := backfill.Config{
		Dir:       cfg.WatchDir,
		StatePath: *statePath,
		DryRun:    *dryRun,
	}
	if *since != "" {
		t, err := time.ParseInLocation(time.DateOnly, *since, time.Local)
		if err != nil {
			return fmt.Errorf("invalid -since: %w", err)
		}
		bc.Since = t
	}

	slog.Info("backfill starting", "dir", bc.Dir, "state", bc.StatePath, "dry_run", bc.DryRun)
	_, err := backfill.NewRunner(bc, h, slog.Default()).Run(ctx)
	return err
}
