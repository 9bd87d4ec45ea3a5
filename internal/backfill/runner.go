// Package backfill converts tickets that were already in the watched
// directory before the service started. The watcher only reacts to new
// files, so these would otherwise never be processed.
package backfill

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TicketHandler runs one ticket through the pipeline.
type TicketHandler interface {
	HandleTicket(ctx context.Context, path string) (string, error)
}

type Config struct {
	Dir       string
	StatePath string
	Since     time.Time // skip files modified before this; zero means no limit
	DryRun    bool
	Out       io.Writer // summary destination; stdout when nil
}

// Summary is the result of one backfill run.
type Summary struct {
	Discovered int
	Skipped    int // already in the state file
	Written    int
	Failed     int
	Outputs    []string
	DryRun     bool
}

type Runner struct {
	cfg     Config
	handler TicketHandler
	logger  *slog.Logger
}

func NewRunner(cfg Config, h TicketHandler, logger *slog.Logger) *Runner {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &Runner{cfg: cfg, handler: h, logger: logger}
}

// Run processes every PDF under Dir, oldest first, one at a time. State is
// saved after each file so an interrupted run resumes where it stopped.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	files, err := r.discoverFiles()
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}

	sum := &Summary{Discovered: len(files), DryRun: r.cfg.DryRun}
	var pending []string
	for _, path := range files {
		if state.IsProcessed(path) {
			sum.Skipped++
			continue
		}
		pending = append(pending, path)
	}

	state.FilesRemaining = len(pending)
	r.logger.Info("files to process",
		"discovered", len(files),
		"pending", len(pending),
		"already_processed", sum.Skipped,
		"dry_run", r.cfg.DryRun,
	)

	for _, path := range pending {
		select {
		case <-ctx.Done():
			r.logger.Info("backfill interrupted, saving state")
			_ = state.Save()
			return sum, ctx.Err()
		default:
		}

		if r.cfg.DryRun {
			r.logger.Info("would process", "path", path)
			continue
		}

		out, err := r.handler.HandleTicket(ctx, path)
		if ctx.Err() != nil {
			// The ticket was cut short, not handled: leave it pending.
			r.logger.Info("backfill interrupted, saving state", "path", path)
			_ = state.Save()
			return sum, ctx.Err()
		}
		if err != nil {
			state.AddError(err.Error())
			state.Failed++
			sum.Failed++
		} else {
			state.Written++
			sum.Written++
			sum.Outputs = append(sum.Outputs, out)
		}

		state.MarkProcessed(path)
		state.FilesRemaining--
		if err := state.Save(); err != nil {
			r.logger.Warn("failed to save backfill state", "path", state.Path(), "error", err)
		}
	}

	r.logger.Info("backfill complete",
		"written", sum.Written,
		"failed", sum.Failed,
		"skipped", sum.Skipped,
		"dry_run", r.cfg.DryRun,
	)
	fmt.Fprint(r.cfg.Out, FormatSummary(sum, len(pending), state.Path()))
	return sum, nil
}

// discoverFiles returns the PDFs under Dir sorted by modification time.
func (r *Runner) discoverFiles() ([]string, error) {
	type found struct {
		path string
		mod  time.Time
	}
	var all []found

	err := filepath.WalkDir(r.cfg.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !r.cfg.Since.IsZero() && info.ModTime().Before(r.cfg.Since) {
			return nil
		}
		all = append(all, found{path: path, mod: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].mod.Equal(all[j].mod) {
			return all[i].path < all[j].path
		}
		return all[i].mod.Before(all[j].mod)
	})

	paths := make([]string, len(all))
	for i, f := range all {
		paths[i] = f.path
	}
	return paths, nil
}

// FormatSummary renders the end-of-run report.
func FormatSummary(s *Summary, pending int, statePath string) string {
	var sb strings.Builder
	sb.WriteString("\n=== Backfill Summary ===\n")
	fmt.Fprintf(&sb, "Tickets found: %d\n", s.Discovered)
	fmt.Fprintf(&sb, "Already processed: %d\n", s.Skipped)
	if s.DryRun {
		fmt.Fprintf(&sb, "Would process: %d\n", pending)
		sb.WriteString("Mode: DRY RUN (nothing written)\n")
	} else {
		fmt.Fprintf(&sb, "Calendars written: %d\n", s.Written)
		fmt.Fprintf(&sb, "Failed: %d\n", s.Failed)
	}
	fmt.Fprintf(&sb, "State file: %s\n", statePath)
	return sb.String()
}
