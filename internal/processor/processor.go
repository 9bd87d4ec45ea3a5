package processor

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/ticketcal/internal/event"
	"github.com/MikeSquared-Agency/ticketcal/internal/extractor"
	"github.com/MikeSquared-Agency/ticketcal/internal/hermes"
	"github.com/MikeSquared-Agency/ticketcal/internal/ics"
	"github.com/MikeSquared-Agency/ticketcal/internal/metrics"
	"github.com/MikeSquared-Agency/ticketcal/internal/render"
	"github.com/MikeSquared-Agency/ticketcal/internal/schedule"
	"github.com/MikeSquared-Agency/ticketcal/internal/store"
	"github.com/MikeSquared-Agency/ticketcal/internal/watcher"
)

type Renderer interface {
	RenderFirstPage(ctx context.Context, path string) (image.Image, error)
}

type FieldExtractor interface {
	Extract(ctx context.Context, image string) (extractor.Fields, error)
}

// Journal records the outcome of every ticket. Optional.
type Journal interface {
	RecordRun(ctx context.Context, run store.TicketRun) error
}

// Notifier publishes ticket outcomes. Optional.
type Notifier interface {
	Publish(subject string, data any) error
}

type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
)

// Status is a snapshot for the status API.
type Status struct {
	State      State  `json:"state"`
	Current    string `json:"current,omitempty"`
	Processed  int    `json:"processed"`
	Failed     int    `json:"failed"`
	LastOutput string `json:"last_output,omitempty"`
}

type Options struct {
	OutputDir   string
	JPEGQuality int
	Clock       event.Clock
}

// Processor drives one ticket at a time through
// render → model → parse → normalize → synthesize → write.
type Processor struct {
	renderer  Renderer
	extractor FieldExtractor
	journal   Journal
	notifiers []Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	outputDir string
	quality   int
	clock     event.Clock

	mu     sync.Mutex
	status Status
}

func New(r Renderer, ext FieldExtractor, m *metrics.Metrics, logger *slog.Logger, opts Options) *Processor {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Processor{
		renderer:  r,
		extractor: ext,
		metrics:   m,
		logger:    logger,
		outputDir: opts.OutputDir,
		quality:   opts.JPEGQuality,
		clock:     opts.Clock,
		status:    Status{State: StateIdle},
	}
}

func (p *Processor) SetJournal(j Journal) { p.journal = j }

// AddNotifier registers a sink for ticket outcomes. Notifiers are called in
// registration order after the ticket is finished.
func (p *Processor) AddNotifier(n Notifier) { p.notifiers = append(p.notifiers, n) }

func (p *Processor) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Processor) State() State {
	return p.Status().State
}

// Run consumes watch events until ctx is cancelled (nil) or the channel is
// closed (watcher.ErrClosed). Tickets are handled inline, so events that
// arrive during processing wait in the channel until the current ticket is
// done.
func (p *Processor) Run(ctx context.Context, events <-chan watcher.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return watcher.ErrClosed
			}
			if ev.Kind != watcher.KindCreated {
				continue
			}
			for _, path := range ev.Paths {
				if ctx.Err() != nil {
					return nil
				}
				p.logger.Info("ticket created", "path", path)
				// Per-ticket failures are already logged and recorded.
				_, _ = p.HandleTicket(ctx, path)
			}
		}
	}
}

// HandleTicket processes a single path and returns the written calendar file.
// Failures come back as *TicketError.
func (p *Processor) HandleTicket(ctx context.Context, path string) (string, error) {
	p.begin(path)
	runID := uuid.New()
	started := p.clock()
	logger := p.logger.With("run_id", runID.String(), "path", path)

	output, err := p.process(ctx, logger, path)

	finished := p.clock()
	p.metrics.TicketDuration.Observe(finished.Sub(started).Seconds())
	outcome := outcomeOf(err)
	p.metrics.Tickets.WithLabelValues(outcome).Inc()

	if err != nil {
		logger.Error("ticket skipped", "stage", string(stageOf(err)), "error", err)
	} else {
		logger.Info("ticket processed", "output", output)
	}

	p.record(ctx, logger, store.TicketRun{
		ID:         runID,
		Path:       path,
		Status:     outcome,
		OutputFile: output,
		Error:      errString(err),
		StartedAt:  started,
		FinishedAt: finished,
	}, err)

	p.end(output, err)
	return output, err
}

func (p *Processor) process(ctx context.Context, logger *slog.Logger, path string) (string, error) {
	img, err := p.renderer.RenderFirstPage(ctx, path)
	if err != nil {
		return "", &TicketError{Stage: StageRender, Path: path, Err: err}
	}
	jpegData, err := render.EncodeJPEG(img, p.quality)
	if err != nil {
		return "", &TicketError{Stage: StageRender, Path: path, Err: err}
	}
	logger.Debug("page rendered", "jpeg_bytes", len(jpegData))

	fields, err := p.extractor.Extract(ctx, render.DataURI(jpegData))
	if err != nil {
		p.metrics.ModelRequests.WithLabelValues("error").Inc()
		return "", &TicketError{Stage: StageQuery, Path: path, Err: err}
	}
	p.metrics.ModelRequests.WithLabelValues("ok").Inc()

	sched := schedule.Normalize(fields.StartRaw, fields.EndRaw, p.clock())
	ev := event.Synthesize(fields, sched, p.clock)
	logger.Info("event synthesized",
		"event_id", ev.ID,
		"summary", ev.Summary,
		"start", ev.Start.Format(time.DateTime),
		"end", ev.End.Format(time.DateTime),
	)

	out, err := ics.Write(p.outputDir, ev)
	if err != nil {
		return "", &TicketError{Stage: StageWrite, Path: path, Err: err}
	}
	return out, nil
}

func (p *Processor) record(ctx context.Context, logger *slog.Logger, run store.TicketRun, err error) {
	if p.journal != nil {
		if jerr := p.journal.RecordRun(ctx, run); jerr != nil {
			logger.Warn("failed to journal ticket run", "error", jerr)
		}
	}
	subject, payload := outcomeMessage(run, err)
	for _, n := range p.notifiers {
		if perr := n.Publish(subject, payload); perr != nil {
			logger.Warn("failed to publish ticket outcome", "subject", subject, "error", perr)
		}
	}
}

func outcomeMessage(run store.TicketRun, err error) (string, any) {
	if err != nil {
		return hermes.SubjectTicketFailed, hermes.TicketFailed{
			RunID: run.ID.String(),
			Path:  run.Path,
			Stage: string(stageOf(err)),
			Error: run.Error,
		}
	}
	return hermes.SubjectTicketWritten, hermes.TicketWritten{
		RunID:  run.ID.String(),
		Path:   run.Path,
		Output: run.OutputFile,
	}
}

func (p *Processor) begin(path string) {
	p.mu.Lock()
	p.status.State = StateProcessing
	p.status.Current = path
	p.mu.Unlock()
	p.metrics.Processing.Set(1)
}

func (p *Processor) end(output string, err error) {
	p.mu.Lock()
	if err != nil {
		p.status.Failed++
	} else {
		p.status.Processed++
		p.status.LastOutput = output
	}
	p.status.State = StateIdle
	p.status.Current = ""
	p.mu.Unlock()
	p.metrics.Processing.Set(0)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprint(err)
}
