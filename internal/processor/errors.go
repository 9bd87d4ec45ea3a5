package processor

import (
	"errors"
	"fmt"

	"github.com/MikeSquared-Agency/ticketcal/internal/metrics"
)

// Stage names the pipeline step a ticket failed in.
type Stage string

const (
	StageRender Stage = "render"
	StageQuery  Stage = "query"
	StageWrite  Stage = "write"
)

// TicketError is returned for a ticket that could not be turned into a
// calendar file. The ticket is skipped; the processor keeps running.
type TicketError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *TicketError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *TicketError) Unwrap() error { return e.Err }

func stageOf(err error) Stage {
	var te *TicketError
	if errors.As(err, &te) {
		return te.Stage
	}
	return ""
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeWritten
	}
	switch stageOf(err) {
	case StageRender:
		return metrics.OutcomeRenderFailed
	case StageQuery:
		return metrics.OutcomeQueryFailed
	default:
		return metrics.OutcomeWriteFailed
	}
}
