package extractor

import (
	"context"
	"fmt"
	"log/slog"
)

// LLM is the vision model the extractor queries.
type LLM interface {
	Complete(ctx context.Context, prompt, image string) (string, error)
}

type Extractor struct {
	llm    LLM
	logger *slog.Logger
}

func New(llm LLM, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, logger: logger}
}

// Extract asks the model to read the ticket image and parses its answer.
// image is a data URI. Only the model call can fail; a response that does
// not follow the expected labels yields empty fields.
func (e *Extractor) Extract(ctx context.Context, image string) (Fields, error) {
	e.logger.Info("querying model for ticket fields", "image_len", len(image))

	raw, err := e.llm.Complete(ctx, instructionPrompt, image)
	if err != nil {
		return Fields{}, fmt.Errorf("llm extraction: %w", err)
	}

	e.logger.Debug("model response", "raw", raw)

	f := ParseFields(raw)

	e.logger.Info("extraction complete",
		"event_name", f.EventName,
		"location", f.Location,
		"start_raw", f.StartRaw,
		"end_raw", f.EndRaw,
	)
	return f, nil
}
