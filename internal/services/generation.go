package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// TextGenerator turns a prompt into model text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Archiver keeps a copy of a pipeline artifact and returns where it was stored.
type Archiver interface {
	Archive(ctx context.Context, objectName, contentType string, content io.Reader) (string, error)
}

type fallbackGenerator struct {
	stage    string
	primary  TextGenerator
	fallback TextGenerator
}

// WithFallback retries a failed primary call exactly once on fallback.
// A nil fallback returns primary unchanged.
func WithFallback(stage string, primary, fallback TextGenerator) TextGenerator {
	if fallback == nil {
		return primary
	}
	return &fallbackGenerator{stage: stage, primary: primary, fallback: fallback}
}

func (g *fallbackGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := g.primary.Generate(ctx, prompt)
	if err == nil {
		return text, nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	slog.Warn("Primary model failed, retrying once on fallback model.", "stage", g.stage, "error", err)
	text, fallbackErr := g.fallback.Generate(ctx, prompt)
	if fallbackErr != nil {
		return "", fmt.Errorf("primary model: %v; fallback model: %w", err, fallbackErr)
	}
	return text, nil
}
