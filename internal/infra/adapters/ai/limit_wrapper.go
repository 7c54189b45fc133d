package ai

import (
	"context"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.TextGenerator = (*limitedGenerator)(nil)

// limitedGenerator bounds concurrent in-flight provider calls across
// all workers with a semaphore.
type limitedGenerator struct {
	inner adapter.TextGenerator
	sem   chan struct{}
}

func NewLimitedGenerator(inner adapter.TextGenerator, maxConcurrent int) adapter.TextGenerator {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedGenerator{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedGenerator) ModelName() string { return l.inner.ModelName() }

func (l *limitedGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, prompt, maxTokens)
}

func (l *limitedGenerator) CountTokens(ctx context.Context, text string) (int, error) {
	return l.inner.CountTokens(ctx, text)
}
