package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/adapter"
)

var _ adapter.TextGenerator = (*NoopAdapter)(nil)

// NoopAdapter implements adapter.TextGenerator for local/dev runs.
// It produces a deterministic placeholder article instead of calling a
// real provider.
type NoopAdapter struct{}

func NewNoopAdapter() *NoopAdapter { return &NoopAdapter{} }

func (a *NoopAdapter) ModelName() string { return "noop" }

func (a *NoopAdapter) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	var b strings.Builder
	b.WriteString("# Placeholder Article\n\n")
	b.WriteString("According to recent research, this is a locally generated draft.\n\n")
	b.WriteString("## How to use it\n\n")
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&b, "%d. Step %d with 42%% more specificity.\n", i, i)
	}
	b.WriteString("\n## Conclusion\n\nYou can replace this adapter with a real provider.\n")
	return b.String(), nil
}

func (a *NoopAdapter) CountTokens(ctx context.Context, text string) (int, error) {
	// rough 4-chars-per-token estimate is enough for dev runs
	return len(text) / 4, nil
}
