package adapter

import "context"

// TextGenerator is the port for the long-form text provider. It is
// treated as fallible and potentially slow; retry policy lives in the
// attempt loop, never here.
type TextGenerator interface {
	// ModelName identifies the configured model for logging/metrics.
	ModelName() string

	// Generate produces text for the assembled prompt, bounded by
	// maxTokens output tokens.
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)

	// CountTokens returns prompt tokens for the given text
	// (provider-specific counting; best-effort when exact isn't available).
	CountTokens(ctx context.Context, text string) (int, error)
}
