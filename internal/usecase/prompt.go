package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/adapter"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/quality"
)

// BuildDraftPrompt assembles the initial article prompt from the
// request and any discovered reference links.
func BuildDraftPrompt(req model.GenerationRequest, links []model.ReferenceLink) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a long-form article about %q.\n", req.Keyword)
	fmt.Fprintf(&b, "Target length: about %d words.\n", req.TargetWords)
	if req.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", req.Tone)
	}
	if req.Industry != "" {
		fmt.Fprintf(&b, "Audience: readers in the %s industry.\n", req.Industry)
	}
	b.WriteString("Structure the article with markdown headings, at least one list, ")
	b.WriteString("concrete data points, and a concluding section.\n")
	if len(links) > 0 {
		b.WriteString("Reference and link the following sources where relevant:\n")
		for _, l := range links {
			fmt.Fprintf(&b, "- %s (%s)\n", l.Title, l.URL)
		}
	}
	return b.String()
}

// BuildImprovementPrompt asks the provider to rework an existing draft,
// guided by the evaluator's specific weaknesses and missing elements.
func BuildImprovementPrompt(req model.GenerationRequest, draft string, eval quality.Evaluation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Improve the following article about %q. Keep its topic and length (about %d words).\n",
		req.Keyword, req.TargetWords)
	if len(eval.Weaknesses) > 0 {
		b.WriteString("Address these weaknesses:\n")
		for _, w := range eval.Weaknesses {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	if len(eval.MissingElements) > 0 {
		b.WriteString("Add these missing elements:\n")
		for _, m := range eval.MissingElements {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}
	b.WriteString("\n--- ARTICLE ---\n")
	b.WriteString(draft)
	return b.String()
}

// fitLinksToBudget drops the lowest-ranked links until the assembled
// prompt fits the token budget. Counting errors leave the links as-is;
// the provider enforces its own hard limit anyway.
func fitLinksToBudget(ctx context.Context, gen adapter.TextGenerator, req model.GenerationRequest, links []model.ReferenceLink, budget int) []model.ReferenceLink {
	if budget <= 0 {
		return links
	}
	for len(links) > 0 {
		n, err := gen.CountTokens(ctx, BuildDraftPrompt(req, links))
		if err != nil || n <= budget {
			return links
		}
		links = links[:len(links)-1]
	}
	return links
}
