// Package quality scores generated articles with deterministic
// pattern heuristics. It makes no external calls and keeps no state,
// so Evaluate is safe to call repeatedly and in parallel.
package quality

import (
	"regexp"
	"strings"
)

// DimensionScores holds the five weighted quality dimensions, each 0-100.
type DimensionScores struct {
	Authority     int `json:"authority"`
	Actionability int `json:"actionability"`
	Specificity   int `json:"specificity"`
	Recency       int `json:"recency"`
	Engagement    int `json:"engagement"`
}

// Evaluation is the full scoring output for one draft.
type Evaluation struct {
	OverallScore    int             `json:"overall_score"`
	Dimensions      DimensionScores `json:"dimensions"`
	Weaknesses      []string        `json:"weaknesses,omitempty"`
	MissingElements []string        `json:"missing_elements,omitempty"`
}

var (
	authorityMarkers = []string{
		"according to", "research", "study", "studies show", "survey",
		"report", "data from", "experts", "analysis", "analysts",
		"published", "peer-reviewed", "whitepaper", "benchmark",
	}
	actionabilityMarkers = []string{
		"how to", "step", "you can", "start by", "follow these",
		"checklist", "tip:", "for example", "in practice", "implement",
		"avoid", "make sure", "try ", "use ",
	}
	recencyMarkers = []string{
		"recent", "recently", "latest", "today", "this year", "now",
		"emerging", "trend", "currently", "up-to-date", "modern",
	}
	engagementMarkers = []string{
		"you", "your", "imagine", "let's", "discover", "consider",
		"think about", "ask yourself", "here's", "why",
	}
	vagueWords = []string{
		"very", "really", "quite", "just", "stuff", "things",
		"a lot", "basically", "actually", "somewhat", "various", "etc",
	}

	numberRe      = regexp.MustCompile(`(?:\$\s?)?\d+(?:[.,]\d+)?%?`)
	recentYearRe  = regexp.MustCompile(`\b20(2[4-9]|3\d)\b`)
	headingRe     = regexp.MustCompile(`(?m)^#{1,3}\s+\S`)
	listItemRe    = regexp.MustCompile(`(?m)^(\d+\.\s+|[-*]\s+)\S`)
	questionRe    = regexp.MustCompile(`\?`)
	properNounRe  = regexp.MustCompile(`\b[A-Z][a-z]{2,}(?:\s+[A-Z][a-z]{2,})?\b`)
	quotedSpeech  = regexp.MustCompile(`"[^"]{20,}"`)
	conclusionRe  = regexp.MustCompile(`(?i)\b(conclusion|in summary|to sum up|final thoughts|wrapping up)\b`)
)

// Evaluate reduces a draft to a multi-dimensional quality score.
// The overall score is the arithmetic mean of the five dimensions.
func Evaluate(text, topic, industryHint string) Evaluation {
	lower := strings.ToLower(text)
	words := strings.Fields(text)
	wordCount := len(words)

	dims := DimensionScores{
		Authority:     scoreAuthority(text, lower),
		Actionability: scoreActionability(lower),
		Specificity:   scoreSpecificity(text, lower, wordCount),
		Recency:       scoreRecency(text, lower),
		Engagement:    scoreEngagement(text, lower, wordCount),
	}
	overall := (dims.Authority + dims.Actionability + dims.Specificity +
		dims.Recency + dims.Engagement) / 5

	return Evaluation{
		OverallScore:    overall,
		Dimensions:      dims,
		Weaknesses:      weaknesses(dims),
		MissingElements: missingElements(text, lower, topic, wordCount),
	}
}

func scoreAuthority(text, lower string) int {
	score := 30
	score += 10 * countMarkers(lower, authorityMarkers)
	score += 8 * len(quotedSpeech.FindAllString(text, 3))
	return clamp(score)
}

func scoreActionability(lower string) int {
	score := 25
	score += 8 * countMarkers(lower, actionabilityMarkers)
	score += 10 * min(len(listItemRe.FindAllString(lower, -1)), 5)
	return clamp(score)
}

func scoreSpecificity(text, lower string, wordCount int) int {
	if wordCount == 0 {
		return 0
	}
	score := 30
	numbers := len(numberRe.FindAllString(text, -1))
	brands := len(properNounRe.FindAllString(text, -1))
	// densities per ~500 words so long and short drafts compare fairly
	score += min(numbers*500/max(wordCount, 500), 35)
	score += min(brands*250/max(wordCount, 500), 20)
	score -= 6 * countMarkers(lower, vagueWords)
	return clamp(score)
}

func scoreRecency(text, lower string) int {
	score := 35
	score += 9 * countMarkers(lower, recencyMarkers)
	score += 12 * min(len(recentYearRe.FindAllString(text, -1)), 3)
	return clamp(score)
}

func scoreEngagement(text, lower string, wordCount int) int {
	if wordCount == 0 {
		return 0
	}
	score := 25
	score += 10 * min(len(questionRe.FindAllString(text, -1)), 4)
	you := strings.Count(lower, "you")
	score += min(you*400/max(wordCount, 400), 25)
	score += 5 * countMarkers(lower, engagementMarkers[2:]) // beyond bare you/your
	return clamp(score)
}

func weaknesses(d DimensionScores) []string {
	var out []string
	if d.Authority < 60 {
		out = append(out, "few authority signals: cite research, data sources or expert voices")
	}
	if d.Actionability < 60 {
		out = append(out, "low actionability: add concrete steps, examples or a checklist")
	}
	if d.Specificity < 60 {
		out = append(out, "too generic: replace vague language with numbers, names and specifics")
	}
	if d.Recency < 60 {
		out = append(out, "feels dated: reference current developments or recent figures")
	}
	if d.Engagement < 60 {
		out = append(out, "low reader engagement: address the reader directly and pose questions")
	}
	return out
}

func missingElements(text, lower, topic string, wordCount int) []string {
	var out []string
	if !headingRe.MatchString(text) {
		out = append(out, "section headings")
	}
	if !listItemRe.MatchString(text) {
		out = append(out, "bulleted or numbered list")
	}
	if len(numberRe.FindAllString(text, 1)) == 0 {
		out = append(out, "statistics or data points")
	}
	if wordCount < 300 {
		out = append(out, "sufficient length")
	}
	if topic != "" {
		intro := lower
		if len(intro) > 400 {
			intro = intro[:400]
		}
		if !strings.Contains(intro, strings.ToLower(strings.TrimSpace(topic))) {
			out = append(out, "topic named in the introduction")
		}
	}
	if !conclusionRe.MatchString(text) {
		out = append(out, "concluding section")
	}
	return out
}

func countMarkers(lower string, markers []string) int {
	n := 0
	for _, m := range markers {
		if strings.Contains(lower, m) {
			n++
		}
	}
	return n
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
