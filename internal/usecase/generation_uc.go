package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/model"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain/ports/adapter"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/infra/metrics"
	"github.com/mattbell19/wordgen-v2-production-sub002/internal/quality"
)

// Compile-time check
var _ GenerationRunner = (*generationUC)(nil)

// GenerationRunner drives exactly one job from running to a terminal
// state. Run never panics the worker and never returns an error: every
// outcome is recorded on the job itself.
type GenerationRunner interface {
	Run(ctx context.Context, jobID string)
}

// GenerationConfig bundles the tunable loop budgets. The numeric
// thresholds are configuration, not contracts.
type GenerationConfig struct {
	QualityThreshold  int           // accept when score >= this
	MinRetryThreshold int           // below this a finalized result is flagged low quality
	MaxAttempts       int           // provider calls per job, improvement pass included
	ImproveBudget     time.Duration // elapsed-time budget for starting the improvement pass
	OverallBudget     time.Duration // wall-clock bound on the whole loop
	MaxTokens         int
}

func (c *GenerationConfig) applyDefaults() {
	if c.QualityThreshold <= 0 {
		c.QualityThreshold = 80
	}
	if c.MinRetryThreshold <= 0 {
		c.MinRetryThreshold = 75
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 2
	}
	if c.ImproveBudget <= 0 {
		c.ImproveBudget = 20 * time.Second
	}
	if c.OverallBudget <= 0 {
		c.OverallBudget = 30 * time.Second
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
}

type generationUC struct {
	jobs    JobUseCase
	augment AugmentUseCase
	gen     adapter.TextGenerator
	cfg     GenerationConfig
	now     func() time.Time
	// scoring seam; defaults to quality.Evaluate
	evaluate func(text, topic, industryHint string) quality.Evaluation
	log      *zerolog.Logger
}

func NewGenerationUseCase(
	jobs JobUseCase,
	augment AugmentUseCase,
	gen adapter.TextGenerator,
	cfg GenerationConfig,
	log *zerolog.Logger,
) *generationUC {
	cfg.applyDefaults()
	return &generationUC{
		jobs:     jobs,
		augment:  augment,
		gen:      gen,
		cfg:      cfg,
		now:      time.Now,
		evaluate: quality.Evaluate,
		log:      log,
	}
}

func (g *generationUC) Run(ctx context.Context, jobID string) {
	job, err := g.jobs.Get(ctx, jobID)
	if err != nil {
		g.log.Error().Err(err).Str("job_id", jobID).Msg("job not found for generation run")
		return
	}
	if job.Terminal() {
		return
	}
	if job.CancelRequested {
		g.finalizeCancelled(ctx, jobID)
		return
	}
	if job.Status == model.JobStatusPending {
		if job, err = g.jobs.Start(ctx, jobID); err != nil {
			g.log.Error().Err(err).Str("job_id", jobID).Msg("could not start job")
			return
		}
	} else if job.Stage != "drafting" {
		// dispatcher-claimed items arrive staged as queued
		_ = g.jobs.UpdateProgress(ctx, jobID, job.Progress, "drafting")
	}

	log := g.log.With().Str("job_id", jobID).Str("owner_id", job.OwnerID).Logger()
	start := g.now()
	// provider calls are bounded by the overall wall-clock budget;
	// state transitions use the parent context so finalization still
	// lands after a timeout
	callCtx, cancelCalls := context.WithTimeout(ctx, g.cfg.OverallBudget)
	defer cancelCalls()

	req := job.Request

	var links []model.ReferenceLink
	if req.EnableAugmentation {
		links, _ = g.augment.DiscoverLinks(callCtx, job.OwnerID, req.Keyword, req.ForceRefreshLinks)
	}
	_ = g.jobs.UpdateProgress(ctx, jobID, 10, "research")
	if g.checkCancelled(ctx, jobID) {
		return
	}

	prompt := BuildDraftPrompt(req, fitLinksToBudget(callCtx, g.gen, req, links, g.cfg.MaxTokens))
	draft, err := g.generate(ctx, callCtx, jobID, prompt)
	if err != nil {
		// no draft was ever obtained
		log.Error().Err(err).Msg("generation provider failed")
		if _, err := g.jobs.Fail(ctx, jobID, model.ErrKindGenerationProvider,
			"text generation failed, please retry later"); err != nil {
			log.Error().Err(err).Msg("could not mark job failed")
		}
		return
	}
	_ = g.jobs.UpdateProgress(ctx, jobID, 40, "content_generation")
	if g.checkCancelled(ctx, jobID) {
		return
	}

	eval := g.evaluate(draft, req.Keyword, req.Industry)
	best, bestEval := draft, eval
	_ = g.jobs.UpdateProgress(ctx, jobID, 70, "quality_review")
	if g.checkCancelled(ctx, jobID) {
		return
	}

	// One bounded improvement pass; finalize regardless of the second
	// score so the loop always terminates.
	if eval.OverallScore < g.cfg.QualityThreshold &&
		1 < g.cfg.MaxAttempts &&
		g.now().Sub(start) < g.cfg.ImproveBudget &&
		callCtx.Err() == nil {

		improved, err := g.generate(ctx, callCtx, jobID, BuildImprovementPrompt(req, draft, eval))
		if err != nil {
			log.Warn().Err(err).Msg("improvement pass failed; keeping first draft")
		} else {
			metrics.IncImprovementPass()
			if e := g.evaluate(improved, req.Keyword, req.Industry); e.OverallScore >= bestEval.OverallScore {
				best, bestEval = improved, e
			}
		}
		if g.checkCancelled(ctx, jobID) {
			return
		}
	}

	result := model.GenerationResult{
		Content:      best,
		WordCount:    len(strings.Fields(best)),
		QualityScore: bestEval.OverallScore,
		Links:        links,
	}
	if bestEval.OverallScore < g.cfg.MinRetryThreshold {
		metrics.IncLowQualityFinalization()
		log.Warn().Int("score", bestEval.OverallScore).Msg("finalizing below retry threshold with best draft")
	}
	if _, err := g.jobs.Complete(ctx, jobID, result); err != nil {
		log.Error().Err(err).Msg("could not complete job")
		return
	}
	log.Info().Int("score", bestEval.OverallScore).Int("words", result.WordCount).
		Dur("duration", g.now().Sub(start)).Msg("job completed")
}

// generate makes one provider call, recording the attempt first so the
// count reflects calls made, not calls that succeeded.
func (g *generationUC) generate(ctx, callCtx context.Context, jobID, prompt string) (string, error) {
	if err := g.jobs.RecordAttempt(ctx, jobID); err != nil {
		return "", err
	}
	start := time.Now()
	text, err := g.gen.Generate(callCtx, prompt, g.cfg.MaxTokens)
	metrics.ObserveGenerationCall(g.gen.ModelName(), time.Since(start), err == nil)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrGenerationProvider
	}
	return text, nil
}

// checkCancelled re-reads the cooperative cancel flag between loop
// steps; an in-flight provider call is allowed to finish but nothing
// further executes.
func (g *generationUC) checkCancelled(ctx context.Context, jobID string) bool {
	job, err := g.jobs.Get(ctx, jobID)
	if err != nil {
		return false
	}
	if job.Terminal() {
		return true
	}
	if !job.CancelRequested {
		return false
	}
	g.finalizeCancelled(ctx, jobID)
	return true
}

func (g *generationUC) finalizeCancelled(ctx context.Context, jobID string) {
	if _, err := g.jobs.FinalizeCancelled(ctx, jobID); err != nil {
		g.log.Error().Err(err).Str("job_id", jobID).Msg("could not finalize cancelled job")
	}
}
