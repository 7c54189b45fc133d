package model

import (
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub002/internal/domain"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Error kinds surfaced on failed jobs.
const (
	ErrKindGenerationProvider = "generation_provider_error"
	ErrKindWorkerLost         = "worker_lost"
)

// GenerationRequest is the immutable input of a Job.
type GenerationRequest struct {
	Keyword            string `json:"keyword"`
	TargetWords        int    `json:"target_words"`
	Tone               string `json:"tone"`
	Industry           string `json:"industry"`
	EnableAugmentation bool   `json:"enable_augmentation"`
	ForceRefreshLinks  bool   `json:"force_refresh_links"`
}

// GenerationResult is set only on completed jobs.
type GenerationResult struct {
	Content      string          `json:"content"`
	WordCount    int             `json:"word_count"`
	QualityScore int             `json:"quality_score"`
	Links        []ReferenceLink `json:"links,omitempty"`
}

// JobError is set only on failed jobs.
type JobError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Job is one trackable unit of generation work. Exactly one of
// Result/Error is set, and only in a terminal state.
type Job struct {
	ID              string
	OwnerID         string
	BatchID         string // empty for standalone jobs
	Status          JobStatus
	Progress        int
	Stage           string
	Request         GenerationRequest
	Attempt         int
	Result          *GenerationResult
	Error           *JobError
	CancelRequested bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewJob(id, ownerID string, req GenerationRequest) *Job {
	now := time.Now()
	return &Job{
		ID:        id,
		OwnerID:   ownerID,
		Status:    JobStatusPending,
		Progress:  0,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (j *Job) Terminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// MarkRunning moves a pending job into the running state.
func (j *Job) MarkRunning() error {
	if j.Status != JobStatusPending {
		return domain.ErrInvalidTransition
	}
	j.Status = JobStatusRunning
	j.UpdatedAt = time.Now()
	return nil
}

// SetProgress updates progress/stage while running. Progress is monotonic.
func (j *Job) SetProgress(progress int, stage string) error {
	if j.Status != JobStatusRunning {
		return domain.ErrInvalidTransition
	}
	if progress > 100 {
		return domain.ErrInvalidArgument
	}
	if progress < j.Progress {
		return domain.ErrNonMonotonicProgress
	}
	j.Progress = progress
	if stage != "" {
		j.Stage = stage
	}
	j.UpdatedAt = time.Now()
	return nil
}

// Complete finalizes a running job with its result and progress 100.
func (j *Job) Complete(res GenerationResult) error {
	if j.Status != JobStatusRunning {
		return domain.ErrInvalidTransition
	}
	j.Status = JobStatusCompleted
	j.Progress = 100
	j.Result = &res
	j.Error = nil
	j.UpdatedAt = time.Now()
	return nil
}

// Fail finalizes a running job with a stable error kind.
func (j *Job) Fail(kind, message string) error {
	if j.Status != JobStatusRunning {
		return domain.ErrInvalidTransition
	}
	j.Status = JobStatusFailed
	j.Error = &JobError{Kind: kind, Message: message}
	j.Result = nil
	j.UpdatedAt = time.Now()
	return nil
}

// Cancel finalizes a non-terminal job. Progress keeps its last value.
func (j *Job) Cancel() error {
	if j.Terminal() {
		return domain.ErrInvalidTransition
	}
	j.Status = JobStatusCancelled
	j.CancelRequested = true
	j.UpdatedAt = time.Now()
	return nil
}
