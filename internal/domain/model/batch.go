package model

import "time"

type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "pending"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusFailed    BatchStatus = "failed"
)

// Batch owns an ordered set of jobs submitted together. Its shape is
// immutable after creation; only status and counters are recomputed
// from the member jobs.
type Batch struct {
	ID             string
	OwnerID        string
	Name           string
	JobIDs         []string // submission order, never reordered
	TotalItems     int
	CompletedCount int
	FailedCount    int
	Status         BatchStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewBatch(id, ownerID, name string, jobIDs []string) *Batch {
	now := time.Now()
	return &Batch{
		ID:         id,
		OwnerID:    ownerID,
		Name:       name,
		JobIDs:     jobIDs,
		TotalItems: len(jobIDs),
		Status:     BatchStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// DeriveBatchStatus recomputes a batch's status and counters from the
// current state of its jobs. The batch is pending until the first item
// starts, running while any item is non-terminal, and only settles on
// failed once nothing remains in flight.
func DeriveBatchStatus(jobs []*Job) (status BatchStatus, completed, failed int) {
	allPending := true
	anyOpen := false
	for _, j := range jobs {
		switch j.Status {
		case JobStatusCompleted:
			completed++
			allPending = false
		case JobStatusFailed:
			failed++
			allPending = false
		case JobStatusCancelled:
			allPending = false
		case JobStatusRunning:
			anyOpen = true
			allPending = false
		default:
			anyOpen = true
		}
	}
	if allPending {
		return BatchStatusPending, completed, failed
	}
	if anyOpen {
		return BatchStatusRunning, completed, failed
	}
	if failed > 0 {
		return BatchStatusFailed, completed, failed
	}
	return BatchStatusCompleted, completed, failed
}

// ApplyDerived writes a freshly derived status and counters onto the batch.
func (b *Batch) ApplyDerived(status BatchStatus, completed, failed int) {
	b.Status = status
	b.CompletedCount = completed
	b.FailedCount = failed
	b.UpdatedAt = time.Now()
}

// Terminal reports whether the batch has settled into a final status.
func (b *Batch) Terminal() bool {
	return b.Status == BatchStatusCompleted || b.Status == BatchStatusFailed
}
