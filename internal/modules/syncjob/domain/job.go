package domain

import "time"

const KindSync = "sync"

// Job is the one-shot deferred flush scheduled when the app goes to the
// background.
type Job struct {
	Kind  string    `json:"kind"`
	DueAt time.Time `json:"due_at"`
}

func NewSyncJob(due time.Time) Job {
	return Job{Kind: KindSync, DueAt: due}
}

func (j Job) Due(now time.Time) bool {
	return !now.Before(j.DueAt)
}

// Merge keeps whichever due time is earlier.
func (j Job) Merge(next Job) Job {
	if j.DueAt.IsZero() || next.DueAt.Before(j.DueAt) {
		return next
	}
	return j
}
