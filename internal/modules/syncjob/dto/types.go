package dto

import "time"

type JobOutput struct {
	Scheduled bool
	Kind      string
	DueAt     time.Time
}

type RunOutput struct {
	Ran          bool
	Completed    bool
	FocusSent    int
	OutcomesSent int
	Remaining    int
	Errors       []string
}
