package dto

import "time"

type ReceivedInput struct {
	NotificationID string
	WasBackground  bool
}

type ReceivedOutput struct {
	NotificationID string
	Accepted       bool
}

type ClickedInput struct {
	NotificationID string
}

type TransitionOutput struct {
	NewSession bool
	Previous   string
	Type       string
	Elapsed    time.Duration
}

type AttributionOutput struct {
	Type                 string
	DirectNotificationID string
	NotificationIDs      []string
}

type FocusOutput struct {
	Type            string
	NotificationIDs []string
	ActiveTime      time.Duration
}

type StateOutput struct {
	Attribution    AttributionOutput
	StartedAt      time.Time
	ActiveTime     time.Duration
	Foreground     bool
	ClickPending   bool
	Received       []string
	PendingFocus   []FocusOutput
	BackgroundedAt time.Time
}

type FlushFocusOutput struct {
	Sent      int
	Dropped   int
	Remaining int
}
