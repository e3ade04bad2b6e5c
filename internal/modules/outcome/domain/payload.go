package domain

import "slices"

// Payload is the measurement body posted to the backend.
type Payload struct {
	ID              string   `json:"id"`
	Timestamp       *int64   `json:"timestamp,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	DeviceType      int      `json:"device_type"`
	Direct          *bool    `json:"direct,omitempty"`
	NotificationIDs []string `json:"notification_ids,omitempty"`
}

// Payload renders the event for the wire. Replays carry the timestamp.
func (e Event) Payload(deviceType int, replay bool) Payload {
	p := Payload{ID: e.Name, Weight: e.Weight, DeviceType: deviceType}
	if replay {
		ts := e.Timestamp
		p.Timestamp = &ts
	}
	switch e.Session {
	case SessionDirect, SessionIndirect:
		direct := e.Session == SessionDirect
		p.Direct = &direct
		p.NotificationIDs = slices.Clone(e.NotificationIDs)
	}
	return p
}

type Status string

const (
	StatusSent       Status = "sent"
	StatusQueued     Status = "queued"
	StatusDropped    Status = "dropped"
	StatusRejected   Status = "rejected"
	StatusSuppressed Status = "suppressed"
	StatusUnknown    Status = "unknown"
)

// Delivery is the outcome of one send attempt. Err holds the delivery or
// store failure behind a non-sent status.
type Delivery struct {
	Event  Event
	Status Status
	Err    error
}
