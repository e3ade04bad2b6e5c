package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	ErrUnknownSessionType = errors.New("unknown session type")
	ErrInvalidPolicy      = errors.New("invalid attribution policy")
)

// Type is the attribution class of a session. Exactly one is active at a time.
type Type string

const (
	TypeDirect       Type = "direct"
	TypeIndirect     Type = "indirect"
	TypeUnattributed Type = "unattributed"
)

func (t Type) Validate() error {
	switch t {
	case TypeDirect, TypeIndirect, TypeUnattributed:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSessionType, t)
	}
}

func (t Type) IsAttributed() bool {
	return t == TypeDirect || t == TypeIndirect
}

// Policy is the attribution window policy.
type Policy struct {
	DirectEnabled       bool
	IndirectEnabled     bool
	UnattributedEnabled bool
	NotificationLimit   int
	IndirectWindow      time.Duration
	// SessionThreshold is the minimum background time after which the next
	// foreground starts a new session.
	SessionThreshold time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		DirectEnabled:       true,
		IndirectEnabled:     true,
		UnattributedEnabled: true,
		NotificationLimit:   10,
		IndirectWindow:      1440 * time.Minute,
		SessionThreshold:    30 * time.Second,
	}
}

func (p Policy) Validate() error {
	if p.NotificationLimit <= 0 {
		return fmt.Errorf("%w: notification limit must be > 0", ErrInvalidPolicy)
	}
	if p.IndirectWindow <= 0 {
		return fmt.Errorf("%w: indirect window must be > 0", ErrInvalidPolicy)
	}
	if p.SessionThreshold < 0 {
		return fmt.Errorf("%w: session threshold must be >= 0", ErrInvalidPolicy)
	}
	return nil
}

type ReceivedNotification struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
}

// Attribution is the atomic snapshot handed to outcome construction.
type Attribution struct {
	Type                 Type
	DirectNotificationID string
	NotificationIDs      []string
}

// Transition describes what a lifecycle signal did to the state.
type Transition struct {
	NewSession bool
	Previous   Type
	Current    Type
	Elapsed    time.Duration
}

func (t Transition) Changed() bool {
	return t.Previous != t.Current
}

type State struct {
	Type                    Type                   `json:"type"`
	DirectNotificationID    string                 `json:"direct_notification_id,omitempty"`
	IndirectNotificationIDs []string               `json:"indirect_notification_ids,omitempty"`
	StartedAt               time.Time              `json:"started_at"`
	ActiveTime              time.Duration          `json:"active_time"`
	Received                []ReceivedNotification `json:"received,omitempty"`
	Foreground              bool                   `json:"foreground"`
	ForegroundSince         time.Time              `json:"foreground_since"`
	BackgroundedAt          time.Time              `json:"backgrounded_at"`
	ClickPending            bool                   `json:"click_pending"`
	PendingFocus            []FocusRecord          `json:"pending_focus,omitempty"`

	// LastSeenAt is the latest checkpoint taken while foregrounded.
	LastSeenAt time.Time `json:"last_seen_at,omitempty"`

	// live is false until the first foreground of this process, which makes
	// that foreground a session boundary. It is never persisted.
	live bool
}

func NewState(now time.Time) State {
	return State{Type: TypeUnattributed, StartedAt: now}
}

// Restore prepares a state decoded from storage for a fresh process. A state
// saved while foregrounded belongs to a process that died without a
// background signal: the stretch up to its last checkpoint is booked as
// focus time and the rest is lost.
func (s *State) Restore(now time.Time) {
	if s.Type.Validate() != nil {
		s.Type = TypeUnattributed
		s.DirectNotificationID = ""
		s.IndirectNotificationIDs = nil
	}
	if s.Foreground {
		s.Foreground = false
		s.BackgroundedAt = now
		if s.LastSeenAt.After(s.ForegroundSince) {
			elapsed := s.LastSeenAt.Sub(s.ForegroundSince)
			s.ActiveTime += elapsed
			s.addFocus(elapsed)
			s.BackgroundedAt = s.LastSeenAt
		}
	}
	s.live = false
}

// Checkpoint records that the process was still foregrounded at now. It
// reports whether anything changed.
func (s *State) Checkpoint(now time.Time) bool {
	if !s.Foreground || !s.live || !now.After(s.LastSeenAt) || now.Before(s.ForegroundSince) {
		return false
	}
	s.LastSeenAt = now
	return true
}

// Click credits the session to id immediately, whatever the lifecycle state.
func (s *State) Click(id string, p Policy) Transition {
	tr := Transition{Previous: s.Type, Current: s.Type}
	if id == "" || !p.DirectEnabled {
		return tr
	}
	s.Type = TypeDirect
	s.DirectNotificationID = id
	s.IndirectNotificationIDs = nil
	s.Received = slices.DeleteFunc(s.Received, func(r ReceivedNotification) bool { return r.ID == id })
	if !s.Foreground {
		s.ClickPending = true
	}
	tr.Current = s.Type
	return tr
}

// Receive queues id for indirect attribution at the next evaluation. Receipts
// while foregrounded are not eligible and are dropped. When the queue is full
// the oldest receipt is evicted.
func (s *State) Receive(id string, wasBackground bool, now time.Time, p Policy) bool {
	if id == "" || !wasBackground || s.Foreground {
		return false
	}
	s.Received = slices.DeleteFunc(s.Received, func(r ReceivedNotification) bool { return r.ID == id })
	s.Received = append(s.Received, ReceivedNotification{ID: id, ReceivedAt: now})
	if limit := p.NotificationLimit; limit > 0 && len(s.Received) > limit {
		s.Received = slices.Clone(s.Received[len(s.Received)-limit:])
	}
	return true
}

func (s *State) EnterForeground(now time.Time, p Policy) Transition {
	tr := Transition{Previous: s.Type, Current: s.Type}
	if s.Foreground && s.live {
		return tr
	}
	boundary := !s.live || now.Sub(s.BackgroundedAt) >= p.SessionThreshold
	s.live = true
	s.Foreground = true
	s.ForegroundSince = now

	if boundary {
		tr.NewSession = true
		s.StartedAt = now
		s.ActiveTime = 0
		s.pruneReceived(now, p)
		switch {
		case s.ClickPending && s.Type == TypeDirect:
		case p.IndirectEnabled && len(s.Received) > 0:
			s.setIndirect()
		default:
			s.Type = TypeUnattributed
			s.DirectNotificationID = ""
			s.IndirectNotificationIDs = nil
		}
	}
	s.ClickPending = false
	tr.Current = s.Type
	return tr
}

// EnterBackground stops the active time accumulator and books the elapsed
// foreground time as pending focus under the current attribution.
func (s *State) EnterBackground(now time.Time) Transition {
	tr := Transition{Previous: s.Type, Current: s.Type}
	if !s.Foreground {
		return tr
	}
	elapsed := now.Sub(s.ForegroundSince)
	if elapsed < 0 {
		elapsed = 0
	}
	s.ActiveTime += elapsed
	s.Foreground = false
	s.BackgroundedAt = now
	s.addFocus(elapsed)
	tr.Elapsed = elapsed
	return tr
}

func (s State) Attribution() Attribution {
	att := Attribution{Type: s.Type}
	switch s.Type {
	case TypeDirect:
		att.DirectNotificationID = s.DirectNotificationID
		att.NotificationIDs = []string{s.DirectNotificationID}
	case TypeIndirect:
		att.NotificationIDs = slices.Clone(s.IndirectNotificationIDs)
	}
	return att
}

func (s State) Clone() State {
	out := s
	out.IndirectNotificationIDs = slices.Clone(s.IndirectNotificationIDs)
	out.Received = slices.Clone(s.Received)
	out.PendingFocus = make([]FocusRecord, 0, len(s.PendingFocus))
	for _, r := range s.PendingFocus {
		r.NotificationIDs = slices.Clone(r.NotificationIDs)
		out.PendingFocus = append(out.PendingFocus, r)
	}
	if len(out.PendingFocus) == 0 {
		out.PendingFocus = nil
	}
	return out
}

func (s *State) setIndirect() {
	ids := make([]string, 0, len(s.Received))
	for _, r := range s.Received {
		ids = append(ids, r.ID)
	}
	s.Type = TypeIndirect
	s.DirectNotificationID = ""
	s.IndirectNotificationIDs = ids
}

func (s *State) pruneReceived(now time.Time, p Policy) {
	s.Received = slices.DeleteFunc(s.Received, func(r ReceivedNotification) bool {
		return now.Sub(r.ReceivedAt) >= p.IndirectWindow
	})
}

func (s *State) addFocus(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}
	att := s.Attribution()
	for i := range s.PendingFocus {
		if s.PendingFocus[i].Type == att.Type && slices.Equal(s.PendingFocus[i].NotificationIDs, att.NotificationIDs) {
			s.PendingFocus[i].ActiveTime += elapsed
			return
		}
	}
	s.PendingFocus = append(s.PendingFocus, FocusRecord{Type: att.Type, NotificationIDs: att.NotificationIDs, ActiveTime: elapsed})
}
