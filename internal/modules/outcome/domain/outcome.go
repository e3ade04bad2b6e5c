package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

var (
	ErrEmptyName     = errors.New("outcome name is required")
	ErrInvalidWeight = errors.New("outcome weight must be a finite number")
)

// SessionType mirrors the attribution class of the session an outcome
// happened in. It doubles as the delivery route.
type SessionType string

const (
	SessionDirect       SessionType = "direct"
	SessionIndirect     SessionType = "indirect"
	SessionUnattributed SessionType = "unattributed"
)

func (t SessionType) Valid() bool {
	return t == SessionDirect || t == SessionIndirect || t == SessionUnattributed
}

type Attribution struct {
	Session         SessionType
	NotificationIDs []string
}

// Settings controls what happens to a send that failed transiently.
type Settings struct {
	CacheActive bool
}

func DefaultSettings() Settings {
	return Settings{CacheActive: true}
}

type Event struct {
	Name            string      `json:"name"`
	Session         SessionType `json:"session"`
	NotificationIDs []string    `json:"notification_ids"`
	Weight          *float64    `json:"weight,omitempty"`
	Timestamp       int64       `json:"timestamp"`
	Params          string      `json:"params"`
}

// NewEvent builds an event from an attribution snapshot. The notification ids
// are copied so later session changes cannot leak into it.
func NewEvent(name string, weight *float64, att Attribution) (Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Event{}, ErrEmptyName
	}
	if weight != nil && (math.IsNaN(*weight) || math.IsInf(*weight, 0)) {
		return Event{}, ErrInvalidWeight
	}
	if weight != nil && *weight == 0 {
		weight = nil
	}
	if weight != nil {
		w := *weight
		weight = &w
	}
	session := att.Session
	if !session.Valid() {
		session = SessionUnattributed
	}
	ids := slices.Clone(att.NotificationIDs)
	if session == SessionUnattributed || ids == nil {
		ids = []string{}
	}
	return Event{
		Name:            name,
		Session:         session,
		NotificationIDs: ids,
		Weight:          weight,
		Params:          encodeParams(weight),
	}, nil
}

// RestoreEvent rebuilds a persisted event. The weight lives in params.
func RestoreEvent(name string, session SessionType, ids []string, params string, timestamp int64) (Event, error) {
	ev := Event{
		Name:            name,
		Session:         session,
		NotificationIDs: ids,
		Timestamp:       timestamp,
		Params:          params,
	}
	if ev.NotificationIDs == nil {
		ev.NotificationIDs = []string{}
	}
	if ev.Params == "" {
		ev.Params = "{}"
	}
	var decoded struct {
		Weight *float64 `json:"weight"`
	}
	if err := json.Unmarshal([]byte(ev.Params), &decoded); err != nil {
		return Event{}, fmt.Errorf("decode outcome params: %w", err)
	}
	ev.Weight = decoded.Weight
	return ev, nil
}

// Key is the structural identity used to remove a persisted row.
func (e Event) Key() string {
	ids, _ := json.Marshal(e.idsOrEmpty())
	return e.Name + "\x00" + string(e.Session) + "\x00" + string(ids) + "\x00" + e.Params
}

// EncodedIDs is the canonical JSON form of the notification ids.
func (e Event) EncodedIDs() string {
	raw, _ := json.Marshal(e.idsOrEmpty())
	return string(raw)
}

func (e Event) idsOrEmpty() []string {
	if e.NotificationIDs == nil {
		return []string{}
	}
	return e.NotificationIDs
}

func encodeParams(weight *float64) string {
	if weight == nil {
		return "{}"
	}
	raw, err := json.Marshal(map[string]float64{"weight": *weight})
	if err != nil {
		return "{}"
	}
	return string(raw)
}
