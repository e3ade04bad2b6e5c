package domain

import (
	"slices"
	"time"
)

// FocusRecord is foreground time not yet reported to the backend.
type FocusRecord struct {
	Type            Type          `json:"type"`
	NotificationIDs []string      `json:"notification_ids,omitempty"`
	ActiveTime      time.Duration `json:"active_time"`
}

// Reportable tells whether the record has accumulated enough time to be sent.
// Unattributed time is only reported when the policy allows it.
func (r FocusRecord) Reportable(p Policy, minUnattributed time.Duration) bool {
	if r.Type.IsAttributed() {
		return r.ActiveTime >= time.Second
	}
	return p.UnattributedEnabled && r.ActiveTime >= minUnattributed
}

type FocusPayload struct {
	State           string   `json:"state"`
	Type            int      `json:"type"`
	ActiveTime      int64    `json:"active_time"`
	DeviceType      int      `json:"device_type"`
	Direct          *bool    `json:"direct,omitempty"`
	NotificationIDs []string `json:"notification_ids,omitempty"`
}

func (r FocusRecord) Payload(deviceType int) FocusPayload {
	payload := FocusPayload{
		State:      "ping",
		Type:       1,
		ActiveTime: int64(r.ActiveTime / time.Second),
		DeviceType: deviceType,
	}
	if r.Type.IsAttributed() {
		direct := r.Type == TypeDirect
		payload.Direct = &direct
		payload.NotificationIDs = r.NotificationIDs
	}
	return payload
}

// SettleFocus removes time that has been reported (or dropped) from the
// pending records. Time booked after the records were read stays pending.
func (s *State) SettleFocus(handled []FocusRecord) {
	for _, h := range handled {
		i := slices.IndexFunc(s.PendingFocus, func(r FocusRecord) bool {
			return r.Type == h.Type && slices.Equal(r.NotificationIDs, h.NotificationIDs)
		})
		if i < 0 {
			continue
		}
		s.PendingFocus[i].ActiveTime -= h.ActiveTime
		if s.PendingFocus[i].ActiveTime <= 0 {
			s.PendingFocus = slices.Delete(s.PendingFocus, i, i+1)
		}
	}
	if len(s.PendingFocus) == 0 {
		s.PendingFocus = nil
	}
}
