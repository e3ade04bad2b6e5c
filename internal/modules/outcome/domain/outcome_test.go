package domain_test

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"slices"
	"testing"

	"outcomes/internal/modules/outcome/domain"
)

func weight(v float64) *float64 { return &v }

func marshal(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}

func TestLivePayloads(t *testing.T) {
	t.Parallel()
	plain, err := domain.NewEvent("testing", nil, domain.Attribution{Session: domain.SessionUnattributed})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if got := marshal(t, plain.Payload(2, false)); got != `{"id":"testing","device_type":2}` {
		t.Fatalf("plain payload = %s", got)
	}
	if plain.Params != "{}" {
		t.Fatalf("params = %s", plain.Params)
	}

	weighted, _ := domain.NewEvent("testing", weight(1.1), domain.Attribution{Session: domain.SessionUnattributed})
	got := map[string]any{}
	if err := json.Unmarshal([]byte(marshal(t, weighted.Payload(2, false))), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{"id": "testing", "weight": 1.1, "device_type": float64(2)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("weighted payload = %v, want %v", got, want)
	}
	if weighted.Params != `{"weight":1.1}` {
		t.Fatalf("params = %s", weighted.Params)
	}
}

func TestReplayPayloadCarriesTimestamp(t *testing.T) {
	t.Parallel()
	ev, _ := domain.NewEvent("testing", weight(1.1), domain.Attribution{Session: domain.SessionUnattributed})
	if got := marshal(t, ev.Payload(2, true)); got != `{"id":"testing","timestamp":0,"weight":1.1,"device_type":2}` {
		t.Fatalf("replay payload = %s", got)
	}
}

func TestAttributedPayloads(t *testing.T) {
	t.Parallel()
	direct, _ := domain.NewEvent("purchase", nil, domain.Attribution{Session: domain.SessionDirect, NotificationIDs: []string{"n1"}})
	if got := marshal(t, direct.Payload(2, false)); got != `{"id":"purchase","device_type":2,"direct":true,"notification_ids":["n1"]}` {
		t.Fatalf("direct payload = %s", got)
	}
	indirect, _ := domain.NewEvent("purchase", nil, domain.Attribution{Session: domain.SessionIndirect, NotificationIDs: []string{"n1", "n2"}})
	if got := marshal(t, indirect.Payload(2, false)); got != `{"id":"purchase","device_type":2,"direct":false,"notification_ids":["n1","n2"]}` {
		t.Fatalf("indirect payload = %s", got)
	}
}

func TestEventCopiesAttribution(t *testing.T) {
	t.Parallel()
	ids := []string{"n1"}
	ev, _ := domain.NewEvent("open", nil, domain.Attribution{Session: domain.SessionIndirect, NotificationIDs: ids})
	ids[0] = "mutated"
	if ev.NotificationIDs[0] != "n1" {
		t.Fatalf("event shares the caller's slice")
	}
}

func TestNewEventValidation(t *testing.T) {
	t.Parallel()
	if _, err := domain.NewEvent("  ", nil, domain.Attribution{}); !errors.Is(err, domain.ErrEmptyName) {
		t.Fatalf("expected empty name error, got %v", err)
	}
	nan := math.NaN()
	if _, err := domain.NewEvent("x", &nan, domain.Attribution{}); !errors.Is(err, domain.ErrInvalidWeight) {
		t.Fatalf("expected weight error, got %v", err)
	}
}

func TestRestoreEventRoundTrip(t *testing.T) {
	t.Parallel()
	ev, _ := domain.NewEvent("testing", weight(1.1), domain.Attribution{Session: domain.SessionIndirect, NotificationIDs: []string{"a"}})
	restored, err := domain.RestoreEvent(ev.Name, ev.Session, ev.NotificationIDs, ev.Params, 0)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Key() != ev.Key() || restored.Weight == nil || *restored.Weight != 1.1 {
		t.Fatalf("restored event differs: %+v", restored)
	}
}

func TestLedgerClaims(t *testing.T) {
	t.Parallel()
	l := domain.NewLedger()
	direct := domain.Attribution{Session: domain.SessionDirect, NotificationIDs: []string{"n1"}}
	if _, ok := l.Claim("buy", direct); !ok {
		t.Fatalf("first direct claim must pass")
	}
	if _, ok := l.Claim("buy", direct); ok {
		t.Fatalf("repeat direct claim must be suppressed")
	}
	if _, ok := l.Claim("other", direct); !ok {
		t.Fatalf("different name must pass")
	}

	indirect := domain.Attribution{Session: domain.SessionIndirect, NotificationIDs: []string{"n1", "n2"}}
	att, ok := l.Claim("buy", indirect)
	if !ok || !slices.Equal(att.NotificationIDs, []string{"n2"}) {
		t.Fatalf("indirect claim must carry only new ids: %+v %v", att, ok)
	}
	if _, ok := l.Claim("buy", indirect); ok {
		t.Fatalf("fully claimed indirect must be suppressed")
	}

	organic := domain.Attribution{Session: domain.SessionUnattributed}
	if _, ok := l.Claim("buy", organic); !ok {
		t.Fatalf("first unattributed claim must pass")
	}
	if _, ok := l.Claim("buy", organic); ok {
		t.Fatalf("repeat unattributed claim must be suppressed")
	}
	l.Reset()
	if _, ok := l.Claim("buy", organic); !ok || l.Len() != 1 {
		t.Fatalf("reset must forget claims")
	}
}
