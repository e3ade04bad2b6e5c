package domain_test

import (
	"slices"
	"testing"
	"time"

	"outcomes/internal/modules/session/domain"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestTypeValidate(t *testing.T) {
	t.Parallel()
	for _, typ := range []domain.Type{domain.TypeDirect, domain.TypeIndirect, domain.TypeUnattributed} {
		if err := typ.Validate(); err != nil {
			t.Fatalf("validate %s: %v", typ, err)
		}
	}
	if err := domain.Type("organic").Validate(); err == nil {
		t.Fatalf("expected unknown type error")
	}
}

func TestFirstForegroundIsUnattributedWithoutReceipts(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	st := domain.NewState(t0)
	tr := st.EnterForeground(t0, p)
	if !tr.NewSession {
		t.Fatalf("first foreground must start a session")
	}
	if st.Type != domain.TypeUnattributed || st.DirectNotificationID != "" || len(st.IndirectNotificationIDs) != 0 {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestReceiptWhileForegroundIsNotEligible(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	st := domain.NewState(t0)
	st.EnterForeground(t0, p)
	if st.Receive("n1", false, t0.Add(time.Second), p) {
		t.Fatalf("foreground receipt must be rejected")
	}
	st.EnterBackground(t0.Add(2 * time.Second))
	st.EnterForeground(t0.Add(time.Minute), p)
	if st.Type != domain.TypeUnattributed {
		t.Fatalf("expected unattributed, got %s", st.Type)
	}
	if slices.Contains(st.IndirectNotificationIDs, "n1") {
		t.Fatalf("foreground receipt leaked into indirect ids")
	}
}

func TestBackgroundReceiptMakesNextSessionIndirect(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	st := domain.NewState(t0)
	st.EnterForeground(t0, p)
	st.EnterBackground(t0.Add(5 * time.Second))
	if !st.Receive("n1", true, t0.Add(10*time.Second), p) {
		t.Fatalf("background receipt must be accepted")
	}
	if st.Type != domain.TypeUnattributed {
		t.Fatalf("receipt must not change type, got %s", st.Type)
	}
	tr := st.EnterForeground(t0.Add(41*time.Second), p)
	if !tr.NewSession || st.Type != domain.TypeIndirect {
		t.Fatalf("expected new indirect session, got %+v %+v", tr, st)
	}
	if !slices.Equal(st.IndirectNotificationIDs, []string{"n1"}) {
		t.Fatalf("unexpected indirect ids: %v", st.IndirectNotificationIDs)
	}
}

func TestQuickSwitchKeepsAttribution(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	st := domain.NewState(t0)
	st.Receive("n1", true, t0, p)
	st.EnterForeground(t0.Add(time.Second), p)
	st.EnterBackground(t0.Add(10 * time.Second))
	st.Receive("n2", true, t0.Add(11*time.Second), p)

	tr := st.EnterForeground(t0.Add(20*time.Second), p)
	if tr.NewSession {
		t.Fatalf("10s in background must not start a session")
	}
	if !slices.Equal(st.IndirectNotificationIDs, []string{"n1"}) {
		t.Fatalf("quick switch changed indirect ids: %v", st.IndirectNotificationIDs)
	}

	st.EnterBackground(t0.Add(30 * time.Second))
	st.EnterForeground(t0.Add(61*time.Second), p)
	if !slices.Equal(st.IndirectNotificationIDs, []string{"n1", "n2"}) {
		t.Fatalf("boundary must pick up queued receipts: %v", st.IndirectNotificationIDs)
	}
}

func TestQuickSwitchKeepsReceiptsForNextBoundary(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	st := domain.NewState(t0)
	st.EnterForeground(t0, p)
	st.EnterBackground(t0.Add(time.Second))
	st.Receive("n1", true, t0.Add(2*time.Second), p)
	tr := st.EnterForeground(t0.Add(3*time.Second), p)
	if tr.NewSession || tr.Changed() || st.Type != domain.TypeUnattributed {
		t.Fatalf("quick switch must not re-evaluate: %+v type=%s", tr, st.Type)
	}
	if len(st.Received) != 1 || st.Received[0].ID != "n1" {
		t.Fatalf("receipt must stay queued: %+v", st.Received)
	}

	st.EnterBackground(t0.Add(4 * time.Second))
	tr = st.EnterForeground(t0.Add(40*time.Second), p)
	if !tr.NewSession || st.Type != domain.TypeIndirect || !slices.Equal(st.IndirectNotificationIDs, []string{"n1"}) {
		t.Fatalf("next boundary must attribute the queued receipt: %+v ids=%v", tr, st.IndirectNotificationIDs)
	}
}

func TestIndirectWindowExpiry(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	st := domain.NewState(t0)
	st.Receive("old", true, t0, p)
	st.EnterForeground(t0.Add(1441*time.Minute), p)
	if st.Type != domain.TypeUnattributed || len(st.IndirectNotificationIDs) != 0 {
		t.Fatalf("expired receipt must not attribute: %+v", st)
	}
	if len(st.Received) != 0 {
		t.Fatalf("expired receipt must be pruned: %v", st.Received)
	}
}

func TestBoundaryCarriesAllValidReceipts(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	st := domain.NewState(t0)
	st.Receive("id1", true, t0, p)
	st.EnterForeground(t0.Add(time.Minute), p)
	st.EnterBackground(t0.Add(2 * time.Minute))
	st.Receive("id2", true, t0.Add(3*time.Minute), p)
	st.EnterForeground(t0.Add(4*time.Minute), p)
	if !slices.Equal(st.IndirectNotificationIDs, []string{"id1", "id2"}) {
		t.Fatalf("unexpected ids: %v", st.IndirectNotificationIDs)
	}
}

func TestNotificationLimitEvictsOldest(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	p.NotificationLimit = 2
	st := domain.NewState(t0)
	st.Receive("a", true, t0, p)
	st.Receive("b", true, t0.Add(time.Second), p)
	st.Receive("c", true, t0.Add(2*time.Second), p)
	st.Receive("b", true, t0.Add(3*time.Second), p)
	st.EnterForeground(t0.Add(time.Minute), p)
	if !slices.Equal(st.IndirectNotificationIDs, []string{"c", "b"}) {
		t.Fatalf("unexpected ids after eviction: %v", st.IndirectNotificationIDs)
	}
}

func TestClickOverridesAndLastClickWins(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	st := domain.NewState(t0)
	st.Receive("n1", true, t0, p)
	st.EnterForeground(t0.Add(time.Second), p)
	if st.Type != domain.TypeIndirect {
		t.Fatalf("expected indirect, got %s", st.Type)
	}
	st.Click("A", p)
	if st.Type != domain.TypeDirect || st.DirectNotificationID != "A" || len(st.IndirectNotificationIDs) != 0 {
		t.Fatalf("click must override at once: %+v", st)
	}
	st.Click("B", p)
	if st.DirectNotificationID != "B" {
		t.Fatalf("last click must win, got %s", st.DirectNotificationID)
	}
	att := st.Attribution()
	if !slices.Equal(att.NotificationIDs, []string{"B"}) {
		t.Fatalf("unexpected attribution ids: %v", att.NotificationIDs)
	}
}

func TestClickWhileBackgroundedSurvivesBoundary(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	st := domain.NewState(t0)
	st.EnterForeground(t0, p)
	st.EnterBackground(t0.Add(time.Second))
	st.Receive("n1", true, t0.Add(2*time.Second), p)
	st.Click("n2", p)
	if !st.ClickPending {
		t.Fatalf("click in background must be pending")
	}
	st.EnterForeground(t0.Add(5*time.Minute), p)
	if st.Type != domain.TypeDirect || st.DirectNotificationID != "n2" {
		t.Fatalf("pending click must win the boundary: %+v", st)
	}
	if st.ClickPending {
		t.Fatalf("click must be consumed by the foreground")
	}
}

func TestClickIgnoredWhenDirectDisabled(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	p.DirectEnabled = false
	st := domain.NewState(t0)
	st.EnterForeground(t0, p)
	st.Click("n1", p)
	if st.Type != domain.TypeUnattributed {
		t.Fatalf("click must be ignored, got %s", st.Type)
	}
}

func TestBackgroundBooksFocusUnderAttribution(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	st := domain.NewState(t0)
	st.Receive("n1", true, t0, p)
	st.EnterForeground(t0.Add(time.Second), p)
	tr := st.EnterBackground(t0.Add(11 * time.Second))
	if tr.Elapsed != 10*time.Second || st.ActiveTime != 10*time.Second {
		t.Fatalf("unexpected active time: %v %v", tr.Elapsed, st.ActiveTime)
	}
	st.EnterForeground(t0.Add(15*time.Second), p)
	st.EnterBackground(t0.Add(20 * time.Second))
	if len(st.PendingFocus) != 1 {
		t.Fatalf("same attribution must merge, got %+v", st.PendingFocus)
	}
	if st.PendingFocus[0].ActiveTime != 15*time.Second || st.PendingFocus[0].Type != domain.TypeIndirect {
		t.Fatalf("unexpected focus record: %+v", st.PendingFocus[0])
	}
}

func TestRestoreMakesNextForegroundABoundary(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	st := domain.NewState(t0)
	st.EnterForeground(t0, p)
	st.EnterBackground(t0.Add(time.Second))

	restored := st.Clone()
	restored.Restore(t0.Add(2 * time.Second))
	tr := restored.EnterForeground(t0.Add(3*time.Second), p)
	if !tr.NewSession {
		t.Fatalf("first foreground after restore must start a session")
	}
}

func TestRestoreBooksForegroundUpToLastCheckpoint(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	st := domain.NewState(t0)
	st.EnterForeground(t0, p)
	if !st.Checkpoint(t0.Add(7 * time.Second)) {
		t.Fatalf("checkpoint while foregrounded must record")
	}

	restored := st.Clone()
	restored.Restore(t0.Add(time.Minute))
	if restored.Foreground || !restored.BackgroundedAt.Equal(t0.Add(7*time.Second)) {
		t.Fatalf("restore must background at the checkpoint: %+v", restored)
	}
	if restored.ActiveTime != 7*time.Second {
		t.Fatalf("active time = %v, want 7s", restored.ActiveTime)
	}
	if len(restored.PendingFocus) != 1 || restored.PendingFocus[0].ActiveTime != 7*time.Second {
		t.Fatalf("pending focus = %+v", restored.PendingFocus)
	}
	if tr := restored.EnterForeground(t0.Add(2*time.Minute), p); !tr.NewSession {
		t.Fatalf("first foreground after restore must start a session")
	}
}

func TestRestoreWithoutCheckpointBooksNothing(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	st := domain.NewState(t0)
	st.EnterForeground(t0, p)

	restored := st.Clone()
	restored.Restore(t0.Add(time.Minute))
	if restored.ActiveTime != 0 || len(restored.PendingFocus) != 0 {
		t.Fatalf("nothing to book without a checkpoint: %+v", restored)
	}
	if !restored.BackgroundedAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("backgrounded at = %v", restored.BackgroundedAt)
	}
}

func TestCheckpointIgnoredWhileBackgrounded(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	st := domain.NewState(t0)
	st.EnterForeground(t0, p)
	st.EnterBackground(t0.Add(time.Second))
	if st.Checkpoint(t0.Add(2 * time.Second)) {
		t.Fatalf("checkpoint while backgrounded must be a no-op")
	}
	if !st.LastSeenAt.IsZero() {
		t.Fatalf("last seen = %v", st.LastSeenAt)
	}
}

func TestFocusPayload(t *testing.T) {
	t.Parallel()
	p := domain.DefaultPolicy()
	attributed := domain.FocusRecord{Type: domain.TypeIndirect, NotificationIDs: []string{"n1"}, ActiveTime: 10 * time.Second}
	payload := attributed.Payload(2)
	if payload.ActiveTime != 10 || payload.Direct == nil || *payload.Direct || payload.DeviceType != 2 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if !attributed.Reportable(p, time.Minute) {
		t.Fatalf("10s attributed focus must be reportable")
	}
	organic := domain.FocusRecord{Type: domain.TypeUnattributed, ActiveTime: 30 * time.Second}
	if organic.Reportable(p, time.Minute) {
		t.Fatalf("30s unattributed focus is below the minimum")
	}
	if organic.Payload(2).Direct != nil {
		t.Fatalf("unattributed payload must carry no direct marker")
	}
	p.UnattributedEnabled = false
	organic.ActiveTime = 2 * time.Minute
	if organic.Reportable(p, time.Minute) {
		t.Fatalf("unattributed focus must not be reported when disabled")
	}
}
