package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"outcomes/internal/devserver"
	"outcomes/internal/platform/logging"
)

func runCLI(t *testing.T, dataDir string, args ...string) string {
	t.Helper()
	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(append([]string{"--data", dataDir}, args...))
	if err := root.Execute(); err != nil {
		t.Fatalf("outcomes %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func newDataDir(t *testing.T, backendURL string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "backend:\n  url: " + backendURL + "\nlog:\n  level: error\n"
	if err := os.WriteFile(filepath.Join(dir, "outcomes.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestCLISendsOutcomeForCurrentSession(t *testing.T) {
	t.Parallel()
	srv := devserver.New(logging.Discard())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	dir := newDataDir(t, ts.URL)

	if out := runCLI(t, dir, "lifecycle", "foreground"); !strings.Contains(out, "foreground: unattributed (new session)") {
		t.Fatalf("unexpected foreground output %q", out)
	}
	if out := runCLI(t, dir, "send", "purchase", "--weight", "2"); !strings.Contains(out, "purchase [unattributed] sent weight=2") {
		t.Fatalf("unexpected send output %q", out)
	}
	if got := srv.Received(devserver.RouteOutcomes); len(got) != 1 {
		t.Fatalf("expected one outcome at the backend, got %d", len(got))
	}
	if out := runCLI(t, dir, "status"); !strings.Contains(out, "session: unattributed") || !strings.Contains(out, "pending outcomes: 0") {
		t.Fatalf("unexpected status output %q", out)
	}
}

func TestCLIQueuesOutcomesWhileBackendIsDown(t *testing.T) {
	t.Parallel()
	srv := devserver.New(logging.Discard())
	srv.SetMode(devserver.ModeUnavailable)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	dir := newDataDir(t, ts.URL)

	runCLI(t, dir, "lifecycle", "foreground")
	if out := runCLI(t, dir, "send", "signup"); !strings.Contains(out, "signup [unattributed] queued") {
		t.Fatalf("unexpected send output %q", out)
	}
	if out := runCLI(t, dir, "pending"); !strings.Contains(out, "signup\tunattributed") {
		t.Fatalf("unexpected pending output %q", out)
	}

	srv.SetMode(devserver.ModeAccept)
	if out := runCLI(t, dir, "flush"); !strings.Contains(out, "attempted=1 sent=1 rejected=0 remaining=0") {
		t.Fatalf("unexpected flush output %q", out)
	}
	if out := runCLI(t, dir, "pending"); !strings.Contains(out, "no pending outcomes") {
		t.Fatalf("unexpected pending output after flush %q", out)
	}
}

func TestCLIParamsSetApplyOnNextStart(t *testing.T) {
	t.Parallel()
	dir := newDataDir(t, "http://127.0.0.1:1")

	runCLI(t, dir, "params", "set", "notification_limit", "3")
	if out := runCLI(t, dir, "params", "show"); !strings.Contains(out, "notification_limit=3") {
		t.Fatalf("expected override to show, got %q", out)
	}
}
