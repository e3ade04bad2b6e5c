package bootstrap_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"outcomes/internal/bootstrap"
	"outcomes/internal/devserver"
	"outcomes/internal/platform/clock"
	"outcomes/internal/platform/config"
	"outcomes/internal/platform/id"
	"outcomes/internal/platform/logging"
)

var start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type env struct {
	backend *devserver.Server
	cfg     config.Config
	clk     *clock.Manual
}

func newEnv(t *testing.T) env {
	t.Helper()
	backend := devserver.New(logging.Discard())
	srv := httptest.NewServer(backend.Router())
	t.Cleanup(srv.Close)
	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Backend.URL = srv.URL
	return env{backend: backend, cfg: cfg, clk: clock.NewManual(start)}
}

func (e env) open(t *testing.T) *bootstrap.App {
	t.Helper()
	app, err := bootstrap.New(e.cfg, bootstrap.Options{
		Clock:  e.clk,
		IDs:    &id.Sequence{Prefix: "req"},
		Logger: logging.Discard(),
	})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return app
}

func drain(t *testing.T, app *bootstrap.App) {
	t.Helper()
	if err := app.Queue.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
}

func TestFocusTimeSurvivesColdRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	app := e.open(t)
	app.Host.OnNotificationReceived("n1", true)
	app.Host.OnForeground()
	drain(t, app)
	e.clk.Advance(10 * time.Second)
	app.Host.OnBackground()
	drain(t, app)

	job, err := app.Jobs.Pending(ctx)
	if err != nil || !job.Scheduled {
		t.Fatalf("backgrounding must schedule a job: %+v %v", job, err)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := e.backend.Received(devserver.RouteFocus); len(got) != 0 {
		t.Fatalf("focus must wait for the job: %+v", got)
	}

	e.clk.Advance(31 * time.Second)
	restarted := e.open(t)
	defer restarted.Close()
	res, err := restarted.Jobs.RunDue(ctx)
	if err != nil {
		t.Fatalf("run due: %v", err)
	}
	if !res.Ran || !res.Completed || res.FocusSent != 1 {
		t.Fatalf("unexpected run: %+v", res)
	}
	got := e.backend.Received(devserver.RouteFocus)
	want := `{"state":"ping","type":1,"active_time":10,"device_type":2,"direct":false,"notification_ids":["n1"]}`
	if len(got) != 1 || string(got[0].Body) != want {
		t.Fatalf("focus = %+v, want %s", got, want)
	}
	job, _ = restarted.Jobs.Pending(ctx)
	if job.Scheduled {
		t.Fatalf("completed job must be cleared")
	}
}

func TestFailedOutcomeIsReplayedAfterRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.backend.SetMode(devserver.ModeUnavailable)

	app := e.open(t)
	out, err := app.Outcomes.SendOutcomeWithValue(ctx, "testing", 1.1)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if out.Status != "queued" {
		t.Fatalf("offline send must be queued, got %+v", out)
	}
	app.Close()

	e.backend.SetMode(devserver.ModeAccept)
	restarted := e.open(t)
	defer restarted.Close()
	pending, err := restarted.Outcomes.Pending(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %+v %v", pending, err)
	}
	res, err := restarted.Jobs.RunNow(ctx)
	if err != nil {
		t.Fatalf("run now: %v", err)
	}
	if res.OutcomesSent != 1 || res.Remaining != 0 {
		t.Fatalf("unexpected run: %+v", res)
	}
	got := e.backend.Received(devserver.RouteOutcomes)
	want := `{"id":"testing","timestamp":0,"weight":1.1,"device_type":2}`
	if len(got) != 1 || string(got[0].Body) != want {
		t.Fatalf("replay = %+v, want %s", got, want)
	}
}

func TestRedisDriverKeepsOutcomesAcrossRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr := miniredis.RunT(t)
	e := newEnv(t)
	e.cfg.Store.Driver = "redis"
	e.cfg.Store.RedisURL = "redis://" + mr.Addr()
	e.backend.SetMode(devserver.ModeUnavailable)

	app := e.open(t)
	if out, err := app.Outcomes.SendOutcome(ctx, "signup"); err != nil || out.Status != "queued" {
		t.Fatalf("offline send = %+v %v", out, err)
	}
	app.Close()
	if items, err := mr.List(e.cfg.Store.RedisKey); err != nil || len(items) != 1 {
		t.Fatalf("redis list = %v %v", items, err)
	}

	e.backend.SetMode(devserver.ModeAccept)
	restarted := e.open(t)
	defer restarted.Close()
	res, err := restarted.Outcomes.SendSavedOutcomes(ctx)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if res.Sent != 1 || res.Remaining != 0 {
		t.Fatalf("unexpected flush: %+v", res)
	}
	if mr.Exists(e.cfg.Store.RedisKey) {
		t.Fatalf("replayed row must be removed from redis")
	}
}

func TestNewSessionResetsUniqueOutcomes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	app := e.open(t)
	defer app.Close()

	app.Host.OnForeground()
	first, _ := app.Outcomes.SendUniqueOutcome(ctx, "open")
	second, _ := app.Outcomes.SendUniqueOutcome(ctx, "open")
	if first.Status != "sent" || second.Status != "suppressed" {
		t.Fatalf("unexpected statuses: %s %s", first.Status, second.Status)
	}

	e.clk.Advance(5 * time.Second)
	app.Host.OnBackground()
	drain(t, app)
	e.clk.Advance(31 * time.Second)
	app.Host.OnForeground()
	third, err := app.Outcomes.SendUniqueOutcome(ctx, "open")
	if err != nil {
		t.Fatalf("send unique: %v", err)
	}
	if third.Status != "sent" {
		t.Fatalf("new session must reset unique outcomes, got %s", third.Status)
	}
	if got := e.backend.Received(devserver.RouteOutcomes); len(got) != 2 {
		t.Fatalf("expected 2 measurements, got %d", len(got))
	}
}

func TestParamsApplyOnNextStart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	app := e.open(t)
	if _, err := app.SetParam(ctx, "cache_active", "false"); err != nil {
		t.Fatalf("set param: %v", err)
	}
	if _, err := app.SetParam(ctx, "notification_limit", "0"); err == nil {
		t.Fatalf("invalid param must be rejected")
	}
	app.Close()

	e.backend.SetMode(devserver.ModeUnavailable)
	restarted := e.open(t)
	defer restarted.Close()
	if restarted.Config.Outcomes.CacheActive {
		t.Fatalf("param override not applied")
	}
	out, _ := restarted.Outcomes.SendOutcome(ctx, "testing")
	if out.Status != "dropped" {
		t.Fatalf("cache inactive must drop failures, got %s", out.Status)
	}
}
