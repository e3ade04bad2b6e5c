package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	outcomeinadapter "outcomes/internal/modules/outcome/adapter/in"
	outcomeoutadapter "outcomes/internal/modules/outcome/adapter/out"
	outcomedomain "outcomes/internal/modules/outcome/domain"
	outcomeout "outcomes/internal/modules/outcome/port/out"
	outcomeservice "outcomes/internal/modules/outcome/service"
	outcomeusecase "outcomes/internal/modules/outcome/usecase"
	sessioninadapter "outcomes/internal/modules/session/adapter/in"
	sessionoutadapter "outcomes/internal/modules/session/adapter/out"
	sessiondomain "outcomes/internal/modules/session/domain"
	sessionservice "outcomes/internal/modules/session/service"
	sessionusecase "outcomes/internal/modules/session/usecase"
	syncjobinadapter "outcomes/internal/modules/syncjob/adapter/in"
	syncjoboutadapter "outcomes/internal/modules/syncjob/adapter/out"
	syncjobservice "outcomes/internal/modules/syncjob/service"
	syncjobusecase "outcomes/internal/modules/syncjob/usecase"
	"outcomes/internal/platform/clock"
	"outcomes/internal/platform/config"
	apperrors "outcomes/internal/platform/errors"
	"outcomes/internal/platform/id"
	"outcomes/internal/platform/kv"
	"outcomes/internal/platform/queue"
	"outcomes/internal/platform/rest"
	uiapp "outcomes/internal/ui/app"
)

// Options carries the collaborators that tests and the daemon swap out.
type Options struct {
	Clock      clock.Clock
	IDs        id.Generator
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Registerer receives the delivery metrics. Nil disables them.
	Registerer prometheus.Registerer
}

type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Queue      *queue.Serial
	Host       sessioninadapter.HostHandler
	SessionCLI sessioninadapter.CLIHandler
	Outcomes   outcomeinadapter.Handler
	Jobs       syncjobinadapter.Handler

	kv      *kv.FileStore
	closers []func() error
}

func New(cfg config.Config, opts Options) (*App, error) {
	ctx := context.Background()
	if opts.Clock == nil {
		opts.Clock = clock.SystemClock{}
	}
	if opts.IDs == nil {
		opts.IDs = id.UUID{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger

	kvStore := kv.NewFileStore(cfg.KVDir)
	params, err := LoadParams(ctx, kvStore)
	if err != nil {
		return nil, err
	}
	cfg = params.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := rest.New(rest.Options{
		BaseURL:    cfg.Backend.URL,
		AppID:      cfg.Backend.AppID,
		Timeout:    cfg.Backend.Timeout,
		HTTPClient: opts.HTTPClient,
		IDs:        opts.IDs,
		Logger:     logger,

		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Burst:             cfg.Backend.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("new backend client: %w", err)
	}

	app := &App{Config: cfg, Logger: logger, kv: kvStore}
	store, err := app.openOutcomeStore(cfg)
	if err != nil {
		return nil, err
	}

	sessionSvc, err := sessionservice.NewSessionService(
		opts.Clock,
		sessionoutadapter.NewKVStateStore(kvStore),
		sessionoutadapter.NewRESTFocusClient(client),
		sessionservice.Options{
			Policy:               policyFromConfig(cfg),
			DeviceType:           cfg.Backend.DeviceType,
			MinUnattributedFocus: cfg.Sync.MinUnattributedFocus,
		},
		logger.With("module", "session"),
	)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("new session service: %w", err)
	}
	if err := sessionSvc.Restore(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	sessionUC := sessionusecase.NewInteractor(sessionSvc)

	var metrics outcomeout.Metrics
	if opts.Registerer != nil {
		if metrics, err = outcomeoutadapter.NewPrometheusMetrics(opts.Registerer); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	outcomeUC := outcomeusecase.NewInteractor(outcomeservice.NewDeliveryService(
		store,
		outcomeoutadapter.NewRESTMeasureClient(client),
		outcomeoutadapter.NewSessionAttribution(sessionUC),
		metrics,
		outcomeservice.Options{
			Settings:   outcomedomain.Settings{CacheActive: cfg.Outcomes.CacheActive},
			DeviceType: cfg.Backend.DeviceType,
		},
		logger.With("module", "outcome"),
	))

	jobUC := syncjobusecase.NewInteractor(syncjobservice.NewJobService(
		opts.Clock,
		syncjoboutadapter.NewKVJobStore(kvStore),
		syncjoboutadapter.NewSessionFocusFlusher(sessionUC),
		syncjoboutadapter.NewSavedOutcomeFlusher(outcomeUC),
		cfg.Sync.JobDelay,
		logger.With("module", "syncjob"),
	))
	sessionSvc.Subscribe(sessionoutadapter.NewCoordinator(outcomeUC, jobUC, logger))

	app.Queue = queue.NewSerial(logger)
	app.Host = sessioninadapter.NewHostHandler(sessionUC, app.Queue, logger)
	app.SessionCLI = sessioninadapter.NewCLIHandler(sessionUC, app.Queue)
	app.Outcomes = outcomeinadapter.NewHandler(outcomeUC, app.Queue)
	app.Jobs = syncjobinadapter.NewHandler(jobUC, app.Queue, logger)
	return app, nil
}

func (a *App) openOutcomeStore(cfg config.Config) (outcomeout.Store, error) {
	switch cfg.Store.Driver {
	case "redis":
		store, err := outcomeoutadapter.NewRedisStore(cfg.Store.RedisURL, cfg.Store.RedisKey)
		if err != nil {
			return nil, fmt.Errorf("open redis outcome store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		store, err := outcomeoutadapter.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite outcome store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	}
}

// Close stops the queue after the queued work has run, then releases stores.
func (a *App) Close() error {
	if a.Queue != nil {
		a.Queue.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Params returns the persisted overrides.
func (a *App) Params(ctx context.Context) (config.Params, error) {
	return LoadParams(ctx, a.kv)
}

// SetParam persists one override. It takes effect on the next start.
func (a *App) SetParam(ctx context.Context, key, value string) (config.Params, error) {
	params, err := LoadParams(ctx, a.kv)
	if err != nil {
		return config.Params{}, err
	}
	if err := params.Set(key, value); err != nil {
		return config.Params{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if err := params.Apply(a.Config).Validate(); err != nil {
		return config.Params{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if err := a.kv.Put(ctx, config.ParamsKey, params); err != nil {
		return config.Params{}, fmt.Errorf("save params: %w", err)
	}
	return params, nil
}

func LoadParams(ctx context.Context, store *kv.FileStore) (config.Params, error) {
	params := config.Params{}
	err := store.Get(ctx, config.ParamsKey, &params)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return config.Params{}, fmt.Errorf("load params: %w", err)
	}
	return params, nil
}

func policyFromConfig(cfg config.Config) sessiondomain.Policy {
	return sessiondomain.Policy{
		DirectEnabled:       cfg.Attribution.DirectEnabled,
		IndirectEnabled:     cfg.Attribution.IndirectEnabled,
		UnattributedEnabled: cfg.Attribution.UnattributedEnabled,
		NotificationLimit:   cfg.Attribution.NotificationLimit,
		IndirectWindow:      time.Duration(cfg.Attribution.IndirectWindowMinutes) * time.Minute,
		SessionThreshold:    cfg.Attribution.SessionThreshold,
	}
}

func RunTUI(app *App) error {
	model := uiapp.NewModel(app.SessionCLI, app.Outcomes, app.Jobs)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
