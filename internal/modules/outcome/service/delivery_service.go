package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"outcomes/internal/modules/outcome/domain"
	outcomeout "outcomes/internal/modules/outcome/port/out"
	apperrors "outcomes/internal/platform/errors"
)

type Options struct {
	Settings   domain.Settings
	DeviceType int
}

type DeliveryService struct {
	store       outcomeout.Store
	client      outcomeout.MeasureClient
	attribution outcomeout.AttributionSource
	metrics     outcomeout.Metrics
	opts        Options
	logger      *slog.Logger

	mu     sync.Mutex
	ledger *domain.Ledger
}

func NewDeliveryService(store outcomeout.Store, client outcomeout.MeasureClient, attribution outcomeout.AttributionSource, metrics outcomeout.Metrics, opts Options, logger *slog.Logger) *DeliveryService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &DeliveryService{
		store:       store,
		client:      client,
		attribution: attribution,
		metrics:     metrics,
		opts:        opts,
		logger:      logger,
		ledger:      domain.NewLedger(),
	}
}

// Send delivers a named outcome attributed to the current session.
func (s *DeliveryService) Send(ctx context.Context, name string, weight *float64) (domain.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return domain.Delivery{}, err
	}
	att, err := s.attribution.Attribution(ctx)
	if err != nil {
		return domain.Delivery{}, fmt.Errorf("read attribution: %w", err)
	}
	ev, err := domain.NewEvent(name, weight, att)
	if err != nil {
		return domain.Delivery{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return s.deliverLive(ctx, ev), nil
}

// SendUnique delivers a named outcome at most once per notification (or once
// per session when unattributed) until the ledger is cleared.
func (s *DeliveryService) SendUnique(ctx context.Context, name string) (domain.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return domain.Delivery{}, err
	}
	att, err := s.attribution.Attribution(ctx)
	if err != nil {
		return domain.Delivery{}, fmt.Errorf("read attribution: %w", err)
	}
	named, err := domain.NewEvent(name, nil, att)
	if err != nil {
		return domain.Delivery{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	s.mu.Lock()
	claimed, ok := s.ledger.Claim(named.Name, att)
	s.mu.Unlock()
	ev, _ := domain.NewEvent(named.Name, nil, claimed)
	if !ok {
		s.logger.Debug("unique outcome already sent", "outcome", ev.Name, "session", att.Session)
		s.metrics.Delivered(ev.Session, domain.StatusSuppressed)
		return domain.Delivery{Event: ev, Status: domain.StatusSuppressed}, nil
	}
	return s.deliverLive(ctx, ev), nil
}

type FlushResult struct {
	Attempted int
	Sent      int
	Rejected  int
	Remaining int
}

// SendSaved replays persisted outcomes in insertion order. Each row is
// handled on its own: delivered and rejected rows are removed, the rest stay.
func (s *DeliveryService) SendSaved(ctx context.Context) (FlushResult, error) {
	if err := ctx.Err(); err != nil {
		return FlushResult{}, err
	}
	events, err := s.store.ListAll(ctx)
	if err != nil {
		return FlushResult{}, fmt.Errorf("%w: list outcomes: %v", apperrors.ErrStoreUnavailable, err)
	}
	res := FlushResult{}
	for _, ev := range events {
		res.Attempted++
		err := s.deliver(ctx, ev, true)
		status := domain.StatusSent
		switch {
		case err == nil:
		case apperrors.IsRetryable(err):
			status = domain.StatusQueued
		default:
			status = domain.StatusRejected
			s.logger.Warn("saved outcome rejected", "outcome", ev.Name, "session", ev.Session, "error", err)
		}
		s.metrics.Replayed(status)
		if status == domain.StatusQueued {
			res.Remaining++
			continue
		}
		if removeErr := s.store.Remove(ctx, ev); removeErr != nil {
			s.logger.Error("remove saved outcome", "outcome", ev.Name, "error", removeErr)
			res.Remaining++
			continue
		}
		if status == domain.StatusSent {
			res.Sent++
		} else {
			res.Rejected++
		}
	}
	if res.Attempted > 0 {
		s.logger.Info("replayed saved outcomes", "attempted", res.Attempted, "sent", res.Sent, "remaining", res.Remaining)
	}
	return res, nil
}

// Clear forgets which unique outcomes were sent. Persisted rows are untouched.
func (s *DeliveryService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.Reset()
}

func (s *DeliveryService) Pending(ctx context.Context) ([]domain.Event, error) {
	events, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list outcomes: %v", apperrors.ErrStoreUnavailable, err)
	}
	return events, nil
}

func (s *DeliveryService) deliverLive(ctx context.Context, ev domain.Event) domain.Delivery {
	d := domain.Delivery{Event: ev}
	err := s.deliver(ctx, ev, false)
	switch {
	case err == nil:
		d.Status = domain.StatusSent
	case !apperrors.IsRetryable(err):
		d.Status, d.Err = domain.StatusRejected, err
		s.logger.Warn("outcome rejected", "outcome", ev.Name, "session", ev.Session, "error", err)
	case !s.opts.Settings.CacheActive:
		d.Status, d.Err = domain.StatusDropped, err
		s.logger.Info("outcome dropped", "outcome", ev.Name, "session", ev.Session, "error", err)
	default:
		if appendErr := s.store.Append(ctx, ev); appendErr != nil {
			d.Status, d.Err = domain.StatusUnknown, errors.Join(err, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, appendErr))
			s.logger.Error("outcome lost", "outcome", ev.Name, "session", ev.Session, "error", d.Err)
			break
		}
		d.Status, d.Err = domain.StatusQueued, err
		s.logger.Info("outcome queued for replay", "outcome", ev.Name, "session", ev.Session, "error", err)
	}
	s.metrics.Delivered(ev.Session, d.Status)
	return d
}

func (s *DeliveryService) deliver(ctx context.Context, ev domain.Event, replay bool) error {
	payload := ev.Payload(s.opts.DeviceType, replay)
	switch ev.Session {
	case domain.SessionDirect:
		return s.client.RequestDirect(ctx, payload)
	case domain.SessionIndirect:
		return s.client.RequestIndirect(ctx, payload)
	default:
		return s.client.RequestUnattributed(ctx, payload)
	}
}

type nopMetrics struct{}

func (nopMetrics) Delivered(domain.SessionType, domain.Status) {}
func (nopMetrics) Replayed(domain.Status)                      {}
