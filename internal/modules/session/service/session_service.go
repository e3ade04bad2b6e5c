package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"outcomes/internal/modules/session/domain"
	sessionout "outcomes/internal/modules/session/port/out"
	"outcomes/internal/platform/clock"
	apperrors "outcomes/internal/platform/errors"
)

type Options struct {
	Policy               domain.Policy
	DeviceType           int
	MinUnattributedFocus time.Duration
}

type SessionService struct {
	clock     clock.Clock
	store     sessionout.StateStore
	focus     sessionout.FocusClient
	opts      Options
	logger    *slog.Logger
	mu        sync.Mutex
	state     domain.State
	listeners []sessionout.Listener
}

func NewSessionService(clk clock.Clock, store sessionout.StateStore, focus sessionout.FocusClient, opts Options, logger *slog.Logger) (*SessionService, error) {
	if err := opts.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		clock:  clk,
		store:  store,
		focus:  focus,
		opts:   opts,
		logger: logger,
		state:  domain.NewState(clk.Now()),
	}, nil
}

// Restore loads the persisted state for a fresh process. A missing state
// starts from an empty unattributed one.
func (s *SessionService) Restore(ctx context.Context) error {
	now := s.clock.Now()
	st, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		st = domain.NewState(now)
	case err != nil:
		return fmt.Errorf("restore session state: %w", err)
	}
	st.Restore(now)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	return nil
}

func (s *SessionService) Subscribe(l sessionout.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *SessionService) Foreground(ctx context.Context) (domain.Transition, error) {
	now := s.clock.Now()
	tr, att, listeners, err := s.mutate(ctx, func(st *domain.State) domain.Transition {
		return st.EnterForeground(now, s.opts.Policy)
	})
	if err != nil {
		return tr, err
	}
	if tr.NewSession {
		s.logger.Info("session started", "session", tr.Current, "notifications", len(att.NotificationIDs))
		for _, l := range listeners {
			l.SessionStarted(ctx, att)
		}
	}
	return tr, nil
}

func (s *SessionService) Background(ctx context.Context) (domain.Transition, error) {
	now := s.clock.Now()
	tr, _, listeners, err := s.mutate(ctx, func(st *domain.State) domain.Transition {
		return st.EnterBackground(now)
	})
	if err != nil {
		return tr, err
	}
	if tr.Elapsed > 0 {
		for _, l := range listeners {
			l.Backgrounded(ctx, now)
		}
	}
	return tr, nil
}

// Checkpoint persists the current time while foregrounded. It is a no-op
// when backgrounded.
func (s *SessionService) Checkpoint(ctx context.Context) (bool, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.Clone()
	if !next.Checkpoint(now) {
		return false, nil
	}
	if err := s.store.Save(ctx, next); err != nil {
		return false, fmt.Errorf("save session state: %w", err)
	}
	s.state = next
	return true, nil
}

func (s *SessionService) NotificationReceived(ctx context.Context, id string, wasBackground bool) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("%w: notification id is required", apperrors.ErrInvalidInput)
	}
	now := s.clock.Now()
	accepted := false
	_, _, _, err := s.mutate(ctx, func(st *domain.State) domain.Transition {
		accepted = st.Receive(id, wasBackground, now, s.opts.Policy)
		return domain.Transition{Previous: st.Type, Current: st.Type}
	})
	return accepted, err
}

func (s *SessionService) NotificationClicked(ctx context.Context, id string) (domain.Transition, error) {
	if id == "" {
		return domain.Transition{}, fmt.Errorf("%w: notification id is required", apperrors.ErrInvalidInput)
	}
	tr, _, _, err := s.mutate(ctx, func(st *domain.State) domain.Transition {
		return st.Click(id, s.opts.Policy)
	})
	return tr, err
}

func (s *SessionService) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *SessionService) Attribution() domain.Attribution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Attribution()
}

type FlushResult struct {
	Sent      int
	Dropped   int
	Remaining int
}

// FlushFocus reports pending focus time. Records below their minimum stay
// pending, transient failures stay pending and rejected records are dropped.
// The error is apperrors.ErrTransient when at least one send must be retried.
// Sends run without holding the state lock.
func (s *SessionService) FlushFocus(ctx context.Context) (FlushResult, error) {
	s.mu.Lock()
	pending := s.state.Clone().PendingFocus
	s.mu.Unlock()

	var (
		res       FlushResult
		handled   []domain.FocusRecord
		transient error
	)
	for _, rec := range pending {
		if !rec.Reportable(s.opts.Policy, s.opts.MinUnattributedFocus) {
			res.Remaining++
			continue
		}
		err := s.focus.SendFocus(ctx, rec.Payload(s.opts.DeviceType))
		switch {
		case err == nil:
			res.Sent++
			handled = append(handled, rec)
		case apperrors.IsRetryable(err):
			s.logger.Warn("focus report kept for retry", "session", rec.Type, "error", err)
			res.Remaining++
			transient = err
		default:
			s.logger.Warn("focus report rejected", "session", rec.Type, "error", err)
			res.Dropped++
			handled = append(handled, rec)
		}
	}
	if len(handled) == 0 {
		return res, transient
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.Clone()
	next.SettleFocus(handled)
	if err := s.store.Save(ctx, next); err != nil {
		return res, fmt.Errorf("save session state: %w", err)
	}
	s.state = next
	res.Remaining = len(next.PendingFocus)
	return res, transient
}

func (s *SessionService) mutate(ctx context.Context, fn func(*domain.State) domain.Transition) (domain.Transition, domain.Attribution, []sessionout.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.Clone()
	tr := fn(&next)
	if err := s.store.Save(ctx, next); err != nil {
		s.logger.Error("persist session state", "error", err)
		return tr, domain.Attribution{}, nil, fmt.Errorf("save session state: %w", err)
	}
	s.state = next
	return tr, next.Attribution(), append([]sessionout.Listener(nil), s.listeners...), nil
}
