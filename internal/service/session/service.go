package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/aiva/backend/internal/model/session"
)

// ErrSessionIDRequired is returned for an empty session id.
var ErrSessionIDRequired = errors.New("session id is required")

// Service owns session context lifecycle on top of a Store.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService wraps store. A nil logger disables logging.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger.Named("session"), now: time.Now}
}

// Create provisions an anonymous session with a fresh id.
func (s *Service) Create(ctx context.Context) (*session.Context, error) {
	sc := session.New(uuid.NewString(), s.now().UTC())
	if err := s.store.Create(ctx, sc); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Debug("session created", zap.String("session_id", sc.SessionID))
	return sc, nil
}

// Get loads the context of session id.
func (s *Service) Get(ctx context.Context, id string) (*session.Context, error) {
	if id == "" {
		return nil, ErrSessionIDRequired
	}
	return s.store.Get(ctx, id)
}

// Open returns the session id, creating it when it does not exist yet.
func (s *Service) Open(ctx context.Context, id string) (*session.Context, error) {
	if id == "" {
		return nil, ErrSessionIDRequired
	}
	sc, err := s.store.Get(ctx, id)
	if err == nil {
		return sc, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	sc = session.New(id, s.now().UTC())
	if err := s.store.Create(ctx, sc); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			// created concurrently by another connection
			return s.store.Get(ctx, id)
		}
		return nil, fmt.Errorf("open session: %w", err)
	}
	return sc, nil
}

// Mutate applies fn to the stored context and persists it. On a version
// conflict the context is reloaded and fn applied once more, so fn must
// be additive.
func (s *Service) Mutate(ctx context.Context, id string, fn func(*session.Context)) (*session.Context, error) {
	if id == "" {
		return nil, ErrSessionIDRequired
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		sc, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		fn(sc)
		err = s.store.Update(ctx, sc)
		if err == nil {
			return sc, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, fmt.Errorf("update session: %w", err)
		}
		s.logger.Info("session version conflict, retrying",
			zap.String("session_id", id), zap.Int("attempt", attempt+1))
		lastErr = err
	}
	return nil, lastErr
}

// ApplyUpdate merges a partial context sent by a client.
func (s *Service) ApplyUpdate(ctx context.Context, id string, u session.Update) (*session.Context, error) {
	return s.Mutate(ctx, id, func(sc *session.Context) {
		sc.Apply(u)
	})
}

// MergePreferences unions prefs into the session, last write wins per key.
func (s *Service) MergePreferences(ctx context.Context, id string, prefs session.Preferences) (*session.Context, error) {
	if prefs.IsZero() {
		return s.Get(ctx, id)
	}
	return s.Mutate(ctx, id, func(sc *session.Context) {
		sc.Preferences = sc.Preferences.Merge(prefs)
	})
}

// Delete drops a session.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
