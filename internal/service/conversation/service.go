package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/zhouzirui/aiva/backend/internal/analysis/entity"
	"github.com/zhouzirui/aiva/backend/internal/model/action"
	"github.com/zhouzirui/aiva/backend/internal/model/session"
	sessionsvc "github.com/zhouzirui/aiva/backend/internal/service/session"
)

var ErrEmptyUtterance = errors.New("utterance is empty")

// Resolver produces the event stream of one utterance.
type Resolver interface {
	Resolve(ctx context.Context, utterance string, sc *session.Context) *schema.StreamReader[action.Event]
}

// Forward delivers one event to the client. Returning an error stops the
// resolution.
type Forward func(action.Event) error

// Service runs utterances against session state, one at a time per session.
type Service struct {
	sessions *sessionsvc.Service
	resolver Resolver
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	sem  *semaphore.Weighted
	refs int
}

func NewService(sessions *sessionsvc.Service, resolver Resolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions: sessions,
		resolver: resolver,
		logger:   logger.Named("conversation"),
		now:      time.Now,
		locks:    make(map[string]*sessionLock),
	}
}

// HandleUtterance resolves text for the session and forwards each event in
// emission order. The user turn and the assistant reply are recorded in the
// session history once the stream ends.
func (s *Service) HandleUtterance(ctx context.Context, sessionID, text string, forward Forward) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyUtterance
	}

	release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()

	sc, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if prefs := entity.ExtractPreferences(text); !prefs.IsZero() {
		if sc, err = s.sessions.MergePreferences(ctx, sessionID, prefs); err != nil {
			return fmt.Errorf("merge preferences: %w", err)
		}
		s.logger.Debug("preferences merged", zap.String("session_id", sessionID), zap.Any("preferences", prefs))
	}

	started := s.now()
	sr := s.resolver.Resolve(ctx, text, sc.Clone())
	defer sr.Close()

	var (
		reply  replyBuilder
		events int
	)
	for {
		ev, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("resolve: %w", err)
		}
		events++
		reply.add(ev)
		if err := forward(ev); err != nil {
			return fmt.Errorf("forward event: %w", err)
		}
	}

	s.logger.Info("utterance resolved",
		zap.String("session_id", sessionID),
		zap.Int("events", events),
		zap.Duration("elapsed", s.now().Sub(started)))

	at := s.now().UTC()
	_, err = s.sessions.Mutate(context.WithoutCancel(ctx), sessionID, func(sc *session.Context) {
		sc.AppendTurn("user", text, at)
		sc.AppendTurn("assistant", reply.String(), at)
	})
	if err != nil {
		s.logger.Warn("history not recorded", zap.String("session_id", sessionID), zap.Error(err))
	}
	return nil
}

func (s *Service) acquire(ctx context.Context, id string) (func(), error) {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{sem: semaphore.NewWeighted(1)}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	drop := func() {
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}

	if err := l.sem.Acquire(ctx, 1); err != nil {
		drop()
		return nil, err
	}
	return func() {
		l.sem.Release(1)
		drop()
	}, nil
}

// replyBuilder keeps what the assistant said, for the history.
type replyBuilder struct {
	chunks  []string
	message string
}

func (b *replyBuilder) add(ev action.Event) {
	switch ev.Type {
	case action.EventTextChunk:
		b.chunks = append(b.chunks, ev.Content)
	case action.EventResponse, action.EventError, action.EventSecurityResponse, action.EventFunctionComplete:
		if ev.Message != "" {
			b.message = ev.Message
		}
	}
}

func (b *replyBuilder) String() string {
	if len(b.chunks) > 0 {
		return strings.Join(b.chunks, " ")
	}
	return b.message
}
