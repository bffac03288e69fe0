package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"reader-go/internal/service/lookup"
	"reader-go/internal/service/query"
	"reader-go/internal/service/tokenizer"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

const DefaultMaxSessions = 1024

// Options configure a Manager. A zero IdleTimeout keeps sessions until they
// are closed or evicted by MaxSessions.
type Options struct {
	LookupTimeout time.Duration
	RetryInterval time.Duration
	MaxSessions   int
	IdleTimeout   time.Duration
}

type managedSession struct {
	session      *Session
	orchestrator *query.Orchestrator
	cancel       context.CancelFunc
}

// Manager creates reading sessions and runs one query orchestrator per
// session. The least recently used session is closed when MaxSessions is
// exceeded.
type Manager struct {
	dict    lookup.Dictionary
	content lookup.ContentLoader
	opts    Options
	logger  *zap.Logger

	mu       sync.Mutex
	sessions *lru.Cache[string, *managedSession]
}

func NewManager(dict lookup.Dictionary, content lookup.ContentLoader, opts Options, logger *zap.Logger) (*Manager, error) {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	m := &Manager{
		dict:    dict,
		content: content,
		opts:    opts,
		logger:  logger,
	}
	sessions, err := lru.NewWithEvict[string, *managedSession](opts.MaxSessions, m.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	m.sessions = sessions
	return m, nil
}

// Create tokenizes text and starts a session for it. Empty text yields a
// session with nothing to select.
func (m *Manager) Create(text, title string) *Session {
	id := uuid.NewString()
	doc := tokenizer.Tokenize(text)
	s := NewSession(id, title, doc, m.logger)
	if doc.Empty() {
		m.logger.Warn("Session created for empty text", zap.String("session_id", id))
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := query.NewOrchestrator(s, m.dict, m.opts.LookupTimeout, m.logger.With(zap.String("session_id", id)))
	go o.Run(ctx, s.Changes(), m.opts.RetryInterval)

	m.mu.Lock()
	m.sessions.Add(id, &managedSession{session: s, orchestrator: o, cancel: cancel})
	m.mu.Unlock()

	m.logger.Info("Session created",
		zap.String("session_id", id),
		zap.String("title", title),
		zap.Int("paragraphs", len(doc.Paragraphs)),
		zap.Int("words", doc.Words()))
	return s
}

// CreateFromContent loads a stored text and starts a session for it.
func (m *Manager) CreateFromContent(ctx context.Context, contentID string) (*Session, error) {
	if m.content == nil {
		return nil, fmt.Errorf("content %q: no content loader configured", contentID)
	}
	content, err := m.content.ContentByID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	return m.Create(content.Text, content.Title), nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	ms.session.touch()
	return ms.session, nil
}

// CloseIdle closes every session not used since now minus IdleTimeout and
// returns how many were closed.
func (m *Manager) CloseIdle(now time.Time) int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	closed := 0
	for _, id := range m.sessions.Keys() {
		ms, ok := m.sessions.Peek(id)
		if !ok || now.Sub(ms.session.LastUsed()) < m.opts.IdleTimeout {
			continue
		}
		if m.sessions.Remove(id) {
			closed++
		}
	}
	if closed > 0 {
		m.logger.Info("Idle sessions closed", zap.Int("count", closed))
	}
	return closed
}

// RunJanitor calls CloseIdle every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	if m.opts.IdleTimeout <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.CloseIdle(now)
		}
	}
}

// Close stops the session's orchestrator and ends its subscriptions.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sessions.Remove(id) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions.Len()
}

// Shutdown closes every session and waits for in-flight lookups.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	var orchestrators []*query.Orchestrator
	for _, id := range m.sessions.Keys() {
		if ms, ok := m.sessions.Peek(id); ok {
			orchestrators = append(orchestrators, ms.orchestrator)
		}
	}
	m.sessions.Purge()
	m.mu.Unlock()

	for _, o := range orchestrators {
		o.Wait()
	}
	m.logger.Info("All sessions closed", zap.Int("count", len(orchestrators)))
}

func (m *Manager) onEvict(id string, ms *managedSession) {
	ms.cancel()
	ms.session.Close()
	m.logger.Info("Session closed", zap.String("session_id", id))
}
