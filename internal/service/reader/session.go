package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"reader-go/internal/model"
	"reader-go/internal/service/phrase"

	"go.uber.org/zap"
)

var (
	ErrUnknownEvent  = errors.New("unknown event")
	ErrQueryNotFound = errors.New("query not found")
	ErrEntryNotFound = errors.New("dictionary entry not found")
)

type EventType string

const (
	EventSelect      EventType = "select"
	EventActivate    EventType = "activate"
	EventDelete      EventType = "delete"
	EventPinSense    EventType = "pin_sense"
	EventExpandEntry EventType = "expand_entry"
)

// Event is one user action. Index is the clicked token for EventSelect;
// the other events address a phrase and, where needed, one of its queries,
// entries and senses by position.
type Event struct {
	Type   EventType `json:"type"`
	Index  int       `json:"index,omitempty"`
	Phrase int       `json:"phrase,omitempty"`
	Query  int       `json:"query,omitempty"`
	Entry  int       `json:"entry,omitempty"`
	Sense  int       `json:"sense,omitempty"`
}

// Snapshot is the complete immutable state of a session at one version.
type Snapshot struct {
	SessionID string         `json:"sessionId"`
	Title     string         `json:"title,omitempty"`
	Version   int64          `json:"version"`
	Document  model.Document `json:"document"`
	State     phrase.State   `json:"state"`
}

// Session owns the phrase engine of one loaded text. Events and lookup
// results are applied one at a time; readers only ever see whole
// snapshots.
type Session struct {
	id     string
	title  string
	logger *zap.Logger

	mu       sync.Mutex
	engine   *phrase.Engine
	snapshot Snapshot
	subs     map[int]chan Snapshot
	nextSub  int
	lastUsed time.Time
	closed   bool

	changes chan struct{}
}

func NewSession(id, title string, doc model.Document, logger *zap.Logger) *Session {
	s := &Session{
		id:       id,
		title:    title,
		logger:   logger.With(zap.String("session_id", id)),
		engine:   phrase.NewEngine(doc),
		subs:     make(map[int]chan Snapshot),
		lastUsed: time.Now(),
		changes:  make(chan struct{}, 1),
	}
	s.snapshot = Snapshot{SessionID: id, Title: title, Document: doc, State: s.engine.State()}
	return s
}

func (s *Session) ID() string { return s.id }

// Changes fires after every state change. Notifications coalesce.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Handle applies one event and returns the resulting snapshot. Invalid
// events leave the session unchanged.
func (s *Session) Handle(e Event) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()

	var (
		st  phrase.State
		err error
	)
	switch e.Type {
	case EventSelect:
		st, err = s.engine.HandleSelect(e.Index)
	case EventActivate:
		st, err = s.engine.Activate(e.Phrase)
	case EventDelete:
		st, err = s.engine.DeletePhrase(e.Phrase)
	case EventPinSense:
		st, err = s.updateEntry(e, func(entry *model.DictionaryEntry) error {
			return phrase.PinSense(entry, e.Sense)
		})
	case EventExpandEntry:
		st, err = s.updateEntry(e, func(entry *model.DictionaryEntry) error {
			entry.ShowAll = true
			return nil
		})
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
	if err != nil {
		s.logger.Debug("Event rejected", zap.String("type", string(e.Type)), zap.Error(err))
		return s.snapshot, err
	}
	s.publishLocked(st)
	return s.snapshot, nil
}

func (s *Session) updateEntry(e Event, fn func(entry *model.DictionaryEntry) error) (phrase.State, error) {
	cur := s.engine.State()
	if e.Phrase < 0 || e.Phrase >= len(cur.Phrases) {
		return cur, fmt.Errorf("phrase %d: %w", e.Phrase, phrase.ErrPhraseNotFound)
	}
	st, _, err := s.engine.Update(cur.Phrases[e.Phrase].ID, func(p *model.Phrase) error {
		if e.Query < 0 || e.Query >= len(p.Queries) {
			return fmt.Errorf("query %d: %w", e.Query, ErrQueryNotFound)
		}
		entries := p.Queries[e.Query].Entries
		if e.Entry < 0 || e.Entry >= len(entries) {
			return fmt.Errorf("entry %d: %w", e.Entry, ErrEntryNotFound)
		}
		return fn(&entries[e.Entry])
	})
	return st, err
}

// Phrases returns the current phrase list.
func (s *Session) Phrases() []model.Phrase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.State.Phrases
}

// ApplyQuery records a finished lookup round for the phrase with the given
// id. Results for phrases that were deleted or merged away are dropped.
func (s *Session) ApplyQuery(phraseID, text string, q *model.DictionaryQuery) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	st, ok, err := s.engine.Update(phraseID, func(p *model.Phrase) error {
		if q != nil {
			p.Queries = append(p.Queries, *q)
		}
		p.PreviousText = text
		return nil
	})
	if !ok || err != nil {
		return false
	}
	s.publishLocked(st)
	return true
}

// Subscribe streams snapshots until ctx is done, starting with the current
// one. Slow subscribers only get the latest snapshot.
func (s *Session) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshot
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}()
	return ch
}

// Close ends all subscriptions. Later lookup results are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// LastUsed is the time of the last event or lookup of the session by a
// client. Lookup results arriving in the background do not count.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) publishLocked(st phrase.State) {
	s.snapshot = Snapshot{
		SessionID: s.id,
		Title:     s.title,
		Version:   s.snapshot.Version + 1,
		Document:  s.snapshot.Document,
		State:     st,
	}
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.snapshot
	}
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
