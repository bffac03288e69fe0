package reader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reader-go/internal/model"
	"reader-go/internal/service/lookup"
)

type stubDictionary struct {
	mu      sync.Mutex
	queries []string
}

func (d *stubDictionary) LookupDictionary(_ context.Context, query, _ string) ([]model.DictionaryEntry, error) {
	d.mu.Lock()
	d.queries = append(d.queries, query)
	d.mu.Unlock()
	return []model.DictionaryEntry{{WrittenForm: query, Senses: []model.Sense{{Definition: "def of " + query}}}}, nil
}

func (d *stubDictionary) LookupSeenContent(context.Context, string) ([]model.SeenContentOccurrence, error) {
	return nil, nil
}

func (d *stubDictionary) seen() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.queries...)
}

type stubLoader map[string]model.Content

func (l stubLoader) ContentByID(_ context.Context, id string) (*model.Content, error) {
	c, ok := l[id]
	if !ok {
		return nil, lookup.ErrContentNotFound
	}
	return &c, nil
}

func newTestManager(t *testing.T, dict lookup.Dictionary, loader lookup.ContentLoader, max int) *Manager {
	t.Helper()
	m, err := NewManager(dict, loader, Options{
		LookupTimeout: time.Second,
		RetryInterval: 50 * time.Millisecond,
		MaxSessions:   max,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(m.Shutdown)
	return m
}

func TestManager_SelectTriggersLookup(t *testing.T) {
	dict := &stubDictionary{}
	m := newTestManager(t, dict, nil, 0)

	s := m.Create("Der Hund bellt laut.", "Hund")
	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = s.Handle(Event{Type: EventSelect, Index: 2})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p := s.Phrases()
		return len(p) == 1 && len(p[0].Queries) == 1 && !p[0].Pending()
	}, 2*time.Second, 10*time.Millisecond)

	_, err = s.Handle(Event{Type: EventSelect, Index: 4})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p := s.Phrases()
		return len(p) == 1 && p[0].Text == "Hund bellt" && len(p[0].Queries) == 2 && !p[0].Pending()
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"Hund", "bellt"}, dict.seen())
}

func TestManager_Close(t *testing.T) {
	m := newTestManager(t, &stubDictionary{}, nil, 0)
	s := m.Create("uno dos", "")
	ch := s.Subscribe(context.Background())
	<-ch

	require.NoError(t, m.Close(s.ID()))
	_, ok := <-ch
	assert.False(t, ok)

	_, err := m.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Close(s.ID()), ErrSessionNotFound)
}

func TestManager_EvictsLeastRecentlyUsed(t *testing.T) {
	m := newTestManager(t, &stubDictionary{}, nil, 2)

	first := m.Create("one", "")
	second := m.Create("two", "")
	_, err := m.Get(first.ID())
	require.NoError(t, err)

	m.Create("three", "")
	assert.Equal(t, 2, m.Len())

	_, err = m.Get(second.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(first.ID())
	assert.NoError(t, err)
}

func TestManager_CreateFromContent(t *testing.T) {
	loader := stubLoader{"c1": {ID: "c1", Title: "Cuento", Text: "Había una vez.\nFin."}}
	m := newTestManager(t, &stubDictionary{}, loader, 0)

	s, err := m.CreateFromContent(context.Background(), "c1")
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Equal(t, "Cuento", snap.Title)
	assert.Len(t, snap.Document.Paragraphs, 2)

	_, err = m.CreateFromContent(context.Background(), "missing")
	assert.True(t, errors.Is(err, lookup.ErrContentNotFound))
	assert.Equal(t, 1, m.Len())
}

func TestManager_CreateFromContentWithoutLoader(t *testing.T) {
	m := newTestManager(t, &stubDictionary{}, nil, 0)
	_, err := m.CreateFromContent(context.Background(), "c1")
	assert.Error(t, err)
}

func TestManager_CloseIdle(t *testing.T) {
	m, err := NewManager(&stubDictionary{}, nil, Options{IdleTimeout: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(m.Shutdown)

	idle := m.Create("uno", "")
	busy := m.Create("dos", "")
	ch := idle.Subscribe(context.Background())
	<-ch

	later := time.Now().Add(2 * time.Minute)
	_, err = busy.Handle(Event{Type: EventSelect, Index: 0})
	require.NoError(t, err)
	busy.mu.Lock()
	busy.lastUsed = later
	busy.mu.Unlock()

	assert.Equal(t, 1, m.CloseIdle(later))
	_, err = m.Get(idle.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, ok := <-ch
	assert.False(t, ok)

	_, err = m.Get(busy.ID())
	assert.NoError(t, err)
}

func TestManager_CloseIdleDisabled(t *testing.T) {
	m := newTestManager(t, &stubDictionary{}, nil, 0)
	m.Create("uno", "")
	assert.Equal(t, 0, m.CloseIdle(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, m.Len())
}

func TestManager_GetRefreshesLastUsed(t *testing.T) {
	m := newTestManager(t, &stubDictionary{}, nil, 0)
	s := m.Create("uno", "")
	s.mu.Lock()
	s.lastUsed = time.Time{}
	s.mu.Unlock()

	_, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), s.LastUsed(), time.Second)
}
