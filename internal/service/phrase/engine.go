package phrase

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"reader-go/internal/model"

	"github.com/google/uuid"
)

var (
	ErrUnknownToken   = errors.New("no token at index")
	ErrNotSelectable  = errors.New("token is not selectable")
	ErrPhraseNotFound = errors.New("phrase not found")
)

// State is an immutable view of the engine. The slices and the selection
// set are never modified after being returned.
type State struct {
	Phrases   []model.Phrase `json:"phrases"`
	Selection *SelectionSet  `json:"selectedIndices"`
	Active    int            `json:"activePhraseIndex"`
}

// Engine turns token clicks into a sorted list of merged phrases.
// It is not safe for concurrent use; the owning session serializes calls.
type Engine struct {
	doc       model.Document
	phrases   []model.Phrase
	selection *SelectionSet
	active    int
	newID     func() string
}

func NewEngine(doc model.Document) *Engine {
	return &Engine{
		doc:       doc,
		selection: NewSelectionSet(),
		active:    -1,
		newID:     uuid.NewString,
	}
}

func (e *Engine) Document() model.Document {
	return e.doc
}

func (e *Engine) State() State {
	return State{Phrases: e.phrases, Selection: e.selection, Active: e.active}
}

// HandleSelect processes a click on the token at index.
//
// Clicking a selected token only moves focus to the phrase containing it.
// Clicking an unselected word creates a phrase for it and merges it with the
// phrase ending two positions to the left and the phrase starting two
// positions to the right, unless a sentence boundary lies between them.
func (e *Engine) HandleSelect(index int) (State, error) {
	tok, ok := e.doc.Token(index)
	if !ok {
		return e.State(), fmt.Errorf("select %d: %w", index, ErrUnknownToken)
	}
	if tok.Space {
		return e.State(), fmt.Errorf("select %d: %w", index, ErrNotSelectable)
	}

	if e.selection.Has(index) {
		i := e.find(index)
		if i < 0 {
			return e.State(), fmt.Errorf("select %d: %w", index, ErrPhraseNotFound)
		}
		return e.Activate(i)
	}

	phrases := make([]model.Phrase, len(e.phrases))
	copy(phrases, e.phrases)
	for i := range phrases {
		phrases[i].Active = false
	}
	sel := e.selection.Clone()
	sel.Add(index)

	np := model.Phrase{
		ID:         e.newID(),
		Text:       tok.Text,
		Active:     true,
		StartIndex: index,
		StopIndex:  index,
	}

	if left := index - 2; e.sameParagraph(index, left) && sel.Has(left) {
		if li := indexOf(phrases, func(p model.Phrase) bool { return p.StopIndex == left }); li >= 0 {
			lp := phrases[li]
			if !strings.HasSuffix(lp.Text, ".") {
				np.Text = lp.Text + " " + np.Text
				np.StartIndex = lp.StartIndex
				np.PreviousText = lp.PreviousText
				np.Context = lp.Context
				np.Queries = appendQueries(nil, lp.Queries)
				phrases = append(phrases[:li], phrases[li+1:]...)
				sel.Add(index - 1)
			}
		}
	}

	if right := index + 2; e.sameParagraph(index, right) && sel.Has(right) && !tok.SentenceFinal() {
		if ri := indexOf(phrases, func(p model.Phrase) bool { return p.StartIndex == right }); ri >= 0 {
			rp := phrases[ri]
			np.Text = np.Text + " " + rp.Text
			np.StopIndex = rp.StopIndex
			np.PreviousText = strings.TrimSpace(np.PreviousText + " " + rp.PreviousText)
			if np.Context == "" {
				np.Context = rp.Context
			}
			np.Queries = appendQueries(np.Queries, rp.Queries)
			phrases = append(phrases[:ri], phrases[ri+1:]...)
			sel.Add(index + 1)
		}
	}

	if np.Context == "" {
		np.Context = ComputeContext(e.doc, np.StartIndex)
	}

	pos := sort.Search(len(phrases), func(i int) bool {
		return phrases[i].StartIndex > np.StartIndex
	})
	phrases = append(phrases, model.Phrase{})
	copy(phrases[pos+1:], phrases[pos:])
	phrases[pos] = np

	e.phrases = phrases
	e.selection = sel
	e.active = pos
	return e.State(), nil
}

// Activate makes phrase i the only active phrase.
func (e *Engine) Activate(i int) (State, error) {
	if i < 0 || i >= len(e.phrases) {
		return e.State(), fmt.Errorf("activate %d: %w", i, ErrPhraseNotFound)
	}
	phrases := make([]model.Phrase, len(e.phrases))
	copy(phrases, e.phrases)
	setActive(phrases, i)
	e.phrases = phrases
	e.active = i
	return e.State(), nil
}

// DeletePhrase removes phrase i and releases its span from the selection.
// When the active phrase is deleted, focus moves to the phrase that takes
// its position, or to the new last phrase if it was the last one.
func (e *Engine) DeletePhrase(i int) (State, error) {
	if i < 0 || i >= len(e.phrases) {
		return e.State(), fmt.Errorf("delete %d: %w", i, ErrPhraseNotFound)
	}
	deleted := e.phrases[i]

	phrases := make([]model.Phrase, 0, len(e.phrases)-1)
	phrases = append(phrases, e.phrases[:i]...)
	phrases = append(phrases, e.phrases[i+1:]...)

	sel := e.selection.Clone()
	sel.RemoveRange(deleted.StartIndex, deleted.StopIndex)

	active := e.active
	switch {
	case len(phrases) == 0:
		active = -1
	case active == i && i == len(phrases):
		active = i - 1
	case active > i:
		active--
	}
	setActive(phrases, active)

	e.phrases = phrases
	e.selection = sel
	e.active = active
	return e.State(), nil
}

// Update applies fn to a private copy of the phrase with the given id.
// It reports false when no such phrase exists any more.
func (e *Engine) Update(id string, fn func(p *model.Phrase) error) (State, bool, error) {
	i := indexOf(e.phrases, func(p model.Phrase) bool { return p.ID == id })
	if i < 0 {
		return e.State(), false, nil
	}
	updated := e.phrases[i].Clone()
	if err := fn(&updated); err != nil {
		return e.State(), true, err
	}
	phrases := make([]model.Phrase, len(e.phrases))
	copy(phrases, e.phrases)
	phrases[i] = updated
	e.phrases = phrases
	return e.State(), true, nil
}

func (e *Engine) find(index int) int {
	return indexOf(e.phrases, func(p model.Phrase) bool { return p.Contains(index) })
}

func (e *Engine) sameParagraph(a, b int) bool {
	return b >= 0 && model.ParagraphOf(a) == model.ParagraphOf(b)
}

func indexOf(phrases []model.Phrase, match func(model.Phrase) bool) int {
	for i, p := range phrases {
		if match(p) {
			return i
		}
	}
	return -1
}

func setActive(phrases []model.Phrase, active int) {
	for i := range phrases {
		phrases[i].Active = i == active
	}
}

func appendQueries(dst, src []model.DictionaryQuery) []model.DictionaryQuery {
	if len(src) == 0 {
		return dst
	}
	out := make([]model.DictionaryQuery, 0, len(dst)+len(src))
	out = append(out, dst...)
	return append(out, src...)
}
