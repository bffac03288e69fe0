package phrase

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reader-go/internal/model"
	"reader-go/internal/service/tokenizer"
)

func newTestEngine(text string) *Engine {
	e := NewEngine(tokenizer.Tokenize(text))
	n := 0
	e.newID = func() string {
		n++
		return fmt.Sprintf("p%d", n)
	}
	return e
}

func mustSelect(t *testing.T, e *Engine, index int) State {
	t.Helper()
	st, err := e.HandleSelect(index)
	require.NoError(t, err)
	checkInvariants(t, e.Document(), st)
	return st
}

// checkInvariants verifies ordering, span coverage, the merge rule and the
// single active phrase.
func checkInvariants(t *testing.T, doc model.Document, st State) {
	t.Helper()
	covered := map[int]bool{}
	activeCount := 0
	for i, p := range st.Phrases {
		require.LessOrEqual(t, p.StartIndex, p.StopIndex)
		if p.Active {
			activeCount++
			assert.Equal(t, i, st.Active)
		}
		if i > 0 {
			prev := st.Phrases[i-1]
			assert.Less(t, prev.StopIndex, p.StartIndex, "phrases must be sorted and disjoint")
			if prev.StopIndex+2 == p.StartIndex && model.ParagraphOf(prev.StopIndex) == model.ParagraphOf(p.StartIndex) {
				assert.True(t, strings.HasSuffix(prev.Text, "."), "phrases %q and %q should have merged", prev.Text, p.Text)
			}
		}
		for j := p.StartIndex; j <= p.StopIndex; j++ {
			covered[j] = true
			assert.True(t, st.Selection.Has(j), "index %d of %q not selected", j, p.Text)
		}
	}
	for _, j := range st.Selection.Indices() {
		assert.True(t, covered[j], "selected index %d outside any phrase", j)
	}
	assert.LessOrEqual(t, activeCount, 1)
	if activeCount == 0 {
		assert.Equal(t, -1, st.Active)
	}
}

func TestHandleSelect_CreatesPhrase(t *testing.T) {
	e := newTestEngine("Hello world. Goodbye")

	st := mustSelect(t, e, 0)

	require.Len(t, st.Phrases, 1)
	p := st.Phrases[0]
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Hello", p.Text)
	assert.Equal(t, 0, p.StartIndex)
	assert.Equal(t, 0, p.StopIndex)
	assert.True(t, p.Active)
	assert.Equal(t, "", p.PreviousText)
	assert.Equal(t, "Hello world.", p.Context)
	assert.Empty(t, p.Queries)
	assert.Equal(t, 0, st.Active)
	assert.Equal(t, []int{0}, st.Selection.Indices())
}

func TestHandleSelect_MergeLeft(t *testing.T) {
	e := newTestEngine("Hello world Goodbye.")

	mustSelect(t, e, 0)
	st := mustSelect(t, e, 2)

	require.Len(t, st.Phrases, 1)
	assert.Equal(t, "Hello world", st.Phrases[0].Text)
	assert.Equal(t, 0, st.Phrases[0].StartIndex)
	assert.Equal(t, 2, st.Phrases[0].StopIndex)
	assert.Equal(t, []int{0, 1, 2}, st.Selection.Indices())
}

func TestHandleSelect_MergeRight(t *testing.T) {
	e := newTestEngine("Hello world Goodbye.")

	mustSelect(t, e, 4)
	st := mustSelect(t, e, 2)

	require.Len(t, st.Phrases, 1)
	assert.Equal(t, "world Goodbye.", st.Phrases[0].Text)
	assert.Equal(t, 2, st.Phrases[0].StartIndex)
	assert.Equal(t, 4, st.Phrases[0].StopIndex)
	assert.Equal(t, "Hello world Goodbye.", st.Phrases[0].Context)
}

func TestHandleSelect_MergeBothSides(t *testing.T) {
	e := newTestEngine("one two three four five")

	mustSelect(t, e, 0)
	mustSelect(t, e, 4)
	mustSelect(t, e, 8)
	require.Len(t, e.State().Phrases, 3)

	st := mustSelect(t, e, 2)
	require.Len(t, st.Phrases, 2)
	assert.Equal(t, "one two three", st.Phrases[0].Text)
	assert.True(t, st.Phrases[0].Active)
	assert.Equal(t, 0, st.Active)

	st = mustSelect(t, e, 6)
	require.Len(t, st.Phrases, 1)
	assert.Equal(t, "one two three four five", st.Phrases[0].Text)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8}, st.Selection.Indices())
}

func TestHandleSelect_SentenceBoundaryBlocksMerge(t *testing.T) {
	for _, order := range [][]int{{2, 4}, {4, 2}} {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			e := newTestEngine("Hello world. Goodbye")
			mustSelect(t, e, order[0])
			st := mustSelect(t, e, order[1])

			require.Len(t, st.Phrases, 2)
			assert.Equal(t, "world.", st.Phrases[0].Text)
			assert.Equal(t, "Goodbye", st.Phrases[1].Text)
			assert.False(t, st.Selection.Has(3))
		})
	}
}

func TestHandleSelect_MergeAdoptsQueryHistory(t *testing.T) {
	e := newTestEngine("big red dog")
	left := mustSelect(t, e, 0).Phrases[0]
	_, _, err := e.Update(left.ID, func(p *model.Phrase) error {
		p.PreviousText = p.Text
		p.Context = "cached context"
		p.Queries = append(p.Queries, model.DictionaryQuery{Query: "big"})
		return nil
	})
	require.NoError(t, err)

	right := mustSelect(t, e, 4).Phrases[1]
	_, _, err = e.Update(right.ID, func(p *model.Phrase) error {
		p.PreviousText = p.Text
		p.Queries = append(p.Queries, model.DictionaryQuery{Query: "dog"})
		return nil
	})
	require.NoError(t, err)

	st := mustSelect(t, e, 2)
	require.Len(t, st.Phrases, 1)
	merged := st.Phrases[0]
	assert.Equal(t, "big red dog", merged.Text)
	assert.Equal(t, "big dog", merged.PreviousText)
	assert.Equal(t, "cached context", merged.Context)
	require.Len(t, merged.Queries, 2)
	assert.Equal(t, "big", merged.Queries[0].Query)
	assert.Equal(t, "dog", merged.Queries[1].Query)
	assert.NotEqual(t, left.ID, merged.ID)
	assert.NotEqual(t, right.ID, merged.ID)
}

func TestHandleSelect_ReclickOnlyMovesFocus(t *testing.T) {
	e := newTestEngine("one two three. four five")
	mustSelect(t, e, 0)
	mustSelect(t, e, 2)
	mustSelect(t, e, 8)
	before := e.State()
	require.Equal(t, 1, before.Active)

	st := mustSelect(t, e, 2)

	assert.Equal(t, 0, st.Active)
	assert.True(t, st.Phrases[0].Active)
	assert.False(t, st.Phrases[1].Active)
	assert.Equal(t, before.Selection.Indices(), st.Selection.Indices())
	require.Len(t, st.Phrases, len(before.Phrases))
	for i := range st.Phrases {
		assert.Equal(t, before.Phrases[i].ID, st.Phrases[i].ID)
		assert.Equal(t, before.Phrases[i].StartIndex, st.Phrases[i].StartIndex)
		assert.Equal(t, before.Phrases[i].StopIndex, st.Phrases[i].StopIndex)
	}

	// whitespace inside a merged span is selected but never a click target
	_, err := e.HandleSelect(1)
	assert.ErrorIs(t, err, ErrNotSelectable)
}

func TestHandleSelect_InvalidIndex(t *testing.T) {
	e := newTestEngine("Hello world")
	mustSelect(t, e, 0)
	before := e.State()

	_, err := e.HandleSelect(99)
	assert.ErrorIs(t, err, ErrUnknownToken)
	_, err = e.HandleSelect(-3)
	assert.ErrorIs(t, err, ErrUnknownToken)
	_, err = e.HandleSelect(1)
	assert.ErrorIs(t, err, ErrNotSelectable)

	assert.Equal(t, before, e.State())
}

func TestHandleSelect_DoesNotMergeAcrossParagraphs(t *testing.T) {
	e := newTestEngine("alpha beta\ngamma delta")

	mustSelect(t, e, 2)
	st := mustSelect(t, e, model.ParagraphStride)

	require.Len(t, st.Phrases, 2)
	assert.Equal(t, "alpha beta", st.Phrases[0].Context)
	assert.Equal(t, "gamma delta", st.Phrases[1].Context)
}

func TestHandleSelect_CopyOnWrite(t *testing.T) {
	e := newTestEngine("a b c")
	first := mustSelect(t, e, 0)
	mustSelect(t, e, 2)

	require.Len(t, first.Phrases, 1)
	assert.Equal(t, "a", first.Phrases[0].Text)
	assert.Equal(t, []int{0}, first.Selection.Indices())
}

func TestDeletePhrase(t *testing.T) {
	e := newTestEngine("Hello world Goodbye.")
	mustSelect(t, e, 4)
	st := mustSelect(t, e, 2)
	require.Len(t, st.Phrases, 1)

	st, err := e.DeletePhrase(0)
	require.NoError(t, err)
	checkInvariants(t, e.Document(), st)
	assert.Empty(t, st.Phrases)
	assert.Equal(t, 0, st.Selection.Len())
	assert.Equal(t, -1, st.Active)

	st = mustSelect(t, e, 2)
	require.Len(t, st.Phrases, 1)
	assert.Equal(t, "world", st.Phrases[0].Text)
	assert.Equal(t, 2, st.Phrases[0].StopIndex)
}

func TestDeletePhrase_ActiveFallback(t *testing.T) {
	// three separate phrases: "a." "b." "c."
	setup := func(t *testing.T) *Engine {
		e := newTestEngine("a. b. c.")
		mustSelect(t, e, 0)
		mustSelect(t, e, 2)
		mustSelect(t, e, 4)
		return e
	}

	tests := []struct {
		name       string
		activate   int
		remove     int
		wantActive int
		wantText   string
	}{
		{"active middle falls to next", 1, 1, 1, "c."},
		{"active last falls to previous", 2, 2, 1, "b."},
		{"inactive before active shifts index", 2, 0, 1, "c."},
		{"inactive after active keeps index", 0, 2, 0, "a."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t)
			_, err := e.Activate(tt.activate)
			require.NoError(t, err)

			st, err := e.DeletePhrase(tt.remove)
			require.NoError(t, err)
			checkInvariants(t, e.Document(), st)
			assert.Equal(t, tt.wantActive, st.Active)
			assert.Equal(t, tt.wantText, st.Phrases[st.Active].Text)
		})
	}
}

func TestDeletePhrase_OutOfRange(t *testing.T) {
	e := newTestEngine("a b")
	_, err := e.DeletePhrase(0)
	assert.ErrorIs(t, err, ErrPhraseNotFound)
	_, err = e.Activate(3)
	assert.ErrorIs(t, err, ErrPhraseNotFound)
}

func TestEngine_RandomClicksKeepInvariants(t *testing.T) {
	text := "The cat sat. On the mat it slept. Then\nA dog came. It barked loudly and ran off."
	doc := tokenizer.Tokenize(text)
	var words []int
	for _, p := range doc.Paragraphs {
		for _, tok := range p {
			if !tok.Space {
				words = append(words, tok.Index)
			}
		}
	}

	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		e := NewEngine(doc)
		for step := 0; step < 40; step++ {
			var st State
			var err error
			if n := len(e.State().Phrases); n > 0 && rng.Intn(5) == 0 {
				st, err = e.DeletePhrase(rng.Intn(n))
			} else {
				st, err = e.HandleSelect(words[rng.Intn(len(words))])
			}
			require.NoError(t, err)
			checkInvariants(t, doc, st)
		}
	}
}

func TestMergeSymmetry(t *testing.T) {
	for _, text := range []string{"alpha beta", "alpha. beta"} {
		for _, order := range [][]int{{0, 2}, {2, 0}} {
			e := newTestEngine(text)
			mustSelect(t, e, order[0])
			st := mustSelect(t, e, order[1])
			if strings.HasPrefix(text, "alpha.") {
				assert.Len(t, st.Phrases, 2, "%q %v", text, order)
			} else {
				assert.Len(t, st.Phrases, 1, "%q %v", text, order)
			}
		}
	}
}
