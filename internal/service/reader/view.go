package reader

import (
	"reader-go/internal/model"
	"reader-go/internal/service/phrase"
)

// View is what the browser renders: the text with selection marks and the
// phrase cards with their lookup results.
type View struct {
	SessionID         string        `json:"sessionId"`
	Title             string        `json:"title,omitempty"`
	Version           int64         `json:"version"`
	Paragraphs        [][]TokenView `json:"paragraphs"`
	Phrases           []PhraseView  `json:"phrases"`
	ActivePhraseIndex int           `json:"activePhraseIndex"`
}

type TokenView struct {
	Text     string `json:"text"`
	Index    int    `json:"index"`
	Space    bool   `json:"space,omitempty"`
	Selected bool   `json:"selected,omitempty"`
	Active   bool   `json:"active,omitempty"`
}

type PhraseView struct {
	ID         string      `json:"id"`
	Text       string      `json:"text"`
	Context    string      `json:"context"`
	Active     bool        `json:"active"`
	StartIndex int         `json:"startIndex"`
	StopIndex  int         `json:"stopIndex"`
	Loading    bool        `json:"loading"`
	Queries    []QueryView `json:"queries"`
}

type QueryView struct {
	Query       string                        `json:"query"`
	Entries     []EntryView                   `json:"entries"`
	SeenContent []model.SeenContentOccurrence `json:"seenContent"`
	Occurrences int                           `json:"occurrences"`
}

type EntryView struct {
	model.DictionaryEntry
	PrimarySense int `json:"primarySense"`
}

// BuildView maps a snapshot to its rendered form.
func BuildView(snap Snapshot) View {
	st := snap.State
	v := View{
		SessionID:         snap.SessionID,
		Title:             snap.Title,
		Version:           snap.Version,
		Paragraphs:        make([][]TokenView, 0, len(snap.Document.Paragraphs)),
		Phrases:           make([]PhraseView, 0, len(st.Phrases)),
		ActivePhraseIndex: st.Active,
	}

	var active *model.Phrase
	if st.Active >= 0 && st.Active < len(st.Phrases) {
		active = &st.Phrases[st.Active]
	}
	for _, para := range snap.Document.Paragraphs {
		tokens := make([]TokenView, len(para))
		for i, tok := range para {
			tokens[i] = TokenView{
				Text:     tok.Text,
				Index:    tok.Index,
				Space:    tok.Space,
				Selected: st.Selection.Has(tok.Index),
				Active:   active != nil && active.Contains(tok.Index),
			}
		}
		v.Paragraphs = append(v.Paragraphs, tokens)
	}

	for _, p := range st.Phrases {
		pv := PhraseView{
			ID:         p.ID,
			Text:       p.Text,
			Context:    p.Context,
			Active:     p.Active,
			StartIndex: p.StartIndex,
			StopIndex:  p.StopIndex,
			Loading:    p.Pending(),
			Queries:    make([]QueryView, 0, len(p.Queries)),
		}
		for _, q := range p.Queries {
			qv := QueryView{
				Query:       q.Query,
				Entries:     make([]EntryView, 0, len(q.Entries)),
				SeenContent: q.SeenContent,
				Occurrences: phrase.TotalOccurrences(q.SeenContent),
			}
			for _, e := range q.Entries {
				qv.Entries = append(qv.Entries, EntryView{DictionaryEntry: e, PrimarySense: phrase.PrimarySense(e)})
			}
			pv.Queries = append(pv.Queries, qv)
		}
		v.Phrases = append(v.Phrases, pv)
	}
	return v
}
