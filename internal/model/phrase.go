package model

// Phrase is one contiguous user-selected span of word tokens. The
// whitespace tokens between StartIndex and StopIndex belong to the span
// implicitly.
type Phrase struct {
	ID           string            `json:"id"`
	Text         string            `json:"text"`
	PreviousText string            `json:"previousText"`
	Context      string            `json:"context"`
	Active       bool              `json:"active"`
	StartIndex   int               `json:"startIndex"`
	StopIndex    int               `json:"stopIndex"`
	Queries      []DictionaryQuery `json:"dictionaryQueries"`
}

// Contains reports whether index falls inside the phrase span.
func (p Phrase) Contains(index int) bool {
	return p.StartIndex <= index && index <= p.StopIndex
}

// Pending reports whether the phrase has words that were never looked up.
func (p Phrase) Pending() bool {
	return p.Text != p.PreviousText
}

// Clone returns a copy that shares no slices with p.
func (p Phrase) Clone() Phrase {
	c := p
	if p.Queries != nil {
		c.Queries = make([]DictionaryQuery, len(p.Queries))
		for i, q := range p.Queries {
			c.Queries[i] = q.Clone()
		}
	}
	return c
}

// DictionaryQuery is the result of one lookup round for a phrase.
type DictionaryQuery struct {
	Query       string                  `json:"query"`
	Entries     []DictionaryEntry       `json:"entries"`
	SeenContent []SeenContentOccurrence `json:"seenContent"`
}

// Clone deep-copies the entries since senses are mutated by pinning.
func (q DictionaryQuery) Clone() DictionaryQuery {
	c := q
	if q.Entries != nil {
		c.Entries = make([]DictionaryEntry, len(q.Entries))
		for i, e := range q.Entries {
			c.Entries[i] = e.Clone()
		}
	}
	return c
}
