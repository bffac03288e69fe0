package model

// DictionaryEntry mirrors the inference service response.
type DictionaryEntry struct {
	SourceID       string   `json:"sourceId,omitempty"`
	SourceLanguage string   `json:"sourceLanguage,omitempty"`
	WrittenForm    string   `json:"writtenForm"`
	Variations     []string `json:"variations,omitempty"`
	PartOfSpeech   string   `json:"partOfSpeech"`
	Grade          string   `json:"grade,omitempty"`
	QueryStrs      []string `json:"queryStrs,omitempty"`
	Senses         []Sense  `json:"senses"`
	ShowAll        bool     `json:"showAll,omitempty"`
}

// Clone copies the senses so rank changes stay local.
func (e DictionaryEntry) Clone() DictionaryEntry {
	c := e
	if e.Senses != nil {
		c.Senses = make([]Sense, len(e.Senses))
		for i, s := range e.Senses {
			c.Senses[i] = s
			if s.Rank != nil {
				r := *s.Rank
				c.Senses[i].Rank = &r
			}
		}
	}
	return c
}

type Sense struct {
	SenseNo      string       `json:"senseNo,omitempty"`
	Definition   string       `json:"definition"`
	PartOfSpeech string       `json:"partOfSpeech,omitempty"`
	Examples     []string     `json:"examples,omitempty"`
	Type         string       `json:"type,omitempty"`
	Equivalents  []Equivalent `json:"equivalents,omitempty"`
	Rank         *float64     `json:"rank,omitempty"`
}

// RankValue returns the sense rank, treating a missing rank as 0.
func (s Sense) RankValue() float64 {
	if s.Rank == nil {
		return 0
	}
	return *s.Rank
}

type Equivalent struct {
	EquivalentLanguage string `json:"equivalentLanguage"`
	Equivalent         string `json:"equivalent"`
	Definition         string `json:"definition"`
}

// SeenContentOccurrence is a piece of previously read content in which a
// query was found. Start and Stop are character offsets into Text of each
// sentence.
type SeenContentOccurrence struct {
	ID        string         `json:"_id"`
	Title     string         `json:"title"`
	Text      string         `json:"text,omitempty"`
	Sentences []SeenSentence `json:"sentences"`
}

type SeenSentence struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	Stop  int    `json:"stop"`
}

// Content is a stored text loaded by id.
type Content struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}
