package model

import "strings"

// ParagraphStride separates the index ranges of consecutive paragraphs.
// A paragraph may hold at most ParagraphStride tokens (words and spaces).
const ParagraphStride = 10000

// Token is a single addressable block of the loaded text: either a word or
// the whitespace between two words of the same paragraph.
type Token struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
	Space bool   `json:"space,omitempty"`
}

// SentenceFinal reports whether the token closes a sentence.
func (t Token) SentenceFinal() bool {
	return !t.Space && strings.HasSuffix(t.Text, ".")
}

// Paragraph is an ordered run of tokens
type Paragraph []Token

// Document is the tokenized form of one loaded text.
type Document struct {
	Paragraphs []Paragraph `json:"paragraphs"`
}

// ParagraphOf returns the paragraph number encoded in index.
func ParagraphOf(index int) int {
	return index / ParagraphStride
}

// PositionOf returns the in-paragraph position encoded in index.
func PositionOf(index int) int {
	return index % ParagraphStride
}

// Token looks up the token at index.
func (d Document) Token(index int) (Token, bool) {
	if index < 0 {
		return Token{}, false
	}
	p, pos := ParagraphOf(index), PositionOf(index)
	if p >= len(d.Paragraphs) || pos >= len(d.Paragraphs[p]) {
		return Token{}, false
	}
	return d.Paragraphs[p][pos], true
}

// Empty reports whether the document has no tokens at all.
func (d Document) Empty() bool {
	return len(d.Paragraphs) == 0
}

// Words returns the number of word tokens in the document
func (d Document) Words() int {
	n := 0
	for _, p := range d.Paragraphs {
		for _, t := range p {
			if !t.Space {
				n++
			}
		}
	}
	return n
}
