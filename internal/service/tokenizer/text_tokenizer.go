package tokenizer

import (
	"strings"

	"reader-go/internal/model"

	"golang.org/x/text/unicode/norm"
)

// Tokenize splits raw text into paragraphs of word and whitespace tokens.
//
// Paragraphs are separated by one or more line breaks and blank paragraphs
// are dropped. Words are separated by single spaces; runs of spaces do not
// produce empty words. Word j of paragraph p gets index
// p*ParagraphStride + 2j and the space after it p*ParagraphStride + 2j + 1,
// so the same input always yields the same indices. Text is normalized to
// NFC first so that composed and decomposed accents produce equal words.
func Tokenize(raw string) model.Document {
	var doc model.Document
	lines := strings.FieldsFunc(norm.NFC.String(raw), func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		words := splitWords(line)
		if len(words) == 0 {
			continue
		}
		// Overlong paragraphs continue in the next paragraph slot.
		maxWords := (model.ParagraphStride + 1) / 2
		for len(words) > 0 {
			n := len(words)
			if n > maxWords {
				n = maxWords
			}
			doc.Paragraphs = append(doc.Paragraphs, buildParagraph(len(doc.Paragraphs), words[:n]))
			words = words[n:]
		}
	}
	return doc
}

func splitWords(line string) []string {
	parts := strings.Split(line, " ")
	words := parts[:0]
	for _, w := range parts {
		if w == "" {
			continue
		}
		words = append(words, w)
	}
	return words
}

func buildParagraph(p int, words []string) model.Paragraph {
	base := p * model.ParagraphStride
	para := make(model.Paragraph, 0, 2*len(words)-1)
	for j, w := range words {
		if j > 0 {
			para = append(para, model.Token{Text: " ", Index: base + len(para), Space: true})
		}
		para = append(para, model.Token{Text: w, Index: base + len(para)})
	}
	return para
}
