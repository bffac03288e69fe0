package phrase

import (
	"strings"

	"reader-go/internal/model"
)

// ComputeContext returns the sentence that contains the token at startIndex.
// Sentences end at a word ending in "." or at a paragraph break. Quoted
// sentences are not treated specially.
func ComputeContext(doc model.Document, startIndex int) string {
	p := model.ParagraphOf(startIndex)
	if startIndex < 0 || p >= len(doc.Paragraphs) {
		return ""
	}
	para := doc.Paragraphs[p]
	i := model.PositionOf(startIndex)
	if i >= len(para) {
		return ""
	}

	if para[i].SentenceFinal() {
		if prev := previousWord(para, i); prev >= 0 && !para[prev].SentenceFinal() {
			i = prev
		}
	}
	for {
		prev := previousWord(para, i)
		if prev < 0 || para[prev].SentenceFinal() {
			break
		}
		i = prev
	}

	var words []string
	for ; i < len(para); i++ {
		if para[i].Space {
			continue
		}
		words = append(words, para[i].Text)
		if para[i].SentenceFinal() {
			break
		}
	}
	return strings.TrimSpace(strings.Join(words, " "))
}

func previousWord(para model.Paragraph, i int) int {
	j := i - 1
	for j >= 0 && para[j].Space {
		j--
	}
	return j
}
