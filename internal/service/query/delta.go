package query

import "strings"

// Delta returns the words of text that were not part of previousText, in
// order and without repeats. A word that was already looked up is never
// sent again, even when it appears a second time in the phrase.
func Delta(previousText, text string) string {
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(previousText) {
		seen[w] = struct{}{}
	}
	var out []string
	for _, w := range strings.Fields(text) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}
