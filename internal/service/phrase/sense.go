package phrase

import (
	"errors"
	"fmt"

	"reader-go/internal/model"
	"reader-go/internal/util"
)

var ErrSenseNotFound = errors.New("sense not found")

const pinnedRank = 1.0

// PrimarySense returns the position of the sense shown first: the highest
// rank wins and ties go to the earliest sense. It returns -1 when the entry
// has no senses.
func PrimarySense(entry model.DictionaryEntry) int {
	best := -1
	for i, s := range entry.Senses {
		if best < 0 || s.RankValue() > entry.Senses[best].RankValue() {
			best = i
		}
	}
	return best
}

// PinSense makes sense k the primary sense of entry. Any sense previously
// pinned is reset to rank 0 and the expanded sense list is collapsed.
func PinSense(entry *model.DictionaryEntry, k int) error {
	if k < 0 || k >= len(entry.Senses) {
		return fmt.Errorf("pin sense %d: %w", k, ErrSenseNotFound)
	}
	for i := range entry.Senses {
		if entry.Senses[i].Rank != nil && *entry.Senses[i].Rank == pinnedRank {
			entry.Senses[i].Rank = util.Ptr(0.0)
		}
	}
	entry.Senses[k].Rank = util.Ptr(pinnedRank)
	entry.ShowAll = false
	return nil
}

// TotalOccurrences counts the sentences across all occurrences.
func TotalOccurrences(occurrences []model.SeenContentOccurrence) int {
	n := 0
	for _, o := range occurrences {
		n += len(o.Sentences)
	}
	return n
}
