package batch

import (
	"strings"

	"github.com/coursemuster/portal/internal/models"
)

// Matches reports whether a record with the given batch reference belongs to
// the selected batch. An empty selection matches everything; a record with
// no reference matches only the empty selection. Otherwise the record
// matches on id equality, on case-insensitive name equality with the
// selected batch, or on the synthetic key of the selected batch's position.
func (ix *Index) Matches(selectedKey, itemBatchID, itemBatchName string) bool {
	selected := strings.TrimSpace(selectedKey)
	if selected == "" {
		return true
	}

	id := strings.TrimSpace(itemBatchID)
	name := strings.TrimSpace(itemBatchName)
	if id == "" && name == "" {
		return false
	}

	if id != "" && id == selected {
		return true
	}

	ref, known := ix.Lookup(selected)
	if !known {
		// a selection that names no known batch can still match by name
		return name != "" && strings.EqualFold(name, selected)
	}

	if name != "" && strings.EqualFold(name, ref.Name) {
		return true
	}

	if id != "" {
		if synthetic, ok := ix.syntheticKeyFor(ref.Position); ok && id == synthetic {
			return true
		}
	}

	return false
}

// FilterLessons returns the lessons of the selected batch in their original
// order
func (ix *Index) FilterLessons(selectedKey string, lessons []models.Lesson) []models.Lesson {
	out := make([]models.Lesson, 0, len(lessons))
	for _, l := range lessons {
		if ix.Matches(selectedKey, l.BatchID, l.BatchName) {
			out = append(out, l)
		}
	}
	return out
}

// FilterPurchases returns the purchases of the selected batch in their
// original order
func (ix *Index) FilterPurchases(selectedKey string, purchases []models.Purchase) []models.Purchase {
	out := make([]models.Purchase, 0, len(purchases))
	for _, p := range purchases {
		if ix.Matches(selectedKey, p.BatchID, p.BatchName) {
			out = append(out, p)
		}
	}
	return out
}
