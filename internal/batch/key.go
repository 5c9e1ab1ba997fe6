// Package batch resolves, labels and filters course batches.
//
// Lessons and purchases reference their batch by a stored id, by a name, or
// by a synthetic key derived from the batch position. Everything in this
// package reconciles those three forms through a single Index built per
// course snapshot.
package batch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/coursemuster/portal/internal/models"
)

// SyntheticKey returns the key of a batch that has no stored id.
// position is zero-based; the key uses the one-based position.
func SyntheticKey(courseID string, position int) string {
	return fmt.Sprintf("%s-batch-%d", courseID, position+1)
}

// NamespacedKey returns the key of a batch whose natural key belongs to
// another batch of the course. Its separator never appears in synthetic keys.
func NamespacedKey(courseID string, position int) string {
	return fmt.Sprintf("%s~batch-%d", courseID, position+1)
}

// Key resolves the stable key of a batch: its id, else its legacy id, else
// the synthetic key for its position.
func Key(b models.Batch, position int, courseID string) string {
	if id := storedKey(b); id != "" {
		return id
	}
	return SyntheticKey(courseID, position)
}

func storedKey(b models.Batch) string {
	if id := strings.TrimSpace(b.ID); id != "" {
		return id
	}
	return strings.TrimSpace(b.LegacyID)
}

// DisplayName returns the batch name, or "Batch N" for unnamed batches
func DisplayName(b models.Batch, position int) string {
	if name := strings.TrimSpace(b.Name); name != "" {
		return name
	}
	return fmt.Sprintf("Batch %d", position+1)
}

var trailingNumber = regexp.MustCompile(`(?i)(?:batch\s*)?(\d+)\s*$`)

// NextName proposes the name of the batch that would be appended after the
// given ones: one past the highest trailing number, or the count plus one
// when no name carries a number.
func NextName(names []string) string {
	highest := 0
	found := false
	for _, name := range names {
		m := trailingNumber.FindStringSubmatch(strings.TrimSpace(name))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		found = true
		if n > highest {
			highest = n
		}
	}

	if !found {
		return fmt.Sprintf("Batch %d", len(names)+1)
	}
	return fmt.Sprintf("Batch %d", highest+1)
}

// Names returns the stored names of the batches
func Names(batches []models.Batch) []string {
	names := make([]string, 0, len(batches))
	for _, b := range batches {
		names = append(names, b.Name)
	}
	return names
}
