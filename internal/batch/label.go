package batch

import (
	"fmt"
	"regexp"
	"strings"
)

var batchNumber = regexp.MustCompile(`(?i)batch[-\s_]?(\d+)`)

// Label produces the display label of a record that references a batch by
// id, by name, both or neither. It never fails; missing information degrades
// to the raw id and finally to the empty string.
func (ix *Index) Label(batchID, batchName string) string {
	if name := strings.TrimSpace(batchName); name != "" {
		return batchName
	}

	id := strings.TrimSpace(batchID)
	if id == "" {
		return ""
	}

	if ref, ok := ix.Lookup(id); ok {
		return ref.Name
	}

	if m := batchNumber.FindStringSubmatch(id); m != nil {
		return fmt.Sprintf("Batch %s", m[1])
	}

	return batchID
}
