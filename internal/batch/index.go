package batch

import (
	"fmt"
	"strings"

	"github.com/coursemuster/portal/internal/models"
)

// Ref is the reconciled view of one batch
type Ref struct {
	Key      string       `json:"key"`
	Name     string       `json:"name"`
	Position int          `json:"position"`
	Batch    models.Batch `json:"-"`
}

// Collision records a batch whose natural key is claimed by a different
// batch. Key is the contested key, Position the batch that lost it and
// ResolvedKey the key that batch is reachable under instead.
type Collision struct {
	Key             string `json:"key"`
	Position        int    `json:"position"`
	OwnedByPosition int    `json:"ownedByPosition"`
	ResolvedKey     string `json:"resolvedKey"`
}

// Index is the batch lookup table of one course snapshot.
// It is immutable once built and safe for concurrent reads.
type Index struct {
	courseID   string
	refs       []Ref
	byKey      map[string]int
	byName     map[string]int
	collisions []Collision
	// positions whose synthetic key is owned by another batch
	shadowed map[int]bool
}

// NewIndex builds the lookup table for a course. Stored ids claim their keys
// before synthetic keys do; a batch whose key is already claimed is indexed
// under a namespaced key so every resolved key stays unique.
func NewIndex(course *models.Course) *Index {
	ix := &Index{
		byKey:    make(map[string]int),
		byName:   make(map[string]int),
		shadowed: make(map[int]bool),
	}
	if course == nil {
		return ix
	}

	ix.courseID = course.ID
	claims := make(map[string]int)
	for i, b := range course.Batches {
		if id := storedKey(b); id != "" {
			if _, exists := claims[id]; !exists {
				claims[id] = i
			}
		}
	}

	ix.refs = make([]Ref, 0, len(course.Batches))
	for i, b := range course.Batches {
		ref := Ref{
			Key:      Key(b, i, course.ID),
			Name:     DisplayName(b, i),
			Position: i,
			Batch:    b,
		}

		synthetic := SyntheticKey(course.ID, i)
		if owner, ok := claims[synthetic]; ok && owner != i {
			ix.shadowed[i] = true
		}

		if owner, ok := claims[ref.Key]; ok && owner != i {
			natural := ref.Key
			ref.Key = ix.freeKey(NamespacedKey(course.ID, i), claims)
			ix.collisions = append(ix.collisions, Collision{
				Key:             natural,
				Position:        i,
				OwnedByPosition: owner,
				ResolvedKey:     ref.Key,
			})
		} else if ix.shadowed[i] {
			// the batch keeps its own id, but records keyed by its position
			// belong to the owner
			ix.collisions = append(ix.collisions, Collision{
				Key:             synthetic,
				Position:        i,
				OwnedByPosition: claims[synthetic],
				ResolvedKey:     ref.Key,
			})
		}

		ix.refs = append(ix.refs, ref)
		ix.byKey[ref.Key] = i
		name := foldName(ref.Name)
		if _, exists := ix.byName[name]; !exists {
			ix.byName[name] = i
		}
	}

	return ix
}

// freeKey returns key, suffixed when a stored id already uses it
func (ix *Index) freeKey(key string, claims map[string]int) string {
	candidate := key
	for n := 2; ; n++ {
		_, claimed := claims[candidate]
		_, indexed := ix.byKey[candidate]
		if !claimed && !indexed {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", key, n)
	}
}

// CourseID returns the id of the indexed course
func (ix *Index) CourseID() string {
	return ix.courseID
}

// Refs returns the reconciled batches in course order
func (ix *Index) Refs() []Ref {
	out := make([]Ref, len(ix.refs))
	copy(out, ix.refs)
	return out
}

// Len returns the number of batches
func (ix *Index) Len() int {
	return len(ix.refs)
}

// Lookup finds a batch by its resolved key
func (ix *Index) Lookup(key string) (Ref, bool) {
	i, ok := ix.byKey[strings.TrimSpace(key)]
	if !ok {
		return Ref{}, false
	}
	return ix.refs[i], true
}

// LookupName finds a batch by display name, ignoring case
func (ix *Index) LookupName(name string) (Ref, bool) {
	i, ok := ix.byName[foldName(name)]
	if !ok {
		return Ref{}, false
	}
	return ix.refs[i], true
}

// Resolve maps a selection token to a batch. The token may be a resolved
// key or a batch name.
func (ix *Index) Resolve(token string) (Ref, bool) {
	if token == "" {
		return Ref{}, false
	}
	if ref, ok := ix.Lookup(token); ok {
		return ref, true
	}
	return ix.LookupName(token)
}

// Last returns the last batch of the course
func (ix *Index) Last() (Ref, bool) {
	if len(ix.refs) == 0 {
		return Ref{}, false
	}
	return ix.refs[len(ix.refs)-1], true
}

// Collisions returns the batches that lost their natural key to another batch
func (ix *Index) Collisions() []Collision {
	out := make([]Collision, len(ix.collisions))
	copy(out, ix.collisions)
	return out
}

// syntheticKeyFor returns the synthetic key of a position unless another
// batch already owns that key
func (ix *Index) syntheticKeyFor(position int) (string, bool) {
	if ix.shadowed[position] {
		return "", false
	}
	return SyntheticKey(ix.courseID, position), true
}

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
