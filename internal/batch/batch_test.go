package batch

import (
	"testing"

	"github.com/coursemuster/portal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticKey(t *testing.T) {
	tests := []struct {
		courseID string
		position int
		expected string
	}{
		{"c1", 0, "c1-batch-1"},
		{"c1", 1, "c1-batch-2"},
		{"abc123", 9, "abc123-batch-10"},
		{"", 0, "-batch-1"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			first := SyntheticKey(tt.courseID, tt.position)
			second := SyntheticKey(tt.courseID, tt.position)
			assert.Equal(t, tt.expected, first)
			assert.Equal(t, first, second)
		})
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		batch    models.Batch
		position int
		expected string
	}{
		{"stored id wins", models.Batch{ID: "b1", LegacyID: "old"}, 0, "b1"},
		{"legacy id second", models.Batch{LegacyID: "old"}, 0, "old"},
		{"synthetic fallback", models.Batch{Name: "Batch 3"}, 2, "c1-batch-3"},
		{"blank id is ignored", models.Batch{ID: "  "}, 0, "c1-batch-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Key(tt.batch, tt.position, "c1"))
		})
	}
}

func TestNextName(t *testing.T) {
	tests := []struct {
		name     string
		names    []string
		expected string
	}{
		{"scenario A", []string{"Batch 1", "Batch 2"}, "Batch 3"},
		{"uses highest number", []string{"Batch 7", "Batch 2"}, "Batch 8"},
		{"trailing digits without prefix", []string{"Spring 2"}, "Batch 3"},
		{"case insensitive", []string{"BATCH4"}, "Batch 5"},
		{"no numbers counts names", []string{"Morning", "Evening"}, "Batch 3"},
		{"empty", nil, "Batch 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NextName(tt.names))
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Morning", DisplayName(models.Batch{Name: "Morning"}, 0))
	assert.Equal(t, "Batch 2", DisplayName(models.Batch{}, 1))
}

func newCourse(id string, batches ...models.Batch) *models.Course {
	return &models.Course{ID: id, Batches: batches}
}

func TestIndex_Label(t *testing.T) {
	course := newCourse("c1",
		models.Batch{ID: "b1", Name: "Morning"},
		models.Batch{Name: "Evening"},
		models.Batch{},
	)
	ix := NewIndex(course)

	tests := []struct {
		name      string
		batchID   string
		batchName string
		expected  string
	}{
		{"explicit name verbatim", "b1", "Custom Name", "Custom Name"},
		{"stored id resolves name", "b1", "", "Morning"},
		{"synthetic key resolves name", "c1-batch-2", "", "Evening"},
		{"unnamed batch display name", "c1-batch-3", "", "Batch 3"},
		{"pattern inference", "other-batch_12", "", "Batch 12"},
		{"pattern inference with space", "Batch 4", "", "Batch 4"},
		{"raw id fallback", "xyz", "", "xyz"},
		{"nothing", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ix.Label(tt.batchID, tt.batchName))
		})
	}
}

func TestIndex_Label_RoundTrip(t *testing.T) {
	course := newCourse("c9",
		models.Batch{ID: "a", Name: "Alpha"},
		models.Batch{LegacyID: "legacy-b", Name: "Bravo"},
		models.Batch{Name: "Charlie"},
	)
	ix := NewIndex(course)

	for _, ref := range ix.Refs() {
		assert.Equal(t, ref.Batch.Name, ix.Label(ref.Key, ""))
	}
}

func TestIndex_Matches(t *testing.T) {
	course := newCourse("c1",
		models.Batch{Name: "Batch 1"},
		models.Batch{ID: "b2", Name: "Batch 2"},
	)
	ix := NewIndex(course)

	tests := []struct {
		name     string
		selected string
		itemID   string
		itemName string
		expected bool
	}{
		{"empty selection matches", "", "", "", true},
		{"no reference excluded", "b2", "", "", false},
		{"direct id", "b2", "b2", "", true},
		{"name case insensitive", "b2", "", "batch 2", true},
		{"name of other batch", "b2", "", "Batch 1", false},
		{"synthetic key of selected position", "b2", "c1-batch-2", "", true},
		{"synthetic key of other position", "b2", "c1-batch-1", "", false},
		{"synthetic selection direct id", "c1-batch-1", "c1-batch-1", "", true},
		{"unknown selection by name", "Weekend", "", "weekend", true},
		{"unknown selection by id", "Weekend", "b2", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ix.Matches(tt.selected, tt.itemID, tt.itemName))
		})
	}
}

func TestIndex_Matches_NoAssociation(t *testing.T) {
	ix := NewIndex(newCourse("c1", models.Batch{}, models.Batch{ID: "b2"}))

	for _, selected := range []string{"c1-batch-1", "b2", "anything"} {
		assert.False(t, ix.Matches(selected, "", ""), selected)
	}
	assert.True(t, ix.Matches("", "", ""))
	assert.True(t, ix.Matches("", "b2", "Batch 9"))
}

func TestScenarioB(t *testing.T) {
	course := newCourse("c1", models.Batch{Name: "Batch 1"}, models.Batch{Name: "Batch 2"})
	course.Lessons = []models.Lesson{{ID: "l1", BatchID: "c1-batch-2"}}
	ix := NewIndex(course)

	refs := ix.Refs()
	require.Len(t, refs, 2)
	assert.Equal(t, "c1-batch-2", refs[1].Key)

	assert.Len(t, ix.FilterLessons(refs[1].Key, course.Lessons), 1)
	assert.Empty(t, ix.FilterLessons(refs[0].Key, course.Lessons))
}

func TestIndex_FilterIdempotent(t *testing.T) {
	course := newCourse("c1", models.Batch{ID: "b1", Name: "Morning"}, models.Batch{Name: "Evening"})
	lessons := []models.Lesson{
		{ID: "1", BatchID: "b1"},
		{ID: "2", BatchName: "evening"},
		{ID: "3"},
		{ID: "4", BatchID: "c1-batch-2"},
		{ID: "5", BatchName: "Morning"},
	}
	purchases := []models.Purchase{
		{ID: "p1", BatchID: "b1"},
		{ID: "p2", BatchName: "Evening"},
		{ID: "p3"},
	}
	ix := NewIndex(course)

	for _, key := range []string{"", "b1", "c1-batch-2"} {
		once := ix.FilterLessons(key, lessons)
		twice := ix.FilterLessons(key, once)
		assert.Equal(t, once, twice, key)

		p1 := ix.FilterPurchases(key, purchases)
		p2 := ix.FilterPurchases(key, p1)
		assert.Equal(t, p1, p2, key)
	}

	assert.Equal(t, []string{"1", "5"}, lessonIDs(ix.FilterLessons("b1", lessons)))
	assert.Equal(t, []string{"2", "4"}, lessonIDs(ix.FilterLessons("c1-batch-2", lessons)))
	assert.Len(t, ix.FilterLessons("", lessons), 5)
	assert.Len(t, ix.FilterPurchases("b1", purchases), 1)
}

func TestIndex_SyntheticCollision(t *testing.T) {
	// the first batch was stored with an id equal to the synthetic key of
	// the second position
	course := newCourse("c1",
		models.Batch{ID: "c1-batch-2", Name: "Imported"},
		models.Batch{ID: "b2", Name: "Fresh"},
	)
	ix := NewIndex(course)

	collisions := ix.Collisions()
	require.Len(t, collisions, 1)
	assert.Equal(t, Collision{Key: "c1-batch-2", Position: 1, OwnedByPosition: 0, ResolvedKey: "b2"}, collisions[0])

	// a lesson of the first batch must not leak into the second
	assert.True(t, ix.Matches("c1-batch-2", "c1-batch-2", ""))
	assert.False(t, ix.Matches("b2", "c1-batch-2", ""))
}

func TestIndex_DisplacedKeys(t *testing.T) {
	tests := []struct {
		name              string
		batches           []models.Batch
		expectedKeys      []string
		expectedCollision Collision
	}{
		{
			name: "unnamed batch after the stored id",
			batches: []models.Batch{
				{ID: "c1-batch-2", Name: "Imported"},
				{Name: "Fresh"},
			},
			expectedKeys:      []string{"c1-batch-2", "c1~batch-2"},
			expectedCollision: Collision{Key: "c1-batch-2", Position: 1, OwnedByPosition: 0, ResolvedKey: "c1~batch-2"},
		},
		{
			name: "unnamed batch before the stored id",
			batches: []models.Batch{
				{Name: "Fresh"},
				{ID: "c1-batch-1", Name: "Imported"},
			},
			expectedKeys:      []string{"c1~batch-1", "c1-batch-1"},
			expectedCollision: Collision{Key: "c1-batch-1", Position: 0, OwnedByPosition: 1, ResolvedKey: "c1~batch-1"},
		},
		{
			name: "duplicate stored ids",
			batches: []models.Batch{
				{ID: "b1", Name: "Morning"},
				{ID: "b1", Name: "Evening"},
			},
			expectedKeys:      []string{"b1", "c1~batch-2"},
			expectedCollision: Collision{Key: "b1", Position: 1, OwnedByPosition: 0, ResolvedKey: "c1~batch-2"},
		},
		{
			name: "namespaced key taken by a stored id",
			batches: []models.Batch{
				{ID: "c1-batch-2", Name: "Imported"},
				{Name: "Fresh"},
				{ID: "c1~batch-2", Name: "Odd"},
			},
			expectedKeys:      []string{"c1-batch-2", "c1~batch-2-2", "c1~batch-2"},
			expectedCollision: Collision{Key: "c1-batch-2", Position: 1, OwnedByPosition: 0, ResolvedKey: "c1~batch-2-2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := NewIndex(newCourse("c1", tt.batches...))

			keys := make([]string, 0, ix.Len())
			for _, ref := range ix.Refs() {
				keys = append(keys, ref.Key)
			}
			assert.Equal(t, tt.expectedKeys, keys)

			collisions := ix.Collisions()
			require.Len(t, collisions, 1)
			assert.Equal(t, tt.expectedCollision, collisions[0])

			// every batch is reachable under its own key
			for i, key := range tt.expectedKeys {
				ref, ok := ix.Resolve(key)
				require.True(t, ok, key)
				assert.Equal(t, i, ref.Position, key)
			}
		})
	}
}

func TestIndex_DisplacedBatchFilters(t *testing.T) {
	ix := NewIndex(newCourse("c1",
		models.Batch{ID: "c1-batch-2", Name: "Imported"},
		models.Batch{Name: "Fresh"},
	))
	lessons := []models.Lesson{
		{ID: "1", BatchID: "c1-batch-2"},
		{ID: "2", BatchName: "fresh"},
		{ID: "3", BatchName: "Imported"},
	}

	assert.Equal(t, []string{"1", "3"}, lessonIDs(ix.FilterLessons("c1-batch-2", lessons)))
	assert.Equal(t, []string{"2"}, lessonIDs(ix.FilterLessons("c1~batch-2", lessons)))
	assert.Equal(t, "Fresh", ix.Label("c1~batch-2", ""))
}

func TestIndex_Resolve(t *testing.T) {
	ix := NewIndex(newCourse("c1", models.Batch{ID: "b1", Name: "Morning"}, models.Batch{Name: "Evening"}))

	ref, ok := ix.Resolve("b1")
	require.True(t, ok)
	assert.Equal(t, 0, ref.Position)

	ref, ok = ix.Resolve("EVENING")
	require.True(t, ok)
	assert.Equal(t, "c1-batch-2", ref.Key)

	_, ok = ix.Resolve("nope")
	assert.False(t, ok)

	last, ok := ix.Last()
	require.True(t, ok)
	assert.Equal(t, 1, last.Position)

	_, ok = NewIndex(nil).Last()
	assert.False(t, ok)
}

func lessonIDs(lessons []models.Lesson) []string {
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	return ids
}
