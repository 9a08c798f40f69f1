package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string
	Name string
}

func newItemCollection() *Collection[item] {
	return NewCollection(func(i item) string { return i.ID })
}

func TestReplaceAll(t *testing.T) {
	c := newItemCollection()
	c.SetLoading(true)

	c.ReplaceAll([]item{{ID: "a", Name: "one"}, {ID: "b", Name: "two"}})

	assert.Equal(t, 2, c.Len())
	assert.False(t, c.Loading(), "ReplaceAll clears the loading flag")

	got, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, "two", got.Name)
}

func TestUpsertPrependsNewAndReplacesInPlace(t *testing.T) {
	c := newItemCollection()
	c.ReplaceAll([]item{{ID: "a"}, {ID: "b"}})

	// New items go to the front.
	c.Upsert(item{ID: "c"})
	items := c.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "c", items[0].ID)

	// Existing items are replaced where they sit.
	c.Upsert(item{ID: "b", Name: "updated"})
	items = c.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, "updated", items[2].Name)
}

func TestPatchMissingIsNoOp(t *testing.T) {
	c := newItemCollection()
	c.ReplaceAll([]item{{ID: "a", Name: "one"}})

	ok := c.Patch("a", func(i item) item { i.Name = "patched"; return i })
	assert.True(t, ok)
	got, _ := c.Get("a")
	assert.Equal(t, "patched", got.Name)

	ok = c.Patch("zzz", func(i item) item { i.Name = "never"; return i })
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestRemovePreservesOrder(t *testing.T) {
	c := newItemCollection()
	c.ReplaceAll([]item{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	assert.True(t, c.Remove("b"))
	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "c", items[1].ID)

	// Index stays consistent after the shift.
	got, ok := c.Get("c")
	require.True(t, ok)
	assert.Equal(t, "c", got.ID)

	assert.False(t, c.Remove("b"), "removing an absent ID is a no-op")
}

func TestSelection(t *testing.T) {
	c := newItemCollection()
	c.ReplaceAll([]item{{ID: "a"}, {ID: "b"}})

	c.Select("a")
	got, ok := c.Selected()
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)

	// Removing the selected item clears the selection.
	c.Remove("a")
	_, ok = c.Selected()
	assert.False(t, ok)

	// Selecting an unknown ID clears rather than dangles.
	c.Select("nope")
	_, ok = c.Selected()
	assert.False(t, ok)
}

func TestReplaceAllKeepsValidSelection(t *testing.T) {
	c := newItemCollection()
	c.ReplaceAll([]item{{ID: "a"}, {ID: "b"}})
	c.Select("b")

	c.ReplaceAll([]item{{ID: "b"}, {ID: "c"}})
	got, ok := c.Selected()
	require.True(t, ok)
	assert.Equal(t, "b", got.ID)

	c.ReplaceAll([]item{{ID: "x"}})
	_, ok = c.Selected()
	assert.False(t, ok)
}

func TestVersionAdvancesOnMutation(t *testing.T) {
	c := newItemCollection()
	v0 := c.Version()

	c.Upsert(item{ID: "a"})
	v1 := c.Version()
	assert.Greater(t, v1, v0)

	c.Patch("a", func(i item) item { return i })
	assert.Greater(t, c.Version(), v1)
}
