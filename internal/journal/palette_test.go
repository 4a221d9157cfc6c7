package journal

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorRegistryStablePerCategory(t *testing.T) {
	r := NewColorRegistry(42)
	a := r.Assign("A")
	b := r.Assign("B")
	assert.Equal(t, a, r.Assign("A"))
	assert.NotEqual(t, a, b)

	assigned := r.Assigned()
	require.Len(t, assigned, 2)
	assert.Equal(t, "A", assigned[0].Category)
	assert.Equal(t, a, assigned[0].Color)
}

func TestColorRegistryDistinctForManyCategories(t *testing.T) {
	r := NewColorRegistry(7)
	seen := map[RGB]string{}
	for i := range 200 {
		cat := fmt.Sprintf("CAT_%d", i)
		c := r.Assign(cat)
		prev, dup := seen[c]
		require.False(t, dup, "%s collides with %s", cat, prev)
		seen[c] = cat
	}
}

func TestColorRegistrySeeded(t *testing.T) {
	a := NewColorRegistry(99)
	b := NewColorRegistry(99)
	for _, cat := range []string{"A", "B", "C"} {
		assert.Equal(t, a.Assign(cat), b.Assign(cat))
	}
}

func TestRGBHex(t *testing.T) {
	assert.Equal(t, "#ff8000", RGB{R: 255, G: 128, B: 0}.Hex())
}

func TestNudge(t *testing.T) {
	assert.Equal(t, RGB{R: 1, G: 2, B: 4}, nudge(RGB{R: 1, G: 2, B: 3}))
	assert.Equal(t, RGB{R: 1, G: 3, B: 255}, nudge(RGB{R: 1, G: 2, B: 255}))
}
