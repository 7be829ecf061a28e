package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextID(t *testing.T) {
	t.Run("empty collection starts at one", func(t *testing.T) {
		assert.Equal(t, int64(1), NextID(nil))
		assert.Equal(t, int64(1), NextID(Collection{}))
	})

	t.Run("max plus one", func(t *testing.T) {
		c := Collection{{ID: 1}, {ID: 7}, {ID: 3}}
		assert.Equal(t, int64(8), NextID(c))
	})

	t.Run("gaps are not reused", func(t *testing.T) {
		c := Collection{{ID: 1}, {ID: 2}, {ID: 5}}
		c, _ = c.Without(5)
		assert.Equal(t, int64(3), NextID(c))
	})
}

func TestParseID(t *testing.T) {
	valid := map[string]int64{"1": 1, "42": 42, "1000": 1000}
	for raw, want := range valid {
		id, ok, overflow := ParseID(raw)
		assert.True(t, ok, raw)
		assert.False(t, overflow, raw)
		assert.Equal(t, want, id, raw)
	}

	for _, raw := range []string{"0", "-1", "abc", "01", "", "+1", "1.5", " 1", "1a"} {
		_, ok, _ := ParseID(raw)
		assert.False(t, ok, "expected %q to be rejected", raw)
	}

	_, ok, overflow := ParseID("99999999999999999999")
	assert.True(t, ok)
	assert.True(t, overflow)
}

func TestCollection(t *testing.T) {
	c := Collection{
		{ID: 1, Title: "a", Completed: true},
		{ID: 2, Title: "b"},
		{ID: 3, Title: "c", Completed: true},
	}

	t.Run("find", func(t *testing.T) {
		got, ok := c.Find(2)
		assert.True(t, ok)
		assert.Equal(t, "b", got.Title)

		_, ok = c.Find(99)
		assert.False(t, ok)
	})

	t.Run("filter keeps relative order", func(t *testing.T) {
		done := c.FilterCompleted(true)
		assert.Equal(t, Collection{c[0], c[2]}, done)
		assert.Equal(t, Collection{c[1]}, c.FilterCompleted(false))
	})

	t.Run("without", func(t *testing.T) {
		out, removed := c.Without(2)
		assert.True(t, removed)
		assert.Len(t, out, 2)
		assert.Len(t, c, 3)

		_, removed = c.Without(2000)
		assert.False(t, removed)
	})

	t.Run("clone is independent", func(t *testing.T) {
		cp := c.Clone()
		cp[0].Title = "changed"
		assert.Equal(t, "a", c[0].Title)
	})
}
