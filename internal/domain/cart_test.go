package domain

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestCart_UpsertCreatesLine(t *testing.T) {
	c := NewCart()

	line, created, err := c.Upsert("p1", 2, t0)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, line.ID)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, 1, c.Len())
}

func TestCart_UpsertOverwritesQuantity(t *testing.T) {
	c := NewCart()
	first, _, err := c.Upsert("p1", 2, t0)
	require.NoError(t, err)

	second, created, err := c.Upsert("p1", 5, t0.Add(time.Minute))
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID, "line id is stable")
	assert.Equal(t, 5, second.Quantity, "quantity replaced, not added")
	assert.Equal(t, first.AddedAt, second.AddedAt)
	assert.Equal(t, 1, c.Len())
}

func TestCart_UpsertRejectsOutOfRangeQuantity(t *testing.T) {
	c := NewCart()
	for _, qty := range []int{0, -1, MaxQuantity + 1, 1 << 61} {
		_, _, err := c.Upsert("p1", qty, t0)
		assert.ErrorIs(t, err, ErrInvalidQuantity, "quantity %d", qty)
	}
	assert.True(t, c.IsEmpty())

	l, _, err := c.Upsert("p1", MaxQuantity, t0)
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, l.Quantity)

	_, _, err = c.Upsert("p1", MaxQuantity+1, t0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	got, _ := c.Line("p1")
	assert.Equal(t, MaxQuantity, got.Quantity, "rejected update leaves line intact")
}

func TestErrInvalidQuantity_NamesMaxQuantity(t *testing.T) {
	assert.Contains(t, ErrInvalidQuantity.Error(), strconv.Itoa(MaxQuantity))
}

func TestCart_Remove(t *testing.T) {
	c := NewCart()
	a, _, _ := c.Upsert("p1", 1, t0)
	_, _, _ = c.Upsert("p2", 3, t0.Add(time.Second))

	removed, ok := c.Remove(a.ID)
	require.True(t, ok)
	assert.Equal(t, "p1", removed.ProductID)
	assert.Equal(t, []string{"p2"}, c.ProductIDs())

	_, ok = c.Remove(a.ID)
	assert.False(t, ok, "removing twice reports missing")
}

func TestCart_LinesKeepInsertionOrder(t *testing.T) {
	c := NewCart()
	_, _, _ = c.Upsert("p3", 1, t0.Add(2*time.Second))
	_, _, _ = c.Upsert("p1", 1, t0)
	_, _, _ = c.Upsert("p2", 1, t0.Add(time.Second))
	_, _, _ = c.Upsert("p1", 9, t0.Add(time.Hour))

	assert.Equal(t, []string{"p1", "p2", "p3"}, c.ProductIDs())
	assert.Equal(t, 11, c.ItemCount())
}

func TestRestoreCart_DeduplicatesProducts(t *testing.T) {
	c := RestoreCart(4, []CartLineItem{
		{ID: "l1", ProductID: "p1", Quantity: 1, AddedAt: t0},
		{ID: "l2", ProductID: "p1", Quantity: 7, AddedAt: t0},
	})
	assert.Equal(t, int64(4), c.Version)
	require.Equal(t, 1, c.Len())
	l, _ := c.Line("p1")
	assert.Equal(t, "l1", l.ID)
}

func TestCart_CloneIsIndependent(t *testing.T) {
	c := NewCart()
	_, _, _ = c.Upsert("p1", 1, t0)
	cp := c.Clone()
	_, _, _ = cp.Upsert("p2", 1, t0)

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, cp.Len())
}

func TestCart_ZeroValueUsable(t *testing.T) {
	var c Cart
	assert.True(t, c.IsEmpty())
	_, created, err := c.Upsert("p1", 1, t0)
	require.NoError(t, err)
	assert.True(t, created)
}
