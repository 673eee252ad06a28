// Copyright (c) 2025 SciGo HDF5 Library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/amr/internal/hierarchy"
)

func testBlock(flat int) *hierarchy.Block {
	return &hierarchy.Block{
		Flat:    flat,
		Box:     hierarchy.NewBox([]int{0, 0, 0}, []int{1, 1, 1}),
		Spacing: [3]float64{1, 1, 1},
	}
}

func TestCache_Empty(t *testing.T) {
	c := New()
	assert.False(t, c.HasBlock(0))
	assert.False(t, c.HasField(0, "density"))

	_, ok := c.GetBlock(0)
	assert.False(t, ok)
	_, ok = c.GetField(0, "density")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_BlockAndField(t *testing.T) {
	c := New()
	b := testBlock(3)
	b.SetCellField(hierarchy.NewFloat64Array("ignored", 1, make([]float64, 8)))

	require.True(t, c.InsertBlock(3, b))
	assert.True(t, c.HasBlock(3))
	assert.False(t, c.HasField(3, "ignored"), "geometry insert must not cache fields")

	density := hierarchy.NewFloat64Array("density", 1, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	require.True(t, c.InsertField(3, "density", density))
	assert.True(t, c.HasField(3, "density"))

	got, ok := c.GetField(3, "density")
	require.True(t, ok)
	assert.Same(t, density, got)

	blk, ok := c.GetBlock(3)
	require.True(t, ok)
	assert.Equal(t, b.Box, blk.Box)
	require.Contains(t, blk.CellData, "density")
	assert.Same(t, density, blk.CellData["density"])
	assert.NotContains(t, blk.CellData, "ignored")
}

func TestCache_GetBlockReturnsCopy(t *testing.T) {
	c := New()
	require.True(t, c.InsertBlock(0, testBlock(0)))

	first, ok := c.GetBlock(0)
	require.True(t, ok)
	first.Blank = []uint8{hierarchy.Hidden}
	first.SetCellField(hierarchy.NewFloat64Array("scratch", 1, []float64{1}))

	second, ok := c.GetBlock(0)
	require.True(t, ok)
	assert.Nil(t, second.Blank)
	assert.NotContains(t, second.CellData, "scratch")
}

func TestCache_FirstWriterWins(t *testing.T) {
	c := New()
	first := testBlock(1)
	second := testBlock(1)
	second.Spacing = [3]float64{2, 2, 2}

	assert.True(t, c.InsertBlock(1, first))
	assert.False(t, c.InsertBlock(1, second))

	got, ok := c.GetBlock(1)
	require.True(t, ok)
	assert.Equal(t, first.Spacing, got.Spacing)

	a := hierarchy.NewFloat64Array("rho", 1, []float64{1})
	b := hierarchy.NewFloat64Array("rho", 1, []float64{2})
	assert.True(t, c.InsertField(1, "rho", a))
	assert.False(t, c.InsertField(1, "rho", b))

	f, ok := c.GetField(1, "rho")
	require.True(t, ok)
	assert.Same(t, a, f)
	assert.Equal(t, 2, c.Len())
}

func TestCache_InsertFieldWithoutBlockPanics(t *testing.T) {
	c := New()
	assert.Panics(t, func() {
		c.InsertField(9, "rho", hierarchy.NewFloat64Array("rho", 1, nil))
	})
}

func TestCache_Fill(t *testing.T) {
	c := New()
	b := testBlock(2)
	b.SetCellField(hierarchy.NewFloat64Array("rho", 1, []float64{1}))
	b.SetCellField(hierarchy.NewFloat64Array("p", 1, []float64{2}))

	c.Fill(2, b)
	assert.True(t, c.HasBlock(2))
	assert.True(t, c.HasField(2, "rho"))
	assert.True(t, c.HasField(2, "p"))

	// Refill keeps what is already there.
	again := testBlock(2)
	again.SetCellField(hierarchy.NewFloat64Array("rho", 1, []float64{99}))
	c.Fill(2, again)

	got, ok := c.GetField(2, "rho")
	require.True(t, ok)
	assert.Equal(t, 1.0, got.Value(0, 0))
	assert.Equal(t, 3, c.Len())
}

func TestCache_LRUEviction(t *testing.T) {
	c := New(WithMaxEntries(2))

	require.True(t, c.InsertBlock(0, testBlock(0)))
	require.True(t, c.InsertField(0, "rho", hierarchy.NewFloat64Array("rho", 1, []float64{1})))
	require.True(t, c.InsertBlock(1, testBlock(1)))

	// Inserting a field touches its block, so the field is the oldest entry.
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.HasBlock(0))
	assert.False(t, c.HasField(0, "rho"))
	assert.True(t, c.HasBlock(1))

	st := c.Stats()
	assert.Equal(t, int64(1), st.Evictions)
	assert.Equal(t, 2, st.Entries)
}

func TestCache_EvictedBlockDropsFields(t *testing.T) {
	c := New(WithMaxEntries(3))
	require.True(t, c.InsertBlock(0, testBlock(0)))
	require.True(t, c.InsertField(0, "rho", hierarchy.NewFloat64Array("rho", 1, []float64{1})))
	require.True(t, c.InsertBlock(1, testBlock(1)))
	require.True(t, c.HasBlock(0))
	require.True(t, c.HasField(0, "rho"))
	require.True(t, c.InsertBlock(2, testBlock(2)))

	// Block 1 was least recently used; block 0 and its field survive.
	assert.False(t, c.HasBlock(1))
	assert.True(t, c.HasField(0, "rho"))

	// Now block 0 is the oldest entry.
	require.True(t, c.HasBlock(2))
	require.True(t, c.InsertBlock(3, testBlock(3)))
	assert.False(t, c.HasBlock(0))
	assert.False(t, c.HasField(0, "rho"), "fields leave with their block")
	assert.Equal(t, 2, c.Len())

	require.True(t, c.InsertBlock(0, testBlock(0)))
	assert.NotPanics(t, func() {
		c.InsertField(0, "rho", hierarchy.NewFloat64Array("rho", 1, []float64{2}))
	})
}

func TestCache_StoreTooSmallForField(t *testing.T) {
	c := New(WithMaxEntries(1))
	require.True(t, c.InsertBlock(0, testBlock(0)))
	assert.False(t, c.InsertField(0, "rho", hierarchy.NewFloat64Array("rho", 1, []float64{1})))
	assert.False(t, c.HasBlock(0))
	assert.False(t, c.HasField(0, "rho"))
	assert.Equal(t, 0, c.Len())

	b := testBlock(1)
	b.SetCellField(hierarchy.NewFloat64Array("p", 1, []float64{1}))
	b.SetCellField(hierarchy.NewFloat64Array("rho", 1, []float64{1}))
	c.Fill(1, b)
	assert.False(t, c.HasField(1, "p"))
	assert.False(t, c.HasField(1, "rho"))
}

func TestCache_FillBounded(t *testing.T) {
	c := New(WithMaxEntries(2))
	b := testBlock(0)
	b.SetCellField(hierarchy.NewFloat64Array("p", 1, []float64{1}))
	b.SetCellField(hierarchy.NewFloat64Array("rho", 1, []float64{2}))
	c.Fill(0, b)

	require.True(t, c.HasBlock(0))
	assert.False(t, c.HasField(0, "p"))
	assert.True(t, c.HasField(0, "rho"))
	got, ok := c.GetBlock(0)
	require.True(t, ok)
	assert.Len(t, got.CellData, 1)
}

func TestCache_LRUEvictedFieldDropsFromBlock(t *testing.T) {
	c := New(WithMaxEntries(2))
	require.True(t, c.InsertBlock(0, testBlock(0)))
	require.True(t, c.InsertField(0, "rho", hierarchy.NewFloat64Array("rho", 1, []float64{1})))

	// Touch the block so the field becomes least recently used.
	require.True(t, c.HasBlock(0))
	require.True(t, c.InsertField(0, "p", hierarchy.NewFloat64Array("p", 1, []float64{2})))

	blk, ok := c.GetBlock(0)
	require.True(t, ok)
	assert.NotContains(t, blk.CellData, "rho")
	assert.Contains(t, blk.CellData, "p")
}

func TestCache_Stats(t *testing.T) {
	c := New()
	require.True(t, c.InsertBlock(0, testBlock(0)))
	require.True(t, c.InsertField(0, "rho", hierarchy.NewFloat64Array("rho", 1, []float64{1})))

	_, _ = c.GetField(0, "rho")
	_, _ = c.GetField(0, "rho")
	_, _ = c.GetBlock(0)

	st := c.Stats()
	assert.Equal(t, int64(1), st.BlocksFromSource)
	assert.Equal(t, int64(1), st.BlocksFromCache)
	assert.Equal(t, int64(1), st.FieldsFromSource)
	assert.Equal(t, int64(2), st.FieldsFromCache)
	assert.InDelta(t, 2.0/3.0, st.HitRate(), 1e-9)
	assert.Contains(t, st.String(), "entries=2")
}

func TestStats_HitRateZero(t *testing.T) {
	assert.Equal(t, 0.0, Stats{}.HitRate())
}
