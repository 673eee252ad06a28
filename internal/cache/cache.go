// Copyright (c) 2025 SciGo HDF5 Library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package cache keeps decoded block geometry and field arrays so repeated
// requests avoid re-reading disk.
//
// Every key is written at most once: inserting over an existing key is a
// no-op and the first payload stays. A cached field always has its block
// cached too: evicting a block drops its fields. Fetched blocks are structural copies
// that share field payloads with the cache.
package cache

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/scigolib/amr/internal/hierarchy"
)

// Cache maps block ids to geometry and (block id, field) to arrays.
type Cache struct {
	mu     sync.Mutex
	store  Store
	fields map[int][]string // field names inserted per block, in order
	stats  *collector
}

// Option configures a Cache.
type Option func(*Cache)

// WithStore replaces the default unbounded store.
func WithStore(s Store) Option {
	return func(c *Cache) { c.store = s }
}

// WithMaxEntries bounds the cache with an LRU store of n entries.
// n <= 0 keeps the cache unbounded.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.store = NewLRUStore(n, c.onEvict)
		}
	}
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		fields: make(map[int][]string),
		stats:  newCollector(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = NewMapStore()
	}
	return c
}

// onEvict runs under c.mu, from inside a store Add or Remove.
func (c *Cache) onEvict(k Key) {
	c.stats.evicted()
	if k.Field == "" {
		names := c.fields[k.Block]
		delete(c.fields, k.Block)
		for _, n := range names {
			c.store.Remove(Key{Block: k.Block, Field: n})
		}
		return
	}
	names := c.fields[k.Block]
	for i, n := range names {
		if n == k.Field {
			c.fields[k.Block] = append(names[:i:i], names[i+1:]...)
			break
		}
	}
}

// HasBlock reports whether geometry for block id is cached.
func (c *Cache) HasBlock(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store.Get(Key{Block: id})
	return ok
}

// GetBlock returns a structural copy of block id carrying every cached
// field, or false when the block is absent.
func (c *Cache) GetBlock(id int) (*hierarchy.Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.store.Get(Key{Block: id})
	if !ok {
		return nil, false
	}
	c.stats.servedFromCache(kindBlock)

	out := v.(*hierarchy.Block).Clone()
	for _, name := range c.fields[id] {
		if a, ok := c.store.Get(Key{Block: id, Field: name}); ok {
			out.SetCellField(a.(*hierarchy.Array))
		}
	}
	return out, true
}

// InsertBlock caches the geometry of b under id. It reports false, leaving
// the cache untouched, when id is already present.
func (c *Cache) InsertBlock(id int, b *hierarchy.Block) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := Key{Block: id}
	if _, ok := c.store.Get(k); ok {
		return false
	}
	c.store.Add(k, b.Metadata())
	c.stats.servedFromSource(kindBlock)
	return true
}

// HasField reports whether field name of block id is cached.
func (c *Cache) HasField(id int, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store.Get(Key{Block: id, Field: name})
	return ok
}

// GetField returns the cached array, or false when absent.
func (c *Cache) GetField(id int, name string) (*hierarchy.Array, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.store.Get(Key{Block: id, Field: name})
	if !ok {
		return nil, false
	}
	c.stats.servedFromCache(kindField)
	return v.(*hierarchy.Array), true
}

// InsertField caches a under (id, name). The block must already be cached.
// It reports false when the field is already present, or when the store is
// too small to keep it next to its block.
func (c *Cache) InsertField(id int, name string, a *hierarchy.Array) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.store.Get(Key{Block: id}); !ok {
		panic(fmt.Sprintf("cache: field %q inserted for uncached block %d", name, id))
	}
	return c.addField(id, name, a)
}

// addField stores a field and touches its block so a bounded store evicts
// other entries first. It reports whether the field was added and kept.
func (c *Cache) addField(id int, name string, a *hierarchy.Array) bool {
	k := Key{Block: id, Field: name}
	if _, ok := c.store.Get(k); ok {
		return false
	}
	c.fields[id] = append(c.fields[id], name)
	c.store.Add(k, a)
	c.stats.servedFromSource(kindField)
	_, kept := c.store.Get(Key{Block: id})
	return kept
}

// Fill inserts the geometry of b under id and each of its cell fields
// under one lock. Entries already present are kept. With a bounded store
// the block stays ahead of its fields in recency; a store that cannot hold
// the block next to a single field ends up holding neither.
func (c *Cache) Fill(id int, b *hierarchy.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bk := Key{Block: id}
	if _, ok := c.store.Get(bk); !ok {
		c.store.Add(bk, b.Metadata())
		c.stats.servedFromSource(kindBlock)
	}
	for _, name := range slices.Sorted(maps.Keys(b.CellData)) {
		if _, ok := c.store.Get(bk); !ok {
			return
		}
		c.addField(id, name, b.CellData[name])
	}
}

// Len returns the number of entries held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Len()
}

// Stats returns a snapshot of cache traffic.
func (c *Cache) Stats() Stats {
	return c.stats.snapshot(c.Len())
}
