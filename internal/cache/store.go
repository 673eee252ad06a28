// Copyright (c) 2025 SciGo HDF5 Library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package cache

import "github.com/golang/groupcache/lru"

// Key identifies a cache entry. An empty Field names the block geometry.
type Key struct {
	Block int
	Field string
}

// Store is the keyed storage behind a Cache. Implementations need not be
// safe for concurrent use; the Cache serializes access.
type Store interface {
	Get(key Key) (interface{}, bool)
	Add(key Key, value interface{})
	Remove(key Key)
	Len() int
}

// mapStore never evicts.
type mapStore map[Key]interface{}

// NewMapStore returns an unbounded store.
func NewMapStore() Store {
	return mapStore{}
}

func (m mapStore) Get(key Key) (interface{}, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapStore) Add(key Key, value interface{}) { m[key] = value }

func (m mapStore) Remove(key Key) { delete(m, key) }

func (m mapStore) Len() int { return len(m) }

// lruStore evicts the least recently used entry beyond maxEntries.
type lruStore struct {
	cache *lru.Cache
}

// NewLRUStore returns a store bounded to maxEntries. onEvict, if non-nil,
// is called for every evicted key.
func NewLRUStore(maxEntries int, onEvict func(Key)) Store {
	c := lru.New(maxEntries)
	if onEvict != nil {
		c.OnEvicted = func(k lru.Key, _ interface{}) {
			onEvict(k.(Key))
		}
	}
	return &lruStore{cache: c}
}

func (s *lruStore) Get(key Key) (interface{}, bool) { return s.cache.Get(key) }

func (s *lruStore) Add(key Key, value interface{}) { s.cache.Add(key, value) }

// Remove drops key and reports it through onEvict.
func (s *lruStore) Remove(key Key) { s.cache.Remove(key) }

func (s *lruStore) Len() int { return s.cache.Len() }
