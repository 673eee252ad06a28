// Copyright (c) 2025 SciGo HDF5 Library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package amr

import (
	"io"
	"os"

	"github.com/scigolib/amr/internal/cache"
	"github.com/scigolib/amr/internal/utils"
)

// Option configures a Reader during Open.
// This follows the functional options pattern.
//
// Example:
//
//	r, err := amr.Open("plt00100",
//	    amr.WithMaxLevel(1),
//	    amr.WithFields("density"),
//	    amr.WithCacheEntries(4096),
//	)
type Option func(*readerConfig) error

// dataFile is an open Cell_D payload file.
type dataFile interface {
	utils.ReaderAt
	io.Closer
}

type readerConfig struct {
	maxLevel     int
	cache        *cache.Cache
	cacheEntries int
	fields       []string
	blocks       []int
	parallelism  int
	openFile     func(name string) (dataFile, error)
}

func defaultReaderConfig() readerConfig {
	return readerConfig{
		maxLevel:    -1,
		parallelism: 1,
		openFile: func(name string) (dataFile, error) {
			//nolint:gosec // G304: plotfile paths come from the caller and its headers
			return os.Open(name)
		},
	}
}

// WithMaxLevel caps the levels Update loads by default. A negative level
// means the finest level.
func WithMaxLevel(level int) Option {
	return func(c *readerConfig) error {
		c.maxLevel = level
		return nil
	}
}

// WithCache shares an existing block cache between readers of the same
// plotfile.
func WithCache(bc *cache.Cache) Option {
	return func(c *readerConfig) error {
		if bc == nil {
			return utils.ConfigError("nil cache")
		}
		c.cache = bc
		return nil
	}
}

// WithCacheEntries bounds the reader's own cache to n entries, evicting
// the least recently used. Zero means unbounded.
func WithCacheEntries(n int) Option {
	return func(c *readerConfig) error {
		if n < 0 {
			return utils.ConfigError("cache entries %d", n)
		}
		c.cacheEntries = n
		return nil
	}
}

// WithFields sets the variables Update loads. Every name must be declared
// in the plotfile header.
func WithFields(names ...string) Option {
	return func(c *readerConfig) error {
		c.fields = append([]string(nil), names...)
		return nil
	}
}

// WithBlocksOfInterest restricts Update to the given flat block indices.
func WithBlocksOfInterest(flats ...int) Option {
	return func(c *readerConfig) error {
		c.blocks = append([]int(nil), flats...)
		return nil
	}
}

// WithParallelism sets how many blocks ReadBlocks decodes at once.
// The default of 1 decodes sequentially.
func WithParallelism(n int) Option {
	return func(c *readerConfig) error {
		if n < 1 {
			return utils.ConfigError("parallelism %d", n)
		}
		c.parallelism = n
		return nil
	}
}

// withFileOpener replaces how payload files are opened.
func withFileOpener(open func(name string) (dataFile, error)) Option {
	return func(c *readerConfig) error {
		c.openFile = open
		return nil
	}
}
