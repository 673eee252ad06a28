package amr

import (
	"github.com/scigolib/amr/internal/cache"
	"github.com/scigolib/amr/internal/comm"
	"github.com/scigolib/amr/internal/hierarchy"
	"github.com/scigolib/amr/internal/slice"
)

// Aliases for the hierarchy types returned by Reader.
type (
	Hierarchy = hierarchy.Hierarchy
	Block     = hierarchy.Block
	Array     = hierarchy.Array
	Box       = hierarchy.Box
	Bounds    = hierarchy.Bounds
)

// Slicing and collective types.
type (
	SliceConfig       = slice.Config
	SliceResult       = slice.Result
	Slicer            = slice.Extractor
	OrphanCellWarning = slice.OrphanCellWarning
	Communicator      = comm.Communicator
	Group             = comm.Group
)

// Cache types.
type (
	BlockCache = cache.Cache
	CacheStats = cache.Stats
)

// Plane normals for SliceConfig.Normal.
const (
	NormalX = slice.NormalX
	NormalY = slice.NormalY
	NormalZ = slice.NormalZ
)

// NewCache returns a block cache that can be shared with WithCache.
// maxEntries <= 0 leaves it unbounded.
func NewCache(maxEntries int) *BlockCache {
	return cache.New(cache.WithMaxEntries(maxEntries))
}

// SingleProcess returns the communicator of a one-rank run.
func SingleProcess() Communicator { return comm.Self() }

// NewGroup returns an in-process group of n ranks.
func NewGroup(n int) *Group { return comm.NewGroup(n) }
