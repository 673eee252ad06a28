package slice

import (
	"fmt"

	"github.com/scigolib/amr/internal/utils"
)

// Normal axis indices accepted by Config.Normal.
const (
	NormalX = 1
	NormalY = 2
	NormalZ = 3
)

// Config selects the cut plane and how much of the hierarchy to load.
type Config struct {
	// Normal is the cut axis: NormalX, NormalY or NormalZ.
	Normal int
	// Offset places the plane along the cut axis. When nil the extractor
	// uses the midpoint of the hierarchy bounds, fixed on first use.
	Offset *float64
	// MaxLevel caps the emitted levels. Negative means the finest level.
	MaxLevel int
	// Prefetch also loads intersecting blocks one level below MaxLevel.
	// They warm the source's cache and are not emitted.
	Prefetch bool
	// Fields restricts donation to these variables; nil means all.
	Fields []string
	// Responsible reports whether rank fetches block flat. Nil means
	// round-robin by flat index when size > 1.
	Responsible func(flat, rank, size int) bool
}

// Axis returns the zero-based cut axis.
func (c Config) Axis() int { return c.Normal - 1 }

// Validate checks the plane normal.
func (c Config) Validate() error {
	if c.Normal < NormalX || c.Normal > NormalZ {
		return utils.ConfigError("plane normal %d, want 1 (X), 2 (Y) or 3 (Z)", c.Normal)
	}
	return nil
}

// OffsetAt is a helper for building a Config with an explicit offset.
func OffsetAt(v float64) *float64 { return &v }

func (c Config) responsible(flat, rank, size int) bool {
	if size <= 1 {
		return true
	}
	if c.Responsible != nil {
		return c.Responsible(flat, rank, size)
	}
	return flat%size == rank
}

func axisName(a int) string {
	switch a {
	case 0:
		return "x"
	case 1:
		return "y"
	case 2:
		return "z"
	}
	return fmt.Sprintf("axis%d", a)
}
