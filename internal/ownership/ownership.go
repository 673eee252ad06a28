// Package ownership decides which rank owns each block of a hierarchy and
// derives per-cell visibility from ownership and refinement.
package ownership

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	"github.com/scigolib/amr/internal/comm"
	"github.com/scigolib/amr/internal/hierarchy"
	"github.com/scigolib/amr/internal/utils"
)

// Unassigned marks a block no rank claimed.
const Unassigned = -1

// Map records the owning rank of every block, by flat index.
type Map struct {
	owners []int
}

// NewMap returns a map of n unassigned blocks.
func NewMap(n int) Map {
	owners := make([]int, n)
	for i := range owners {
		owners[i] = Unassigned
	}
	return Map{owners: owners}
}

// Len returns the number of blocks covered by the map.
func (m Map) Len() int { return len(m.owners) }

// Owner returns the rank owning block flat, or Unassigned.
func (m Map) Owner(flat int) int { return m.owners[flat] }

// Assigned returns the number of blocks with an owner.
func (m Map) Assigned() int {
	n := 0
	for _, o := range m.owners {
		if o != Unassigned {
			n++
		}
	}
	return n
}

// Owned returns the flat indices owned by rank, ascending.
func (m Map) Owned(rank int) []int {
	var out []int
	for flat, o := range m.owners {
		if o == rank {
			out = append(out, flat)
		}
	}
	return out
}

// claim assigns flat to rank; a second claim on the same block fails.
func (m Map) claim(flat, rank int) error {
	if flat < 0 || flat >= len(m.owners) {
		return utils.ConfigError("rank %d claims block %d outside [0,%d)", rank, flat, len(m.owners))
	}
	if prev := m.owners[flat]; prev != Unassigned {
		return &utils.AMRError{
			Kind:    utils.KindConfiguration,
			Context: fmt.Sprintf("block claimed by ranks %d and %d", prev, rank),
			Block:   flat,
		}
	}
	m.owners[flat] = rank
	return nil
}

// Resolve is collective: every rank of c must call it, including ranks with
// no active blocks. active lists the flat indices this rank holds. On a
// single process all active blocks go to rank 0 without any exchange.
func Resolve(ctx context.Context, c comm.Communicator, h *hierarchy.Hierarchy, active []int) (Map, error) {
	total := h.NumBlocks()
	m := NewMap(total)

	if c.Size() == 1 {
		for _, flat := range active {
			if err := m.claim(flat, 0); err != nil {
				return Map{}, err
			}
		}
		return m, nil
	}

	counts, err := c.AllGather(ctx, []int{len(active)})
	if err != nil {
		return Map{}, utils.WrapError(utils.KindConfiguration, "gather active block counts", err)
	}
	sum := 0
	for _, n := range counts {
		sum += n
	}
	if sum > total {
		return Map{}, utils.ConfigError("ranks hold %d active blocks, hierarchy has %d", sum, total)
	}

	all, err := c.AllGatherV(ctx, active, counts)
	if err != nil {
		return Map{}, utils.WrapError(utils.KindConfiguration, "gather active block lists", err)
	}
	pos := 0
	for rank, n := range counts {
		for _, flat := range all[pos : pos+n] {
			if err := m.claim(flat, rank); err != nil {
				return Map{}, err
			}
		}
		pos += n
	}

	if glog.V(2) {
		glog.Infof("ownership: rank %d/%d resolved %d of %d blocks", c.Rank(), c.Size(), m.Assigned(), total)
	}
	return m, nil
}
