// Package comm provides the collective operations the distributed slice
// pipeline needs: gather of integer lists and a barrier.
//
// Each rank's N-th collective call meets every other rank's N-th call, so
// all ranks must issue the same sequence of operations.
package comm

import "context"

// Communicator is a rank's handle on a process group.
type Communicator interface {
	Rank() int
	Size() int

	// AllGather concatenates every rank's local slice in rank order.
	// All ranks must contribute slices of the same length.
	AllGather(ctx context.Context, local []int) ([]int, error)

	// AllGatherV concatenates variable-length contributions in rank order.
	// counts[r] is the length contributed by rank r.
	AllGatherV(ctx context.Context, local []int, counts []int) ([]int, error)

	// Barrier returns once every rank has entered it.
	Barrier(ctx context.Context) error
}

// Self returns a single-process communicator of size 1.
func Self() Communicator { return self{} }

type self struct{}

func (self) Rank() int { return 0 }
func (self) Size() int { return 1 }

func (self) AllGather(ctx context.Context, local []int) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]int(nil), local...), nil
}

func (self) AllGatherV(ctx context.Context, local []int, counts []int) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkCounts(0, 1, local, counts); err != nil {
		return nil, err
	}
	return append([]int(nil), local...), nil
}

func (self) Barrier(ctx context.Context) error { return ctx.Err() }
