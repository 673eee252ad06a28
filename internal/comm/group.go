package comm

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/scigolib/amr/internal/utils"
)

type opKind int

const (
	opAllGather opKind = iota
	opAllGatherV
	opBarrier
)

func (o opKind) String() string {
	switch o {
	case opAllGather:
		return "AllGather"
	case opAllGatherV:
		return "AllGatherV"
	case opBarrier:
		return "Barrier"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// round is one collective call shared by all ranks.
type round struct {
	op      opKind
	parts   [][]int
	arrived int
	done    chan struct{}
	closed  bool
	err     error
}

// Group is an in-memory process group whose ranks are goroutines.
type Group struct {
	size int

	mu     sync.Mutex
	rounds map[int]*round
	comms  []*member
}

// NewGroup returns a group of n ranks. n must be positive.
func NewGroup(n int) *Group {
	if n < 1 {
		panic(fmt.Sprintf("comm: group size %d", n))
	}
	g := &Group{size: n, rounds: make(map[int]*round)}
	g.comms = make([]*member, n)
	for r := range g.comms {
		g.comms[r] = &member{group: g, rank: r}
	}
	return g
}

// Size returns the number of ranks.
func (g *Group) Size() int { return g.size }

// Comm returns the communicator for rank r.
func (g *Group) Comm(r int) Communicator {
	if r < 0 || r >= g.size {
		panic(fmt.Sprintf("comm: rank %d out of range [0,%d)", r, g.size))
	}
	return g.comms[r]
}

// Run calls fn once per rank, each on its own goroutine, and waits for all
// of them. The first error cancels the context passed to the others.
func (g *Group) Run(ctx context.Context, fn func(ctx context.Context, c Communicator) error) error {
	eg, ctx := errgroup.WithContext(ctx)
	for r := 0; r < g.size; r++ {
		c := g.comms[r]
		eg.Go(func() error {
			return fn(ctx, c)
		})
	}
	return eg.Wait()
}

// member is one rank's view of a Group.
type member struct {
	group *Group
	rank  int

	mu  sync.Mutex
	seq int
}

func (m *member) Rank() int { return m.rank }
func (m *member) Size() int { return m.group.size }

func (m *member) AllGather(ctx context.Context, local []int) ([]int, error) {
	parts, err := m.exchange(ctx, opAllGather, local)
	if err != nil {
		return nil, err
	}
	for r, p := range parts {
		if len(p) != len(local) {
			return nil, utils.ConfigError("AllGather: rank %d contributed %d values, rank %d contributed %d",
				r, len(p), m.rank, len(local))
		}
	}
	return concat(parts), nil
}

func (m *member) AllGatherV(ctx context.Context, local []int, counts []int) ([]int, error) {
	if err := checkCounts(m.rank, m.group.size, local, counts); err != nil {
		return nil, err
	}
	parts, err := m.exchange(ctx, opAllGatherV, local)
	if err != nil {
		return nil, err
	}
	for r, p := range parts {
		if len(p) != counts[r] {
			return nil, utils.ConfigError("AllGatherV: rank %d contributed %d values, expected %d", r, len(p), counts[r])
		}
	}
	return concat(parts), nil
}

func (m *member) Barrier(ctx context.Context) error {
	_, err := m.exchange(ctx, opBarrier, nil)
	return err
}

// exchange deposits local into this rank's next round and waits for the
// rest of the group.
func (m *member) exchange(ctx context.Context, op opKind, local []int) ([][]int, error) {
	m.mu.Lock()
	seq := m.seq
	m.seq++
	m.mu.Unlock()

	g := m.group
	g.mu.Lock()
	rd, ok := g.rounds[seq]
	if !ok {
		rd = &round{op: op, parts: make([][]int, g.size), done: make(chan struct{})}
		g.rounds[seq] = rd
	}
	rd.parts[m.rank] = append([]int(nil), local...)
	rd.arrived++
	if rd.op != op && rd.err == nil {
		rd.err = utils.ConfigError("collective #%d: rank %d called %s while others called %s", seq, m.rank, op, rd.op)
	}
	if rd.arrived == g.size {
		delete(g.rounds, seq)
	}
	if (rd.arrived == g.size || rd.err != nil) && !rd.closed {
		rd.closed = true
		close(rd.done)
	}
	g.mu.Unlock()

	select {
	case <-rd.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if rd.err != nil {
		return nil, rd.err
	}
	return rd.parts, nil
}

func checkCounts(rank, size int, local, counts []int) error {
	if len(counts) != size {
		return utils.ConfigError("AllGatherV: %d counts for %d ranks", len(counts), size)
	}
	if len(local) != counts[rank] {
		return utils.ConfigError("AllGatherV: rank %d has %d values, counts say %d", rank, len(local), counts[rank])
	}
	return nil
}

func concat(parts [][]int) []int {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]int, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
