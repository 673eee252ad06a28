package hierarchy

// BlockIterator walks composite block indices level-major, then in
// intra-level order. It follows the bufio.Scanner pattern and can be
// restarted with Reset.
//
//	it := h.BlocksAtOrBelow(1)
//	for it.Next() {
//	    process(it.Block())
//	}
type BlockIterator struct {
	h    *Hierarchy
	end  int
	next int
	cur  int
}

// BlocksAtOrBelow returns an iterator over every block on levels 0..maxLevel.
func (h *Hierarchy) BlocksAtOrBelow(maxLevel int) *BlockIterator {
	h.checkLevel(maxLevel)
	return &BlockIterator{h: h, end: h.offsets[maxLevel+1], cur: -1}
}

// Next advances to the next block and reports whether one exists.
func (it *BlockIterator) Next() bool {
	if it.next >= it.end {
		it.cur = -1
		return false
	}
	it.cur = it.next
	it.next++
	return true
}

// Flat returns the composite index of the current block.
func (it *BlockIterator) Flat() int {
	if it.cur < 0 {
		panic("hierarchy: BlockIterator.Flat called without a successful Next")
	}
	return it.cur
}

// Block returns the current block.
func (it *BlockIterator) Block() *Block {
	return it.h.blocks[it.Flat()]
}

// Len returns the total number of blocks the iterator yields.
func (it *BlockIterator) Len() int {
	return it.end
}

// Reset rewinds the iterator to the first block.
func (it *BlockIterator) Reset() {
	it.next = 0
	it.cur = -1
}
