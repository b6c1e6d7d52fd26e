// Copyright (c) 2025 A Bit of Help, Inc.

package huffman

import (
	"container/heap"
)

const noChild = -1

// node is an arena entry. Leaves carry a symbol; internal nodes carry two child handles.
type node struct {
	freq   uint64
	symbol byte
	leaf   bool
	seq    int32
	left   int32
	right  int32
}

// tree owns every node built for one compress or decompress call
type tree struct {
	nodes []node
	root  int32
}

// tieByte is the byte value used for ordering; internal nodes sort as byte 0
func (n *node) tieByte() byte {
	if n.leaf {
		return n.symbol
	}
	return 0
}

// queue orders node handles by frequency, then byte value, then creation order
type queue struct {
	nodes *[]node
	items []int32
}

func (q *queue) Len() int { return len(q.items) }

func (q *queue) Less(i, j int) bool {
	a, b := &(*q.nodes)[q.items[i]], &(*q.nodes)[q.items[j]]
	if a.freq != b.freq {
		return a.freq < b.freq
	}
	if a.tieByte() != b.tieByte() {
		return a.tieByte() < b.tieByte()
	}
	return a.seq < b.seq
}

func (q *queue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *queue) Push(x any) { q.items = append(q.items, x.(int32)) }

func (q *queue) Pop() any {
	last := q.items[len(q.items)-1]
	q.items = q.items[:len(q.items)-1]
	return last
}

// buildTree merges the two lowest-ordered nodes until one remains. The frequency table
// must list at least one symbol. Both encoder and decoder call this with the same table,
// so the ordering above fully determines the codes.
func buildTree(freqs *frequencyTable) *tree {
	t := &tree{nodes: make([]node, 0, 2*len(freqs.symbols))}
	q := &queue{nodes: &t.nodes}

	for _, s := range freqs.symbols {
		t.nodes = append(t.nodes, node{
			freq:   freqs.counts[s],
			symbol: s,
			leaf:   true,
			seq:    int32(len(t.nodes)),
			left:   noChild,
			right:  noChild,
		})
		q.items = append(q.items, int32(len(t.nodes)-1))
	}
	heap.Init(q)

	for q.Len() > 1 {
		left := heap.Pop(q).(int32)
		right := heap.Pop(q).(int32)
		t.nodes = append(t.nodes, node{
			freq:  t.nodes[left].freq + t.nodes[right].freq,
			seq:   int32(len(t.nodes)),
			left:  left,
			right: right,
		})
		heap.Push(q, int32(len(t.nodes)-1))
	}

	t.root = heap.Pop(q).(int32)
	return t
}

// code is a root-to-leaf path, most significant bit first
type code struct {
	bits  uint64
	width uint8
}

// codes walks the tree depth first; left appends 0, right appends 1. A tree that is a
// single leaf assigns its symbol the empty code.
func (t *tree) codes() [256]code {
	var table [256]code

	type frame struct {
		handle int32
		c      code
	}
	stack := []frame{{handle: t.root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[f.handle]
		if n.leaf {
			table[n.symbol] = f.c
			continue
		}
		stack = append(stack,
			frame{n.right, code{f.c.bits<<1 | 1, f.c.width + 1}},
			frame{n.left, code{f.c.bits << 1, f.c.width + 1}})
	}

	return table
}
