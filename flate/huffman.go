// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package flate

import (
	"container/heap"
	"fmt"

	"github.com/cosnicolaou/xcomp/internal/bitstream"
)

// Canonical Huffman codes are fully determined by the per-symbol bit
// lengths: within a length, codes increase in symbol order, and each new
// length starts at the previous maximum shifted left by one. The encoder
// derives lengths from symbol frequencies; the decoder rebuilds the same
// table from the transmitted lengths.

type hfNode struct {
	freq   int
	symbol int
}

type hfHeap []hfNode

func (h hfHeap) Len() int { return len(h) }
func (h hfHeap) Less(i, j int) bool {
	if h[i].freq != h[j].freq {
		return h[i].freq < h[j].freq
	}
	return h[i].symbol < h[j].symbol
}
func (h hfHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *hfHeap) Push(x interface{}) { *h = append(*h, x.(hfNode)) }
func (h *hfHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// buildCodeLengths computes Huffman code lengths for the given symbol
// frequencies, limited to maxBits. Unused symbols get length zero. The
// returned slice covers symbols 0..len(freqs)-1.
func buildCodeLengths(freqs []int, maxBits int) []uint8 {
	lengths := make([]uint8, len(freqs))

	var h hfHeap
	for sym, f := range freqs {
		if f > 0 {
			h = append(h, hfNode{freq: f, symbol: sym})
		}
	}
	switch len(h) {
	case 0:
		return lengths
	case 1:
		// A single used symbol still needs one bit on the wire.
		lengths[h[0].symbol] = 1
		return lengths
	}
	heap.Init(&h)

	// Merge the two lowest-frequency nodes repeatedly; merged nodes get
	// fresh ids above the symbol range so equal-frequency ties resolve
	// the same way every run.
	next := len(freqs)
	parent := make(map[int]int, 2*len(h))
	for h.Len() > 1 {
		left := heap.Pop(&h).(hfNode)
		right := heap.Pop(&h).(hfNode)
		parent[left.symbol] = next
		parent[right.symbol] = next
		heap.Push(&h, hfNode{freq: left.freq + right.freq, symbol: next})
		next++
	}

	for sym := range freqs {
		if freqs[sym] == 0 {
			continue
		}
		depth := 0
		for n := sym; ; {
			p, ok := parent[n]
			if !ok {
				break
			}
			depth++
			n = p
		}
		if depth > maxBits {
			depth = maxBits
		}
		lengths[sym] = uint8(depth)
	}

	limitCodeLengths(lengths, maxBits)
	return lengths
}

// limitCodeLengths repairs the Kraft equality after lengths were clamped
// to maxBits: while the tree is over-subscribed, one leaf at the deepest
// unclamped level and one at maxBits are paired one level deeper.
func limitCodeLengths(lengths []uint8, maxBits int) {
	counts := make([]int, maxBits+1)
	used := 0
	for _, l := range lengths {
		if l > 0 {
			counts[l]++
			used++
		}
	}
	if used < 2 {
		return
	}
	total := 0
	for l := 1; l <= maxBits; l++ {
		total += counts[l] << uint(maxBits-l)
	}
	for total > 1<<uint(maxBits) {
		l := maxBits - 1
		for l > 0 && counts[l] == 0 {
			l--
		}
		counts[l]--
		counts[l+1] += 2
		counts[maxBits]--
		total--
	}

	// Reassign the adjusted length histogram to the symbols, keeping the
	// original shortest-first, then lowest-symbol order.
	order := make([]int, 0, used)
	for l := uint8(1); l <= uint8(maxBits); l++ {
		for sym, sl := range lengths {
			if sl == l {
				order = append(order, sym)
			}
		}
	}
	i := 0
	for l := 1; l <= maxBits; l++ {
		for n := 0; n < counts[l]; n++ {
			lengths[order[i]] = uint8(l)
			i++
		}
	}
}

// canonicalCodes assigns canonical codes to the given lengths using the
// standard min-base accumulation from RFC 1951 3.2.2.
func canonicalCodes(lengths []uint8) []uint16 {
	var blCount [maxCodeBits + 1]int
	for _, l := range lengths {
		blCount[l]++
	}
	blCount[0] = 0

	var mins [maxCodeBits + 1]uint16
	for l := 1; l <= maxCodeBits; l++ {
		mins[l] = (mins[l-1] + uint16(blCount[l-1])) << 1
	}

	codes := make([]uint16, len(lengths))
	for sym, l := range lengths {
		if l != 0 {
			codes[sym] = mins[l]
			mins[l]++
		}
	}
	return codes
}

// hfDecoder decodes canonical Huffman codes one bit at a time. For each
// bit length it holds the minimum code, the exclusive maximum, and the
// symbols at that length in code order.
type hfDecoder struct {
	minCodes [maxCodeBits + 1]uint16
	maxCodes [maxCodeBits + 1]uint16
	symbols  [maxCodeBits + 1][]uint16
	maxLen   int
}

func newHFDecoder(lengths []uint8) (*hfDecoder, error) {
	d := &hfDecoder{}
	var blCount [maxCodeBits + 1]int
	for _, l := range lengths {
		if int(l) > maxCodeBits {
			return nil, fmt.Errorf("code length %d: %w", l, ErrCorruptedData)
		}
		blCount[l]++
		if int(l) > d.maxLen {
			d.maxLen = int(l)
		}
	}
	blCount[0] = 0

	for l := 1; l <= d.maxLen; l++ {
		d.minCodes[l] = (d.minCodes[l-1] + uint16(blCount[l-1])) << 1
		d.maxCodes[l] = d.minCodes[l]
	}
	for sym, l := range lengths {
		if l != 0 {
			d.symbols[l] = append(d.symbols[l], uint16(sym))
			d.maxCodes[l]++
		}
	}
	return d, nil
}

// decode shifts in one bit per length until the accumulated code falls
// below the exclusive maximum for that length.
func (d *hfDecoder) decode(br *bitstream.Reader) (int, error) {
	code := uint16(0)
	for l := 1; l <= d.maxLen; l++ {
		code = code<<1 | uint16(br.ReadBit())
		if br.Err() != nil {
			return 0, ErrIO
		}
		if code < d.maxCodes[l] {
			return int(d.symbols[l][code-d.minCodes[l]]), nil
		}
	}
	return 0, ErrInvalidDecodedValue
}
