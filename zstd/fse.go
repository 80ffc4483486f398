// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"fmt"
	"math/bits"

	"github.com/cosnicolaou/xcomp/internal/bitstream"
)

const (
	fseTableLogMax = 15
	fseMaxSymbol   = 255
)

// fseEntry is one slot of a Finite State Entropy decoding table. The
// current state selects a slot; the slot yields a symbol and the next
// state is baseline plus nbBits bits read from the reverse stream.
type fseEntry struct {
	symbol   uint8
	nbBits   uint8
	baseline uint16
}

// readNormFreqs reads a normalized frequency distribution as described
// in RFC 8878 4.1.1. Each value is coded in a variable number of bits
// derived from the probability mass still to be assigned; a probability
// of -1 means "less than one" and consumes one unit. A zero probability
// is followed by a 2-bit repeat flag chaining further zeros. The reader
// is byte-aligned on return.
func readNormFreqs(br *bitstream.Reader, tableLog int, maxSymbol int) ([]int16, error) {
	if tableLog > fseTableLogMax {
		return nil, ErrTableLogTooLarge
	}
	remaining := (1 << uint(tableLog)) + 1
	cum := 0
	var freqs []int16
	zeroRepeat := false

	for {
		if zeroRepeat {
			repeat := int(br.ReadBits(2))
			for i := 0; i < repeat; i++ {
				freqs = append(freqs, 0)
			}
			if repeat == 3 {
				continue
			}
			zeroRepeat = false
		}

		nbBits := uint(bits.Len(uint(remaining)))
		value := int(br.ReadBits(nbBits))
		max := (1 << (nbBits - 1)) - 1
		lowThreshold := (1 << nbBits) - 1 - remaining
		if value&max < lowThreshold {
			br.UnreadBit()
			value &= max
		} else if value > max {
			value -= lowThreshold
		}

		prob := value - 1
		if prob < -1 || remaining <= 1 {
			return nil, fmt.Errorf("probability %d: %w", prob, ErrCorruptedData)
		}
		freqs = append(freqs, int16(prob))
		if prob < 0 {
			cum++
			remaining--
		} else {
			cum += prob
			remaining -= prob
		}
		zeroRepeat = prob == 0

		if len(freqs) > maxSymbol+1 || cum >= 1<<uint(tableLog) {
			break
		}
	}
	if br.Err() != nil {
		return nil, ErrIO
	}

	if len(freqs) > maxSymbol+1 {
		return nil, fmt.Errorf("%d symbols for alphabet of %d: %w", len(freqs), maxSymbol+1, ErrMaxSymbolValueTooSmall)
	}
	if cum != 1<<uint(tableLog) {
		return nil, fmt.Errorf("distribution sums to %d, want %d: %w", cum, 1<<uint(tableLog), ErrCorruptedData)
	}
	br.AlignToByte()
	return freqs, nil
}

// buildFSETable turns a normalized distribution into a decoding table of
// size 1<<tableLog. "Less than one" symbols take the trailing slots with
// a full-size reset; the remaining symbols are spread with the standard
// stride, skipping the trailing region, and each slot then gets its
// baseline and bit count from its occurrence index.
func buildFSETable(tableLog int, freqs []int16) ([]fseEntry, error) {
	if tableLog > fseTableLogMax {
		return nil, ErrTableLogTooLarge
	}
	size := 1 << uint(tableLog)
	table := make([]fseEntry, size)

	negIdx := size
	for sym, p := range freqs {
		if p == -1 {
			negIdx--
			table[negIdx] = fseEntry{symbol: uint8(sym), nbBits: uint8(tableLog), baseline: 0}
		}
	}

	stride := size>>1 + size>>3 + 3
	pos := 0
	for sym, p := range freqs {
		for j := int16(0); j < p; j++ {
			table[pos].symbol = uint8(sym)
			pos = (pos + stride) & (size - 1)
			for pos >= negIdx {
				pos = (pos + stride) & (size - 1)
			}
		}
	}
	if pos != 0 {
		return nil, fmt.Errorf("table spread ended at %d: %w", pos, ErrCorruptedData)
	}

	counter := make([]int, len(freqs))
	for i := 0; i < negIdx; i++ {
		sym := table[i].symbol
		baseline, nbBits, err := baselineAndNumBits(size, int(freqs[sym]), counter[sym])
		if err != nil {
			return nil, err
		}
		if nbBits > uint8(tableLog) {
			return nil, fmt.Errorf("slot wants %d bits for table log %d: %w", nbBits, tableLog, ErrCorruptedData)
		}
		table[i].baseline = baseline
		table[i].nbBits = nbBits
		counter[sym]++
	}
	return table, nil
}

// baselineAndNumBits partitions the state space of one symbol into
// power-of-two slices; the leftover slices are double width and read one
// extra bit.
func baselineAndNumBits(tableSize, prob, occurrence int) (uint16, uint8, error) {
	if prob == 0 {
		return 0, 0, nil
	}
	slices := prob
	if slices&(slices-1) != 0 {
		slices = 1 << uint(bits.Len(uint(prob)))
	}
	double := slices - prob
	single := prob - double
	width := tableSize / slices
	if width == 0 {
		return 0, 0, fmt.Errorf("state slice width zero: %w", ErrCorruptedData)
	}
	nbBits := bits.Len(uint(width)) - 1

	if occurrence < double {
		baseline := single*width + occurrence*2*width
		return uint16(baseline), uint8(nbBits + 1), nil
	}
	return uint16((occurrence - double) * width), uint8(nbBits), nil
}

// nextFSEState advances an FSE state using the reverse bitstream.
func nextFSEState(table []fseEntry, state int, rr *bitstream.ReverseReader) int {
	e := table[state]
	return int(e.baseline) + int(rr.ReadBits(uint(e.nbBits)))
}
