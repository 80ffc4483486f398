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
	maxCodeLength      = 11 // maximum Huffman code length for literals
	weightsTableLogMax = 6
)

// hfEntry is one slot of the flat Huffman decoding table: the state is
// an index, the slot yields the symbol and the number of fresh bits to
// shift in for the next state.
type hfEntry struct {
	symbol uint8
	nbBits uint8
}

// hfTable is a state-based Huffman decoder of size 1<<maxNbBits. A
// symbol with weight w occupies 2^(w-1) consecutive slots; slots are
// ordered by descending bit count, then ascending symbol.
type hfTable struct {
	entries   []hfEntry
	maxNbBits uint
}

// skipPadding consumes the reverse stream's initial zero bits up to and
// including the 1-bit marker the encoder wrote. More than 7 zeros means
// the padding spills into a second byte, which is invalid.
func skipPadding(rr *bitstream.ReverseReader) error {
	for i := 0; i < 8; i++ {
		if rr.ReadBit() != 0 {
			return nil
		}
	}
	return fmt.Errorf("padding longer than 7 bits: %w", ErrCorruptedData)
}

// readWeights reads a Huffman tree description: a one-byte header
// followed either by an FSE-compressed weight stream (header < 128,
// decoded with two interleaved states over a reverse bitstream) or by
// direct 4-bit weights, high nibble first.
func readWeights(br *bitstream.Reader) ([]uint8, error) {
	hdr := br.ReadBytes(1)
	if br.Err() != nil {
		return nil, ErrIO
	}
	header := int(hdr[0])

	if header >= 128 {
		count := header - 127
		weights := make([]uint8, count)
		var cur byte
		for i := 0; i < count; i++ {
			if i%2 == 0 {
				b := br.ReadBytes(1)
				if br.Err() != nil {
					return nil, ErrIO
				}
				cur = b[0]
				weights[i] = cur >> 4
			} else {
				weights[i] = cur & 0x0F
			}
			if weights[i] > maxCodeLength {
				return nil, fmt.Errorf("weight %d: %w", weights[i], ErrCorruptedData)
			}
		}
		return weights, nil
	}

	sub := br.ReadBytes(header)
	if br.Err() != nil {
		return nil, ErrIO
	}
	wbr := bitstream.NewReader(sub)
	tableLog := int(wbr.ReadBits(4)) + 5
	if tableLog > weightsTableLogMax {
		return nil, fmt.Errorf("weights table log %d: %w", tableLog, ErrCorruptedData)
	}
	freqs, err := readNormFreqs(wbr, tableLog, fseMaxSymbol)
	if err != nil {
		return nil, err
	}
	table, err := buildFSETable(tableLog, freqs)
	if err != nil {
		return nil, err
	}

	rr := bitstream.NewReverseReader(sub[wbr.Offset():], -tableLog)
	if err := skipPadding(rr); err != nil {
		return nil, err
	}
	even := int(rr.ReadBits(uint(tableLog)))
	odd := int(rr.ReadBits(uint(tableLog)))

	var weights []uint8
	appendWeight := func(w uint8) error {
		if w > maxCodeLength {
			return fmt.Errorf("weight %d: %w", w, ErrCorruptedData)
		}
		weights = append(weights, w)
		return nil
	}
	// The two states emit alternately; whichever state's transition runs
	// into the padding region flushes the other state's symbol last.
	for {
		if err := appendWeight(table[even].symbol); err != nil {
			return nil, err
		}
		even = nextFSEState(table, even, rr)
		if rr.BitPos() < 0 {
			if err := appendWeight(table[odd].symbol); err != nil {
				return nil, err
			}
			break
		}
		if err := appendWeight(table[odd].symbol); err != nil {
			return nil, err
		}
		odd = nextFSEState(table, odd, rr)
		if rr.BitPos() < 0 {
			if err := appendWeight(table[even].symbol); err != nil {
				return nil, err
			}
			break
		}
	}
	if rr.Err() != nil {
		return nil, fmt.Errorf("weight stream overrun: %w", ErrCorruptedData)
	}
	if len(weights) > fseMaxSymbol {
		return nil, ErrTooManyLiterals
	}
	return weights, nil
}

// buildHuffTable reads a tree description and builds the decoding table.
// The final symbol's weight is never transmitted: it is inferred so the
// weight mass completes a power of two.
func buildHuffTable(br *bitstream.Reader) (*hfTable, error) {
	weights, err := readWeights(br)
	if err != nil {
		return nil, err
	}

	expSum := 0
	for _, w := range weights {
		if w > 0 {
			expSum += 1 << uint(w-1)
		}
	}
	if expSum == 0 {
		return nil, fmt.Errorf("all weights zero: %w", ErrCorruptedData)
	}
	maxNbBits := uint(bits.Len(uint(expSum)))
	if maxNbBits > maxCodeLength {
		return nil, fmt.Errorf("max code length %d: %w", maxNbBits, ErrCorruptedData)
	}
	rest := (1 << maxNbBits) - expSum
	if rest <= 0 {
		return nil, fmt.Errorf("weight mass overflows table: %w", ErrCorruptedData)
	}
	weights = append(weights, uint8(bits.Len(uint(rest))))

	size := 1 << maxNbBits
	entries := make([]hfEntry, size)
	cnt := 0
	for sym, w := range weights {
		if w == 0 {
			continue
		}
		nbBits := uint8(maxNbBits) + 1 - w
		slots := 1 << uint(w-1)
		if cnt+slots > size {
			return nil, fmt.Errorf("weights overflow table of %d: %w", size, ErrCorruptedData)
		}
		j := 0
		for j < cnt && entries[j].nbBits >= nbBits && int(entries[j].symbol) < sym {
			j++
		}
		copy(entries[j+slots:cnt+slots], entries[j:cnt])
		for s := j; s < j+slots; s++ {
			entries[s] = hfEntry{symbol: uint8(sym), nbBits: nbBits}
		}
		cnt += slots
	}
	if cnt != size {
		return nil, fmt.Errorf("table has %d of %d slots: %w", cnt, size, ErrCorruptedData)
	}
	return &hfTable{entries: entries, maxNbBits: maxNbBits}, nil
}

// decodeStream runs the Huffman state machine over one reverse stream,
// appending at most max-len(dst) symbols to dst.
func (t *hfTable) decodeStream(rr *bitstream.ReverseReader, dst []byte, max int) ([]byte, error) {
	if err := skipPadding(rr); err != nil {
		return dst, err
	}
	size := len(t.entries)
	state := int(rr.ReadBits(t.maxNbBits))
	for rr.BitPos() > -int(t.maxNbBits) && len(dst) < max {
		e := t.entries[state]
		dst = append(dst, e.symbol)
		state = ((state << e.nbBits) & (size - 1)) | int(rr.ReadBits(uint(e.nbBits)))
	}
	if rr.Err() != nil {
		return dst, fmt.Errorf("literal stream overrun: %w", ErrCorruptedData)
	}
	return dst, nil
}
