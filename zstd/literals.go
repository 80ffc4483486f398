// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"encoding/binary"
	"fmt"

	"github.com/cosnicolaou/xcomp/internal/bitstream"
)

// Literals block types.
const (
	rawLiteralsBlock = iota
	rleLiteralsBlock
	compressedLiteralsBlock
	treelessLiteralsBlock
)

// parseLiterals reads the literals section of a compressed block and
// leaves the regenerated literals in the frame workspace. Compressed
// literals install a fresh Huffman table; treeless literals reuse the
// table from an earlier block of the same frame.
func (f *frame) parseLiterals(br *bitstream.Reader) error {
	blockType := int(br.ReadBits(2))
	sizeFormat := int(br.ReadBits(2))
	if br.Err() != nil {
		return ErrIO
	}
	debugf("literals: type=%d size_format=%d", blockType, sizeFormat)

	if blockType == rawLiteralsBlock || blockType == rleLiteralsBlock {
		var regenerated int
		switch sizeFormat {
		case 0, 2:
			// The second size-format bit doubles as the low bit of a
			// 5-bit size.
			regenerated = int(br.ReadBits(4))<<1 + sizeFormat>>1
		case 1:
			regenerated = int(br.ReadBits(12))
		default:
			regenerated = int(br.ReadBits(20))
		}
		if blockType == rawLiteralsBlock {
			raw := br.ReadBytes(regenerated)
			if br.Err() != nil {
				return ErrIO
			}
			f.literals = append(f.literals[:0], raw...)
			return nil
		}
		b := br.ReadBytes(1)
		if br.Err() != nil {
			return ErrIO
		}
		f.literals = f.literals[:0]
		for i := 0; i < regenerated; i++ {
			f.literals = append(f.literals, b[0])
		}
		return nil
	}

	fieldBits := uint(10)
	switch sizeFormat {
	case 2:
		fieldBits = 14
	case 3:
		fieldBits = 18
	}
	regenerated := int(br.ReadBits(fieldBits))
	compressed := int(br.ReadBits(fieldBits))
	streams := 1
	if sizeFormat != 0 {
		streams = 4
	}
	if br.Err() != nil {
		return ErrIO
	}
	debugf("literals: regenerated=%d compressed=%d streams=%d", regenerated, compressed, streams)

	descSize := 0
	if blockType == compressedLiteralsBlock {
		start := br.Offset()
		table, err := buildHuffTable(br)
		if err != nil {
			return err
		}
		f.huff = table
		descSize = br.Offset() - start
	} else if f.huff == nil {
		return fmt.Errorf("treeless literals with no previous table: %w", ErrCorruptedData)
	}

	totalStreams := compressed - descSize
	if totalStreams < 0 {
		return fmt.Errorf("tree description larger than section: %w", ErrCorruptedData)
	}
	f.literals = f.literals[:0]

	if streams == 1 {
		data := br.ReadBytes(totalStreams)
		if br.Err() != nil {
			return ErrIO
		}
		rr := bitstream.NewReverseReader(data, -int(f.huff.maxNbBits))
		var err error
		f.literals, err = f.huff.decodeStream(rr, f.literals, regenerated)
		if err != nil {
			return err
		}
		if len(f.literals) != regenerated {
			return fmt.Errorf("regenerated %d of %d literals: %w", len(f.literals), regenerated, ErrCorruptedData)
		}
		if rr.BytePos() > 0 {
			return fmt.Errorf("literal stream not exhausted: %w", ErrCorruptedData)
		}
		return nil
	}

	// Four streams: a jump table of three little-endian 16-bit sizes;
	// the fourth stream takes the remainder.
	jump := br.ReadBytes(6)
	if br.Err() != nil {
		return ErrIO
	}
	var sizes [4]int
	sizes[0] = int(binary.LittleEndian.Uint16(jump[0:]))
	sizes[1] = int(binary.LittleEndian.Uint16(jump[2:]))
	sizes[2] = int(binary.LittleEndian.Uint16(jump[4:]))
	sizes[3] = totalStreams - 6 - sizes[0] - sizes[1] - sizes[2]
	if sizes[3] < 0 {
		return fmt.Errorf("jump table exceeds section size: %w", ErrCorruptedData)
	}

	for i, size := range sizes {
		sub := br.ReadBytes(size)
		if br.Err() != nil {
			return fmt.Errorf("stream %d of %d bytes: %w", i+1, size, ErrCorruptedData)
		}
		rr := bitstream.NewReverseReader(sub, -int(f.huff.maxNbBits))
		var err error
		f.literals, err = f.huff.decodeStream(rr, f.literals, regenerated)
		if err != nil {
			return err
		}
		if rr.BitPos() != -int(f.huff.maxNbBits) {
			return fmt.Errorf("stream %d not exhausted: %w", i+1, ErrCorruptedData)
		}
	}
	if len(f.literals) != regenerated {
		return fmt.Errorf("regenerated %d of %d literals: %w", len(f.literals), regenerated, ErrCorruptedData)
	}
	return nil
}
