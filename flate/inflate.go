// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package flate

import (
	"encoding/binary"
	"fmt"

	"github.com/cosnicolaou/xcomp/internal/bitstream"
)

// Decompress inflates a raw DEFLATE stream: a sequence of blocks, each
// stored, fixed-Huffman or dynamic-Huffman coded, terminated by the
// block carrying the BFINAL bit.
func Decompress(data []byte) ([]byte, error) {
	br := bitstream.NewReader(data)
	var out []byte

	for {
		final := br.ReadBit()
		btype := br.ReadBits(2)
		if br.Err() != nil {
			return nil, ErrIO
		}
		debugf("block: final=%d type=%d", final, btype)

		var err error
		switch btype {
		case noCompression:
			out, err = readStoredBlock(br, out)
		case compressedFixedHF, compressedDynamicHF:
			out, err = decodeCompressedBlock(br, int(btype), out)
		default:
			err = ErrInvalidCompressionType
		}
		if err != nil {
			return nil, err
		}
		if final != 0 {
			return out, nil
		}
	}
}

func readStoredBlock(br *bitstream.Reader, out []byte) ([]byte, error) {
	hdr := br.ReadBytes(4)
	if br.Err() != nil {
		return nil, ErrIO
	}
	length := binary.LittleEndian.Uint16(hdr)
	check := binary.LittleEndian.Uint16(hdr[2:])
	if length != ^check {
		return nil, fmt.Errorf("0x%04x vs 0x%04x: %w", length, check, ErrInvalidLenChecksum)
	}
	block := br.ReadBytes(int(length))
	if br.Err() != nil {
		return nil, fmt.Errorf("stored block of %d bytes overruns input: %w", length, ErrCorruptedData)
	}
	return append(out, block...), nil
}

func decodeCompressedBlock(br *bitstream.Reader, btype int, out []byte) ([]byte, error) {
	var literals, distances *hfDecoder
	var err error
	if btype == compressedFixedHF {
		literals, distances = fixedDecoders()
	} else if literals, distances, err = decodeDynamicTables(br); err != nil {
		return nil, err
	}

	for {
		sym, err := literals.decode(br)
		if err != nil {
			return nil, err
		}
		switch {
		case sym < blockDelimiter:
			out = append(out, byte(sym))
		case sym == blockDelimiter:
			return out, nil
		case sym <= 285:
			length := int(lengthBases[sym-257]) + int(br.ReadBits(uint(lengthExtraBits[sym-257])))
			distSym, err := distances.decode(br)
			if err != nil {
				return nil, err
			}
			if distSym >= numDistances {
				return nil, fmt.Errorf("distance code %d: %w", distSym, ErrCorruptedData)
			}
			distance := int(distanceBases[distSym]) + int(br.ReadBits(uint(distanceExtraBits[distSym])))
			if br.Err() != nil {
				return nil, ErrIO
			}
			if distance > len(out) {
				return nil, fmt.Errorf("distance %d beyond output start: %w", distance, ErrCorruptedData)
			}
			// Byte at a time: length may exceed distance, in which case
			// the copy feeds on its own output.
			for i := 0; i < length; i++ {
				out = append(out, out[len(out)-distance])
			}
		default:
			return nil, fmt.Errorf("literal/length symbol %d: %w", sym, ErrCorruptedData)
		}
	}
}

var fixedTables struct {
	literals  *hfDecoder
	distances *hfDecoder
}

func fixedDecoders() (*hfDecoder, *hfDecoder) {
	if fixedTables.literals == nil {
		fixedTables.literals, _ = newHFDecoder(fixedLiteralLengths[:])
		fixedTables.distances, _ = newHFDecoder(fixedDistanceLengths[:])
	}
	return fixedTables.literals, fixedTables.distances
}

// decodeDynamicTables reads the dynamic block header: the code-length
// tree lengths in their fixed permutation, then the RLE-coded length
// vectors for the literal/length and distance trees.
func decodeDynamicTables(br *bitstream.Reader) (literals, distances *hfDecoder, err error) {
	numLit := int(br.ReadBits(5)) + 257
	numDist := int(br.ReadBits(5)) + 1
	numCL := int(br.ReadBits(4)) + 4

	var clLengths [numCLCodes]uint8
	for i := 0; i < numCL; i++ {
		clLengths[codeLengthOrder[i]] = uint8(br.ReadBits(3))
	}
	if br.Err() != nil {
		return nil, nil, ErrIO
	}
	clDecoder, err := newHFDecoder(clLengths[:])
	if err != nil {
		return nil, nil, err
	}

	lengths := make([]uint8, numLit+numDist)
	for index := 0; index < len(lengths); {
		sym, err := clDecoder.decode(br)
		if err != nil {
			return nil, nil, err
		}
		var value uint8
		var repeat int
		switch {
		case sym < 16:
			lengths[index] = uint8(sym)
			index++
			continue
		case sym == 16:
			if index == 0 {
				return nil, nil, fmt.Errorf("length repeat with no previous length: %w", ErrCorruptedData)
			}
			value = lengths[index-1]
			repeat = int(br.ReadBits(2)) + 3
		case sym == 17:
			repeat = int(br.ReadBits(3)) + 3
		case sym == 18:
			repeat = int(br.ReadBits(7)) + 11
		default:
			return nil, nil, fmt.Errorf("code length symbol %d: %w", sym, ErrCorruptedData)
		}
		if br.Err() != nil {
			return nil, nil, ErrIO
		}
		if index+repeat > len(lengths) {
			return nil, nil, fmt.Errorf("length run overflows alphabets: %w", ErrCorruptedData)
		}
		for ; repeat > 0; repeat-- {
			lengths[index] = value
			index++
		}
	}

	if literals, err = newHFDecoder(lengths[:numLit]); err != nil {
		return nil, nil, err
	}
	if distances, err = newHFDecoder(lengths[numLit:]); err != nil {
		return nil, nil, err
	}
	return literals, distances, nil
}
