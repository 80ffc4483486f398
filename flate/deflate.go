// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package flate

import (
	"encoding/binary"

	"github.com/cosnicolaou/xcomp/internal/bitstream"
)

// Block compression types as encoded in the two BTYPE bits.
const (
	noCompression = iota
	compressedFixedHF
	compressedDynamicHF
	reservedBType
)

// codeLengthOrder is the fixed transmission order of the code-length
// alphabet lengths, from RFC 1951 3.2.7.
var codeLengthOrder = [numCLCodes]uint8{
	16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15,
}

// Fixed literal/length and distance code lengths from RFC 1951 3.2.6.
var (
	fixedLiteralLengths  [numLiterals]uint8
	fixedDistanceLengths [numDistances + 2]uint8
)

func init() {
	for i := range fixedLiteralLengths {
		switch {
		case i < 144:
			fixedLiteralLengths[i] = 8
		case i < 256:
			fixedLiteralLengths[i] = 9
		case i < 280:
			fixedLiteralLengths[i] = 7
		default:
			fixedLiteralLengths[i] = 8
		}
	}
	for i := range fixedDistanceLengths {
		fixedDistanceLengths[i] = 5
	}
}

// Compress encodes data as a raw DEFLATE stream. The input is split into
// windows of 32767 bytes; each window is trialled with both the fixed
// and a dynamic Huffman coding and falls back to a stored block when
// neither beats the input by the stored-block overhead.
func Compress(data []byte) ([]byte, error) {
	out := &bitstream.Writer{}
	if len(data) == 0 {
		writeStoredBlock(out, nil, true)
		return out.Bytes(), nil
	}
	for off := 0; off < len(data); off += windowSize {
		end := off + windowSize
		if end > len(data) {
			end = len(data)
		}
		if err := compressBlock(out, data[off:end], end == len(data)); err != nil {
			return nil, err
		}
	}
	return out.Bytes(), nil
}

func compressBlock(out *bitstream.Writer, block []byte, final bool) error {
	matches := lz77Encode(block)

	fixed := &bitstream.Writer{}
	if err := writeCompressedBlock(fixed, compressedFixedHF, matches, final); err != nil {
		return err
	}
	dynamic := &bitstream.Writer{}
	if err := writeCompressedBlock(dynamic, compressedDynamicHF, matches, final); err != nil {
		return err
	}

	if fixed.Len() > len(block)+5 && dynamic.Len() > len(block)+5 {
		writeStoredBlock(out, block, final)
		return nil
	}

	debugf("block: final=%v fixed=%dB dynamic=%dB input=%dB", final, fixed.Len(), dynamic.Len(), len(block))
	if fixed.Len() <= dynamic.Len() {
		out.AppendBits(fixed)
	} else {
		out.AppendBits(dynamic)
	}
	return nil
}

func writeStoredBlock(out *bitstream.Writer, block []byte, final bool) {
	var header uint64
	if final {
		header = 1
	}
	out.WriteBits(header, 3) // BFINAL plus BTYPE 00

	var lens [4]byte
	binary.LittleEndian.PutUint16(lens[0:], uint16(len(block)))
	binary.LittleEndian.PutUint16(lens[2:], ^uint16(len(block)))
	out.WriteBytes(lens[:])
	out.WriteBytes(block)
}

type hfTree struct {
	lengths []uint8
	codes   []uint16
}

func (t hfTree) write(w *bitstream.Writer, sym int) {
	w.WriteBitsReversed(uint64(t.codes[sym]), uint(t.lengths[sym]))
}

func writeCompressedBlock(w *bitstream.Writer, method int, matches []match, final bool) error {
	var header uint64
	if final {
		header = 1
	}
	w.WriteBit(header)
	w.WriteBits(uint64(method), 2)

	var literals, distances hfTree
	if method == compressedDynamicHF {
		literals, distances = writeDynamicTrees(w, matches)
	} else {
		literals = hfTree{lengths: fixedLiteralLengths[:], codes: canonicalCodes(fixedLiteralLengths[:])}
		distances = hfTree{lengths: fixedDistanceLengths[:], codes: canonicalCodes(fixedDistanceLengths[:])}
	}

	for _, m := range matches {
		literals.write(w, int(m.literal))
		if m.literal > blockDelimiter {
			w.WriteBits(uint64(m.lengthDiff), uint(lengthExtraBits[m.literal-257]))
			distances.write(w, int(m.distCode))
			w.WriteBits(uint64(m.distDiff), uint(distanceExtraBits[m.distCode]))
		}
	}
	return nil
}

// writeDynamicTrees derives the literal/length and distance trees from
// the match stream, emits the dynamic-block header (HLIT, HDIST, HCLEN,
// the permuted code-length lengths and the RLE-coded length vectors) and
// returns the trees for the data emission that follows.
func writeDynamicTrees(w *bitstream.Writer, matches []match) (literals, distances hfTree) {
	litFreqs := make([]int, numLiterals)
	distFreqs := make([]int, numDistances)
	for _, m := range matches {
		litFreqs[m.literal]++
		if m.literal > blockDelimiter {
			distFreqs[m.distCode]++
		}
	}

	literals.lengths = buildCodeLengths(litFreqs, maxCodeBits)
	literals.codes = canonicalCodes(literals.lengths)
	distances.lengths = buildCodeLengths(distFreqs, maxCodeBits)
	distances.codes = canonicalCodes(distances.lengths)

	numLit := 257
	for sym := numLiterals - 1; sym >= 257; sym-- {
		if literals.lengths[sym] != 0 {
			numLit = sym + 1
			break
		}
	}
	numDist := 1
	for sym := numDistances - 1; sym >= 1; sym-- {
		if distances.lengths[sym] != 0 {
			numDist = sym + 1
			break
		}
	}

	rle := rleEncodeLengths(literals.lengths[:numLit], distances.lengths[:numDist])

	clFreqs := make([]int, numCLCodes)
	for _, s := range rle {
		clFreqs[s.value]++
	}
	clTree := hfTree{lengths: buildCodeLengths(clFreqs, maxCLCodeBits)}
	clTree.codes = canonicalCodes(clTree.lengths)

	numCL := 4
	for i := numCLCodes - 1; i >= 4; i-- {
		if clTree.lengths[codeLengthOrder[i]] != 0 {
			numCL = i + 1
			break
		}
	}

	w.WriteBits(uint64(numLit-257), 5)
	w.WriteBits(uint64(numDist-1), 5)
	w.WriteBits(uint64(numCL-4), 4)
	for i := 0; i < numCL; i++ {
		w.WriteBits(uint64(clTree.lengths[codeLengthOrder[i]]), 3)
	}
	for _, s := range rle {
		clTree.write(w, int(s.value))
		switch s.value {
		case 16:
			w.WriteBits(uint64(s.repeat-3), 2)
		case 17:
			w.WriteBits(uint64(s.repeat-3), 3)
		case 18:
			w.WriteBits(uint64(s.repeat-11), 7)
		}
	}
	return literals, distances
}

type clSymbol struct {
	value  uint8
	repeat uint8
}

// rleEncodeLengths applies the code-length alphabet run-length coding of
// RFC 1951 3.2.7 to the concatenated literal and distance length
// vectors: 16 repeats the previous length 3-6 times, 17 and 18 encode
// zero runs of 3-10 and 11-138.
func rleEncodeLengths(litLengths, distLengths []uint8) []clSymbol {
	seq := make([]uint8, 0, len(litLengths)+len(distLengths))
	seq = append(seq, litLengths...)
	seq = append(seq, distLengths...)

	var rle []clSymbol
	for i := 0; i < len(seq); {
		v := seq[i]
		run := 1
		for i+run < len(seq) && seq[i+run] == v {
			run++
		}
		i += run

		if v == 0 {
			for run >= 11 {
				n := run
				if n > 138 {
					n = 138
				}
				rle = append(rle, clSymbol{value: 18, repeat: uint8(n)})
				run -= n
			}
			if run >= 3 {
				rle = append(rle, clSymbol{value: 17, repeat: uint8(run)})
				run = 0
			}
			for ; run > 0; run-- {
				rle = append(rle, clSymbol{value: 0})
			}
			continue
		}

		rle = append(rle, clSymbol{value: v})
		run--
		for run >= 3 {
			n := run
			if n > 6 {
				n = 6
			}
			rle = append(rle, clSymbol{value: 16, repeat: uint8(n)})
			run -= n
		}
		for ; run > 0; run-- {
			rle = append(rle, clSymbol{value: v})
		}
	}
	return rle
}
