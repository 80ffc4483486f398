// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package flate

const (
	blockDelimiter = 256
	windowSize     = 0x7FFF // 32KB window
	minMatch       = 3
	maxMatch       = 258

	maxCodeBits   = 15
	maxCLCodeBits = 7

	numLiterals  = 288
	numDistances = 30
	numCLCodes   = 19
)

// Length and distance code tables from RFC 1951 3.2.5.
var (
	lengthBases = [29]uint16{
		3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31, 35, 43,
		51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
	}
	lengthExtraBits = [29]uint8{
		0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4,
		4, 4, 5, 5, 5, 5, 0,
	}
	distanceBases = [30]uint16{
		1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193, 257,
		385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289,
		16385, 24577,
	}
	distanceExtraBits = [30]uint8{
		0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 9,
		10, 10, 11, 11, 12, 12, 13, 13,
	}
)

// A match is one entry of the LZ77 stream: either a raw literal
// (literal < 256), the block delimiter, or a backreference where literal
// holds the length code (>= 257) together with the distance code and the
// extra bits for both.
type match struct {
	literal    uint16
	lengthDiff uint16
	distCode   uint8
	distDiff   uint16
}

// lengthCode returns the length code index and extra-bit value for a
// match length in [3, 258].
func lengthCode(length int) (code int, diff uint16) {
	code = len(lengthBases) - 1
	for i, base := range lengthBases {
		if length < int(base) {
			code = i - 1
			break
		}
		if length == int(base) {
			code = i
			break
		}
	}
	return code, uint16(length - int(lengthBases[code]))
}

// distanceCode returns the distance code index and extra-bit value for a
// distance in [1, 32768].
func distanceCode(distance int) (code int, diff uint16) {
	code = len(distanceBases) - 1
	for i, base := range distanceBases {
		if distance < int(base) {
			code = i - 1
			break
		}
		if distance == int(base) {
			code = i
			break
		}
	}
	return code, uint16(distance - int(distanceBases[code]))
}

// lz77Encode greedily converts one block into a match stream terminated
// by the block delimiter. Matching is a longest-prefix scan over the
// bytes already emitted; on ties the earliest (largest distance)
// candidate wins and match sources never overlap the cursor.
func lz77Encode(block []byte) []match {
	matches := make([]match, 0, len(block)/2+4)
	for i := 0; i < len(block) && i < minMatch; i++ {
		matches = append(matches, match{literal: uint16(block[i])})
	}

	for i := minMatch; i < len(block); {
		limit := len(block) - i
		if limit > maxMatch {
			limit = maxMatch
		}
		bestLen, bestDist := 0, 0
		for j := 0; j < i; j++ {
			max := limit
			if avail := i - j; avail < max {
				max = avail
			}
			if max <= bestLen {
				continue
			}
			l := 0
			for l < max && block[j+l] == block[i+l] {
				l++
			}
			if l > bestLen {
				bestLen, bestDist = l, i-j
			}
		}
		if bestLen < minMatch {
			matches = append(matches, match{literal: uint16(block[i])})
			i++
			continue
		}
		lc, ldiff := lengthCode(bestLen)
		dc, ddiff := distanceCode(bestDist)
		matches = append(matches, match{
			literal:    uint16(257 + lc),
			lengthDiff: ldiff,
			distCode:   uint8(dc),
			distDiff:   ddiff,
		})
		i += bestLen
	}

	return append(matches, match{literal: blockDelimiter})
}
