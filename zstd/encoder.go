// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"encoding/binary"

	"github.com/cosnicolaou/xcomp/internal/xxhash64"
)

// maxRawBlockSize is the largest payload the 21-bit block size field can
// describe.
const maxRawBlockSize = 1<<21 - 1

// Compress emits data as a single Zstandard frame of raw blocks with
// Single_Segment set, an explicit frame content size and a trailing
// content checksum. Entropy compression is not attempted.
// TODO: grow this into a real encoder with compressed blocks once the
// sequence and literals writers exist.
func Compress(data []byte) ([]byte, error) {
	size := uint64(len(data))

	contentSizeFlag := 0
	contentSizeLen := 1
	switch {
	case size < 256:
	case size <= 65535+256:
		contentSizeFlag, contentSizeLen = 1, 2
	case size < 1<<32:
		contentSizeFlag, contentSizeLen = 2, 4
	default:
		contentSizeFlag, contentSizeLen = 3, 8
	}

	out := make([]byte, 0, len(data)+16)
	out = binary.LittleEndian.AppendUint32(out, frameMagic)

	const singleSegmentFlag, checksumFlag = 1 << 5, 1 << 2
	out = append(out, byte(contentSizeFlag<<6|singleSegmentFlag|checksumFlag))

	fcs := size
	if contentSizeLen == 2 {
		fcs -= 256
	}
	for i := 0; i < contentSizeLen; i++ {
		out = append(out, byte(fcs>>(8*uint(i))))
	}

	remaining := data
	for {
		block := remaining
		if len(block) > maxRawBlockSize {
			block = block[:maxRawBlockSize]
		}
		remaining = remaining[len(block):]

		hdr := uint32(len(block)) << 3
		if len(remaining) == 0 {
			hdr |= 1
		}
		out = append(out, byte(hdr), byte(hdr>>8), byte(hdr>>16))
		out = append(out, block...)
		if len(remaining) == 0 {
			break
		}
	}

	out = binary.LittleEndian.AppendUint32(out, uint32(xxhash64.Sum64(data, 0)))
	return out, nil
}
