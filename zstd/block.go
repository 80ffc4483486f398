// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"fmt"

	"github.com/cosnicolaou/xcomp/internal/bitstream"
)

// Block types.
const (
	rawBlock = iota
	rleBlock
	compressedBlock
	reservedBlock
)

// parseBlock reads one block header and decodes the block into the
// frame output. It reports whether this was the frame's last block.
func (f *frame) parseBlock(br *bitstream.Reader) (bool, error) {
	hdr := br.ReadBytes(3)
	if br.Err() != nil {
		return false, ErrIO
	}
	v := uint32(hdr[0]) | uint32(hdr[1])<<8 | uint32(hdr[2])<<16
	last := v&1 != 0
	blockType := int(v >> 1 & 3)
	blockSize := int(v >> 3)
	debugf("block: last=%v type=%d size=%d", last, blockType, blockSize)

	switch blockType {
	case rawBlock:
		data := br.ReadBytes(blockSize)
		if br.Err() != nil {
			return false, ErrIO
		}
		f.out = append(f.out, data...)
	case rleBlock:
		b := br.ReadBytes(1)
		if br.Err() != nil {
			return false, ErrIO
		}
		for i := 0; i < blockSize; i++ {
			f.out = append(f.out, b[0])
		}
	case compressedBlock:
		if blockSize > maxBlockSize {
			return false, fmt.Errorf("block of %d bytes: %w", blockSize, ErrCorruptedData)
		}
		data := br.ReadBytes(blockSize)
		if br.Err() != nil {
			return false, ErrIO
		}
		if err := f.decompressBlock(bitstream.NewReader(data)); err != nil {
			return false, err
		}
	default:
		return false, ErrReserved
	}
	return last, nil
}

func (f *frame) decompressBlock(br *bitstream.Reader) error {
	if err := f.parseLiterals(br); err != nil {
		return err
	}
	seqs, err := f.parseSequences(br)
	if err != nil {
		return err
	}
	return f.executeSequences(seqs)
}
