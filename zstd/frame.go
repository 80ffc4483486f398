// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package zstd implements decompression of the Zstandard frame format
// (RFC 8878) and a minimal raw-block compressor.
package zstd

import (
	"encoding/binary"
	"fmt"

	"github.com/cosnicolaou/xcomp/internal/bitstream"
	"github.com/cosnicolaou/xcomp/internal/xxhash64"
)

const (
	frameMagic             = 0xFD2FB528
	skippableFrameMagicMin = 0x184D2A50
	skippableFrameMagicMax = 0x184D2A5F

	maxBlockSize = 128 * 1024
)

// frame is the per-frame workspace. The Huffman literals table and the
// three sequence decoders persist across blocks within the frame to
// serve the Treeless and Repeat modes; everything dies with the frame.
type frame struct {
	out      []byte
	literals []byte
	huff     *hfTable
	ll       seqDecoder
	ol       seqDecoder
	ml       seqDecoder
	history  offsetHistory
}

func newFrame() *frame {
	f := &frame{history: offsetHistory{1, 4, 8}}
	f.ll.rleSymbol = -1
	f.ol.rleSymbol = -1
	f.ml.rleSymbol = -1
	return f
}

// Decompress decodes one or more Zstandard frames and returns the
// concatenated content.
func Decompress(data []byte) ([]byte, error) {
	return decompress(data, -1)
}

// DecompressSize decodes like Decompress but stops once expected bytes
// have been produced and fails with ErrSizeMismatch if the input does
// not decode to exactly that many.
func DecompressSize(data []byte, expected int) ([]byte, error) {
	return decompress(data, expected)
}

func decompress(data []byte, expected int) ([]byte, error) {
	br := bitstream.NewReader(data)
	var out []byte
	for {
		var err error
		if out, err = parseFrame(br, out); err != nil {
			return nil, err
		}
		if br.EOS() || (expected >= 0 && len(out) >= expected) {
			break
		}
	}
	if expected >= 0 && len(out) != expected {
		return nil, fmt.Errorf("decoded %d bytes, expected %d: %w", len(out), expected, ErrSizeMismatch)
	}
	return out, nil
}

func parseFrame(br *bitstream.Reader, out []byte) ([]byte, error) {
	hdr := br.ReadBytes(4)
	if br.Err() != nil {
		return nil, ErrIO
	}
	magic := binary.LittleEndian.Uint32(hdr)

	if magic >= skippableFrameMagicMin && magic <= skippableFrameMagicMax {
		lenBytes := br.ReadBytes(4)
		if br.Err() != nil {
			return nil, ErrIO
		}
		skip := int(binary.LittleEndian.Uint32(lenBytes))
		debugf("skippable frame of %d bytes", skip)
		if br.ReadBytes(skip); br.Err() != nil {
			return nil, ErrIO
		}
		return out, nil
	}
	if magic != frameMagic {
		return nil, fmt.Errorf("magic 0x%08x: %w", magic, ErrInvalidMagic)
	}

	fhdBytes := br.ReadBytes(1)
	if br.Err() != nil {
		return nil, ErrIO
	}
	fhd := fhdBytes[0]
	contentSizeFlag := int(fhd >> 6)
	singleSegment := fhd>>5&1 != 0
	hasChecksum := fhd>>2&1 != 0
	dictionaryID := int(fhd & 3)
	debugf("frame header 0x%02x: fcs_flag=%d single_segment=%v checksum=%v dict=%d",
		fhd, contentSizeFlag, singleSegment, hasChecksum, dictionaryID)

	if fhd>>3&1 != 0 {
		return nil, fmt.Errorf("frame header descriptor: %w", ErrReservedField)
	}
	if dictionaryID != 0 {
		return nil, fmt.Errorf("dictionaries: %w", ErrUnsupportedFeature)
	}

	var windowSize uint64
	if !singleSegment {
		wd := br.ReadBytes(1)
		if br.Err() != nil {
			return nil, ErrIO
		}
		exponent := uint(wd[0] >> 3)
		mantissa := uint64(wd[0] & 7)
		base := uint64(1) << (10 + exponent)
		windowSize = base + base/8*mantissa
	}

	contentSizeLen := 0
	switch contentSizeFlag {
	case 0:
		if singleSegment {
			contentSizeLen = 1
		}
	case 1:
		contentSizeLen = 2
	case 2:
		contentSizeLen = 4
	case 3:
		contentSizeLen = 8
	}
	var contentSize uint64
	if contentSizeLen > 0 {
		fcs := br.ReadBytes(contentSizeLen)
		if br.Err() != nil {
			return nil, ErrIO
		}
		for i, b := range fcs {
			contentSize |= uint64(b) << (8 * uint(i))
		}
		if contentSizeLen == 2 {
			contentSize += 256
		}
	}
	if singleSegment {
		windowSize = contentSize
	}
	debugf("frame: window_size=%d content_size=%d", windowSize, contentSize)

	f := newFrame()
	for {
		last, err := f.parseBlock(br)
		if err != nil {
			return nil, err
		}
		if last {
			break
		}
	}

	if hasChecksum {
		sum := br.ReadBytes(4)
		if br.Err() != nil {
			return nil, ErrIO
		}
		want := binary.LittleEndian.Uint32(sum)
		got := uint32(xxhash64.Sum64(f.out, 0))
		if got != want {
			return nil, fmt.Errorf("0x%08x vs 0x%08x: %w", got, want, ErrChecksumFail)
		}
	}

	return append(out, f.out...), nil
}
