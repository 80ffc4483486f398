// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package xcomp provides in-memory compression and decompression for
// two wire formats: raw DEFLATE streams (RFC 1951) and Zstandard frames
// (RFC 8878). The format is selected by an Algorithm tag; the per-format
// engines live in the flate and zstd subpackages and can be used
// directly when only one format is needed.
package xcomp

import (
	"errors"
	"fmt"

	"github.com/cosnicolaou/xcomp/flate"
	"github.com/cosnicolaou/xcomp/zstd"
)

// Algorithm selects the compression format.
type Algorithm int

const (
	// Zstd is the Zstandard frame format of RFC 8878. Compression emits
	// raw (stored) blocks only.
	Zstd Algorithm = iota
	// Zlib is a raw DEFLATE bitstream as described by RFC 1951.
	Zlib
)

func (a Algorithm) String() string {
	switch a {
	case Zstd:
		return "zstd"
	case Zlib:
		return "zlib"
	}
	return fmt.Sprintf("algorithm(%d)", int(a))
}

// ErrUnknownAlgorithm is returned for an Algorithm value that is not one
// of the declared constants.
var ErrUnknownAlgorithm = errors.New("xcomp: unknown compression algorithm")

// Compress compresses data with the chosen algorithm and returns a
// newly allocated buffer. The input is never retained or modified.
func Compress(data []byte, algo Algorithm) ([]byte, error) {
	switch algo {
	case Zlib:
		return flate.Compress(data)
	case Zstd:
		return zstd.Compress(data)
	}
	return nil, ErrUnknownAlgorithm
}

// Decompress decompresses data with the chosen algorithm and returns a
// newly allocated buffer. The input is never retained or modified.
func Decompress(data []byte, algo Algorithm) ([]byte, error) {
	switch algo {
	case Zlib:
		return flate.Decompress(data)
	case Zstd:
		return zstd.Decompress(data)
	}
	return nil, ErrUnknownAlgorithm
}

// DecompressSize decompresses like Decompress and fails unless the
// output is exactly size bytes long.
func DecompressSize(data []byte, algo Algorithm, size int) ([]byte, error) {
	switch algo {
	case Zlib:
		out, err := flate.Decompress(data)
		if err != nil {
			return nil, err
		}
		if len(out) != size {
			return nil, fmt.Errorf("decoded %d bytes, expected %d: %w", len(out), size, flate.ErrInvalidLength)
		}
		return out, nil
	case Zstd:
		return zstd.DecompressSize(data, size)
	}
	return nil, ErrUnknownAlgorithm
}
