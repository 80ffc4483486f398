// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "errors"

// Errors reported by the Zstandard codec. Decode failures wrap one of
// these sentinels, so callers can classify them with errors.Is.
var (
	ErrIO                     = errors.New("zstd: i/o error")
	ErrReserved               = errors.New("zstd data invalid: reserved block type")
	ErrTableLogTooLarge       = errors.New("zstd data invalid: table log too large")
	ErrCorruptedData          = errors.New("zstd data invalid: corrupted data")
	ErrMaxSymbolValueTooSmall = errors.New("zstd data invalid: symbol beyond alphabet")
	ErrTooManyLiterals        = errors.New("zstd data invalid: too many literals")
	ErrChecksumFail           = errors.New("zstd data invalid: frame checksum mismatch")
	ErrInvalidMagic           = errors.New("zstd data invalid: bad frame magic")
	ErrReservedField          = errors.New("zstd data invalid: reserved field used")
	ErrUnsupportedFeature     = errors.New("zstd: unsupported feature")
	ErrSizeMismatch           = errors.New("zstd: decompressed size mismatch")
)
