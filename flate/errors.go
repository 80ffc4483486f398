// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package flate

import "errors"

// Errors reported by the DEFLATE codec. Decode failures wrap one of
// these sentinels, so callers can classify them with errors.Is.
var (
	ErrIO                     = errors.New("deflate: i/o error")
	ErrCorruptedData          = errors.New("deflate data invalid: corrupted data")
	ErrInvalidLenChecksum     = errors.New("deflate data invalid: stored length checksum mismatch")
	ErrInvalidCompressionType = errors.New("deflate data invalid: reserved compression type")
	ErrInvalidDecodedValue    = errors.New("deflate data invalid: decoded value out of range")
	ErrInvalidLength          = errors.New("deflate data invalid: length mismatch")
)
