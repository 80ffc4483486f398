// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package internal

import "math/rand"

// Seed for the pseudorandom generator, shared by all codec tests so that
// failures reproduce.
const fixedRandSeed = 0x1234

// GenPredictableRandomData generates random data starting with a fixed
// known seed.
func GenPredictableRandomData(size int) []byte {
	gen := rand.New(rand.NewSource(fixedRandSeed))
	out := make([]byte, size)
	for i := range out {
		out[i] = byte(gen.Intn(256))
	}
	return out
}

// GenCompressibleData generates data with byte runs and repeated short
// phrases so that both codecs exercise their match paths.
func GenCompressibleData(size int) []byte {
	gen := rand.New(rand.NewSource(fixedRandSeed))
	phrases := []string{
		"the quick brown fox ", "jumps over ", "the lazy dog. ",
		"pack my box ", "with five dozen ", "liquor jugs. ",
	}
	out := make([]byte, 0, size)
	for len(out) < size {
		if gen.Intn(4) == 0 {
			b := byte(gen.Intn(256))
			for n := gen.Intn(32) + 4; n > 0 && len(out) < size; n-- {
				out = append(out, b)
			}
			continue
		}
		p := phrases[gen.Intn(len(phrases))]
		for i := 0; i < len(p) && len(out) < size; i++ {
			out = append(out, p[i])
		}
	}
	return out
}

// FirstN returns at most the first n bytes of b.
func FirstN(n int, b []byte) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
