// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package xxhash64

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/cosnicolaou/xcomp/internal"
)

func TestKnownDigests(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want uint64
	}{
		{"", 0xef46db3751d8e999},
		{"a", 0xd24ec4f1a98c6e5b},
		{"xxhash", 0x32dd38952c4bc720},
	} {
		if got := Sum64([]byte(tc.in), 0); got != tc.want {
			t.Errorf("%q: got %#x, want %#x", tc.in, got, tc.want)
		}
	}
}

func TestAgainstReference(t *testing.T) {
	// cespare/xxhash is the same algorithm with an implied zero seed.
	sizes := []int{0, 1, 3, 4, 7, 8, 31, 32, 33, 63, 64, 100, 1024, 4096, 100000}
	data := internal.GenPredictableRandomData(100000)
	for _, size := range sizes {
		if got, want := Sum64(data[:size], 0), xxhash.Sum64(data[:size]); got != want {
			t.Errorf("size %v: got %#x, want %#x", size, got, want)
		}
	}
}

func TestSeeded(t *testing.T) {
	data := internal.GenPredictableRandomData(1000)
	seeds := []uint64{1, 42, 0xdeadbeef, 1 << 63}
	for _, seed := range seeds {
		d := xxhash.NewWithSeed(seed)
		d.Write(data)
		if got, want := Sum64(data, seed), d.Sum64(); got != want {
			t.Errorf("seed %#x: got %#x, want %#x", seed, got, want)
		}
	}
}
