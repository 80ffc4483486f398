// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package flate

import (
	"sort"
	"strings"
	"testing"

	"github.com/cosnicolaou/xcomp/internal/bitstream"
)

// kraftOK reports whether the lengths describe a complete prefix code:
// the codes at every length exactly fill the code space.
func kraftOK(lengths []uint8, maxBits int) bool {
	total := 0
	used := 0
	for _, l := range lengths {
		if l > 0 {
			total += 1 << uint(maxBits-int(l))
			used++
		}
	}
	if used == 0 {
		return true
	}
	if used == 1 {
		// A lone symbol occupies half the space with its 1-bit code.
		return total == 1<<uint(maxBits-1)
	}
	return total == 1<<uint(maxBits)
}

func TestCodeLengthsComplete(t *testing.T) {
	for _, tc := range []struct {
		name  string
		freqs []int
	}{
		{"uniform", []int{10, 10, 10, 10}},
		{"skewed", []int{1000, 500, 100, 10, 1}},
		{"single", []int{0, 0, 7, 0}},
		{"two", []int{5, 0, 0, 3}},
		{"fib", []int{1, 1, 2, 3, 5, 8, 13, 21, 34, 55, 89, 144}},
	} {
		lengths := buildCodeLengths(tc.freqs, maxCodeBits)
		if !kraftOK(lengths, maxCodeBits) {
			t.Errorf("%v: lengths %v do not satisfy the Kraft equality", tc.name, lengths)
		}
		for sym, f := range tc.freqs {
			if (f > 0) != (lengths[sym] > 0) {
				t.Errorf("%v: symbol %v freq %v has length %v", tc.name, sym, f, lengths[sym])
			}
		}
	}
}

func TestCodeLengthLimiting(t *testing.T) {
	// Fibonacci-like frequencies force a deeply skewed tree that must be
	// flattened to the limit.
	freqs := make([]int, 30)
	a, b := 1, 1
	for i := range freqs {
		freqs[i] = a
		a, b = b, a+b
	}
	for _, limit := range []int{7, maxCodeBits} {
		lengths := buildCodeLengths(freqs, limit)
		for sym, l := range lengths {
			if int(l) > limit {
				t.Errorf("limit %v: symbol %v got length %v", limit, sym, l)
			}
		}
		if !kraftOK(lengths, limit) {
			t.Errorf("limit %v: lengths %v do not satisfy the Kraft equality", limit, lengths)
		}
	}
}

func TestCanonicalCodesPrefixFree(t *testing.T) {
	lengths := buildCodeLengths([]int{8, 1, 2, 3, 4, 9, 3, 2, 20, 20, 20}, maxCodeBits)
	codes := canonicalCodes(lengths)

	var all []string
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		bits := make([]byte, l)
		for i := uint8(0); i < l; i++ {
			bits[i] = '0' + byte(codes[sym]>>(l-1-i)&1)
		}
		all = append(all, string(bits))
	}
	sort.Strings(all)
	for i := 1; i < len(all); i++ {
		if strings.HasPrefix(all[i], all[i-1]) {
			t.Errorf("code %v is a prefix of %v", all[i-1], all[i])
		}
	}
}

func TestDecoderMatchesEncoder(t *testing.T) {
	freqs := []int{50, 20, 20, 5, 3, 1, 1, 0, 0, 4}
	lengths := buildCodeLengths(freqs, maxCodeBits)
	codes := canonicalCodes(lengths)
	dec, err := newHFDecoder(lengths)
	if err != nil {
		t.Fatal(err)
	}

	w := &bitstream.Writer{}
	var symbols []int
	for sym, f := range freqs {
		if f == 0 {
			continue
		}
		symbols = append(symbols, sym)
		w.WriteBitsReversed(uint64(codes[sym]), uint(lengths[sym]))
	}
	br := bitstream.NewReader(w.Bytes())
	for _, want := range symbols {
		got, err := dec.decode(br)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestFixedTreeShape(t *testing.T) {
	// RFC 1951 3.2.6: symbol 0 -> 00110000, symbol 144 -> 110010000,
	// symbol 256 -> 0000000, symbol 280 -> 11000000.
	codes := canonicalCodes(fixedLiteralLengths[:])
	for _, tc := range []struct {
		sym  int
		code uint16
		len  uint8
	}{
		{0, 0x30, 8},
		{143, 0xBF, 8},
		{144, 0x190, 9},
		{255, 0x1FF, 9},
		{256, 0x00, 7},
		{279, 0x17, 7},
		{280, 0xC0, 8},
		{287, 0xC7, 8},
	} {
		if got, want := codes[tc.sym], tc.code; got != want {
			t.Errorf("symbol %v: got code %#x, want %#x", tc.sym, got, want)
		}
		if got, want := fixedLiteralLengths[tc.sym], tc.len; got != want {
			t.Errorf("symbol %v: got length %v, want %v", tc.sym, got, want)
		}
	}
}
