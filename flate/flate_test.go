// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package flate

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	kflate "github.com/klauspost/compress/flate"

	"github.com/cosnicolaou/xcomp/internal"
)

// The 31-byte test string plus its terminating NUL.
var testString = append([]byte("This is a test string, DEFLATE."), 0)

// A known-good fixed-Huffman encoding of testString.
var testStringDeflated = []byte{
	0x0B, 0xC9, 0xC8, 0x2C, 0x56, 0x00, 0xA2, 0x44, 0x85, 0x92, 0xD4, 0xE2,
	0x12, 0x85, 0xE2, 0x92, 0xA2, 0xCC, 0xBC, 0x74, 0x85, 0x92, 0x7C, 0x85,
	0xE4, 0xFC, 0xDC, 0x82, 0xA2, 0xD4, 0x62, 0xA0, 0x4C, 0x5E, 0x8A, 0x42,
	0x4A, 0x2A, 0x9C, 0x5B, 0x5A, 0x0C, 0x52, 0xE0, 0xE2, 0xEA, 0xE6, 0xE3,
	0x18, 0xE2, 0xAA, 0x07, 0x00,
}

func roundTrip(t *testing.T, name string, data []byte) {
	t.Helper()
	compressed, err := Compress(data)
	if err != nil {
		t.Fatalf("%v: compress: %v", name, err)
	}
	decompressed, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("%v: decompress: %v", name, err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Errorf("%v: round trip mismatch: %v in, %v out",
			name, len(data), len(decompressed))
	}
}

func TestRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"one", []byte{0x42}},
		{"short", []byte("abc")},
		{"test string", testString},
		{"run", bytes.Repeat([]byte{'x'}, 1000)},
		{"alternating", bytes.Repeat([]byte("ab"), 500)},
		{"text", []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 100))},
		{"random small", internal.GenPredictableRandomData(256)},
		{"random large", internal.GenPredictableRandomData(100000)},
		{"compressible large", internal.GenCompressibleData(200000)},
	} {
		roundTrip(t, tc.name, tc.data)
	}
}

func TestKnownCiphertext(t *testing.T) {
	got, err := Decompress(testStringDeflated)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, testString) {
		t.Errorf("got %q, want %q", got, testString)
	}
}

func TestSelfReferentialCopy(t *testing.T) {
	// A match whose length exceeds its distance repeats the last byte.
	data := append([]byte("abc"), bytes.Repeat([]byte{'c'}, 20)...)
	roundTrip(t, "self referential", data)
}

func TestStoredFallback(t *testing.T) {
	// Uniform random bytes do not compress; the encoder must emit
	// stored blocks and stay within the stored-block overhead.
	data := internal.GenPredictableRandomData(4096)
	compressed, err := Compress(data)
	if err != nil {
		t.Fatal(err)
	}
	if got, limit := len(compressed), len(data)+5; got > limit {
		t.Errorf("compressed to %v bytes, stored fallback bounds it at %v", got, limit)
	}
}

func TestInflateForeignStreams(t *testing.T) {
	// Streams produced by another DEFLATE implementation, at levels
	// picking stored, fixed and dynamic blocks.
	inputs := map[string][]byte{
		"text":   internal.GenCompressibleData(50000),
		"random": internal.GenPredictableRandomData(50000),
		"rle":    bytes.Repeat([]byte{0x11}, 70000),
		"short":  testString,
	}
	for name, data := range inputs {
		for _, level := range []int{0, 1, 6, 9} {
			var buf bytes.Buffer
			w, err := kflate.NewWriter(&buf, level)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := w.Write(data); err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}
			got, err := Decompress(buf.Bytes())
			if err != nil {
				t.Fatalf("%v/level %v: %v", name, level, err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("%v/level %v: decode mismatch", name, level)
			}
		}
	}
}

func TestDeflateReadByForeignInflate(t *testing.T) {
	for name, data := range map[string][]byte{
		"text":   internal.GenCompressibleData(50000),
		"random": internal.GenPredictableRandomData(50000),
		"empty":  nil,
	} {
		compressed, err := Compress(data)
		if err != nil {
			t.Fatal(err)
		}
		rd := kflate.NewReader(bytes.NewReader(compressed))
		got, err := io.ReadAll(rd)
		if err != nil {
			t.Fatalf("%v: %v", name, err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("%v: foreign inflate mismatch", name)
		}
	}
}

func TestCorruptStreams(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
		want error
	}{
		{"empty input", nil, ErrIO},
		{"reserved type", []byte{0x07}, ErrInvalidCompressionType}, // BFINAL=1 BTYPE=11
		{"stored checksum", []byte{0x01, 0x05, 0x00, 0x05, 0x00}, ErrInvalidLenChecksum},
		{"stored truncated", []byte{0x01, 0x05, 0x00, 0xFA, 0xFF, 'a'}, ErrCorruptedData},
		// BFINAL=1, fixed trees, then a match referencing output that
		// does not exist yet: symbol 257 (code 0000001), distance code 0.
		{"offset overrun", []byte{0x03, 0x02}, ErrCorruptedData},
	} {
		_, err := Decompress(tc.data)
		if err == nil {
			t.Errorf("%v: expected an error", tc.name)
			continue
		}
		if !errors.Is(err, tc.want) {
			t.Errorf("%v: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestWindowedBlocks(t *testing.T) {
	// More than one 32767-byte window forces multiple blocks with only
	// the last one final.
	data := internal.GenCompressibleData(windowSize*2 + 100)
	roundTrip(t, "multi block", data)
}
