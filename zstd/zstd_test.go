// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package zstd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	kzstd "github.com/klauspost/compress/zstd"

	"github.com/cosnicolaou/xcomp/internal"
	"github.com/cosnicolaou/xcomp/internal/xxhash64"
)

// A known-good zstd frame: Single_Segment set, frame content size 68,
// one compressed block with FSE-coded Huffman literals and no
// sequences.
var knownFrame = []byte{
	0x28, 0xB5, 0x2F, 0xFD, 0x20, 0x44, 0xE5, 0x01, 0x00, 0x42, 0x04, 0x0E,
	0x14, 0xA0, 0xB5, 0x39, 0xF1, 0xB4, 0x24, 0x74, 0xC5, 0xAE, 0xA2, 0x6E,
	0x94, 0x8D, 0xA0, 0xFF, 0x9F, 0xDF, 0xFE, 0x67, 0x0D, 0x81, 0x6B, 0x4B,
	0x77, 0x24, 0x12, 0x86, 0xB9, 0x7B, 0x9E, 0x15, 0x1E, 0xD0, 0xB3, 0x18,
	0x51, 0xF5, 0x6E, 0x92, 0xDA, 0xBD, 0x84, 0x6C, 0x20, 0xB9, 0x03, 0x3C,
	0xA7, 0x90, 0x59, 0xB4, 0xA1, 0x4D, 0x21, 0x04, 0x00,
}

func TestKnownCiphertext(t *testing.T) {
	got, err := Decompress(knownFrame)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 68 {
		t.Errorf("got %v bytes, want 68", len(got))
	}
}

func TestHandBuiltFrames(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
		want string
	}{
		// Compressed block holding raw literals and an empty sequences
		// section.
		{"raw literals", []byte{
			0x28, 0xB5, 0x2F, 0xFD, 0x20, 0x05, 0x3D, 0x00, 0x00,
			0x28, 'h', 'e', 'l', 'l', 'o', 0x00,
		}, "hello"},
		// A single RLE block.
		{"rle block", []byte{
			0x28, 0xB5, 0x2F, 0xFD, 0x20, 0x04, 0x23, 0x00, 0x00, 'z',
		}, "zzzz"},
	} {
		got, err := Decompress(tc.data)
		if err != nil {
			t.Fatalf("%v: %v", tc.name, err)
		}
		if string(got) != tc.want {
			t.Errorf("%v: got %q, want %q", tc.name, got, tc.want)
		}
	}
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

func TestRawFrameRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"one", []byte{0xAA}},
		{"short", []byte("stored frame")},
		{"fcs two bytes", internal.GenPredictableRandomData(300)},
		{"fcs four bytes", internal.GenPredictableRandomData(70000)},
		{"multi block", internal.GenPredictableRandomData(1<<21 + 5000)},
	} {
		roundTrip(t, tc.name, tc.data)
	}
}

func TestRawFrameLayout(t *testing.T) {
	data := internal.GenPredictableRandomData(1000)
	compressed, err := Compress(data)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := binary.LittleEndian.Uint32(compressed), uint32(frameMagic); got != want {
		t.Fatalf("got magic %#x, want %#x", got, want)
	}
	fhd := compressed[4]
	if fhd>>5&1 != 1 {
		t.Errorf("single segment flag not set: %#x", fhd)
	}
	if fhd>>2&1 != 1 {
		t.Errorf("checksum flag not set: %#x", fhd)
	}
	// FCS flag 1: two bytes holding size-256, then one last raw block.
	if got, want := int(fhd>>6), 1; got != want {
		t.Errorf("got fcs flag %v, want %v", got, want)
	}
	if got, want := int(binary.LittleEndian.Uint16(compressed[5:]))+256, len(data); got != want {
		t.Errorf("got content size %v, want %v", got, want)
	}
	v := uint32(compressed[7]) | uint32(compressed[8])<<8 | uint32(compressed[9])<<16
	if v&1 != 1 || v>>1&3 != rawBlock || int(v>>3) != len(data) {
		t.Errorf("unexpected block header %#x", v)
	}
	if got, want := binary.LittleEndian.Uint32(compressed[len(compressed)-4:]),
		uint32(xxhash64.Sum64(data, 0)); got != want {
		t.Errorf("got checksum %#x, want %#x", got, want)
	}
}

func TestChecksumTamper(t *testing.T) {
	data := []byte("a perfectly ordinary payload to protect")
	compressed, err := Compress(data)
	if err != nil {
		t.Fatal(err)
	}
	// Flip a byte inside the raw block payload: framing stays intact, so
	// the failure must be the checksum, not a parse error.
	compressed[12] ^= 0xFF
	if _, err := Decompress(compressed); !errors.Is(err, ErrChecksumFail) {
		t.Errorf("got %v, want %v", err, ErrChecksumFail)
	}
}

func TestSkippableFrame(t *testing.T) {
	payload, err := Compress([]byte("after the skippable"))
	if err != nil {
		t.Fatal(err)
	}
	var in []byte
	in = binary.LittleEndian.AppendUint32(in, skippableFrameMagicMin+3)
	in = binary.LittleEndian.AppendUint32(in, 5)
	in = append(in, 1, 2, 3, 4, 5)
	in = append(in, payload...)

	got, err := Decompress(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "after the skippable" {
		t.Errorf("got %q", got)
	}
}

func TestMultipleFrames(t *testing.T) {
	a, err := Compress([]byte("first frame "))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compress([]byte("second frame"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decompress(append(a, b...))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "first frame second frame" {
		t.Errorf("got %q", got)
	}
}

func TestDecompressSize(t *testing.T) {
	data := []byte("sized payload")
	compressed, err := Compress(data)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecompressSize(compressed, len(data)); err != nil {
		t.Errorf("exact size: %v", err)
	}
	if _, err := DecompressSize(compressed, len(data)-1); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("got %v, want %v", err, ErrSizeMismatch)
	}
	if _, err := DecompressSize(compressed, len(data)+1); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("got %v, want %v", err, ErrSizeMismatch)
	}
}

func TestStructuralErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", []byte{'X', 'X', 'X', 'X'}, ErrInvalidMagic},
		{"truncated magic", []byte{0x28, 0xB5}, ErrIO},
		{"reserved fhd bit", []byte{0x28, 0xB5, 0x2F, 0xFD, 0x28, 0x00}, ErrReservedField},
		{"dictionary id", []byte{0x28, 0xB5, 0x2F, 0xFD, 0x21, 0x00}, ErrUnsupportedFeature},
		{"reserved block", []byte{0x28, 0xB5, 0x2F, 0xFD, 0x20, 0x00, 0x07, 0x00, 0x00}, ErrReserved},
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

func TestDecodeForeignFrames(t *testing.T) {
	// Frames produced by a full zstd encoder exercise compressed
	// literals, all sequence table modes and the offset history.
	enc, err := kzstd.NewWriter(nil,
		kzstd.WithEncoderLevel(kzstd.SpeedDefault),
		kzstd.WithEncoderCRC(true))
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Close()

	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte("hello hello hello hello")},
		{"text", internal.GenCompressibleData(100000)},
		{"random", internal.GenPredictableRandomData(50000)},
		{"rle", bytes.Repeat([]byte{0x55}, 100000)},
		{"mixed", append(internal.GenCompressibleData(60000),
			internal.GenPredictableRandomData(60000)...)},
	} {
		frame := enc.EncodeAll(tc.data, nil)
		got, err := Decompress(frame)
		if err != nil {
			t.Fatalf("%v: %v", tc.name, err)
		}
		if !bytes.Equal(got, tc.data) {
			t.Errorf("%v: decode mismatch: %v in, %v out", tc.name, len(tc.data), len(got))
		}
	}
}

func TestRawFramesReadByForeignDecoder(t *testing.T) {
	dec, err := kzstd.NewReader(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()

	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte("raw block frame")},
		{"large", internal.GenPredictableRandomData(100000)},
	} {
		compressed, err := Compress(tc.data)
		if err != nil {
			t.Fatal(err)
		}
		got, err := dec.DecodeAll(compressed, nil)
		if err != nil {
			t.Fatalf("%v: %v", tc.name, err)
		}
		if !bytes.Equal(got, tc.data) {
			t.Errorf("%v: foreign decode mismatch", tc.name)
		}
	}
}
