// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"encoding/binary"
	"fmt"

	"github.com/cosnicolaou/xcomp/internal/bitstream"
)

// Symbol compression modes.
const (
	predefinedMode = iota
	rleMode
	fseCompressedMode
	repeatMode
)

// A sequence instructs the executor to copy ll literals, then ml bytes
// from offset bytes back. The offset field is the raw pre-history value.
type sequence struct {
	ll     int
	ml     int
	offset int
}

// seqDecoder holds the decoding state of one of the three sequence
// alphabets. The FSE table survives the block so that a later block in
// the same frame can name Repeat_Mode; rleSymbol is -1 when the alphabet
// is state-machine driven.
type seqDecoder struct {
	table     []fseEntry
	tableLog  int
	rleSymbol int
}

// init prepares the decoder for one block according to its compression
// mode.
func (d *seqDecoder) init(br *bitstream.Reader, mode int, predFreqs []int16, predLog, maxLog, maxSymbol int) error {
	switch mode {
	case predefinedMode:
		table, err := buildFSETable(predLog, predFreqs)
		if err != nil {
			return err
		}
		d.table, d.tableLog, d.rleSymbol = table, predLog, -1
	case fseCompressedMode:
		tableLog := int(br.ReadBits(4)) + 5
		if br.Err() != nil {
			return ErrIO
		}
		if tableLog > maxLog {
			return fmt.Errorf("table log %d exceeds %d: %w", tableLog, maxLog, ErrCorruptedData)
		}
		freqs, err := readNormFreqs(br, tableLog, maxSymbol)
		if err != nil {
			return err
		}
		table, err := buildFSETable(tableLog, freqs)
		if err != nil {
			return err
		}
		d.table, d.tableLog, d.rleSymbol = table, tableLog, -1
	case rleMode:
		b := br.ReadBytes(1)
		if br.Err() != nil {
			return ErrIO
		}
		if int(b[0]) > maxSymbol {
			return fmt.Errorf("RLE symbol %d beyond alphabet of %d: %w", b[0], maxSymbol+1, ErrCorruptedData)
		}
		d.rleSymbol = int(b[0])
	case repeatMode:
		if d.table == nil && d.rleSymbol < 0 {
			return fmt.Errorf("repeat mode with no previous table: %w", ErrCorruptedData)
		}
	}
	return nil
}

// parseSequences reads the sequences section of a compressed block: the
// sequence count, the three compression modes, any table descriptions
// and finally the interleaved FSE bitstream, which is read in reverse.
func (f *frame) parseSequences(br *bitstream.Reader) ([]sequence, error) {
	b := br.ReadBytes(1)
	if br.Err() != nil {
		return nil, ErrIO
	}
	count := int(b[0])
	if count > 127 {
		first := count
		if first < 255 {
			b = br.ReadBytes(1)
			if br.Err() != nil {
				return nil, ErrIO
			}
			count = int(b[0]) + (first-128)<<8
		} else {
			b = br.ReadBytes(2)
			if br.Err() != nil {
				return nil, ErrIO
			}
			count = int(binary.LittleEndian.Uint16(b)) + 0x7F00
		}
	}
	debugf("sequences: count=%d", count)

	if count == 0 {
		if !br.EOS() {
			return nil, fmt.Errorf("%d bytes after empty sequences section: %w", br.Remaining(), ErrCorruptedData)
		}
		return nil, nil
	}

	b = br.ReadBytes(1)
	if br.Err() != nil {
		return nil, ErrIO
	}
	modes := b[0]
	if modes&0x03 != 0 {
		return nil, fmt.Errorf("symbol compression modes 0x%02x: %w", modes, ErrReservedField)
	}
	llMode := int(modes >> 6)
	olMode := int(modes >> 4 & 3)
	mlMode := int(modes >> 2 & 3)
	debugf("sequences: ll_mode=%d ol_mode=%d ml_mode=%d", llMode, olMode, mlMode)

	if err := f.ll.init(br, llMode, llPredFreqs, predLLTableLog, llMaxTableLog, maxLLCode); err != nil {
		return nil, err
	}
	if err := f.ol.init(br, olMode, olPredFreqs, predOLTableLog, olMaxTableLog, maxOLCode); err != nil {
		return nil, err
	}
	if err := f.ml.init(br, mlMode, mlPredFreqs, predMLTableLog, mlMaxTableLog, maxMLCode); err != nil {
		return nil, err
	}

	rest := br.ReadBytes(br.Remaining())
	if br.Err() != nil {
		return nil, ErrIO
	}
	rr := bitstream.NewReverseReader(rest, 0)
	if err := skipPadding(rr); err != nil {
		return nil, err
	}
	return f.decodeSequences(rr, count)
}

func (f *frame) decodeSequences(rr *bitstream.ReverseReader, count int) ([]sequence, error) {
	var llState, olState, mlState int
	if f.ll.rleSymbol < 0 {
		llState = int(rr.ReadBits(uint(f.ll.tableLog)))
	}
	if f.ol.rleSymbol < 0 {
		olState = int(rr.ReadBits(uint(f.ol.tableLog)))
	}
	if f.ml.rleSymbol < 0 {
		mlState = int(rr.ReadBits(uint(f.ml.tableLog)))
	}

	seqs := make([]sequence, count)
	for i := 0; i < count; i++ {
		llCode := f.ll.rleSymbol
		if llCode < 0 {
			llCode = int(f.ll.table[llState].symbol)
		}
		mlCode := f.ml.rleSymbol
		if mlCode < 0 {
			mlCode = int(f.ml.table[mlState].symbol)
		}
		olCode := f.ol.rleSymbol
		if olCode < 0 {
			olCode = int(f.ol.table[olState].symbol)
		}

		if olCode > maxOLCode {
			return nil, fmt.Errorf("offset code %d: %w", olCode, ErrCorruptedData)
		}

		// Extra bits are read offset first, then match length, then
		// literals length.
		offset := int(rr.ReadBits(uint(olCode))) + 1<<uint(olCode)
		ml := int(mlCodes[mlCode].value) + int(rr.ReadBits(uint(mlCodes[mlCode].numBits)))
		ll := int(llCodes[llCode].value) + int(rr.ReadBits(uint(llCodes[llCode].numBits)))

		if offset == 0 {
			return nil, fmt.Errorf("zero offset value: %w", ErrCorruptedData)
		}
		seqs[i] = sequence{ll: ll, ml: ml, offset: offset}

		if i+1 < count {
			if f.ll.rleSymbol < 0 {
				llState = nextFSEState(f.ll.table, llState, rr)
			}
			if f.ml.rleSymbol < 0 {
				mlState = nextFSEState(f.ml.table, mlState, rr)
			}
			if f.ol.rleSymbol < 0 {
				olState = nextFSEState(f.ol.table, olState, rr)
			}
		}
		if rr.Err() != nil {
			return nil, fmt.Errorf("sequence bitstream overrun: %w", ErrCorruptedData)
		}
	}

	if !rr.EOS() {
		return nil, fmt.Errorf("sequence bitstream not exhausted: %w", ErrCorruptedData)
	}
	return seqs, nil
}
