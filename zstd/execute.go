// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "fmt"

// offsetHistory is the three-slot recent-offset FIFO of RFC 8878
// 3.1.1.5. It starts at {1, 4, 8} for every frame and is shared by all
// blocks within the frame.
type offsetHistory [3]int

// resolve maps a raw offset value to an actual offset and updates the
// history. Values above three are literal offsets (minus three); one to
// three name history slots, shifted by one when the sequence has no
// literals, in which case code three means "most recent minus one".
func (h *offsetHistory) resolve(offset, ll int) int {
	var actual int
	switch {
	case offset > 3:
		actual = offset - 3
	case ll > 0:
		actual = h[offset-1]
	case offset == 3:
		actual = h[0] - 1
	default:
		actual = h[offset]
	}

	if offset >= 3 || (offset == 2 && ll == 0) {
		h[2] = h[1]
		h[1] = h[0]
		h[0] = actual
	} else if (offset == 1 && ll == 0) || (offset == 2 && ll > 0) {
		h[1] = h[0]
		h[0] = actual
	}
	return actual
}

// executeSequences splices the literals buffer and backreferences into
// the frame output. Trailing literals beyond the last sequence are
// appended verbatim.
func (f *frame) executeSequences(seqs []sequence) error {
	if len(seqs) == 0 {
		f.out = append(f.out, f.literals...)
		return nil
	}

	litIdx := 0
	base := len(f.out)
	emitted := 0
	for _, s := range seqs {
		if s.ll > 0 {
			if litIdx+s.ll > len(f.literals) {
				return fmt.Errorf("sequence wants %d literals of %d: %w", litIdx+s.ll, len(f.literals), ErrCorruptedData)
			}
			f.out = append(f.out, f.literals[litIdx:litIdx+s.ll]...)
			litIdx += s.ll
			emitted += s.ll
		}

		offset := f.history.resolve(s.offset, s.ll)
		if offset == 0 {
			return fmt.Errorf("actual offset zero: %w", ErrCorruptedData)
		}

		if s.ml > 0 {
			if offset > len(f.out) {
				return fmt.Errorf("offset %d beyond %d decoded bytes: %w", offset, len(f.out), ErrCorruptedData)
			}
			// Byte at a time: the copy may overlap its own output,
			// which is how runs are encoded.
			for i := 0; i < s.ml; i++ {
				f.out = append(f.out, f.out[len(f.out)-offset])
			}
			emitted += s.ml
		}
	}

	if litIdx < len(f.literals) {
		f.out = append(f.out, f.literals[litIdx:]...)
		emitted += len(f.literals) - litIdx
	}
	if emitted != len(f.out)-base {
		return fmt.Errorf("emitted %d bytes, accounted %d: %w", len(f.out)-base, emitted, ErrCorruptedData)
	}
	return nil
}
