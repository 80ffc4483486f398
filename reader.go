// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package xcomp

import (
	"bytes"
	"io"
)

// Both codecs operate on whole in-memory buffers, so the io adapters
// here buffer everything: the reader slurps its source on first use, the
// writer compresses on Close. They exist for io pipelines and the CLI,
// not for incremental processing.

type reader struct {
	src    io.Reader
	algo   Algorithm
	out    *bytes.Reader
	err    error
	primed bool
}

// NewReader returns an io.Reader that yields the decompressed contents
// of r. The whole source is read and decompressed on the first call to
// Read.
func NewReader(r io.Reader, algo Algorithm) io.Reader {
	return &reader{src: r, algo: algo}
}

func (r *reader) Read(buf []byte) (int, error) {
	if !r.primed {
		r.primed = true
		data, err := io.ReadAll(r.src)
		if err == nil {
			data, err = Decompress(data, r.algo)
		}
		if err != nil {
			r.err = err
		} else {
			r.out = bytes.NewReader(data)
		}
	}
	if r.err != nil {
		return 0, r.err
	}
	return r.out.Read(buf)
}

// Writer accumulates its input and writes the compressed form to the
// underlying writer when closed.
type Writer struct {
	dst  io.Writer
	algo Algorithm
	buf  bytes.Buffer
}

// NewWriter returns a Writer compressing to w with the chosen algorithm.
func NewWriter(w io.Writer, algo Algorithm) *Writer {
	return &Writer{dst: w, algo: algo}
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

// Close compresses the accumulated data and writes it out.
func (w *Writer) Close() error {
	out, err := Compress(w.buf.Bytes(), w.algo)
	if err != nil {
		return err
	}
	_, err = w.dst.Write(out)
	return err
}
