// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// xcomp-inspect walks the framing of a zstd file without decoding block
// contents and prints one line per frame and block.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/must"
	"v.io/x/lib/cmd/flagvar"
)

var commandline struct {
	InputFile string `cmd:"input,,'input file, s3 path, or url'"`
}

func init() {
	must.Nil(flagvar.RegisterFlagsInStruct(flag.CommandLine, "cmd", &commandline,
		nil, nil))
}

const (
	frameMagic             = 0xFD2FB528
	skippableFrameMagicMin = 0x184D2A50
	skippableFrameMagicMax = 0x184D2A5F
)

var blockTypes = []string{"raw", "rle", "compressed", "reserved"}

func inspect(buf []byte) error {
	frameNum := 0
	for len(buf) > 0 {
		if len(buf) < 4 {
			return fmt.Errorf("truncated magic")
		}
		magic := binary.LittleEndian.Uint32(buf)
		buf = buf[4:]

		if magic >= skippableFrameMagicMin && magic <= skippableFrameMagicMax {
			if len(buf) < 4 {
				return fmt.Errorf("truncated skippable frame")
			}
			size := int(binary.LittleEndian.Uint32(buf))
			fmt.Printf("frame %d: skippable, %d bytes\n", frameNum, size)
			if len(buf) < 4+size {
				return fmt.Errorf("truncated skippable frame")
			}
			buf = buf[4+size:]
			frameNum++
			continue
		}
		if magic != frameMagic {
			return fmt.Errorf("bad magic 0x%08x", magic)
		}

		if len(buf) < 1 {
			return fmt.Errorf("truncated frame header")
		}
		fhd := buf[0]
		buf = buf[1:]
		singleSegment := fhd>>5&1 != 0
		hasChecksum := fhd>>2&1 != 0

		if !singleSegment {
			if len(buf) < 1 {
				return fmt.Errorf("truncated window descriptor")
			}
			buf = buf[1:]
		}
		fcsLen := 0
		switch fhd >> 6 {
		case 0:
			if singleSegment {
				fcsLen = 1
			}
		case 1:
			fcsLen = 2
		case 2:
			fcsLen = 4
		case 3:
			fcsLen = 8
		}
		var contentSize uint64
		if len(buf) < fcsLen {
			return fmt.Errorf("truncated frame content size")
		}
		for i := 0; i < fcsLen; i++ {
			contentSize |= uint64(buf[i]) << (8 * uint(i))
		}
		if fcsLen == 2 {
			contentSize += 256
		}
		buf = buf[fcsLen:]
		fmt.Printf("frame %d: single_segment=%v checksum=%v content_size=%d\n",
			frameNum, singleSegment, hasChecksum, contentSize)

		for blockNum := 0; ; blockNum++ {
			if len(buf) < 3 {
				return fmt.Errorf("truncated block header")
			}
			v := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16
			buf = buf[3:]
			last := v&1 != 0
			blockType := int(v >> 1 & 3)
			blockSize := int(v >> 3)
			payload := blockSize
			if blockType == 1 { // rle stores a single byte
				payload = 1
			}
			fmt.Printf("  block %d: type=%s size=%d last=%v\n",
				blockNum, blockTypes[blockType], blockSize, last)
			if len(buf) < payload {
				return fmt.Errorf("truncated block")
			}
			buf = buf[payload:]
			if last {
				break
			}
		}
		if hasChecksum {
			if len(buf) < 4 {
				return fmt.Errorf("truncated checksum")
			}
			fmt.Printf("  checksum: 0x%08x\n", binary.LittleEndian.Uint32(buf))
			buf = buf[4:]
		}
		frameNum++
	}
	return nil
}

func main() {
	ctx := context.Background()
	flag.Parse()
	f, err := file.Open(ctx, commandline.InputFile)
	if err != nil {
		log.Fatalf("failed to open %v: %v", commandline.InputFile, err)
	}
	defer f.Close(ctx)
	buf, err := io.ReadAll(f.Reader(ctx))
	if err != nil {
		log.Fatalf("failed to read %v: %v", commandline.InputFile, err)
	}
	if err := inspect(buf); err != nil {
		log.Fatalf("%v: %v", commandline.InputFile, err)
	}
}
