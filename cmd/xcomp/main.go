// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"cloudeng.io/cmdutil"
	"cloudeng.io/cmdutil/subcmd"
	"cloudeng.io/errors"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cosnicolaou/xcomp"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/schollz/progressbar/v2"
	"golang.org/x/crypto/ssh/terminal"
)

type CommonFlags struct {
	Algorithm string `subcmd:"algorithm,zstd,'compression algorithm: zstd or zlib'"`
	Verbose   bool   `subcmd:"verbose,false,verbose debug/trace information"`
}

type compressFlags struct {
	CommonFlags
	ProgressBar bool   `subcmd:"progress,true,display a progress bar"`
	OutputFile  string `subcmd:"output,,'output file or s3 path, omit for stdout'"`
}

type decompressFlags struct {
	CommonFlags
	ProgressBar bool   `subcmd:"progress,true,display a progress bar"`
	OutputFile  string `subcmd:"output,,'output file or s3 path, omit for stdout'"`
	Size        int    `subcmd:"size,-1,'expected decompressed size, -1 to disable the check'"`
}

var cmdSet *subcmd.CommandSet

func init() {
	compressCmd := subcmd.NewCommand("compress",
		subcmd.MustRegisterFlagStruct(&compressFlags{}, nil, nil),
		compress, subcmd.ExactlyNumArguments(1))
	compressCmd.Document(`compress a file. Files may be local, on S3 or a URL.`)

	decompressCmd := subcmd.NewCommand("decompress",
		subcmd.MustRegisterFlagStruct(&decompressFlags{}, nil, nil),
		decompress, subcmd.ExactlyNumArguments(1))
	decompressCmd.Document(`decompress a file. Files may be local, on S3 or a URL.`)

	catCmd := subcmd.NewCommand("cat",
		subcmd.MustRegisterFlagStruct(&CommonFlags{}, nil, nil),
		cat, subcmd.AtLeastNArguments(0))
	catCmd.Document(`decompress files or stdin to stdout.`)

	cmdSet = subcmd.NewCommandSet(compressCmd, decompressCmd, catCmd)
	cmdSet.Document(`compress and decompress zstd or raw-deflate files. Files may be local, on S3 or a URL.`)

	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(
			s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

func algorithmFromFlag(name string) (xcomp.Algorithm, error) {
	switch strings.ToLower(name) {
	case "zstd":
		return xcomp.Zstd, nil
	case "zlib", "deflate":
		return xcomp.Zlib, nil
	}
	return 0, fmt.Errorf("unsupported algorithm: %q", name)
}

func openFileOrURL(ctx context.Context, name string) (io.Reader, int64, func(context.Context) error, error) {
	if strings.HasPrefix(name, "http") {
		resp, err := http.Get(name)
		if err != nil {
			return nil, 0, nil, err
		}
		return resp.Body,
			resp.ContentLength,
			func(context.Context) error {
				resp.Body.Close()
				return nil
			},
			err
	}
	info, err := file.Stat(ctx, name)
	if err != nil {
		return nil, 0, nil, err
	}
	f, err := file.Open(ctx, name)
	if err != nil {
		return nil, 0, nil, err
	}
	return f.Reader(ctx), info.Size(), f.Close, nil
}

func createFile(ctx context.Context, name string) (io.Writer, func(context.Context) error, error) {
	if len(name) == 0 {
		return os.Stdout,
			func(context.Context) error {
				return nil
			},
			nil
	}
	f, err := file.Create(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return f.Writer(ctx), f.Close, nil
}

func main() {
	cmdSet.MustDispatch(context.Background())
}

// readAll drains rd, optionally rendering a progress bar over the
// expected size as bytes arrive.
func readAll(rd io.Reader, size int64, progress bool) ([]byte, error) {
	if !progress || size <= 0 {
		return io.ReadAll(rd)
	}
	progressBarWr := os.Stdout
	if !terminal.IsTerminal(int(os.Stdout.Fd())) {
		progressBarWr = os.Stderr
	}
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetBytes64(size),
		progressbar.OptionSetWriter(progressBarWr),
		progressbar.OptionSetPredictTime(true))
	bar.RenderBlank()
	buf := make([]byte, 0, size)
	chunk := make([]byte, 1024*1024)
	for {
		n, err := rd.Read(chunk)
		buf = append(buf, chunk[:n]...)
		bar.Add(n)
		if err == io.EOF {
			fmt.Fprintf(progressBarWr, "\n")
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func runCodec(ctx context.Context, inputFile, outputFile string, progress bool,
	codec func([]byte) ([]byte, error)) error {

	rd, size, readerCleanup, err := openFileOrURL(ctx, inputFile)
	if err != nil {
		return err
	}
	defer readerCleanup(ctx)

	data, err := readAll(rd, size, progress && len(outputFile) > 0)
	if err != nil {
		return err
	}

	out, err := codec(data)
	if err != nil {
		return err
	}

	wr, writerCleanup, err := createFile(ctx, outputFile)
	if err != nil {
		return err
	}

	errs := &errors.M{}
	_, err = wr.Write(out)
	errs.Append(err)
	errs.Append(writerCleanup(ctx))
	return errs.Err()
}

func compress(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cmdutil.HandleSignals(cancel, os.Interrupt)
	cl := values.(*compressFlags)

	algo, err := algorithmFromFlag(cl.Algorithm)
	if err != nil {
		return err
	}
	return runCodec(ctx, args[0], cl.OutputFile, cl.ProgressBar, func(data []byte) ([]byte, error) {
		return xcomp.Compress(data, algo)
	})
}

func decompress(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cmdutil.HandleSignals(cancel, os.Interrupt)
	cl := values.(*decompressFlags)

	algo, err := algorithmFromFlag(cl.Algorithm)
	if err != nil {
		return err
	}
	return runCodec(ctx, args[0], cl.OutputFile, cl.ProgressBar, func(data []byte) ([]byte, error) {
		if cl.Size >= 0 {
			return xcomp.DecompressSize(data, algo, cl.Size)
		}
		return xcomp.Decompress(data, algo)
	})
}

func cat(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cmdutil.HandleSignals(cancel, os.Interrupt)
	cl := values.(*CommonFlags)

	algo, err := algorithmFromFlag(cl.Algorithm)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		rd := xcomp.NewReader(os.Stdin, algo)
		_, err := io.Copy(os.Stdout, rd)
		return err
	}

	for _, inputFile := range args {
		rd, _, readerCleanup, err := openFileOrURL(ctx, inputFile)
		if err != nil {
			return err
		}
		defer readerCleanup(ctx)

		if _, err := io.Copy(os.Stdout, xcomp.NewReader(rd, algo)); err != nil {
			return err
		}
	}
	return nil
}
