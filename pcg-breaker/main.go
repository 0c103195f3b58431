// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	charmlog "github.com/charmbracelet/log"
	"github.com/urfave/cli"

	"github.com/tomcrypto/pcg-breaker/breakerr"
	"github.com/tomcrypto/pcg-breaker/candidate"
	"github.com/tomcrypto/pcg-breaker/config"
	"github.com/tomcrypto/pcg-breaker/predict"
	"github.com/tomcrypto/pcg-breaker/stream"
	"github.com/tomcrypto/pcg-breaker/table"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{Prefix: "pcg-breaker"})

// candidateCount is updated after every consumed output so the SIGUSR1
// handler (running on its own goroutine) can report a snapshot without
// reaching into the single-threaded engine directly.
var candidateCount atomic.Int64

func main() {
	if VERSION == "SELFBUILD" {
		logger.SetLevel(charmlog.DebugLevel)
	}

	myApp := cli.NewApp()
	myApp.Name = "pcg-breaker"
	myApp.Usage = "recovers PCG-XSH-RR state from a stream of observed outputs"
	myApp.Version = VERSION
	myApp.ArgsUsage = "<table.bin>"
	myApp.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "binary",
			Usage: "read raw 32-bit words instead of ASCII numeric lines",
		},
		cli.BoolFlag{
			Name:  "big-endian",
			Usage: "in --binary mode, read words big-endian instead of little-endian",
		},
		cli.BoolFlag{
			Name:  "recovery",
			Usage: "suppress prediction reports; run until the candidate set collapses to one, then print the recovered pair and exit",
		},
		cli.StringFlag{
			Name:  "config",
			Value: "",
			Usage: "optional YAML tuning file (see config.Tuning)",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "suppress informational status log lines; predictions and recovery still print",
		},
	}
	myApp.Action = run

	if err := myApp.Run(os.Args); err != nil {
		checkError(err)
	}
}

func run(c *cli.Context) error {
	tablePath := c.Args().First()
	if tablePath == "" {
		return breakerr.New(breakerr.KindMalformedInput, "missing required <table.bin> argument")
	}

	tuning, err := config.Load(c.String("config"))
	checkError(err)

	reader, err := table.Open(tablePath)
	checkError(err)
	defer reader.Close()

	if tuning.BucketCount != int(reader.Header().BucketCount) {
		checkError(breakerr.New(breakerr.KindCorruptTable, fmt.Sprintf(
			"config bucketCount %d does not match table bucket count %d",
			tuning.BucketCount, reader.Header().BucketCount)))
	}

	quiet := c.Bool("quiet")
	if !quiet {
		logger.Info("table loaded", "path", tablePath, "records", reader.Header().TotalRecs)
	}

	order := stream.LittleEndian
	if c.Bool("big-endian") {
		order = stream.BigEndian
	}

	var in *stream.Reader
	if c.Bool("binary") {
		in = stream.NewBinaryReader(os.Stdin, order)
	} else {
		in = stream.NewLineReader(os.Stdin)
	}

	engine := candidate.New(reader, tuning)

	recoveryMode := c.Bool("recovery")

	for {
		o, err := in.Next()
		if err == io.EOF {
			if !quiet {
				logger.Info("input closed", "exit", "clean")
			}
			return nil
		}
		checkError(err)

		if err := engine.Consume(o); err != nil {
			checkError(err)
		}
		candidateCount.Store(int64(engine.Len()))

		if !engine.Seeded() {
			continue
		}

		if recoveryMode {
			if rec, ok := predict.Recovered(engine.Candidates()); ok {
				fmt.Printf("%#016x %#016x\n", rec.State, rec.Inc)
				return nil
			}
			continue
		}

		for _, outcome := range predict.Predict(engine.Candidates()) {
			fmt.Printf("[+] next output: %#08x (p=%.3f)\n", outcome.Output, outcome.Probability)
		}
	}
}

func checkError(err error) {
	if err != nil {
		logger.Errorf("%+v", err)
		os.Exit(breakerr.ExitCode(breakerr.As(err)))
	}
}
