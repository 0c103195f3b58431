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
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/urfave/cli"

	"github.com/tomcrypto/pcg-breaker/breakerr"
	"github.com/tomcrypto/pcg-breaker/config"
	"github.com/tomcrypto/pcg-breaker/table"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{Prefix: "gen-table"})

func main() {
	if VERSION == "SELFBUILD" {
		logger.SetLevel(charmlog.DebugLevel)
	}

	myApp := cli.NewApp()
	myApp.Name = "gen-table"
	myApp.Usage = "builds table.bin, the precomputed PCG-XSH-RR state-fragment table"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "out",
			Value: "table.bin",
			Usage: "output path for the built table",
		},
		cli.StringFlag{
			Name:  "config",
			Value: "",
			Usage: "optional YAML tuning file (see config.Tuning)",
		},
		cli.BoolFlag{
			Name:  "force",
			Usage: "overwrite out if it already exists",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		out := c.String("out")

		if !c.Bool("force") {
			if _, err := os.Stat(out); err == nil {
				logger.Fatalf("%s already exists; pass --force to overwrite", out)
			}
		}

		tuning, err := config.Load(c.String("config"))
		checkError(err)

		logger.Info("building table", "out", out, "bucketCount", tuning.BucketCount)
		header, err := table.Build(out, table.BuildOptions{SampleCount: table.SampleCount})
		checkError(err)

		reportBucketLoad(out, header)
		return nil
	}
	if err := myApp.Run(os.Args); err != nil {
		checkError(err)
	}
}

// reportBucketLoad reopens the freshly built table and logs a small set
// of bucket-occupancy statistics, so an operator can sanity-check the
// sample space spread without a separate tool.
func reportBucketLoad(path string, header table.Header) {
	r, err := table.Open(path)
	if err != nil {
		logger.Warn("could not reopen table for bucket-load report", "err", err)
		return
	}
	defer r.Close()

	var empty int
	var maxLoad uint32
	for key := uint32(0); key < header.BucketCount; key++ {
		recs, err := r.Lookup(key)
		if err != nil {
			logger.Warn("bucket-load report aborted", "key", key, "err", err)
			return
		}
		if len(recs) == 0 {
			empty++
		}
		if uint32(len(recs)) > maxLoad {
			maxLoad = uint32(len(recs))
		}
	}

	logger.Info("table built",
		"records", header.TotalRecs,
		"buckets", header.BucketCount,
		"emptyBuckets", empty,
		"maxBucketLoad", maxLoad,
		"headerBound", header.BucketBound,
	)
}

func checkError(err error) {
	if err != nil {
		logger.Errorf("%+v", err)
		os.Exit(breakerr.ExitCode(breakerr.As(err)))
	}
}
