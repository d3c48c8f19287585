// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

type statscmd struct{}

func (cmd *statscmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input `file`")
	outputFilename := flags.String("o", "-", "output `file`")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}

	var input io.ReadCloser
	if *inputFilename == "-" {
		input = io.NopCloser(stdin)
	} else {
		input, err = os.Open(*inputFilename)
		if err != nil {
			return 1
		}
		defer input.Close()
	}
	cohort, err := ReadCohort(input, strings.HasSuffix(*inputFilename, ".gz"))
	if err != nil {
		return 1
	}
	err = input.Close()
	if err != nil {
		return 1
	}

	var output io.WriteCloser
	if *outputFilename == "-" {
		output = nopCloser{stdout}
	} else {
		output, err = os.OpenFile(*outputFilename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0777)
		if err != nil {
			return 1
		}
		defer output.Close()
	}
	bufw := bufio.NewWriter(output)
	err = cmd.doStats(cohort, bufw)
	if err != nil {
		return 1
	}
	err = bufw.Flush()
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}

func (cmd *statscmd) doStats(cohort *Cohort, output io.Writer) error {
	var ret struct {
		Cohort            string `json:",omitempty"`
		Samples           int
		Genes             int
		Events            int
		Censored          int
		FollowupQuartiles [3]float64
		ExprQuartiles     [3]float64
		MeanExpr          float64
	}
	ret.Cohort = cohort.Name
	ret.Samples = len(cohort.Samples)
	ret.Genes = len(cohort.Genes)
	ret.Events = cohort.Events()
	ret.Censored = ret.Samples - ret.Events

	if ret.Samples > 0 {
		times := append([]float64(nil), cohort.Time...)
		sort.Float64s(times)
		for i, p := range []float64{0.25, 0.5, 0.75} {
			ret.FollowupQuartiles[i] = stat.Quantile(p, stat.Empirical, times, nil)
		}
	}
	if len(cohort.Expr) > 0 {
		expr := append([]float64(nil), cohort.Expr...)
		sort.Float64s(expr)
		for i, p := range []float64{0.25, 0.5, 0.75} {
			ret.ExprQuartiles[i] = stat.Quantile(p, stat.Empirical, expr, nil)
		}
		ret.MeanExpr = stat.Mean(expr, nil)
	}
	log.Printf("%d samples, %d genes, %d events", ret.Samples, ret.Genes, ret.Events)
	return json.NewEncoder(output).Encode(ret)
}
