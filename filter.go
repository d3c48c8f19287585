// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	_ "net/http/pprof"
	"os"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// geneFilter drops genes that carry too little signal to be worth
// penalizing.
type geneFilter struct {
	MinVariance float64
	MinMedian   float64
	TopMAD      int
}

func (f *geneFilter) Flags(flags *flag.FlagSet) {
	flags.Float64Var(&f.MinVariance, "min-variance", 0, "drop genes with expression variance below `V`")
	flags.Float64Var(&f.MinMedian, "min-median", math.Inf(-1), "drop genes with median expression below `M`")
	flags.IntVar(&f.TopMAD, "top-mad", -1, "keep only the `N` genes with highest median absolute deviation")
}

// Apply removes filtered genes from the cohort in place.
func (f *geneFilter) Apply(c *Cohort) {
	type geneStat struct {
		idx int
		mad float64
	}
	var kept []geneStat
	for j := range c.Genes {
		col := c.GeneColumn(j)
		if f.MinVariance > 0 && stat.Variance(col, nil) < f.MinVariance {
			continue
		}
		med := median(col)
		if med < f.MinMedian {
			continue
		}
		kept = append(kept, geneStat{idx: j, mad: medianAbsDev(col, med)})
	}
	if f.TopMAD >= 0 && len(kept) > f.TopMAD {
		sort.Slice(kept, func(a, b int) bool { return kept[a].mad > kept[b].mad })
		kept = kept[:f.TopMAD]
		sort.Slice(kept, func(a, b int) bool { return kept[a].idx < kept[b].idx })
	}
	keep := make([]int, 0, len(kept))
	for _, g := range kept {
		keep = append(keep, g.idx)
	}
	c.KeepGenes(keep)
}

// median does not modify its argument.
func median(a []float64) float64 {
	sorted := append([]float64(nil), a...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

func medianAbsDev(a []float64, med float64) float64 {
	dev := make([]float64, len(a))
	for i, x := range a {
		dev[i] = math.Abs(x - med)
	}
	sort.Float64s(dev)
	return stat.Quantile(0.5, stat.Empirical, dev, nil)
}

type filtercmd struct {
	geneFilter
}

func (cmd *filtercmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	inputFilename := flags.String("i", "-", "input `file`")
	outputFilename := flags.String("o", "-", "output `file`")
	cmd.geneFilter.Flags(flags)
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
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
	log.Print("reading")
	cohort, err := ReadCohort(input, strings.HasSuffix(*inputFilename, ".gz"))
	if err != nil {
		return 1
	}
	err = input.Close()
	if err != nil {
		return 1
	}

	log.Printf("filtering %d genes", len(cohort.Genes))
	cmd.Apply(cohort)
	log.Printf("filtering done, %d genes kept", len(cohort.Genes))

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
	err = WriteCohort(output, cohort, strings.HasSuffix(*outputFilename, ".gz"))
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}
