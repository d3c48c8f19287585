// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"

	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
)

// exportNumpy writes a cohort's expression matrix as matrix.npy plus
// samples.csv and genes.csv, for use with sklearn/matplotlib scripts.
type exportNumpy struct{}

func (cmd *exportNumpy) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	outputDir := flags.String("output-dir", ".", "output `directory`")
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
	log.Print("reading cohort")
	cohort, err := ReadCohort(input, strings.HasSuffix(*inputFilename, ".gz"))
	if err != nil {
		return 1
	}
	err = input.Close()
	if err != nil {
		return 1
	}

	log.Printf("writing %d x %d matrix", len(cohort.Samples), len(cohort.Genes))
	err = writeNumpy(*outputDir+"/matrix.npy", cohort.Expr, len(cohort.Samples), len(cohort.Genes))
	if err != nil {
		return 1
	}
	err = writeList(*outputDir+"/samples.csv", cohort.Samples)
	if err != nil {
		return 1
	}
	err = writeList(*outputDir+"/genes.csv", cohort.Genes)
	if err != nil {
		return 1
	}
	survival := make([]float64, 0, len(cohort.Samples)*2)
	for i := range cohort.Samples {
		st := 0.0
		if cohort.Status[i] {
			st = 1
		}
		survival = append(survival, cohort.Time[i], st)
	}
	err = writeNumpy(*outputDir+"/survival.npy", survival, len(cohort.Samples), 2)
	if err != nil {
		return 1
	}
	log.Print("done")
	return 0
}

func writeNumpy(fnm string, data []float64, rows, cols int) error {
	output, err := os.OpenFile(fnm, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0777)
	if err != nil {
		return err
	}
	defer output.Close()
	bufw := bufio.NewWriter(output)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return err
	}
	npw.Shape = []int{rows, cols}
	err = npw.WriteFloat64(data)
	if err != nil {
		return err
	}
	err = bufw.Flush()
	if err != nil {
		return err
	}
	return output.Close()
}

func writeList(fnm string, items []string) error {
	output, err := os.OpenFile(fnm, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0777)
	if err != nil {
		return err
	}
	defer output.Close()
	bufw := bufio.NewWriter(output)
	for i, item := range items {
		_, err = fmt.Fprintf(bufw, "%d,%s\n", i, item)
		if err != nil {
			return err
		}
	}
	err = bufw.Flush()
	if err != nil {
		return err
	}
	return output.Close()
}
