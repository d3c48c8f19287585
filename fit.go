// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// fitcmd fits a network-regularized sparse Cox model over a lambda
// path and reports the cross-validated selection.
type fitcmd struct {
	mode          string
	gamma         float64
	alpha         float64
	useCovariance bool
	cutoff        float64
	nLambda       int
	lambdaRatio   float64
	cvFolds       int
	seed          int64
	resolveNames  bool
	martURL       string
}

type selectedGene struct {
	Gene        string
	Name        string `json:",omitempty"`
	Coefficient float64
}

type fitReport struct {
	Cohort        string `json:",omitempty"`
	Samples       int
	Genes         int
	Events        int
	PenaltyMode   string
	Gamma         float64
	Alpha         float64
	Lambdas       []float64
	NonzeroCounts []int
	CVFolds       int       `json:",omitempty"`
	MeanCIndex    []float64 `json:",omitempty"`
	BestLambda    float64
	CIndex        float64
	LogrankP      float64
	Selected      []selectedGene
}

func (cmd *fitcmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	flags.StringVar(&cmd.mode, "mode", "none", "penalty network `mode` (none, hub, or orphan)")
	flags.Float64Var(&cmd.gamma, "gamma", 1, "degree exponent for hub/orphan penalty factors")
	flags.Float64Var(&cmd.alpha, "alpha", 1, "elastic net mixing (1 = lasso, 0 = ridge)")
	flags.BoolVar(&cmd.useCovariance, "covariance", false, "build the gene network from covariance instead of correlation")
	flags.Float64Var(&cmd.cutoff, "cutoff", 0, "ignore network edges with absolute weight below `W`")
	flags.IntVar(&cmd.nLambda, "nlambda", 20, "number of `candidate` penalty strengths")
	flags.Float64Var(&cmd.lambdaRatio, "lambda-min-ratio", 0.01, "smallest lambda as a `fraction` of the largest")
	flags.IntVar(&cmd.cvFolds, "cv-folds", 5, "cross-validation folds (0 = no CV, report smallest lambda)")
	flags.Int64Var(&cmd.seed, "seed", 1, "random `seed` for fold assignment")
	flags.BoolVar(&cmd.resolveNames, "resolve-names", false, "resolve selected gene IDs to display names")
	flags.StringVar(&cmd.martURL, "mart-url", defaultMartURL, "biomart martservice `URL` for -resolve-names")
	maxGoroutines := flags.Int("max-goroutines", runtime.NumCPU(), "number of concurrent fits")
	loglevel := flags.String("loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")
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
	lvl, err := log.ParseLevel(*loglevel)
	if err != nil {
		return 2
	}
	log.SetLevel(lvl)

	mode, err := parsePenaltyMode(cmd.mode)
	if err != nil {
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
	log.Print("reading cohort")
	cohort, err := ReadCohort(input, strings.HasSuffix(*inputFilename, ".gz"))
	if err != nil {
		return 1
	}
	err = input.Close()
	if err != nil {
		return 1
	}
	if len(cohort.Genes) == 0 {
		err = fmt.Errorf("cohort has no genes")
		return 1
	}
	if cohort.Events() == 0 {
		err = fmt.Errorf("cohort has no observed events")
		return 1
	}

	report := &fitReport{
		Cohort:      cohort.Name,
		Samples:     len(cohort.Samples),
		Genes:       len(cohort.Genes),
		Events:      cohort.Events(),
		PenaltyMode: mode.String(),
		Gamma:       cmd.gamma,
		Alpha:       cmd.alpha,
	}

	var factors []float64
	if mode == penaltyNone {
		factors = penaltyFactors(make([]float64, len(cohort.Genes)), penaltyNone, 0)
	} else {
		log.Printf("building %s network for %d genes", map[bool]string{false: "correlation", true: "covariance"}[cmd.useCovariance], len(cohort.Genes))
		deg := geneDegrees(cohort, cmd.useCovariance, cmd.cutoff)
		factors = penaltyFactors(deg, mode, cmd.gamma)
	}

	data := newCoxData(cohort)
	lambdas := data.lambdaPath(factors, cmd.alpha, cmd.nLambda, cmd.lambdaRatio)
	report.Lambdas = lambdas

	bestIdx := len(lambdas) - 1
	if cmd.cvFolds > 0 {
		log.Printf("cross-validating %d lambdas, %d folds", len(lambdas), cmd.cvFolds)
		cv, cverr := crossValidate(cohort, factors, lambdas, cmd.alpha, cmd.cvFolds, *maxGoroutines, cmd.seed)
		if cverr != nil {
			err = cverr
			return 1
		}
		bestIdx = cv.BestIndex
		report.CVFolds = cmd.cvFolds
		report.MeanCIndex = cv.MeanCIndex
	}
	report.BestLambda = lambdas[bestIdx]

	log.Print("fitting full path")
	coefs := data.fitPath(lambdas, cmd.alpha, factors, *maxGoroutines)
	report.NonzeroCounts = make([]int, len(lambdas))
	for i, c := range coefs {
		if c == nil {
			report.NonzeroCounts[i] = -1
		} else {
			report.NonzeroCounts[i] = nonzero(c)
		}
	}
	best := coefs[bestIdx]
	if best == nil {
		err = fmt.Errorf("fit did not converge at selected lambda %g", report.BestLambda)
		return 1
	}

	lp := data.linearPredictors(cohort, best)
	report.CIndex = concordance(lp, cohort.Time, cohort.Status)
	report.LogrankP = logrankPvalue(cohort.Time, cohort.Status, aboveMedian(lp))

	for j, coef := range best {
		if coef != 0 {
			report.Selected = append(report.Selected, selectedGene{Gene: cohort.Genes[j], Coefficient: coef})
		}
	}
	sort.Slice(report.Selected, func(a, b int) bool {
		return math.Abs(report.Selected[a].Coefficient) > math.Abs(report.Selected[b].Coefficient)
	})
	log.Printf("selected %d genes at lambda %g", len(report.Selected), report.BestLambda)

	if cmd.resolveNames && len(report.Selected) > 0 {
		resolver := &NameResolver{MartURL: cmd.martURL}
		ids := make([]string, len(report.Selected))
		for i, sel := range report.Selected {
			ids[i] = sel.Gene
		}
		names := resolver.Resolve(context.Background(), ids)
		if names.Source == SourceFallback {
			log.Warn("gene name lookup unavailable, using stable IDs")
		}
		byID := map[string]string{}
		for _, row := range names.Rows {
			byID[row.EnsemblGeneID] = row.ExternalGeneName
		}
		for i := range report.Selected {
			report.Selected[i].Name = byID[report.Selected[i].Gene]
		}
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
	enc := json.NewEncoder(bufw)
	enc.SetIndent("", "  ")
	err = enc.Encode(report)
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

// aboveMedian marks samples whose value exceeds the sample median.
func aboveMedian(a []float64) []bool {
	med := median(a)
	ret := make([]bool, len(a))
	for i, x := range a {
		ret[i] = x > med
	}
	return ret
}
