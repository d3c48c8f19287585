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
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"
)

// importer reads an expression matrix (genes x samples, tab separated,
// optionally gzipped) and a survival table, and writes a cohort gob.
type importer struct {
	exprFile     string
	survivalFile string
	cohortName   string
	outputFile   string
}

func (cmd *importer) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&cmd.exprFile, "expression", "", "expression matrix `file` (genes x samples TSV, .gz ok)")
	flags.StringVar(&cmd.survivalFile, "survival", "", "survival `file` (sample, time, status TSV)")
	flags.StringVar(&cmd.cohortName, "cohort", "", "cohort `name` (e.g., BRCA, PRAD)")
	flags.StringVar(&cmd.outputFile, "o", "-", "output `file`")
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	loglevel := flags.String("loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if cmd.exprFile == "" || cmd.survivalFile == "" {
		fmt.Fprintln(stderr, "cannot import without -expression and -survival arguments")
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

	log.Printf("reading %s", cmd.exprFile)
	cohort, err := readExpressionFile(cmd.exprFile)
	if err != nil {
		return 1
	}
	cohort.Name = cmd.cohortName
	log.Printf("read %d genes x %d samples", len(cohort.Genes), len(cohort.Samples))

	log.Printf("reading %s", cmd.survivalFile)
	err = readSurvivalFile(cohort, cmd.survivalFile)
	if err != nil {
		return 1
	}
	err = cohort.Check()
	if err != nil {
		return 1
	}
	log.Printf("%d events, %d censored", cohort.Events(), len(cohort.Samples)-cohort.Events())

	var output io.WriteCloser
	if cmd.outputFile == "-" {
		output = nopCloser{stdout}
	} else {
		output, err = os.OpenFile(cmd.outputFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0777)
		if err != nil {
			return 1
		}
		defer output.Close()
	}
	err = WriteCohort(output, cohort, strings.HasSuffix(cmd.outputFile, ".gz"))
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	log.Print("done")
	return 0
}

func openMaybeGz(fnm string) (io.ReadCloser, error) {
	f, err := os.Open(fnm)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(fnm, ".gz") {
		return f, nil
	}
	gzr, err := pgzip.NewReader(bufio.NewReaderSize(f, 4*1024*1024))
	if err != nil {
		f.Close()
		return nil, err
	}
	return struct {
		io.Reader
		io.Closer
	}{gzr, f}, nil
}

// readExpressionFile parses a genes-as-rows matrix. The header line is
// "gene<TAB>sample1<TAB>sample2...", each following line a gene ID and
// one value per sample. The returned cohort is sample-major and has no
// survival data yet.
func readExpressionFile(fnm string) (*Cohort, error) {
	f, err := openMaybeGz(fnm)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 1<<26)
	if !scanner.Scan() {
		return nil, fmt.Errorf("%s: empty expression file", fnm)
	}
	header := strings.Split(scanner.Text(), "\t")
	if len(header) < 2 {
		return nil, fmt.Errorf("%s: header has no sample columns", fnm)
	}
	samples := header[1:]

	var genes []string
	var byGene [][]float64
	lineno := 1
	for scanner.Scan() {
		lineno++
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != len(samples)+1 {
			return nil, fmt.Errorf("%s line %d: %d fields, want %d", fnm, lineno, len(fields), len(samples)+1)
		}
		row := make([]float64, len(samples))
		for i, field := range fields[1:] {
			row[i], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", fnm, lineno, err)
			}
		}
		genes = append(genes, fields[0])
		byGene = append(byGene, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", fnm, err)
	}

	cohort := &Cohort{
		Samples: samples,
		Genes:   genes,
		Expr:    make([]float64, len(samples)*len(genes)),
	}
	for j, row := range byGene {
		for i, v := range row {
			cohort.Expr[i*len(genes)+j] = v
		}
	}
	return cohort, nil
}

// readSurvivalFile fills in Time and Status from a TSV with columns
// sample, time, status. A header line is tolerated. Samples missing
// from the table are an error; extra rows are ignored.
func readSurvivalFile(cohort *Cohort, fnm string) error {
	f, err := openMaybeGz(fnm)
	if err != nil {
		return err
	}
	defer f.Close()

	type surv struct {
		time   float64
		status bool
	}
	bySample := map[string]surv{}
	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return fmt.Errorf("%s line %d: %d fields, want 3", fnm, lineno, len(fields))
		}
		t, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			if lineno == 1 {
				// header
				continue
			}
			return fmt.Errorf("%s line %d: %w", fnm, lineno, err)
		}
		var status bool
		switch strings.ToLower(fields[2]) {
		case "1", "true", "dead", "event":
			status = true
		case "0", "false", "alive", "censored":
			status = false
		default:
			return fmt.Errorf("%s line %d: unrecognized status %q", fnm, lineno, fields[2])
		}
		bySample[fields[0]] = surv{time: t, status: status}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%s: %w", fnm, err)
	}

	cohort.Time = make([]float64, len(cohort.Samples))
	cohort.Status = make([]bool, len(cohort.Samples))
	for i, id := range cohort.Samples {
		s, ok := bySample[id]
		if !ok {
			return fmt.Errorf("%s: no survival data for sample %q", fnm, id)
		}
		cohort.Time[i] = s.time
		cohort.Status[i] = s.status
	}
	return nil
}
