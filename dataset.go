// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/klauspost/pgzip"
)

// Cohort is an expression matrix with right-censored survival labels.
// Expr is sample-major: Expr[i*len(Genes)+j] is the expression of
// Genes[j] in Samples[i].
type Cohort struct {
	Name    string
	Samples []string
	Genes   []string
	Expr    []float64
	Time    []float64
	Status  []bool // true = event observed, false = censored
}

func (c *Cohort) Check() error {
	ns, ng := len(c.Samples), len(c.Genes)
	if len(c.Expr) != ns*ng {
		return fmt.Errorf("expression matrix has %d entries, want %d samples x %d genes", len(c.Expr), ns, ng)
	}
	if len(c.Time) != ns || len(c.Status) != ns {
		return fmt.Errorf("survival data for %d/%d samples", len(c.Time), ns)
	}
	seen := map[string]bool{}
	for _, id := range c.Samples {
		if seen[id] {
			return fmt.Errorf("duplicate sample %q", id)
		}
		seen[id] = true
	}
	seen = map[string]bool{}
	for _, id := range c.Genes {
		if seen[id] {
			return fmt.Errorf("duplicate gene %q", id)
		}
		seen[id] = true
	}
	for i, t := range c.Time {
		if t < 0 {
			return fmt.Errorf("sample %q has negative survival time %v", c.Samples[i], t)
		}
	}
	return nil
}

func (c *Cohort) Value(sample, gene int) float64 {
	return c.Expr[sample*len(c.Genes)+gene]
}

// GeneColumn copies the expression of one gene across all samples.
func (c *Cohort) GeneColumn(gene int) []float64 {
	ng := len(c.Genes)
	col := make([]float64, len(c.Samples))
	for i := range c.Samples {
		col[i] = c.Expr[i*ng+gene]
	}
	return col
}

// Events counts samples with an observed event.
func (c *Cohort) Events() int {
	n := 0
	for _, s := range c.Status {
		if s {
			n++
		}
	}
	return n
}

// Subset returns a copy containing only the given sample indexes, in
// the given order.
func (c *Cohort) Subset(samples []int) *Cohort {
	ng := len(c.Genes)
	ret := &Cohort{
		Name:  c.Name,
		Genes: append([]string(nil), c.Genes...),
	}
	for _, i := range samples {
		ret.Samples = append(ret.Samples, c.Samples[i])
		ret.Time = append(ret.Time, c.Time[i])
		ret.Status = append(ret.Status, c.Status[i])
		ret.Expr = append(ret.Expr, c.Expr[i*ng:(i+1)*ng]...)
	}
	return ret
}

// KeepGenes drops every gene whose index is not listed. Indexes must
// be ascending.
func (c *Cohort) KeepGenes(keep []int) {
	ng := len(c.Genes)
	genes := make([]string, 0, len(keep))
	expr := make([]float64, 0, len(keep)*len(c.Samples))
	for i := range c.Samples {
		row := c.Expr[i*ng : (i+1)*ng]
		for _, j := range keep {
			expr = append(expr, row[j])
		}
	}
	for _, j := range keep {
		genes = append(genes, c.Genes[j])
	}
	c.Genes = genes
	c.Expr = expr
}

func WriteCohort(w io.Writer, c *Cohort, gz bool) error {
	bufw := bufio.NewWriterSize(w, 1<<20)
	var out io.Writer = bufw
	var gzw *pgzip.Writer
	if gz {
		gzw = pgzip.NewWriter(bufw)
		out = gzw
	}
	err := gob.NewEncoder(out).Encode(c)
	if err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if gzw != nil {
		err = gzw.Close()
		if err != nil {
			return err
		}
	}
	return bufw.Flush()
}

func ReadCohort(rdr io.Reader, gz bool) (*Cohort, error) {
	in := io.Reader(bufio.NewReaderSize(rdr, 1<<20))
	if gz {
		gzr, err := pgzip.NewReader(in)
		if err != nil {
			return nil, err
		}
		defer gzr.Close()
		in = gzr
	}
	var c Cohort
	err := gob.NewDecoder(in).Decode(&c)
	if err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	if err := c.Check(); err != nil {
		return nil, err
	}
	return &c, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
