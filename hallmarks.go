// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// The annotation service returns one block per queried gene: a header
// line "<gene><TAB><measure>" followed by zero or more detail lines
// "<hallmark><TAB><value>", until the next header or end of stream.

var hallmarkGeneToken = regexp.MustCompile(`^[A-Za-z0-9._,-]+$`)

// ParseError reports a line of the annotation response that could not
// be interpreted.
type ParseError struct {
	Line int    // 1-based position in the response
	Text string // offending line, verbatim
	Gene string // gene whose block contains the line ("" if none)
	Err  error
}

func (e *ParseError) Error() string {
	if e.Gene == "" {
		return fmt.Sprintf("line %d %q: %s", e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("line %d %q (gene %s): %s", e.Line, e.Text, e.Gene, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// HallmarkTable is a gene-by-hallmark matrix of annotation counts.
// Cells that were absent from the response are unset, not zero.
type HallmarkTable struct {
	genes   []string
	columns []string
	cells   []map[string]float64 // parallel to genes
}

type hallmarkDetail struct {
	line int
	text string
}

type hallmarkBlock struct {
	gene    string
	details []hallmarkDetail
}

// ParseHallmarks converts the line-split body of an annotation service
// response into a HallmarkTable. measure is the metric name that marks
// header lines ("<gene><TAB><measure>").
//
// An empty input yields an empty table. A detail line with a
// non-numeric value, or a non-blank line preceding the first header,
// returns a *ParseError.
func ParseHallmarks(lines []string, measure string) (*HallmarkTable, error) {
	suffix := "\t" + measure

	// First pass: partition into per-gene blocks. Every non-header
	// line belongs to the most recently seen header.
	var blocks []*hallmarkBlock
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if gene, ok := hallmarkHeader(line, suffix); ok {
			blocks = append(blocks, &hallmarkBlock{gene: gene})
			continue
		}
		if len(blocks) == 0 {
			return nil, &ParseError{Line: i + 1, Text: line, Err: fmt.Errorf("detail line before any gene header")}
		}
		cur := blocks[len(blocks)-1]
		cur.details = append(cur.details, hallmarkDetail{line: i + 1, text: line})
	}

	// Second pass: parse detail values and accumulate the column set
	// in first-seen order.
	tbl := &HallmarkTable{}
	seen := map[string]bool{}
	for _, b := range blocks {
		row := map[string]float64{}
		for _, d := range b.details {
			sep := strings.IndexByte(d.text, '\t')
			if sep < 0 {
				return nil, &ParseError{Line: d.line, Text: d.text, Gene: b.gene, Err: fmt.Errorf("missing value field")}
			}
			name := d.text[:sep]
			v, err := strconv.ParseFloat(strings.TrimSpace(d.text[sep+1:]), 64)
			if err != nil {
				return nil, &ParseError{Line: d.line, Text: d.text, Gene: b.gene, Err: fmt.Errorf("value is not numeric: %w", err)}
			}
			// Duplicate hallmark within one block: last write wins,
			// matching the upstream service's own summaries.
			row[name] = v
			if !seen[name] {
				seen[name] = true
				tbl.columns = append(tbl.columns, name)
			}
		}
		tbl.genes = append(tbl.genes, b.gene)
		tbl.cells = append(tbl.cells, row)
	}
	return tbl, nil
}

func hallmarkHeader(line, suffix string) (string, bool) {
	if !strings.HasSuffix(line, suffix) {
		return "", false
	}
	gene := strings.TrimSuffix(line, suffix)
	if !hallmarkGeneToken.MatchString(gene) {
		return "", false
	}
	return gene, true
}

// Genes returns the row labels in response order.
func (t *HallmarkTable) Genes() []string {
	return append([]string(nil), t.genes...)
}

// Columns returns the hallmark names in first-seen order.
func (t *HallmarkTable) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Value returns the cell for (gene, hallmark) and whether it is set.
// If the same gene appeared in more than one block, the first block
// wins.
func (t *HallmarkTable) Value(gene, hallmark string) (float64, bool) {
	for i, g := range t.genes {
		if g == gene {
			v, ok := t.cells[i][hallmark]
			return v, ok
		}
	}
	return 0, false
}

// NoHallmarks returns the genes whose rows carry no information: every
// cell unset, zero, or non-finite. Sorted.
func (t *HallmarkTable) NoHallmarks() []string {
	var ret []string
	for i, gene := range t.genes {
		informative := false
		for _, v := range t.cells[i] {
			if v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
				informative = true
				break
			}
		}
		if !informative {
			ret = append(ret, gene)
		}
	}
	sort.Strings(ret)
	return ret
}

// Normalized returns a copy of the table with each row rescaled to its
// share of the row total. Rows with a zero or non-finite total keep
// all cells unset.
func (t *HallmarkTable) Normalized() *HallmarkTable {
	ret := &HallmarkTable{
		genes:   append([]string(nil), t.genes...),
		columns: append([]string(nil), t.columns...),
	}
	for _, row := range t.cells {
		total := 0.0
		for _, v := range row {
			total += v
		}
		scaled := map[string]float64{}
		if total != 0 && !math.IsNaN(total) && !math.IsInf(total, 0) {
			for name, v := range row {
				scaled[name] = v / total
			}
		}
		ret.cells = append(ret.cells, scaled)
	}
	return ret
}

// WriteTSV writes the table with a leading "gene" column. Unset cells
// are written as "NA". Rows are sorted by gene so output is stable
// regardless of response order.
func (t *HallmarkTable) WriteTSV(out io.Writer) error {
	order := make([]int, len(t.genes))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return t.genes[order[a]] < t.genes[order[b]] })

	if _, err := fmt.Fprintf(out, "gene\t%s\n", strings.Join(t.columns, "\t")); err != nil {
		return err
	}
	for _, i := range order {
		fields := make([]string, 0, len(t.columns)+1)
		fields = append(fields, t.genes[i])
		for _, col := range t.columns {
			if v, ok := t.cells[i][col]; ok {
				fields = append(fields, strconv.FormatFloat(v, 'g', -1, 64))
			} else {
				fields = append(fields, "NA")
			}
		}
		if _, err := fmt.Fprintln(out, strings.Join(fields, "\t")); err != nil {
			return err
		}
	}
	return nil
}
