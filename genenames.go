// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/net/context/ctxhttp"
)

const defaultMartURL = "https://www.ensembl.org/biomart/martservice"

// GeneName pairs a stable Ensembl gene ID with its display name.
type GeneName struct {
	EnsemblGeneID    string
	ExternalGeneName string
}

// NameSource says where a NameTable came from.
type NameSource string

const (
	// SourceLookup: the biomart service answered.
	SourceLookup NameSource = "biomart"
	// SourceFallback: lookup failed; names are the input IDs.
	SourceFallback NameSource = "fallback"
)

// NameTable is the outcome of a gene-name resolution. With
// SourceLookup the rows are sorted by display name; with
// SourceFallback they keep the input order and every display name
// equals its ID.
type NameTable struct {
	Source NameSource
	Rows   []GeneName
}

// NameResolver maps stable gene IDs to display names via a biomart
// martservice endpoint. Lookups are memoized per resolver, keyed by
// the exact input list. Failures never propagate: the zero-information
// fallback table is always available.
type NameResolver struct {
	MartURL string        // default defaultMartURL
	Dataset string        // default "hsapiens_gene_ensembl"
	Client  *http.Client  // default http.DefaultClient
	Timeout time.Duration // per lookup; default 30s

	mtx   sync.Mutex
	cache map[[blake2b.Size256]byte]*NameTable
}

// Resolve never fails: when the service is unreachable, answers
// malformed, or any requested ID is missing from the answer, it
// returns the identity fallback instead.
func (r *NameResolver) Resolve(ctx context.Context, ids []string) *NameTable {
	key := blake2b.Sum256([]byte(strings.Join(ids, "\x00")))
	r.mtx.Lock()
	if cached, ok := r.cache[key]; ok {
		r.mtx.Unlock()
		return cached
	}
	r.mtx.Unlock()

	table, err := r.lookup(ctx, ids)
	if err != nil {
		log.Debugf("gene name lookup: %s", err)
		table = fallbackNames(ids)
	}
	r.mtx.Lock()
	if r.cache == nil {
		r.cache = map[[blake2b.Size256]byte]*NameTable{}
	}
	r.cache[key] = table
	r.mtx.Unlock()
	return table
}

func fallbackNames(ids []string) *NameTable {
	ret := &NameTable{Source: SourceFallback}
	for _, id := range ids {
		ret.Rows = append(ret.Rows, GeneName{EnsemblGeneID: id, ExternalGeneName: id})
	}
	return ret
}

func (r *NameResolver) lookup(ctx context.Context, ids []string) (*NameTable, error) {
	martURL := r.MartURL
	if martURL == "" {
		martURL = defaultMartURL
	}
	dataset := r.Dataset
	if dataset == "" {
		dataset = "hsapiens_gene_ensembl"
	}
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := r.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	query := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE Query>
<Query virtualSchemaName="default" formatter="TSV" header="0" uniqueRows="1">
  <Dataset name="%s" interface="default">
    <Filter name="ensembl_gene_id" value="%s"/>
    <Attribute name="external_gene_name"/>
    <Attribute name="ensembl_gene_id"/>
  </Dataset>
</Query>`, dataset, strings.Join(ids, ","))

	form := url.Values{"query": {query}}
	resp, err := ctxhttp.Post(ctx, client, martURL, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("martservice: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	byID := map[string]string{}
	for _, line := range strings.Split(string(body), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			return nil, fmt.Errorf("martservice: unexpected line %q", line)
		}
		byID[fields[1]] = fields[0]
	}

	ret := &NameTable{Source: SourceLookup}
	for _, id := range ids {
		name, ok := byID[id]
		if !ok || name == "" {
			// requested gene missing from the answer keeps its ID
			name = id
		}
		ret.Rows = append(ret.Rows, GeneName{EnsemblGeneID: id, ExternalGeneName: name})
	}
	sort.Slice(ret.Rows, func(a, b int) bool { return ret.Rows[a].ExternalGeneName < ret.Rows[b].ExternalGeneName })
	return ret, nil
}

type geneNamesCmd struct{}

func (cmd *geneNamesCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	idList := flags.String("ids", "", "comma-separated stable gene `IDs`")
	idsFile := flags.String("ids-file", "", "`file` with one stable gene ID per line (- for stdin)")
	martURL := flags.String("mart-url", defaultMartURL, "biomart martservice `URL`")
	martDataset := flags.String("dataset", "hsapiens_gene_ensembl", "biomart dataset `name`")
	outputFilename := flags.String("o", "-", "output `file` (CSV)")
	timeout := flags.Duration("timeout", 30*time.Second, "lookup `timeout`")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}

	ids, err := gatherIDs(*idList, *idsFile, stdin)
	if err != nil {
		return 1
	}
	if len(ids) == 0 {
		fmt.Fprintln(stderr, "nothing to resolve: need -ids or -ids-file")
		return 2
	}

	resolver := &NameResolver{MartURL: *martURL, Dataset: *martDataset, Timeout: *timeout}
	table := resolver.Resolve(context.Background(), ids)
	if table.Source == SourceFallback {
		log.Warn("lookup service unavailable, falling back to stable IDs")
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
	w := csv.NewWriter(output)
	err = w.Write([]string{"external_gene_name", "ensembl_gene_id"})
	if err != nil {
		return 1
	}
	for _, row := range table.Rows {
		err = w.Write([]string{row.ExternalGeneName, row.EnsemblGeneID})
		if err != nil {
			return 1
		}
	}
	w.Flush()
	err = w.Error()
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}

func gatherIDs(idList, idsFile string, stdin io.Reader) ([]string, error) {
	var ids []string
	for _, id := range strings.Split(idList, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if idsFile == "" {
		return ids, nil
	}
	var rdr io.Reader
	if idsFile == "-" {
		rdr = stdin
	} else {
		f, err := os.Open(idsFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		rdr = f
	}
	scanner := bufio.NewScanner(rdr)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, scanner.Err()
}
