// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/context/ctxhttp"
)

const defaultHallmarksURL = "http://chat.lionproject.net"

// HallmarksClient fetches "hallmarks of cancer" annotation counts for
// a list of genes. One blocking request per Fetch, no retries; parsing
// is left to ParseHallmarks.
type HallmarksClient struct {
	BaseURL string       // default defaultHallmarksURL
	Client  *http.Client // default http.DefaultClient
}

func (cl *HallmarksClient) Fetch(ctx context.Context, genes []string, measure string) (*HallmarkTable, error) {
	base := cl.BaseURL
	if base == "" {
		base = defaultHallmarksURL
	}
	client := cl.Client
	if client == nil {
		client = http.DefaultClient
	}
	query := url.Values{
		"q":       {strings.Join(genes, ",")},
		"measure": {measure},
	}
	resp, err := ctxhttp.Get(ctx, client, base+"/chartdata?"+query.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hallmarks service: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return ParseHallmarks(strings.Split(string(body), "\n"), measure)
}

type hallmarkscmd struct{}

func (cmd *hallmarkscmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	geneList := flags.String("genes", "", "comma-separated gene `names`")
	genesFile := flags.String("genes-file", "", "`file` with one gene name per line (- for stdin)")
	baseURL := flags.String("url", defaultHallmarksURL, "annotation service `URL`")
	measure := flags.String("measure", "count", "metric `name` to request")
	normalized := flags.Bool("normalized", false, "write row-normalized shares instead of raw counts")
	outputFilename := flags.String("o", "-", "output `file` (TSV)")
	heatmapFilename := flags.String("heatmap", "", "also render a heatmap to `file` (PNG, requires python3)")
	timeout := flags.Duration("timeout", 30*time.Second, "fetch `timeout`")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}

	genes, err := gatherIDs(*geneList, *genesFile, stdin)
	if err != nil {
		return 1
	}
	if len(genes) == 0 {
		fmt.Fprintln(stderr, "nothing to query: need -genes or -genes-file")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	client := &HallmarksClient{BaseURL: *baseURL}
	log.Printf("querying hallmarks for %d genes", len(genes))
	table, err := client.Fetch(ctx, genes, *measure)
	if err != nil {
		return 1
	}
	if missing := table.NoHallmarks(); len(missing) > 0 {
		log.Printf("genes without hallmark annotations: %s", strings.Join(missing, ", "))
	}
	if *normalized {
		table = table.Normalized()
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
	err = table.WriteTSV(bufw)
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

	if *heatmapFilename != "" {
		tsvPath := *outputFilename
		if tsvPath == "-" {
			tmpdir, tmperr := os.MkdirTemp("", "")
			if tmperr != nil {
				err = tmperr
				return 1
			}
			defer os.RemoveAll(tmpdir)
			tsvPath = filepath.Join(tmpdir, "hallmarks.tsv")
			f, ferr := os.Create(tsvPath)
			if ferr != nil {
				err = ferr
				return 1
			}
			err = table.WriteTSV(f)
			if err != nil {
				f.Close()
				return 1
			}
			err = f.Close()
			if err != nil {
				return 1
			}
		}
		err = renderHeatmap(tsvPath, *heatmapFilename, "hallmarks of cancer", stdout, stderr)
		if err != nil {
			return 1
		}
		log.Printf("wrote %s", *heatmapFilename)
	}
	return 0
}
