// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

//go:embed heatmap.py
var heatmapScript string

// renderHeatmap feeds the embedded matplotlib script a TSV table
// (leading label column, NA for unset cells) and writes a PNG.
func renderHeatmap(inputFilename, outputFilename, title string, stdout, stderr io.Writer) error {
	cmd := exec.Command("python3", "-", inputFilename, outputFilename, title)
	cmd.Stdin = strings.NewReader(heatmapScript)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

type heatmapcmd struct{}

func (cmd *heatmapcmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "", "input `table.tsv`")
	outputFilename := flags.String("o", "", "output `filename` (e.g., './heatmap.png')")
	title := flags.String("title", "", "plot `title`")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}
	if *inputFilename == "" || *outputFilename == "" {
		fmt.Fprintln(stderr, "error: must specify -i table.tsv and -o filename.png (or try -help)")
		return 1
	}
	err = renderHeatmap(*inputFilename, *outputFilename, *title, stdout, stderr)
	if err != nil {
		return 1
	}
	return 0
}
