// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Handler is implemented by each subcommand.
type Handler interface {
	RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int
}

type multi map[string]Handler

func (m multi) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintf(stderr, "usage: %s subcommand [options]\n", prog)
		m.usage(stderr)
		return 2
	}
	cmd, ok := m[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "%s: unrecognized subcommand %q\n", prog, args[0])
		m.usage(stderr)
		return 2
	}
	return cmd.RunCommand(prog+" "+args[0], args[1:], stdin, stdout, stderr)
}

func (m multi) usage(out io.Writer) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(out, "\nAvailable subcommands:")
	for _, name := range names {
		fmt.Fprintf(out, "    %s\n", name)
	}
}

var handler = multi(map[string]Handler{
	"version":   versionCmd{},
	"-version":  versionCmd{},
	"--version": versionCmd{},

	"import":       &importer{},
	"export-numpy": &exportNumpy{},
	"filter":       &filtercmd{},
	"stats":        &statscmd{},
	"pca":          &pcacmd{},
	"fit":          &fitcmd{},
	"gene-names":   &geneNamesCmd{},
	"hallmarks":    &hallmarkscmd{},
	"heatmap":      &heatmapcmd{},
})

func Main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		logrus.StandardLogger().Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	}
	os.Exit(handler.RunCommand(os.Args[0], os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
