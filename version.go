// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"fmt"
	"io"
)

// version is overridden at build time with -ldflags "-X sparsenet.version=...".
var version = "development"

type versionCmd struct{}

func (versionCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fmt.Fprintf(stdout, "%s %s\n", prog, version)
	return 0
}
