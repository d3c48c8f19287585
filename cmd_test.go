// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"bytes"

	"gopkg.in/check.v1"
)

type cmdSuite struct{}

var _ = check.Suite(&cmdSuite{})

func (s *cmdSuite) TestUnknownSubcommand(c *check.C) {
	var stderr bytes.Buffer
	exited := handler.RunCommand("sparsenet", []string{"frobnicate"}, &bytes.Buffer{}, &bytes.Buffer{}, &stderr)
	c.Check(exited, check.Equals, 2)
	c.Check(stderr.String(), check.Matches, `(?ms).*unrecognized subcommand "frobnicate".*`)
	c.Check(stderr.String(), check.Matches, `(?ms).*hallmarks.*`)
}

func (s *cmdSuite) TestNoSubcommand(c *check.C) {
	var stderr bytes.Buffer
	exited := handler.RunCommand("sparsenet", nil, &bytes.Buffer{}, &bytes.Buffer{}, &stderr)
	c.Check(exited, check.Equals, 2)
	c.Check(stderr.String(), check.Matches, `(?ms)usage: sparsenet subcommand.*`)
}

func (s *cmdSuite) TestVersion(c *check.C) {
	var stdout bytes.Buffer
	exited := handler.RunCommand("sparsenet", []string{"version"}, &bytes.Buffer{}, &stdout, &bytes.Buffer{})
	c.Check(exited, check.Equals, 0)
	c.Check(stdout.String(), check.Matches, `sparsenet version \S+\n`)
}
