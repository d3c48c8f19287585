// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"gopkg.in/check.v1"
)

type logrankSuite struct{}

var _ = check.Suite(&logrankSuite{})

func (s *logrankSuite) TestSeparatedGroups(c *check.C) {
	// group true fails fast, group false survives
	var time []float64
	var status, group []bool
	for i := 0; i < 20; i++ {
		time = append(time, float64(i+1))
		status = append(status, true)
		group = append(group, true)
	}
	for i := 0; i < 20; i++ {
		time = append(time, float64(i+100))
		status = append(status, true)
		group = append(group, false)
	}
	p := logrankPvalue(time, status, group)
	c.Check(p < 1e-6, check.Equals, true)
}

func (s *logrankSuite) TestIdenticalGroups(c *check.C) {
	time := []float64{1, 1, 2, 2, 3, 3, 4, 4}
	status := []bool{true, true, true, true, true, true, false, false}
	group := []bool{true, false, true, false, true, false, true, false}
	p := logrankPvalue(time, status, group)
	c.Check(p > 0.9, check.Equals, true)
}

func (s *logrankSuite) TestDegenerate(c *check.C) {
	// one-sided membership
	c.Check(logrankPvalue([]float64{1, 2}, []bool{true, true}, []bool{true, true}), check.Equals, 1.0)
	c.Check(logrankPvalue([]float64{1, 2}, []bool{true, true}, []bool{false, false}), check.Equals, 1.0)
	// no events
	c.Check(logrankPvalue([]float64{1, 2}, []bool{false, false}, []bool{true, false}), check.Equals, 1.0)
}
