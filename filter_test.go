// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"math"

	"gopkg.in/check.v1"
)

type filterSuite struct{}

var _ = check.Suite(&filterSuite{})

func filterTestCohort() *Cohort {
	// flat: constant 5
	// low: small wiggle around 0
	// loud: wide spread
	c := &Cohort{
		Samples: []string{"s1", "s2", "s3", "s4"},
		Genes:   []string{"flat", "low", "loud"},
		Time:    []float64{1, 2, 3, 4},
		Status:  []bool{true, false, true, false},
	}
	rows := [][]float64{
		{5, 0.1, -10},
		{5, -0.1, 10},
		{5, 0.2, -20},
		{5, -0.2, 20},
	}
	for _, row := range rows {
		c.Expr = append(c.Expr, row...)
	}
	return c
}

func (s *filterSuite) TestMinVariance(c *check.C) {
	cohort := filterTestCohort()
	f := geneFilter{MinVariance: 1, MinMedian: math.Inf(-1), TopMAD: -1}
	f.Apply(cohort)
	c.Check(cohort.Genes, check.DeepEquals, []string{"loud"})
	c.Check(cohort.Expr, check.DeepEquals, []float64{-10, 10, -20, 20})
	c.Check(cohort.Check(), check.IsNil)
}

func (s *filterSuite) TestMinMedian(c *check.C) {
	cohort := filterTestCohort()
	f := geneFilter{MinMedian: 1, TopMAD: -1}
	f.Apply(cohort)
	c.Check(cohort.Genes, check.DeepEquals, []string{"flat"})
}

func (s *filterSuite) TestTopMAD(c *check.C) {
	cohort := filterTestCohort()
	f := geneFilter{MinMedian: math.Inf(-1), TopMAD: 1}
	f.Apply(cohort)
	c.Check(cohort.Genes, check.DeepEquals, []string{"loud"})
}

func (s *filterSuite) TestNoopKeepsEverything(c *check.C) {
	cohort := filterTestCohort()
	f := geneFilter{MinMedian: math.Inf(-1), TopMAD: -1}
	f.Apply(cohort)
	c.Check(cohort.Genes, check.DeepEquals, []string{"flat", "low", "loud"})
	c.Check(cohort.Check(), check.IsNil)
}
