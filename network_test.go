// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"math"

	"gopkg.in/check.v1"
)

type networkSuite struct{}

var _ = check.Suite(&networkSuite{})

// three genes: g0 and g1 perfectly correlated, g2 independent-ish
func networkTestCohort() *Cohort {
	samples := []string{"s1", "s2", "s3", "s4", "s5", "s6"}
	g0 := []float64{1, 2, 3, 4, 5, 6}
	g1 := []float64{2, 4, 6, 8, 10, 12}
	g2 := []float64{5, -3, 4, -1, 2, -2}
	c := &Cohort{
		Samples: samples,
		Genes:   []string{"g0", "g1", "g2"},
		Expr:    make([]float64, 18),
		Time:    []float64{1, 2, 3, 4, 5, 6},
		Status:  []bool{true, true, true, false, true, false},
	}
	for i := range samples {
		c.Expr[i*3+0] = g0[i]
		c.Expr[i*3+1] = g1[i]
		c.Expr[i*3+2] = g2[i]
	}
	return c
}

func (s *networkSuite) TestDegrees(c *check.C) {
	cohort := networkTestCohort()
	deg := geneDegrees(cohort, false, 0)
	c.Assert(deg, check.HasLen, 3)
	// the correlated pair dominates
	c.Check(deg[0] > deg[2], check.Equals, true)
	c.Check(deg[1] > deg[2], check.Equals, true)
	c.Check(math.Abs(deg[0]-deg[1]) < 0.2, check.Equals, true)

	// cutoff drops weak edges but never adds degree
	cut := geneDegrees(cohort, false, 0.9)
	for j := range deg {
		c.Check(cut[j] <= deg[j]+1e-12, check.Equals, true)
	}
}

func (s *networkSuite) TestPenaltyFactors(c *check.C) {
	deg := []float64{0, 1, 2, 4}

	factors := penaltyFactors(deg, penaltyNone, 1)
	c.Check(factors, check.DeepEquals, []float64{1, 1, 1, 1})

	hub := penaltyFactors(deg, penaltyHub, 1)
	orphan := penaltyFactors(deg, penaltyOrphan, 1)
	for j := range deg {
		c.Check(hub[j] >= minPenaltyFactor, check.Equals, true)
		c.Check(hub[j] <= 1.0, check.Equals, true)
		c.Check(orphan[j] >= minPenaltyFactor, check.Equals, true)
		c.Check(orphan[j] <= 1.0, check.Equals, true)
	}
	// hub mode: more connected => cheaper
	c.Check(hub[3] < hub[0], check.Equals, true)
	c.Check(hub[3], check.Equals, minPenaltyFactor)
	// orphan mode: less connected => cheaper
	c.Check(orphan[0] < orphan[3], check.Equals, true)
	c.Check(orphan[0], check.Equals, minPenaltyFactor)
	c.Check(orphan[3], check.Equals, 1.0)
}

func (s *networkSuite) TestPenaltyFactorsDegenerate(c *check.C) {
	// all-zero degrees must not produce NaN weights
	factors := penaltyFactors([]float64{0, 0}, penaltyHub, 2)
	c.Check(factors, check.DeepEquals, []float64{1, 1})
	factors = penaltyFactors([]float64{0, 0}, penaltyOrphan, 2)
	c.Check(factors, check.DeepEquals, []float64{minPenaltyFactor, minPenaltyFactor})
}
