// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"bytes"
	"encoding/json"

	"gopkg.in/check.v1"
)

type statsSuite struct{}

var _ = check.Suite(&statsSuite{})

func (s *statsSuite) TestDoStats(c *check.C) {
	cohort := &Cohort{
		Name:    "PRAD",
		Samples: []string{"s1", "s2", "s3", "s4"},
		Genes:   []string{"g1", "g2"},
		Expr:    []float64{1, 2, 3, 4, 5, 6, 7, 8},
		Time:    []float64{10, 40, 20, 30},
		Status:  []bool{true, false, true, false},
	}
	var buf bytes.Buffer
	err := (&statscmd{}).doStats(cohort, &buf)
	c.Assert(err, check.IsNil)

	var got struct {
		Cohort            string
		Samples           int
		Genes             int
		Events            int
		Censored          int
		FollowupQuartiles [3]float64
		MeanExpr          float64
	}
	c.Assert(json.Unmarshal(buf.Bytes(), &got), check.IsNil)
	c.Check(got.Cohort, check.Equals, "PRAD")
	c.Check(got.Samples, check.Equals, 4)
	c.Check(got.Genes, check.Equals, 2)
	c.Check(got.Events, check.Equals, 2)
	c.Check(got.Censored, check.Equals, 2)
	c.Check(got.FollowupQuartiles[1], check.Equals, 20.0)
	c.Check(got.MeanExpr, check.Equals, 4.5)
}

func (s *statsSuite) TestDoStatsEmpty(c *check.C) {
	var buf bytes.Buffer
	err := (&statscmd{}).doStats(&Cohort{}, &buf)
	c.Assert(err, check.IsNil)
	var got map[string]interface{}
	c.Assert(json.Unmarshal(buf.Bytes(), &got), check.IsNil)
	c.Check(got["Samples"], check.Equals, 0.0)
}
