// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

var chisquared = distuv.ChiSquared{K: 1, Src: rand.NewSource(rand.Uint64())}

// logrankPvalue tests whether the two sample groups (group[i] selects
// group membership) have different survival curves. Returns 1 when
// either group is empty or no events were observed.
func logrankPvalue(time []float64, status []bool, group []bool) float64 {
	type obs struct {
		time   float64
		status bool
		group  bool
	}
	all := make([]obs, len(time))
	n1 := 0
	for i := range time {
		all[i] = obs{time[i], status[i], group[i]}
		if group[i] {
			n1++
		}
	}
	if n1 == 0 || n1 == len(all) {
		return 1
	}
	sort.Slice(all, func(a, b int) bool { return all[a].time < all[b].time })

	var observed, expected, variance float64
	atRisk := float64(len(all))
	atRisk1 := float64(n1)
	for i := 0; i < len(all); {
		t := all[i].time
		var d, d1, removed, removed1 float64
		for ; i < len(all) && all[i].time == t; i++ {
			removed++
			if all[i].group {
				removed1++
			}
			if all[i].status {
				d++
				if all[i].group {
					d1++
				}
			}
		}
		if d > 0 && atRisk > 1 {
			p := atRisk1 / atRisk
			observed += d1
			expected += d * p
			variance += d * p * (1 - p) * (atRisk - d) / (atRisk - 1)
		}
		atRisk -= removed
		atRisk1 -= removed1
	}
	if variance <= 0 {
		return 1
	}
	diff := observed - expected
	return 1 - chisquared.CDF(diff*diff/variance)
}
