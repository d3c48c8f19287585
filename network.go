// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// A penaltyMode selects how the gene-gene correlation network is
// folded into the per-gene regularization weights.
type penaltyMode int

const (
	// penaltyNone applies the same weight to every gene.
	penaltyNone penaltyMode = iota
	// penaltyHub penalizes well-connected genes less, favoring hubs
	// in the selected signature.
	penaltyHub
	// penaltyOrphan penalizes poorly-connected genes less.
	penaltyOrphan
)

func parsePenaltyMode(s string) (penaltyMode, error) {
	switch s {
	case "none":
		return penaltyNone, nil
	case "hub":
		return penaltyHub, nil
	case "orphan":
		return penaltyOrphan, nil
	}
	return 0, fmt.Errorf("unrecognized penalty mode %q (want none, hub, or orphan)", s)
}

func (m penaltyMode) String() string {
	switch m {
	case penaltyHub:
		return "hub"
	case penaltyOrphan:
		return "orphan"
	default:
		return "none"
	}
}

// geneDegrees returns, for each gene, the sum of absolute pairwise
// correlations (or covariances) with every other gene. Pairs below
// cutoff in absolute value do not contribute. Self-edges are excluded.
func geneDegrees(c *Cohort, useCovariance bool, cutoff float64) []float64 {
	ng := len(c.Genes)
	cols := make([][]float64, ng)
	for j := 0; j < ng; j++ {
		cols[j] = c.GeneColumn(j)
	}
	deg := make([]float64, ng)
	for a := 0; a < ng; a++ {
		for b := a + 1; b < ng; b++ {
			var edge float64
			if useCovariance {
				edge = stat.Covariance(cols[a], cols[b], nil)
			} else {
				edge = stat.Correlation(cols[a], cols[b], nil)
			}
			edge = math.Abs(edge)
			if math.IsNaN(edge) || edge < cutoff {
				continue
			}
			deg[a] += edge
			deg[b] += edge
		}
	}
	return deg
}

const minPenaltyFactor = 1e-6

// penaltyFactors maps degrees to per-gene L1 weights in
// [minPenaltyFactor, 1]. Degrees are rescaled by the maximum before
// the mode transform is applied.
func penaltyFactors(deg []float64, mode penaltyMode, gamma float64) []float64 {
	factors := make([]float64, len(deg))
	if mode == penaltyNone {
		for i := range factors {
			factors[i] = 1
		}
		return factors
	}
	max := 0.0
	for _, d := range deg {
		if d > max {
			max = d
		}
	}
	for i, d := range deg {
		var norm float64
		if max > 0 {
			norm = d / max
		}
		var w float64
		switch mode {
		case penaltyHub:
			w = math.Pow(1-norm, gamma)
		case penaltyOrphan:
			w = math.Pow(norm, gamma)
		}
		if math.IsNaN(w) || w < minPenaltyFactor {
			w = minPenaltyFactor
		} else if w > 1 {
			w = 1
		}
		factors[i] = w
	}
	return factors
}
