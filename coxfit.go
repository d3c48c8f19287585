// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"fmt"
	"math"
	"sort"

	"github.com/kshedden/statmodel/duration"
	"github.com/kshedden/statmodel/statmodel"
	"gonum.org/v1/gonum/stat"
)

// coxData is a cohort arranged for the proportional-hazards fitter:
// time and status columns followed by one standardized column per
// gene. Standardization parameters are kept so held-out samples can be
// scored on the same scale.
type coxData struct {
	genes []string
	names []string
	data  [][]statmodel.Dtype
	mean  []float64
	std   []float64
}

func newCoxData(c *Cohort) *coxData {
	ns := len(c.Samples)
	time := make([]statmodel.Dtype, ns)
	status := make([]statmodel.Dtype, ns)
	for i := range c.Samples {
		time[i] = c.Time[i]
		if c.Status[i] {
			status[i] = 1
		}
	}
	cd := &coxData{
		genes: append([]string(nil), c.Genes...),
		names: []string{"time", "status"},
		data:  [][]statmodel.Dtype{time, status},
	}
	for j, gene := range c.Genes {
		col := c.GeneColumn(j)
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		for i, x := range col {
			col[i] = (x - mean) / std
		}
		cd.data = append(cd.data, col)
		cd.names = append(cd.names, gene)
		cd.mean = append(cd.mean, mean)
		cd.std = append(cd.std, std)
	}
	return cd
}

// fit runs one penalized Cox regression. The per-gene L1 weight is
// lambda*alpha*factors[j]; the shared ridge weight is
// lambda*(1-alpha)/2. Fitter panics (singular designs, non-converging
// paths) surface as errors, not crashes.
func (cd *coxData) fit(lambda, alpha float64, factors []float64) (coefs []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			coefs, err = nil, fmt.Errorf("phreg fit at lambda=%g: %v", lambda, r)
		}
	}()
	l1 := make(map[string]float64, len(cd.genes))
	l2 := make(map[string]float64, len(cd.genes))
	for j, gene := range cd.genes {
		l1[gene] = lambda * alpha * factors[j]
		l2[gene] = lambda * (1 - alpha) / 2
	}
	dataset := statmodel.NewDataset(cd.data, cd.names)
	model, err := duration.NewPHReg(dataset, "time", "status", cd.genes, &duration.PHRegConfig{
		L1Penalty: l1,
		L2Penalty: l2,
	})
	if err != nil {
		return nil, err
	}
	result, err := model.Fit()
	if err != nil {
		return nil, err
	}
	params := result.Params()
	return append([]float64(nil), params...), nil
}

// linearPredictors scores a cohort with the given coefficients, using
// this coxData's standardization.
func (cd *coxData) linearPredictors(c *Cohort, coefs []float64) []float64 {
	lp := make([]float64, len(c.Samples))
	ng := len(c.Genes)
	for i := range c.Samples {
		sum := 0.0
		for j := 0; j < ng; j++ {
			sum += coefs[j] * (c.Expr[i*ng+j] - cd.mean[j]) / cd.std[j]
		}
		lp[i] = sum
	}
	return lp
}

// nullScores returns, per gene, the absolute score statistic of the
// null Cox model (all coefficients zero): for each event, the gene's
// standardized expression minus its mean over the risk set.
func (cd *coxData) nullScores() []float64 {
	time := cd.data[0]
	status := cd.data[1]
	order := make([]int, len(time))
	for i := range order {
		order[i] = i
	}
	// descending by time, so the risk set grows as we walk
	sort.Slice(order, func(a, b int) bool { return time[order[a]] > time[order[b]] })

	ng := len(cd.genes)
	scores := make([]float64, ng)
	sums := make([]float64, ng)
	inRisk := 0.0
	for k := 0; k < len(order); {
		t := time[order[k]]
		first := k
		for ; k < len(order) && time[order[k]] == t; k++ {
			i := order[k]
			for j := 0; j < ng; j++ {
				sums[j] += cd.data[2+j][i]
			}
			inRisk++
		}
		for kk := first; kk < k; kk++ {
			i := order[kk]
			if status[i] == 0 {
				continue
			}
			for j := 0; j < ng; j++ {
				scores[j] += cd.data[2+j][i] - sums[j]/inRisk
			}
		}
	}
	for j := range scores {
		scores[j] = math.Abs(scores[j])
	}
	return scores
}

// lambdaPath builds n log-spaced penalty strengths from the smallest
// lambda that zeroes out every coefficient down to ratio times that.
func (cd *coxData) lambdaPath(factors []float64, alpha float64, n int, ratio float64) []float64 {
	if alpha <= 0 {
		alpha = 1e-3
	}
	scores := cd.nullScores()
	lmax := 0.0
	for j, s := range scores {
		if factors[j] <= 0 {
			continue
		}
		if l := s / (float64(len(cd.data[0])) * alpha * factors[j]); l > lmax {
			lmax = l
		}
	}
	if lmax <= 0 || math.IsNaN(lmax) {
		lmax = 1
	}
	// Weights below 1 only discount individual genes; keep the top of
	// the path at the unweighted maximum so the first fit is all-zero.
	lambdas := make([]float64, n)
	if n == 1 {
		lambdas[0] = lmax
		return lambdas
	}
	step := math.Log(ratio) / float64(n-1)
	for i := range lambdas {
		lambdas[i] = lmax * math.Exp(step*float64(i))
	}
	return lambdas
}

// fitPath fits the whole path, up to maxGoroutines lambdas at a time.
// Entries that fail to converge are nil.
func (cd *coxData) fitPath(lambdas []float64, alpha float64, factors []float64, maxGoroutines int) [][]float64 {
	coefs := make([][]float64, len(lambdas))
	limiter := throttle{Max: maxGoroutines}
	for i := range lambdas {
		i := i
		limiter.Go(func() error {
			c, err := cd.fit(lambdas[i], alpha, factors)
			if err == nil {
				coefs[i] = c
			}
			// a failed lambda leaves a nil entry; the rest of the
			// path is still useful
			return nil
		})
	}
	limiter.Wait()
	return coefs
}

func nonzero(coefs []float64) int {
	n := 0
	for _, c := range coefs {
		if c != 0 {
			n++
		}
	}
	return n
}
