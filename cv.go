// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"fmt"
	"math"
	"math/rand"

	log "github.com/sirupsen/logrus"
)

type cvResult struct {
	Lambdas    []float64
	FoldCIndex [][]float64 // [fold][lambda]; NaN where the fit failed
	MeanCIndex []float64
	BestIndex  int
	BestLambda float64
}

// kfoldSplit partitions sample indexes into k folds, keeping the
// event/censored ratio roughly equal across folds.
func kfoldSplit(status []bool, k int, rnd *rand.Rand) [][]int {
	var events, censored []int
	for i, s := range status {
		if s {
			events = append(events, i)
		} else {
			censored = append(censored, i)
		}
	}
	rnd.Shuffle(len(events), func(a, b int) { events[a], events[b] = events[b], events[a] })
	rnd.Shuffle(len(censored), func(a, b int) { censored[a], censored[b] = censored[b], censored[a] })

	folds := make([][]int, k)
	for i, idx := range append(events, censored...) {
		folds[i%k] = append(folds[i%k], idx)
	}
	return folds
}

// crossValidate fits the lambda path on each training split and scores
// the held-out samples by concordance index. The winning lambda
// maximizes the mean held-out C-index.
func crossValidate(c *Cohort, factors []float64, lambdas []float64, alpha float64, k, maxGoroutines int, seed int64) (*cvResult, error) {
	if k < 2 {
		return nil, fmt.Errorf("cross-validation needs at least 2 folds, got %d", k)
	}
	if k > len(c.Samples) {
		return nil, fmt.Errorf("%d folds for %d samples", k, len(c.Samples))
	}
	folds := kfoldSplit(c.Status, k, rand.New(rand.NewSource(seed)))

	ret := &cvResult{
		Lambdas:    lambdas,
		FoldCIndex: make([][]float64, k),
	}
	limiter := throttle{Max: maxGoroutines}
	for fold := range folds {
		fold := fold
		limiter.Go(func() error {
			var train []int
			for other, idx := range folds {
				if other != fold {
					train = append(train, idx...)
				}
			}
			trainData := newCoxData(c.Subset(train))
			test := c.Subset(folds[fold])

			ci := make([]float64, len(lambdas))
			for i, lambda := range lambdas {
				coefs, err := trainData.fit(lambda, alpha, factors)
				if err != nil {
					log.Debugf("fold %d: %s", fold, err)
					ci[i] = math.NaN()
					continue
				}
				ci[i] = concordance(trainData.linearPredictors(test, coefs), test.Time, test.Status)
			}
			ret.FoldCIndex[fold] = ci
			return nil
		})
	}
	if err := limiter.Wait(); err != nil {
		return nil, err
	}

	ret.MeanCIndex = make([]float64, len(lambdas))
	ret.BestIndex = -1
	best := math.Inf(-1)
	for i := range lambdas {
		sum, n := 0.0, 0
		for fold := range folds {
			if v := ret.FoldCIndex[fold][i]; !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			ret.MeanCIndex[i] = math.NaN()
			continue
		}
		ret.MeanCIndex[i] = sum / float64(n)
		if ret.MeanCIndex[i] > best {
			best = ret.MeanCIndex[i]
			ret.BestIndex = i
		}
	}
	if ret.BestIndex < 0 {
		return nil, fmt.Errorf("no lambda in the path produced a usable fit")
	}
	ret.BestLambda = lambdas[ret.BestIndex]
	return ret, nil
}

// concordance is Harrell's C-index: among sample pairs whose survival
// order is known, the fraction where the higher-risk sample fails
// first. Ties in risk count half. Returns 0.5 when no pair is usable.
func concordance(risk, time []float64, status []bool) float64 {
	var usable, score float64
	for i := range risk {
		if !status[i] {
			continue
		}
		for j := range risk {
			if i == j {
				continue
			}
			// sample i fails at time[i]; j survives past it
			if time[j] < time[i] || (time[j] == time[i] && status[j]) {
				continue
			}
			usable++
			if risk[i] > risk[j] {
				score++
			} else if risk[i] == risk[j] {
				score += 0.5
			}
		}
	}
	if usable == 0 {
		return 0.5
	}
	return score / usable
}
