// Package rnd provides random sampling helpers used by the particle filter
// and the Monte Carlo predictor.
package rnd

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// RouletteDrawN draws n numbers randomly from a probability mass function (PMF) defined by weights in p.
// RouletteDrawN implements the Roulette Wheel Draw a.k.a. Fitness Proportionate Selection:
// https://en.wikipedia.org/wiki/Fitness_proportionate_selection
// It returns a slice of n indices into the vector p.
// It fails with error if p is empty or nil.
func RouletteDrawN(p []float64, n int) ([]int, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("invalid probability weights: %v", p)
	}

	// Initialization: create the discrete CDF
	// We know that cdf is sorted in ascending order
	cdf := make([]float64, len(p))
	floats.CumSum(cdf, p)

	// Generation:
	// 1. Generate a uniformly-random value x in the range [0,1)
	// 2. Using a binary search, find the index of the smallest element in cdf larger than x
	var val float64
	indices := make([]int, n)
	for i := range indices {
		// multiply the sample with the largest CDF value; easier than normalizing to [0,1)
		val = distuv.UnitUniform.Rand() * cdf[len(cdf)-1]
		// Search returns the smallest index i such that cdf[i] > val
		indices[i] = sort.Search(len(cdf), func(i int) bool { return cdf[i] > val })
	}

	return indices, nil
}

// SystematicResampleN resamples the probability mass function defined by the
// normalised weights in w using systematic resampling: a single uniform draw
// u0 in [0, 1/n) positions n evenly spaced pointers u0 + k/n over the
// cumulative weights. It returns a slice of n indices into w.
// It fails with error if w is empty or n is non-positive.
func SystematicResampleN(w []float64, n int) ([]int, error) {
	if len(w) == 0 {
		return nil, fmt.Errorf("invalid probability weights: %v", w)
	}
	if n <= 0 {
		return nil, fmt.Errorf("invalid number of samples requested: %d", n)
	}

	cdf := make([]float64, len(w))
	floats.CumSum(cdf, w)

	u0 := distuv.UnitUniform.Rand() / float64(n)
	indices := make([]int, n)
	j := 0
	for k := range indices {
		u := u0 + float64(k)/float64(n)
		for j < len(cdf)-1 && cdf[j] < u {
			j++
		}
		indices[k] = j
	}

	return indices, nil
}
