// Package estimate converts between the uncertain-data representation of a
// state estimate (one udata.UData per state component) and the gonum vector
// and matrix forms the estimation algorithms work in.
package estimate

import (
	"fmt"

	"github.com/milosgajdos/go-prognose/udata"
	"gonum.org/v1/gonum/mat"
)

// NewMeanCovar builds a state estimate in MeanCovar form: one UData per
// state component carrying the component mean and the full row of cov.
// It returns error if the mean and covariance dimensions do not match.
func NewMeanCovar(mean mat.Vector, cov mat.Symmetric) ([]udata.UData, error) {
	n := mean.Len()
	if cov.SymmetricDim() != n {
		return nil, fmt.Errorf("mean %d, covariance %d", n, cov.SymmetricDim())
	}

	state := make([]udata.UData, n)
	for i := range state {
		u := udata.New(udata.MeanCovar)
		u.SetNPoints(n)
		u.SetDist(udata.DistGaussian)
		if err := u.Set(udata.Mean, mean.AtVec(i)); err != nil {
			return nil, err
		}
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			row[j] = cov.At(i, j)
		}
		if err := u.SetVec(udata.Covar(0), row); err != nil {
			return nil, err
		}
		state[i] = *u
	}

	return state, nil
}

// MeanCovar reconstructs the mean vector and covariance matrix from a state
// estimate in MeanCovar form.
// It returns error if the estimate is empty, mixes kinds or carries
// inconsistent sizes.
func MeanCovar(state []udata.UData) (*mat.VecDense, *mat.SymDense, error) {
	n := len(state)
	if n == 0 {
		return nil, nil, fmt.Errorf("empty state estimate")
	}

	mean := mat.NewVecDense(n, nil)
	cov := mat.NewSymDense(n, nil)
	for i := range state {
		u := &state[i]
		if u.Kind() != udata.MeanCovar || u.NPoints() != n {
			return nil, nil, fmt.Errorf("state %d: kind %v npoints %d", i, u.Kind(), u.NPoints())
		}
		m, err := u.Get(udata.Mean)
		if err != nil {
			return nil, nil, err
		}
		mean.SetVec(i, m)
		for j := i; j < n; j++ {
			c, err := u.Get(udata.Covar(j))
			if err != nil {
				return nil, nil, err
			}
			cov.SetSym(i, j, c)
		}
	}

	return mean, cov, nil
}

// NewWSamples builds a state estimate in WSamples form from particles stored
// in the columns of x and their weights.
// It returns error if the weight length does not match the particle count.
func NewWSamples(x mat.Matrix, w []float64) ([]udata.UData, error) {
	rows, cols := x.Dims()
	if len(w) != cols {
		return nil, fmt.Errorf("weights %d, particles %d", len(w), cols)
	}

	state := make([]udata.UData, rows)
	for i := 0; i < rows; i++ {
		u := udata.New(udata.WSamples)
		u.SetNPoints(cols)
		for j := 0; j < cols; j++ {
			if err := u.SetPair(j, x.At(i, j), w[j]); err != nil {
				return nil, err
			}
		}
		state[i] = *u
	}

	return state, nil
}

// NewSamples builds a state estimate in Samples form from samples stored in
// the columns of x.
func NewSamples(x mat.Matrix) []udata.UData {
	rows, cols := x.Dims()

	state := make([]udata.UData, rows)
	for i := 0; i < rows; i++ {
		u := udata.New(udata.Samples)
		u.SetNPoints(cols)
		row := make([]float64, cols)
		for j := 0; j < cols; j++ {
			row[j] = x.At(i, j)
		}
		// length matches the container size by construction
		_ = u.SetAll(row)
		state[i] = *u
	}

	return state
}

// JointSamples reconstructs the joint sample matrix from a state estimate in
// Samples or WSamples form: column j holds the j-th joint sample across all
// state components. For WSamples the per-sample weights are returned too;
// for Samples the returned weights are uniform.
func JointSamples(state []udata.UData) (*mat.Dense, []float64, error) {
	n := len(state)
	if n == 0 {
		return nil, nil, fmt.Errorf("empty state estimate")
	}

	kind := state[0].Kind()
	cols := state[0].NPoints()
	x := mat.NewDense(n, cols, nil)
	for i := range state {
		u := &state[i]
		if u.Kind() != kind || u.NPoints() != cols {
			return nil, nil, fmt.Errorf("state %d: kind %v npoints %d", i, u.Kind(), u.NPoints())
		}
		samples, err := u.Samples()
		if err != nil {
			return nil, nil, err
		}
		for j, s := range samples {
			x.Set(i, j, s)
		}
	}

	var w []float64
	var err error
	if kind == udata.WSamples {
		w, err = state[0].Weights()
		if err != nil {
			return nil, nil, err
		}
	} else {
		w = make([]float64, cols)
		for j := range w {
			w[j] = 1 / float64(cols)
		}
	}

	return x, w, nil
}

// Point reconstructs the state vector from a state estimate in Point form.
func Point(state []udata.UData) (*mat.VecDense, error) {
	n := len(state)
	if n == 0 {
		return nil, fmt.Errorf("empty state estimate")
	}

	mean := mat.NewVecDense(n, nil)
	for i := range state {
		u := &state[i]
		if u.Kind() != udata.Point {
			return nil, fmt.Errorf("state %d: kind %v", i, u.Kind())
		}
		v, err := u.Get(0)
		if err != nil {
			return nil, err
		}
		mean.SetVec(i, v)
	}

	return mean, nil
}
