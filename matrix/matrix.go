// Package matrix provides the dense linear algebra helpers used by the
// estimation pipeline: weighted first and second moments, and guarded
// Cholesky and inverse factorizations with typed failure kinds.
package matrix

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDimensionMismatch is returned on incompatible matrix or vector shapes
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrSingular is returned when a matrix cannot be inverted
	ErrSingular = errors.New("singular matrix")
	// ErrNotSPD is returned when a Cholesky factorization fails
	ErrNotSPD = errors.New("matrix not symmetric positive definite")
)

// Format returns matrix formatter for printing matrices
func Format(m mat.Matrix) fmt.Formatter {
	return mat.Formatted(m, mat.Prefix(""), mat.Squeeze())
}

// WeightedMean returns the weighted mean of the columns of x:
// the r×1 column equal to sum_j w[j]*col(j).
// The caller supplies normalised weights.
// It returns error if the length of w does not match the number of columns of x.
func WeightedMean(x mat.Matrix, w []float64) (*mat.VecDense, error) {
	rows, cols := x.Dims()
	if len(w) != cols {
		return nil, fmt.Errorf("weights %d, columns %d: %w", len(w), cols, ErrDimensionMismatch)
	}

	mean := mat.NewVecDense(rows, nil)
	col := mat.NewVecDense(rows, nil)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			col.SetVec(i, x.At(i, j))
		}
		mean.AddScaledVec(mean, w[j], col)
	}

	return mean, nil
}

// WeightedCov returns the weighted covariance of the columns of x about mean:
// sum_j w[j]*(col(j)-mean)*(col(j)-mean)^T / (1 - biasCorrection*sum_j w[j]^2).
// With biasCorrection = 0 this is the plain weighted second central moment.
// It returns error if the weight or mean dimensions do not match x.
func WeightedCov(x mat.Matrix, mean mat.Vector, w []float64, biasCorrection float64) (*mat.SymDense, error) {
	rows, cols := x.Dims()
	if len(w) != cols {
		return nil, fmt.Errorf("weights %d, columns %d: %w", len(w), cols, ErrDimensionMismatch)
	}
	if mean.Len() != rows {
		return nil, fmt.Errorf("mean %d, rows %d: %w", mean.Len(), rows, ErrDimensionMismatch)
	}

	cov := mat.NewSymDense(rows, nil)
	diff := mat.NewVecDense(rows, nil)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			diff.SetVec(i, x.At(i, j)-mean.AtVec(i))
		}
		cov.SymRankOne(cov, w[j], diff)
	}

	if biasCorrection != 0 {
		denom := 1 - biasCorrection*floats.Dot(w, w)
		cov.ScaleSym(1/denom, cov)
	}

	return cov, nil
}

// CholLower returns the lower triangular Cholesky factor L of a, with a = L*L^T.
// It returns ErrNotSPD if a is not symmetric positive definite.
func CholLower(a mat.Symmetric) (*mat.TriDense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, ErrNotSPD
	}

	l := &mat.TriDense{}
	chol.LTo(l)

	return l, nil
}

// Inverse returns the inverse of a.
// It returns ErrSingular if a cannot be inverted.
func Inverse(a mat.Matrix) (*mat.Dense, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("[%d x %d]: %w", r, c, ErrDimensionMismatch)
	}

	inv := &mat.Dense{}
	if err := inv.Inverse(a); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrSingular)
	}

	return inv, nil
}

// Sym builds an n x n symmetric matrix from row-major data.
// Off-diagonal pairs are averaged so nearly-symmetric inputs are accepted.
// It returns error if the data length is not n*n.
func Sym(n int, data []float64) (*mat.SymDense, error) {
	if len(data) != n*n {
		return nil, fmt.Errorf("data %d, want %d: %w", len(data), n*n, ErrDimensionMismatch)
	}

	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(data[i*n+j]+data[j*n+i]))
		}
	}

	return s, nil
}
