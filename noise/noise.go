// Package noise provides the noise sources used by the observers and the
// Monte Carlo predictor: multivariate Gaussian, independent per-component
// Gaussian, zero noise, and the zero-sized None.
package noise

import "gonum.org/v1/gonum/mat"

// Noise is a source of random perturbation vectors
type Noise interface {
	// Sample draws a noise sample
	Sample() mat.Vector
	// Cov returns the noise covariance matrix
	Cov() mat.Symmetric
	// Mean returns the noise mean
	Mean() []float64
	// Reset reseeds the noise source
	Reset()
}
