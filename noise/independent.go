package noise

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Independent is zero-mean Gaussian noise with independent components,
// described by a per-component variance vector.
type Independent struct {
	// variance holds per-component variances
	variance []float64
	// dist draws standard normal variates
	dist distuv.Normal
}

// NewIndependent creates new Independent noise from a per-component
// variance vector. It returns error if the vector is empty or if any
// variance is negative.
func NewIndependent(variance []float64) (*Independent, error) {
	if len(variance) == 0 {
		return nil, fmt.Errorf("empty variance vector")
	}
	for i, v := range variance {
		if v < 0 {
			return nil, fmt.Errorf("negative variance %g at index %d", v, i)
		}
	}

	vars := make([]float64, len(variance))
	copy(vars, variance)

	return &Independent{
		variance: vars,
		dist:     newStdNormal(),
	}, nil
}

// Sample draws one noise vector with independent components.
func (n *Independent) Sample() mat.Vector {
	sample := make([]float64, len(n.variance))
	for i, v := range n.variance {
		if v > 0 {
			sample[i] = n.dist.Rand() * math.Sqrt(v)
		}
	}
	return mat.NewVecDense(len(sample), sample)
}

// Cov returns the diagonal covariance matrix of the noise.
func (n *Independent) Cov() mat.Symmetric {
	cov := mat.NewSymDense(len(n.variance), nil)
	for i, v := range n.variance {
		cov.SetSym(i, i, v)
	}
	return cov
}

// Mean returns the zero mean of the noise.
func (n *Independent) Mean() []float64 {
	return make([]float64, len(n.variance))
}

// Variance returns a copy of the per-component variance vector.
func (n *Independent) Variance() []float64 {
	out := make([]float64, len(n.variance))
	copy(out, n.variance)
	return out
}

// Reset reseeds the noise source.
func (n *Independent) Reset() {
	n.dist = newStdNormal()
}

func newStdNormal() distuv.Normal {
	return distuv.Normal{
		Mu:    0,
		Sigma: 1,
		Src:   rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

// String implements the Stringer interface.
func (n *Independent) String() string {
	return fmt.Sprintf("Independent{\nVariance=%v\n}", n.variance)
}
