package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestWeightedMean(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})
	w := []float64{0.5, 0.25, 0.25}

	mean, err := WeightedMean(x, w)
	assert.NoError(err)
	assert.InDelta(0.5*1+0.25*2+0.25*3, mean.AtVec(0), 1e-15)
	assert.InDelta(0.5*4+0.25*5+0.25*6, mean.AtVec(1), 1e-15)

	_, err = WeightedMean(x, []float64{1, 2})
	assert.ErrorIs(err, ErrDimensionMismatch)
}

func TestWeightedCov(t *testing.T) {
	assert := assert.New(t)

	// two samples at +-1 around zero with equal weights
	x := mat.NewDense(1, 2, []float64{-1, 1})
	mean := mat.NewVecDense(1, []float64{0})
	w := []float64{0.5, 0.5}

	cov, err := WeightedCov(x, mean, w, 0)
	assert.NoError(err)
	assert.InDelta(1.0, cov.At(0, 0), 1e-15)

	// bias corrected: divide by 1 - sum w^2 = 0.5
	cov, err = WeightedCov(x, mean, w, 1)
	assert.NoError(err)
	assert.InDelta(2.0, cov.At(0, 0), 1e-15)

	_, err = WeightedCov(x, mean, []float64{1}, 0)
	assert.ErrorIs(err, ErrDimensionMismatch)

	_, err = WeightedCov(x, mat.NewVecDense(2, nil), w, 0)
	assert.ErrorIs(err, ErrDimensionMismatch)
}

func TestCholLower(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewSymDense(3, []float64{
		4, 2, 0.6,
		2, 5, 1.5,
		0.6, 1.5, 3,
	})

	l, err := CholLower(a)
	assert.NoError(err)

	// L*L^T must reproduce a
	llt := &mat.Dense{}
	llt.Mul(l, l.T())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(a.At(i, j), llt.At(i, j), 1e-12)
		}
	}

	// not positive definite
	bad := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	_, err = CholLower(bad)
	assert.ErrorIs(err, ErrNotSPD)
}

func TestInverse(t *testing.T) {
	assert := assert.New(t)

	cases := []*mat.Dense{
		mat.NewDense(2, 2, []float64{4, 7, 2, 6}),
		mat.NewDense(3, 3, []float64{2, 0, 1, 1, 3, 2, 1, 1, 2}),
		mat.NewDense(4, 4, []float64{
			5, 1, 0, 2,
			1, 4, 1, 0,
			0, 1, 3, 1,
			2, 0, 1, 6,
		}),
	}

	for _, a := range cases {
		inv, err := Inverse(a)
		assert.NoError(err)

		prod := &mat.Dense{}
		prod.Mul(a, inv)
		n, _ := a.Dims()
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				want := 0.0
				if i == j {
					want = 1.0
				}
				assert.InDelta(want, prod.At(i, j), 1e-9)
			}
		}
	}

	_, err := Inverse(mat.NewDense(2, 2, []float64{1, 2, 2, 4}))
	assert.ErrorIs(err, ErrSingular)

	_, err = Inverse(mat.NewDense(2, 3, nil))
	assert.ErrorIs(err, ErrDimensionMismatch)
}

func TestSym(t *testing.T) {
	assert := assert.New(t)

	s, err := Sym(2, []float64{1, 2, 2, 5})
	assert.NoError(err)
	assert.Equal(2.0, s.At(0, 1))
	assert.Equal(5.0, s.At(1, 1))

	_, err = Sym(2, []float64{1, 2, 3})
	assert.ErrorIs(err, ErrDimensionMismatch)
}
