package estimate

import (
	"testing"

	"github.com/milosgajdos/go-prognose/udata"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestMeanCovarRoundTrip(t *testing.T) {
	assert := assert.New(t)

	mean := mat.NewVecDense(3, []float64{1, 2, 3})
	cov := mat.NewSymDense(3, []float64{
		1, 0.1, 0,
		0.1, 2, 0.2,
		0, 0.2, 3,
	})

	state, err := NewMeanCovar(mean, cov)
	assert.NoError(err)
	assert.Len(state, 3)
	assert.Equal(udata.MeanCovar, state[0].Kind())
	assert.Equal(3, state[0].NPoints())

	gotMean, gotCov, err := MeanCovar(state)
	assert.NoError(err)
	for i := 0; i < 3; i++ {
		assert.Equal(mean.AtVec(i), gotMean.AtVec(i))
		for j := 0; j < 3; j++ {
			assert.Equal(cov.At(i, j), gotCov.At(i, j))
		}
	}

	_, err = NewMeanCovar(mean, mat.NewSymDense(2, nil))
	assert.Error(err)

	_, _, err = MeanCovar(nil)
	assert.Error(err)
}

func TestWSamples(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})
	w := []float64{0.2, 0.3, 0.5}

	state, err := NewWSamples(x, w)
	assert.NoError(err)
	assert.Len(state, 2)
	assert.Equal(udata.WSamples, state[0].Kind())

	joint, gotW, err := JointSamples(state)
	assert.NoError(err)
	assert.InDeltaSlice(w, gotW, 1e-15)
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(x.At(i, j), joint.At(i, j))
		}
	}

	_, err = NewWSamples(x, []float64{1})
	assert.Error(err)
}

func TestSamples(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewDense(2, 4, []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
	})

	state := NewSamples(x)
	assert.Len(state, 2)
	assert.Equal(udata.Samples, state[0].Kind())

	joint, w, err := JointSamples(state)
	assert.NoError(err)
	assert.InDeltaSlice([]float64{0.25, 0.25, 0.25, 0.25}, w, 1e-15)
	assert.Equal(x.At(1, 3), joint.At(1, 3))
}

func TestPoint(t *testing.T) {
	assert := assert.New(t)

	state := []udata.UData{*udata.NewPoint(1.5), *udata.NewPoint(-2)}

	mean, err := Point(state)
	assert.NoError(err)
	assert.Equal(1.5, mean.AtVec(0))
	assert.Equal(-2.0, mean.AtVec(1))

	state[1].SetKind(udata.Samples)
	_, err = Point(state)
	assert.Error(err)
}
