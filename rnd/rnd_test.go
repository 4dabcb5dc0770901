package rnd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouletteDrawN(t *testing.T) {
	assert := assert.New(t)

	// all mass on index 1: every draw must return it
	p := []float64{0, 1, 0}
	indices, err := RouletteDrawN(p, 20)
	assert.NoError(err)
	for _, idx := range indices {
		assert.Equal(1, idx)
	}

	indices, err = RouletteDrawN(nil, 5)
	assert.Nil(indices)
	assert.Error(err)
}

func TestSystematicResampleN(t *testing.T) {
	assert := assert.New(t)

	// degenerate weights: all picks land on the heavy particle
	w := []float64{0, 0, 1, 0}
	indices, err := SystematicResampleN(w, 8)
	assert.NoError(err)
	for _, idx := range indices {
		assert.Equal(2, idx)
	}

	// uniform weights: systematic resampling picks each index exactly once
	w = []float64{0.25, 0.25, 0.25, 0.25}
	indices, err = SystematicResampleN(w, 4)
	assert.NoError(err)
	assert.Equal([]int{0, 1, 2, 3}, indices)

	_, err = SystematicResampleN(nil, 4)
	assert.Error(err)
	_, err = SystematicResampleN(w, 0)
	assert.Error(err)
}
