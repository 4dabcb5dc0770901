package tank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func testParams() Parameters {
	return Parameters{
		K1: 1, K2: 2, K3: 3,
		R1: 1, R2: 2, R3: 3,
		R1c2: 1, R2c3: 2,
	}
}

func TestInitialize(t *testing.T) {
	assert := assert.New(t)

	t3 := New(testParams())

	x, err := t3.Initialize(t3.InputVector(), t3.OutputVector())
	assert.NoError(err)
	for i := 0; i < 3; i++ {
		assert.Equal(0.0, x.AtVec(i))
	}

	nx, nu, ny := t3.Dims()
	assert.Equal(3, nx)
	assert.Equal(3, nu)
	assert.Equal(3, ny)
}

func TestStateEqn(t *testing.T) {
	assert := assert.New(t)

	t3 := New(testParams())
	t3.SetDt(0.1)

	u := mat.NewVecDense(3, []float64{1, 1, 1})
	x := mat.NewVecDense(3, nil)
	n := mat.NewVecDense(3, nil)

	next, err := t3.StateEqn(0, x, u, n, t3.Dt())
	assert.NoError(err)
	assert.InDelta(0.1, next.AtVec(M1), 1e-12)
	assert.InDelta(0.1, next.AtVec(M2), 1e-12)
	assert.InDelta(0.1, next.AtVec(M3), 1e-12)
	assert.Equal(0.1, t3.Dt())

	// zero-noise dynamics are deterministic
	again, err := t3.StateEqn(0, x, u, n, t3.Dt())
	assert.NoError(err)
	assert.True(mat.EqualApprox(next, again, 0))

	_, err = t3.StateEqn(0, mat.NewVecDense(2, nil), u, n, 0.1)
	assert.Error(err)
}

func TestOutputEqn(t *testing.T) {
	assert := assert.New(t)

	t3 := New(testParams())

	x := mat.NewVecDense(3, []float64{0.1, 0.1, 0.1})
	n := mat.NewVecDense(3, nil)

	z, err := t3.OutputEqn(0, x, n)
	assert.NoError(err)
	assert.InDelta(0.1, z.AtVec(0), 1e-12)
	assert.InDelta(0.05, z.AtVec(1), 1e-12)
	assert.InDelta(1.0/30.0, z.AtVec(2), 1e-12)

	_, err = t3.OutputEqn(0, x, mat.NewVecDense(1, nil))
	assert.Error(err)
}
