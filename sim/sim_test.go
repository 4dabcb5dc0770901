package sim

import (
	"testing"

	"github.com/milosgajdos/go-prognose/model/tank"
	"github.com/milosgajdos/go-prognose/noise"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func tankModel() *tank.Tank3 {
	t3 := tank.New(tank.Parameters{
		K1: 1, K2: 2, K3: 3,
		R1: 1, R2: 2, R3: 3,
		R1c2: 1, R2c3: 2,
	})
	t3.SetDt(0.1)
	return t3
}

func constInput(values ...float64) InputFunc {
	u := mat.NewVecDense(len(values), values)
	return func(t float64) mat.Vector { return u }
}

func TestRun(t *testing.T) {
	assert := assert.New(t)

	t3 := tankModel()
	x0 := mat.NewVecDense(3, nil)

	traj, err := Run(t3, x0, constInput(1, 1, 1), nil, nil, 10)
	assert.NoError(err)
	assert.Len(traj.Times, 11)
	assert.InDelta(1.0, traj.Times[10], 1e-12)

	// first recorded state is the initial state
	for i := 0; i < 3; i++ {
		assert.Equal(0.0, traj.States.At(i, 0))
	}

	// one noiseless Euler step from zero fills each tank by u*dt
	assert.InDelta(0.1, traj.States.At(0, 1), 1e-12)
	assert.InDelta(0.1, traj.States.At(1, 1), 1e-12)
	assert.InDelta(0.1, traj.States.At(2, 1), 1e-12)

	// outputs are the pressures of the recorded states
	assert.InDelta(traj.States.At(0, 5), traj.Outputs.At(0, 5), 1e-12)
	assert.InDelta(traj.States.At(1, 5)/2, traj.Outputs.At(1, 5), 1e-12)

	_, err = Run(t3, x0, constInput(1, 1, 1), nil, nil, 0)
	assert.Error(err)
	_, err = Run(t3, mat.NewVecDense(2, nil), constInput(1, 1, 1), nil, nil, 5)
	assert.Error(err)
}

func TestEnsemble(t *testing.T) {
	assert := assert.New(t)

	t3 := tankModel()
	x0 := mat.NewVecDense(3, nil)

	// a noiseless ensemble is degenerate
	ens, err := Ensemble(t3, x0, constInput(1, 1, 1), nil, nil, 5, 8)
	assert.NoError(err)
	rows, cols := ens.Dims()
	assert.Equal(3, rows)
	assert.Equal(8, cols)
	for c := 1; c < cols; c++ {
		for i := 0; i < rows; i++ {
			assert.Equal(ens.At(i, 0), ens.At(i, c))
		}
	}

	cov, err := Cov(ens)
	assert.NoError(err)
	for i := 0; i < 3; i++ {
		assert.InDelta(0, cov.At(i, i), 1e-24)
	}

	// process noise spreads the ensemble
	process, err := noise.NewIndependent([]float64{1e-2, 1e-2, 1e-2})
	assert.NoError(err)
	ens, err = Ensemble(t3, x0, constInput(1, 1, 1), process, nil, 5, 16)
	assert.NoError(err)
	cov, err = Cov(ens)
	assert.NoError(err)
	assert.Greater(cov.At(0, 0), 0.0)

	_, err = Ensemble(t3, x0, constInput(1, 1, 1), nil, nil, 5, 0)
	assert.Error(err)
}
