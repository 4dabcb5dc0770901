package ukf

import (
	"testing"

	prognose "github.com/milosgajdos/go-prognose"
	"github.com/milosgajdos/go-prognose/config"
	"github.com/milosgajdos/go-prognose/model/battery"
	"github.com/milosgajdos/go-prognose/model/tank"
	"github.com/milosgajdos/go-prognose/udata"
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

func diagSym(n int, v float64) *mat.SymDense {
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		s.SetSym(i, i, v)
	}
	return s
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	t3 := tankModel()

	k, err := New(t3, diagSym(3, 1e-5), diagSym(3, 1e-2), nil)
	assert.NotNil(k)
	assert.NoError(err)

	// mismatched noise dimensions
	_, err = New(t3, diagSym(2, 1e-5), diagSym(3, 1e-2), nil)
	assert.Error(err)
	_, err = New(t3, diagSym(3, 1e-5), diagSym(2, 1e-2), nil)
	assert.Error(err)

	// invalid sigma point parameters
	_, err = New(t3, diagSym(3, 1e-5), diagSym(3, 1e-2), &Config{Alpha: -1, Beta: 2})
	assert.Error(err)
}

func TestTankInitialize(t *testing.T) {
	assert := assert.New(t)

	t3 := tankModel()
	q := diagSym(3, 1e-5)
	k, err := New(t3, q, diagSym(3, 1e-2), nil)
	assert.NoError(err)

	u := mat.NewVecDense(3, []float64{1, 1, 1})
	x := mat.NewVecDense(3, nil)
	z := mat.NewVecDense(3, nil)

	// stepping before initializing must fail
	err = k.Step(0, u, z)
	assert.ErrorIs(err, prognose.ErrNotInitialized)

	assert.NoError(k.Initialize(0, x, u))
	assert.Equal(0.0, k.Time())

	xMean := k.StateMean()
	zMean := k.OutputMean()
	for i := 0; i < 3; i++ {
		assert.InDelta(0, xMean.AtVec(i), 1e-12)
		assert.InDelta(0, zMean.AtVec(i), 1e-12)
	}

	// initial covariance equals the process noise covariance
	cov := k.Cov()
	assert.True(mat.EqualApprox(q, cov, 1e-15))
}

func TestTankStep(t *testing.T) {
	assert := assert.New(t)

	t3 := tankModel()
	k, err := New(t3, diagSym(3, 1e-5), diagSym(3, 1e-2), nil)
	assert.NoError(err)

	u := mat.NewVecDense(3, []float64{1, 1, 1})
	x := mat.NewVecDense(3, nil)

	assert.NoError(k.Initialize(0, x, u))

	// stepping without advancing time must fail
	err = k.Step(0, u, mat.NewVecDense(3, nil))
	assert.ErrorIs(err, prognose.ErrTimeNotAdvanced)

	// simulate the true system one step with fixed noise values
	dt := 0.1
	ns := mat.NewVecDense(3, []float64{0.001, 0.001, 0.001})
	no := mat.NewVecDense(3, []float64{0.01, 0.01, 0.01})
	xNext, err := t3.StateEqn(dt, x, u, ns, dt)
	assert.NoError(err)
	z, err := t3.OutputEqn(dt, xNext, no)
	assert.NoError(err)

	assert.NoError(k.Step(dt, u, z))

	xMean := k.StateMean()
	assert.InDelta(0.10000712, xMean.AtVec(0), 2e-8)
	assert.InDelta(0.10000551, xMean.AtVec(1), 2e-8)
	assert.InDelta(0.10000337, xMean.AtVec(2), 2e-8)

	zMean := k.OutputMean()
	assert.InDelta(0.10000712, zMean.AtVec(0), 2e-8)
	assert.InDelta(0.05000276, zMean.AtVec(1), 2e-8)
	assert.InDelta(0.03333446, zMean.AtVec(2), 2e-8)

	cov := k.Cov()
	assert.InDelta(1.64205e-5, cov.At(0, 0), 2e-9)
	assert.InDelta(cov.At(1, 2), cov.At(2, 1), 1e-18)

	// the step must remember its inputs
	u2 := mat.NewVecDense(3, []float64{1, 2, 3})
	xNext2, err := t3.StateEqn(0.2, xNext, u2, ns, dt)
	assert.NoError(err)
	z2, err := t3.OutputEqn(0.2, xNext2, no)
	assert.NoError(err)
	assert.NoError(k.Step(0.2, u2, z2))

	uOld := k.Inputs()
	assert.Equal(1.0, uOld.AtVec(0))
	assert.Equal(2.0, uOld.AtVec(1))
	assert.Equal(3.0, uOld.AtVec(2))
}

func TestStateEstimate(t *testing.T) {
	assert := assert.New(t)

	t3 := tankModel()
	q := diagSym(3, 1e-5)
	k, err := New(t3, q, diagSym(3, 1e-2), nil)
	assert.NoError(err)

	u := mat.NewVecDense(3, []float64{1, 1, 1})
	assert.NoError(k.Initialize(0, mat.NewVecDense(3, nil), u))

	state := k.StateEstimate()
	assert.Len(state, 3)
	for i := range state {
		assert.Equal(udata.MeanCovar, state[i].Kind())
		assert.Equal(3, state[i].NPoints())
		m, err := state[i].Get(udata.Mean)
		assert.NoError(err)
		assert.InDelta(0, m, 1e-12)
		c, err := state[i].Get(udata.Covar(i))
		assert.NoError(err)
		assert.InDelta(1e-5, c, 1e-18)
	}
}

func TestBatteryInitialize(t *testing.T) {
	assert := assert.New(t)

	b := battery.New()

	u0 := mat.NewVecDense(1, []float64{0})
	z0 := mat.NewVecDense(2, []float64{20, 4.2})
	x, err := b.Initialize(u0, z0)
	assert.NoError(err)

	k, err := New(b, diagSym(8, 1e-10), diagSym(2, 1e-2), nil)
	assert.NoError(err)
	assert.NoError(k.Initialize(0, x, u0))

	xMean := k.StateMean()
	for i := 0; i < 8; i++ {
		assert.InDelta(x.AtVec(i), xMean.AtVec(i), 1e-9)
	}

	// output estimate sits at the full-charge equilibrium voltage
	zMean := k.OutputMean()
	assert.InDelta(20, zMean.AtVec(0), 1e-6)
	assert.InDelta(4.1914, zMean.AtVec(1), 2e-3)

	cov := k.Cov()
	assert.InDelta(1e-10, cov.At(0, 0), 1e-16)
}

func TestBatteryStep(t *testing.T) {
	assert := assert.New(t)

	b := battery.New()

	u0 := mat.NewVecDense(1, []float64{0})
	z0 := mat.NewVecDense(2, []float64{20, 4.2})
	x, err := b.Initialize(u0, z0)
	assert.NoError(err)

	k, err := New(b, diagSym(8, 1e-10), diagSym(2, 1e-2), nil)
	assert.NoError(err)
	assert.NoError(k.Initialize(0, x, u0))

	// simulate one second of 1W draw with fixed sensor noise
	u := mat.NewVecDense(1, []float64{1})
	xNoise := mat.NewVecDense(8, nil)
	zNoise := mat.NewVecDense(2, []float64{0.01, 0.01})
	xNext, err := b.StateEqn(1, x, u, xNoise, 1)
	assert.NoError(err)
	z, err := b.OutputEqn(1, xNext, zNoise)
	assert.NoError(err)

	assert.NoError(k.Step(1, u, z))

	// with tiny Q the posterior barely moves off the prior
	xMean := k.StateMean()
	assert.InDelta(x.AtVec(battery.QnS), xMean.AtVec(battery.QnS), 1.0)

	zMean := k.OutputMean()
	assert.InDelta(20, zMean.AtVec(0), 1e-3)
	assert.InDelta(4.1914, zMean.AtVec(1), 5e-3)

	// temperature propagates as identity: predicted variance is doubled
	cov := k.Cov()
	assert.InDelta(2e-10, cov.At(battery.Tb, battery.Tb), 1e-11)
}

func TestNewFromConfig(t *testing.T) {
	assert := assert.New(t)

	t3 := tankModel()

	cfg := config.New()
	qStrings := make([]string, 0, 9)
	rStrings := make([]string, 0, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j {
				qStrings = append(qStrings, "1e-5")
				rStrings = append(rStrings, "1e-2")
				continue
			}
			qStrings = append(qStrings, "0")
			rStrings = append(rStrings, "0")
		}
	}
	cfg.Set(QKey, qStrings...)
	cfg.Set(RKey, rStrings...)

	k, err := NewFromConfig(t3, cfg)
	assert.NotNil(k)
	assert.NoError(err)

	// truncated R must be rejected
	cfg.Set(RKey, rStrings[:8]...)
	_, err = NewFromConfig(t3, cfg)
	assert.ErrorIs(err, config.ErrConfig)

	// truncated Q must be rejected
	cfg.Set(QKey, qStrings[:8]...)
	_, err = NewFromConfig(t3, cfg)
	assert.ErrorIs(err, config.ErrConfig)

	// missing Q key entirely
	_, err = NewFromConfig(t3, config.New())
	assert.ErrorIs(err, config.ErrConfig)
}
