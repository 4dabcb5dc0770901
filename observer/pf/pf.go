// Package pf implements a Sequential Importance Resampling (SIR) particle
// filter over a nonlinear state-space model.
package pf

import (
	"fmt"
	"math"

	prognose "github.com/milosgajdos/go-prognose"
	"github.com/milosgajdos/go-prognose/config"
	"github.com/milosgajdos/go-prognose/estimate"
	"github.com/milosgajdos/go-prognose/matrix"
	"github.com/milosgajdos/go-prognose/model"
	"github.com/milosgajdos/go-prognose/noise"
	"github.com/milosgajdos/go-prognose/rnd"
	"github.com/milosgajdos/go-prognose/udata"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Configuration keys
const (
	ParticleCountKey = "Observer.ParticleCount"
	ProcessNoiseKey  = "Observer.ProcessNoise"
	SensorNoiseKey   = "Observer.SensorNoise"
	MinEffectiveKey  = "Observer.MinEffective"
)

// PF is a SIR particle filter
type PF struct {
	// m is the filter system model
	m model.Model
	// x stores filter particles as column vectors
	x *mat.Dense
	// y stores particle outputs as column vectors
	y *mat.Dense
	// w stores particle weights
	w []float64
	// process draws per-state process noise samples
	process *noise.Independent
	// sensorVar holds per-output sensor noise variances
	sensorVar []float64
	// minNEff is the resampling threshold on the effective sample size
	minNEff float64
	// inn is a preallocated innovation buffer
	inn []float64
	// u holds the inputs of the most recent step
	u *mat.VecDense
	// t is the time of the most recent step
	t float64
	// initialized tracks whether Initialize has been called
	initialized bool
}

// New creates a new particle filter for model m with n particles.
// processNoise holds per-state and sensorNoise per-output noise variances.
// The resampling threshold defaults to n/3.
// It returns error if n is non-positive or the noise vector lengths do not
// match the model dimensions.
func New(m model.Model, n int, processNoise, sensorNoise []float64) (*PF, error) {
	nx, _, ny := m.Dims()

	if n <= 0 {
		return nil, fmt.Errorf("invalid particle count: %d", n)
	}
	if len(processNoise) != nx {
		return nil, fmt.Errorf("process noise %d, states %d: %w", len(processNoise), nx, matrix.ErrDimensionMismatch)
	}
	if len(sensorNoise) != ny {
		return nil, fmt.Errorf("sensor noise %d, outputs %d: %w", len(sensorNoise), ny, matrix.ErrDimensionMismatch)
	}

	process, err := noise.NewIndependent(processNoise)
	if err != nil {
		return nil, fmt.Errorf("process noise: %v", err)
	}

	sVar := make([]float64, ny)
	copy(sVar, sensorNoise)

	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}

	return &PF{
		m:         m,
		x:         mat.NewDense(nx, n, nil),
		y:         mat.NewDense(ny, n, nil),
		w:         w,
		process:   process,
		sensorVar: sVar,
		minNEff:   float64(n) / 3,
		inn:       make([]float64, ny),
		u:         mat.NewVecDense(1, nil),
	}, nil
}

// NewFromConfig creates a new particle filter for model m configured from cfg
func NewFromConfig(m model.Model, cfg config.Map) (*PF, error) {
	if err := cfg.RequireKeys(ParticleCountKey, ProcessNoiseKey, SensorNoiseKey); err != nil {
		return nil, err
	}

	n, err := cfg.Int(ParticleCountKey)
	if err != nil {
		return nil, err
	}
	processNoise, err := cfg.Float64s(ProcessNoiseKey)
	if err != nil {
		return nil, err
	}
	sensorNoise, err := cfg.Float64s(SensorNoiseKey)
	if err != nil {
		return nil, err
	}

	pf, err := New(m, n, processNoise, sensorNoise)
	if err != nil {
		return nil, err
	}

	if cfg.Has(MinEffectiveKey) {
		minNEff, err := cfg.Float64(MinEffectiveKey)
		if err != nil {
			return nil, err
		}
		pf.SetMinNEffective(minNEff)
	}

	return pf, nil
}

// ParticleCount returns the number of filter particles
func (pf *PF) ParticleCount() int { return len(pf.w) }

// MinNEffective returns the resampling threshold
func (pf *PF) MinNEffective() float64 { return pf.minNEff }

// SetMinNEffective sets the resampling threshold
func (pf *PF) SetMinNEffective(n float64) { pf.minNEff = n }

// NEffective returns the effective sample size 1/sum(w^2)
func (pf *PF) NEffective() float64 {
	return 1 / floats.Dot(pf.w, pf.w)
}

// Initialize sets every particle to x0 with uniform weights at time t
func (pf *PF) Initialize(t float64, x0, u0 mat.Vector) error {
	nx, _, _ := pf.m.Dims()
	if x0.Len() != nx {
		return fmt.Errorf("state %d, want %d: %w", x0.Len(), nx, matrix.ErrDimensionMismatch)
	}

	for c := 0; c < len(pf.w); c++ {
		for i := 0; i < nx; i++ {
			pf.x.Set(i, c, x0.AtVec(i))
		}
		pf.w[c] = 1 / float64(len(pf.w))
	}

	pf.u = mat.NewVecDense(u0.Len(), nil)
	pf.u.CloneFromVec(u0)
	pf.t = t
	pf.initialized = true

	return pf.observeParticles(t)
}

// observeParticles refreshes the particle outputs with zero sensor noise
func (pf *PF) observeParticles(t float64) error {
	_, _, ny := pf.m.Dims()
	zero := mat.NewVecDense(ny, nil)
	for c := 0; c < len(pf.w); c++ {
		z, err := pf.m.OutputEqn(t, pf.x.ColView(c), zero)
		if err != nil {
			return fmt.Errorf("particle observation: %v", err)
		}
		for i := 0; i < ny; i++ {
			pf.y.Set(i, c, z.AtVec(i))
		}
	}
	return nil
}

// Step performs one propagate/weight/resample cycle for input u and
// measurement z at time t. It returns ErrNotInitialized before Initialize
// and ErrTimeNotAdvanced when t does not advance past the previous step.
func (pf *PF) Step(t float64, u, z mat.Vector) error {
	if !pf.initialized {
		return prognose.ErrNotInitialized
	}
	if t <= pf.t {
		return fmt.Errorf("t %g, previous %g: %w", t, pf.t, prognose.ErrTimeNotAdvanced)
	}

	nx, _, ny := pf.m.Dims()
	if z.Len() != ny {
		return fmt.Errorf("measurement %d, want %d: %w", z.Len(), ny, matrix.ErrDimensionMismatch)
	}
	dt := t - pf.t

	// propagate particles under sampled process noise
	for c := 0; c < len(pf.w); c++ {
		next, err := pf.m.StateEqn(t, pf.x.ColView(c), u, pf.process.Sample(), dt)
		if err != nil {
			return fmt.Errorf("particle propagation: %v", err)
		}
		for i := 0; i < nx; i++ {
			pf.x.Set(i, c, next.AtVec(i))
		}
	}

	if err := pf.observeParticles(t); err != nil {
		return err
	}

	// weight update from the measurement likelihood
	for c := 0; c < len(pf.w); c++ {
		exponent := 0.0
		for i := 0; i < ny; i++ {
			pf.inn[i] = z.AtVec(i) - pf.y.At(i, c)
			exponent += pf.inn[i] * pf.inn[i] / pf.sensorVar[i]
		}
		pf.w[c] *= math.Exp(-0.5 * exponent)
	}

	sum := floats.Sum(pf.w)
	if sum <= 0 || math.IsNaN(sum) {
		// degenerate likelihood: fall back to uniform weights
		for c := range pf.w {
			pf.w[c] = 1 / float64(len(pf.w))
		}
	} else {
		floats.Scale(1/sum, pf.w)
	}

	// systematic resampling on particle degeneracy
	if pf.NEffective() < pf.minNEff {
		if err := pf.resample(); err != nil {
			return err
		}
	}

	pf.u = mat.NewVecDense(u.Len(), nil)
	pf.u.CloneFromVec(u)
	pf.t = t

	return nil
}

// resample replaces the particles by a systematic draw from the current
// weights and resets the weights to uniform.
func (pf *PF) resample() error {
	indices, err := rnd.SystematicResampleN(pf.w, len(pf.w))
	if err != nil {
		return fmt.Errorf("resampling: %v", err)
	}

	rows, _ := pf.x.Dims()
	yRows, _ := pf.y.Dims()
	x := &mat.Dense{}
	x.CloneFrom(pf.x)
	y := &mat.Dense{}
	y.CloneFrom(pf.y)

	for c, idx := range indices {
		for i := 0; i < rows; i++ {
			pf.x.Set(i, c, x.At(i, idx))
		}
		for i := 0; i < yRows; i++ {
			pf.y.Set(i, c, y.At(i, idx))
		}
		pf.w[c] = 1 / float64(len(pf.w))
	}

	return nil
}

// StateEstimate returns the posterior estimate in WSamples form: one UData
// per state carrying the particles and their weights.
func (pf *PF) StateEstimate() []udata.UData {
	state, err := estimate.NewWSamples(pf.x, pf.w)
	if err != nil {
		// dimensions are fixed at construction; this cannot fail
		panic(err)
	}
	return state
}

// StateMean returns the weighted particle mean
func (pf *PF) StateMean() mat.Vector {
	mean, err := matrix.WeightedMean(pf.x, pf.w)
	if err != nil {
		panic(err)
	}
	return mean
}

// OutputMean returns the weighted mean of the particle outputs
func (pf *PF) OutputMean() mat.Vector {
	mean, err := matrix.WeightedMean(pf.y, pf.w)
	if err != nil {
		panic(err)
	}
	return mean
}

// Particles returns a copy of the filter particles
func (pf *PF) Particles() mat.Matrix {
	p := &mat.Dense{}
	p.CloneFrom(pf.x)
	return p
}

// Weights returns a copy of the particle weights
func (pf *PF) Weights() []float64 {
	w := make([]float64, len(pf.w))
	copy(w, pf.w)
	return w
}

// Time returns the time of the most recent step
func (pf *PF) Time() float64 { return pf.t }

// Inputs returns the inputs of the most recent step
func (pf *PF) Inputs() mat.Vector {
	u := mat.NewVecDense(pf.u.Len(), nil)
	u.CloneFromVec(pf.u)
	return u
}
