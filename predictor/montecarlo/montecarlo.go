// Package montecarlo implements a Monte Carlo predictor: it realises state
// samples from an observer's posterior estimate and rolls each forward
// through the model dynamics until the model's events fire or the prediction
// horizon runs out.
package montecarlo

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"

	prognose "github.com/milosgajdos/go-prognose"
	"github.com/milosgajdos/go-prognose/config"
	"github.com/milosgajdos/go-prognose/estimate"
	"github.com/milosgajdos/go-prognose/matrix"
	"github.com/milosgajdos/go-prognose/model"
	"github.com/milosgajdos/go-prognose/noise"
	"github.com/milosgajdos/go-prognose/results"
	"github.com/milosgajdos/go-prognose/rnd"
	"github.com/milosgajdos/go-prognose/udata"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Configuration keys
const (
	SampleCountKey  = "Predictor.SampleCount"
	HorizonKey      = "Predictor.Horizon"
	IntervalKey     = "Predictor.Interval"
	ProcessNoiseKey = "Model.ProcessNoise"
)

// Config is the Monte Carlo predictor configuration
type Config struct {
	// SampleCount is the number of state samples rolled forward
	SampleCount int
	// Horizon bounds the simulated time from the prediction start, in seconds
	Horizon float64
	// Interval is the spacing of the recorded trajectory slots; it defaults
	// to 1s and must be a multiple of the model time step
	Interval float64
	// ProcessNoise holds per-state process noise variances
	ProcessNoise []float64
	// InputParameters are passed through to the model input equation
	InputParameters []float64
}

// MonteCarlo is a Monte Carlo predictor
type MonteCarlo struct {
	// m is the prognostics model rolled forward
	m model.PrognosticsModel
	// loadEst supplies future input samples
	loadEst prognose.LoadEstimator
	// process draws per-state process noise samples
	process *noise.Independent
	// c is the predictor configuration
	c Config
}

// New creates a new Monte Carlo predictor for model m drawing future inputs
// from loadEst. It returns error if the configuration is invalid.
func New(m model.PrognosticsModel, loadEst prognose.LoadEstimator, c Config) (*MonteCarlo, error) {
	nx, _, _ := m.Dims()

	if c.SampleCount <= 0 {
		return nil, fmt.Errorf("invalid sample count: %d", c.SampleCount)
	}
	if c.Horizon <= 0 {
		return nil, fmt.Errorf("invalid horizon: %g", c.Horizon)
	}
	if c.Interval == 0 {
		c.Interval = 1
	}
	if c.Interval < 0 {
		return nil, fmt.Errorf("invalid interval: %g", c.Interval)
	}
	if len(c.ProcessNoise) != nx {
		return nil, fmt.Errorf("process noise %d, states %d: %w", len(c.ProcessNoise), nx, matrix.ErrDimensionMismatch)
	}

	process, err := noise.NewIndependent(c.ProcessNoise)
	if err != nil {
		return nil, fmt.Errorf("process noise: %v", err)
	}

	return &MonteCarlo{
		m:       m,
		loadEst: loadEst,
		process: process,
		c:       c,
	}, nil
}

// NewFromConfig creates a new Monte Carlo predictor configured from cfg.
// Predictor.SampleCount, Predictor.Horizon and Model.ProcessNoise are
// required; Predictor.Interval is optional.
func NewFromConfig(m model.PrognosticsModel, loadEst prognose.LoadEstimator, cfg config.Map) (*MonteCarlo, error) {
	if err := cfg.RequireKeys(SampleCountKey, HorizonKey, ProcessNoiseKey); err != nil {
		return nil, err
	}

	c := Config{}
	var err error
	if c.SampleCount, err = cfg.Int(SampleCountKey); err != nil {
		return nil, err
	}
	if c.Horizon, err = cfg.Float64(HorizonKey); err != nil {
		return nil, err
	}
	if c.ProcessNoise, err = cfg.Float64s(ProcessNoiseKey); err != nil {
		return nil, err
	}
	if cfg.Has(IntervalKey) {
		if c.Interval, err = cfg.Float64(IntervalKey); err != nil {
			return nil, err
		}
	}

	return New(m, loadEst, c)
}

// realize draws the initial state samples from the state estimate and
// returns them in the columns of a nx x SampleCount matrix.
func (mc *MonteCarlo) realize(state []udata.UData) (*mat.Dense, error) {
	nx, _, _ := mc.m.Dims()
	if len(state) != nx {
		return nil, fmt.Errorf("state estimate %d, states %d: %w", len(state), nx, matrix.ErrDimensionMismatch)
	}

	out := mat.NewDense(nx, mc.c.SampleCount, nil)

	switch state[0].Kind() {
	case udata.MeanCovar:
		mean, cov, err := estimate.MeanCovar(state)
		if err != nil {
			return nil, err
		}
		mu := make([]float64, nx)
		for i := range mu {
			mu[i] = mean.AtVec(i)
		}
		src := rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
		dist, ok := distmv.NewNormal(mu, cov, src)
		if !ok {
			return nil, fmt.Errorf("state covariance: %w", matrix.ErrNotSPD)
		}
		sample := make([]float64, nx)
		for k := 0; k < mc.c.SampleCount; k++ {
			dist.Rand(sample)
			for i := 0; i < nx; i++ {
				out.Set(i, k, sample[i])
			}
		}

	case udata.Samples, udata.WSamples:
		joint, w, err := estimate.JointSamples(state)
		if err != nil {
			return nil, err
		}
		indices, err := rnd.RouletteDrawN(w, mc.c.SampleCount)
		if err != nil {
			return nil, err
		}
		for k, idx := range indices {
			for i := 0; i < nx; i++ {
				out.Set(i, k, joint.At(i, idx))
			}
		}

	case udata.Point:
		mean, err := estimate.Point(state)
		if err != nil {
			return nil, err
		}
		for k := 0; k < mc.c.SampleCount; k++ {
			for i := 0; i < nx; i++ {
				out.Set(i, k, mean.AtVec(i))
			}
		}

	default:
		return nil, fmt.Errorf("state estimate kind %v: %w", state[0].Kind(), udata.ErrInvalidKind)
	}

	return out, nil
}

// Predict realises SampleCount initial states from the state estimate and
// simulates each forward from time t with the model time step. An event's
// time of event is the first simulation step at which the threshold turns
// true; samples which never cross it record the horizon end and a false
// reached flag.
func (mc *MonteCarlo) Predict(t float64, state []udata.UData) (*results.Prediction, error) {
	initial, err := mc.realize(state)
	if err != nil {
		return nil, err
	}

	dt := mc.m.Dt()
	if dt <= 0 {
		return nil, fmt.Errorf("invalid model time step: %g", dt)
	}
	steps := int(math.Floor(mc.c.Horizon / dt))
	stepsPerSlot := int(math.Round(mc.c.Interval / dt))
	if stepsPerSlot < 1 {
		stepsPerSlot = 1
	}
	slots := steps/stepsPerSlot + 1

	events := mc.m.Events()
	predicted := mc.m.PredictedOutputs()

	toe := make([][]float64, len(events))
	reached := make([][]bool, len(events))
	for e := range events {
		toe[e] = make([]float64, mc.c.SampleCount)
		reached[e] = make([]bool, mc.c.SampleCount)
	}
	// trajectory sample storage: [output][slot][sample]
	traj := make([][][]float64, len(predicted))
	for o := range predicted {
		traj[o] = make([][]float64, slots)
		for s := range traj[o] {
			traj[o][s] = make([]float64, mc.c.SampleCount)
			for k := range traj[o][s] {
				traj[o][s][k] = math.NaN()
			}
		}
	}

	nx, _, _ := mc.m.Dims()
	x := mat.NewVecDense(nx, nil)

	for k := 0; k < mc.c.SampleCount; k++ {
		for i := 0; i < nx; i++ {
			x.SetVec(i, initial.At(i, k))
		}
		fired := make([]bool, len(events))
		firedCount := 0

		for s := 0; s <= steps; s++ {
			tau := t + float64(s)*dt

			u, err := mc.m.InputEqn(tau, mc.c.InputParameters, mc.loadEst.EstimateLoad(tau, k))
			if err != nil {
				return nil, fmt.Errorf("input equation: %v", err)
			}

			threshold, err := mc.m.ThresholdEqn(tau, x, u)
			if err != nil {
				return nil, fmt.Errorf("threshold equation: %v", err)
			}
			for e := range events {
				if !fired[e] && threshold[e] {
					fired[e] = true
					firedCount++
					toe[e][k] = tau
					reached[e][k] = true
				}
			}

			if s%stepsPerSlot == 0 {
				slot := s / stepsPerSlot
				pz, err := mc.m.PredictedOutputEqn(tau, x, u)
				if err != nil {
					return nil, fmt.Errorf("predicted output equation: %v", err)
				}
				for o := range predicted {
					traj[o][slot][k] = pz.AtVec(o)
				}
			}

			if firedCount == len(events) {
				break
			}

			next, err := mc.m.StateEqn(tau, x, u, mc.process.Sample(), dt)
			if err != nil {
				return nil, fmt.Errorf("state equation: %v", err)
			}
			x.CloneFromVec(next)
		}

		for e := range events {
			if !fired[e] {
				toe[e][k] = t + mc.c.Horizon
			}
		}
	}

	return mc.assemble(t, events, predicted, toe, reached, traj, slots)
}

// assemble packs the simulation results into a Prediction
func (mc *MonteCarlo) assemble(t float64, events, predicted []string, toe [][]float64, reached [][]bool, traj [][][]float64, slots int) (*results.Prediction, error) {
	p := &results.Prediction{
		Time:     t,
		Interval: mc.c.Interval,
	}

	for e, name := range events {
		u := udata.New(udata.Samples)
		u.SetNPoints(mc.c.SampleCount)
		if err := u.SetAll(toe[e]); err != nil {
			return nil, err
		}

		occurrence := make([]float64, slots)
		for s := range occurrence {
			cutoff := t + float64(s)*mc.c.Interval
			fired := 0
			for k := range toe[e] {
				if reached[e][k] && toe[e][k] <= cutoff {
					fired++
				}
			}
			occurrence[s] = float64(fired) / float64(mc.c.SampleCount)
		}

		p.Events = append(p.Events, results.Event{
			Name:       name,
			TOE:        u,
			Reached:    reached[e],
			Occurrence: occurrence,
		})
	}

	for o, name := range predicted {
		slotsData := make([]*udata.UData, slots)
		for s := 0; s < slots; s++ {
			u := udata.New(udata.Samples)
			u.SetNPoints(mc.c.SampleCount)
			if err := u.SetAll(traj[o][s]); err != nil {
				return nil, err
			}
			slotsData[s] = u
		}
		p.Trajectories = append(p.Trajectories, results.Trajectory{
			Name:  name,
			Slots: slotsData,
		})
	}

	return p, nil
}
