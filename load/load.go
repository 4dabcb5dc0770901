// Package load provides the load estimators which supply future-input
// samples to the predictors: a constant estimator with optional Gaussian
// uncertainty and a moving-average estimator over observed loading.
package load

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	prognose "github.com/milosgajdos/go-prognose"
	"github.com/milosgajdos/go-prognose/config"
	"gonum.org/v1/gonum/stat/distuv"
)

// Configuration keys
const (
	EstimatorKey  = "Predictor.loadEstimator"
	LoadingKey    = "LoadEstimator.Loading"
	StdDevKey     = "LoadEstimator.StdDev"
	WindowSizeKey = "MovingAverage.WindowSize"
)

// Estimator names accepted by NewFromConfig
const (
	ConstName         = "const"
	MovingAverageName = "movingAverage"
)

// DefaultWindowSize is the moving-average window used when none is configured
const DefaultWindowSize = 10

// NewFromConfig builds the load estimator named by Predictor.loadEstimator.
// When the key is absent a moving-average estimator is built.
func NewFromConfig(cfg config.Map) (prognose.LoadEstimator, error) {
	name := MovingAverageName
	if cfg.Has(EstimatorKey) {
		var err error
		if name, err = cfg.String(EstimatorKey); err != nil {
			return nil, err
		}
	}

	switch name {
	case ConstName:
		return NewConstFromConfig(cfg)
	case MovingAverageName:
		return NewMovingAverageFromConfig(cfg)
	}

	return nil, fmt.Errorf("unknown load estimator %q: %w", name, config.ErrConfig)
}

// Const is a constant load estimator. With a standard deviation vector it
// draws an independent Gaussian perturbation around the loading per call;
// without one it returns the loading exactly.
type Const struct {
	// loading is the mean loading vector
	loading []float64
	// stddev holds optional per-component standard deviations
	stddev []float64
	// dist draws standard normal variates
	dist distuv.Normal
}

// NewConst creates a constant load estimator for the given loading.
// stddev may be nil; a non-nil stddev must match the loading length.
func NewConst(loading, stddev []float64) (*Const, error) {
	if stddev != nil && len(stddev) != len(loading) {
		return nil, fmt.Errorf("stddev %d, loading %d: %w", len(stddev), len(loading), config.ErrConfig)
	}

	c := &Const{
		loading: append([]float64(nil), loading...),
		stddev:  append([]float64(nil), stddev...),
		dist: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
		},
	}

	return c, nil
}

// NewConstFromConfig creates a constant load estimator from
// LoadEstimator.Loading and the optional LoadEstimator.StdDev.
func NewConstFromConfig(cfg config.Map) (*Const, error) {
	if err := cfg.RequireKeys(LoadingKey); err != nil {
		return nil, err
	}
	loading, err := cfg.Float64s(LoadingKey)
	if err != nil {
		return nil, err
	}

	var stddev []float64
	if cfg.Has(StdDevKey) {
		if stddev, err = cfg.Float64s(StdDevKey); err != nil {
			return nil, err
		}
	}

	return NewConst(loading, stddev)
}

// EstimateLoad returns the loading vector, perturbed per component when a
// standard deviation vector was supplied.
func (c *Const) EstimateLoad(t float64, sample int) []float64 {
	out := append([]float64(nil), c.loading...)
	if len(c.stddev) == len(out) && len(out) > 0 {
		for i := range out {
			out[i] += c.stddev[i] * c.dist.Rand()
		}
	}
	return out
}

// AddLoad is not supported by the constant estimator
func (c *Const) AddLoad(load []float64) error {
	return fmt.Errorf("const load estimator: %w", prognose.ErrUnsupported)
}

// UsesHistoricalLoading reports that the estimator ignores observed loading
func (c *Const) UsesHistoricalLoading() bool { return false }

// SampleBased reports whether calls draw fresh samples
func (c *Const) SampleBased() bool { return len(c.stddev) > 0 }

// MovingAverage estimates loading as the componentwise mean of the last
// WindowSize observed loading vectors.
type MovingAverage struct {
	// window is a ring buffer of observed loading vectors
	window [][]float64
	// next is the ring buffer write position
	next int
	// filled counts the populated ring buffer slots
	filled int
	// size is the loading vector length
	size int
}

// NewMovingAverage creates a moving-average estimator over windowSize
// observations. A non-positive windowSize falls back to the default.
func NewMovingAverage(windowSize int) *MovingAverage {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &MovingAverage{
		window: make([][]float64, windowSize),
	}
}

// NewMovingAverageFromConfig creates a moving-average estimator from the
// optional MovingAverage.WindowSize key.
func NewMovingAverageFromConfig(cfg config.Map) (*MovingAverage, error) {
	windowSize := DefaultWindowSize
	if cfg.Has(WindowSizeKey) {
		var err error
		if windowSize, err = cfg.Int(WindowSizeKey); err != nil {
			return nil, err
		}
	}
	return NewMovingAverage(windowSize), nil
}

// EstimateLoad returns the componentwise mean of the observed loading,
// or the empty vector when no loading has been added yet.
func (m *MovingAverage) EstimateLoad(t float64, sample int) []float64 {
	if m.filled == 0 {
		return nil
	}

	mean := make([]float64, m.size)
	for s := 0; s < m.filled; s++ {
		for i, v := range m.window[s] {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= float64(m.filled)
	}

	return mean
}

// AddLoad appends an observed loading vector, evicting the oldest.
// Every vector must have the same length as the first one added.
func (m *MovingAverage) AddLoad(load []float64) error {
	if m.filled > 0 && len(load) != m.size {
		return fmt.Errorf("loading %d, want %d: %w", len(load), m.size, config.ErrConfig)
	}

	m.size = len(load)
	m.window[m.next] = append([]float64(nil), load...)
	m.next = (m.next + 1) % len(m.window)
	if m.filled < len(m.window) {
		m.filled++
	}

	return nil
}

// UsesHistoricalLoading reports that the estimator needs observed loading
func (m *MovingAverage) UsesHistoricalLoading() bool { return true }

// SampleBased reports that every call returns the same estimate
func (m *MovingAverage) SampleBased() bool { return false }
