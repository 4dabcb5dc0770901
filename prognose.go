// Package prognose provides a model-based prognostics runtime: given a
// stream of sensor observations from a monitored asset it estimates the
// asset's hidden state and predicts, with quantified uncertainty, the time
// at which a named failure event occurs.
package prognose

import (
	"errors"
	"math"
	"time"

	"github.com/milosgajdos/go-prognose/results"
	"github.com/milosgajdos/go-prognose/udata"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotInitialized is returned when an observer is stepped before Initialize
	ErrNotInitialized = errors.New("observer not initialized")
	// ErrTimeNotAdvanced is returned when a step does not advance time
	ErrTimeNotAdvanced = errors.New("time did not advance")
	// ErrUnsupported is returned for operations a chosen strategy does not provide
	ErrUnsupported = errors.New("operation not supported")
)

// Observer is a recursive Bayesian state estimator
type Observer interface {
	// Initialize sets the observer state from initial state x and input u at time t
	Initialize(t float64, x, u mat.Vector) error
	// Step performs one estimation step for input u and measurement z at time t
	Step(t float64, u, z mat.Vector) error
	// StateEstimate returns the posterior state estimate, one UData per state
	StateEstimate() []udata.UData
	// StateMean returns the posterior state mean
	StateMean() mat.Vector
	// OutputMean returns the output estimate for the posterior state
	OutputMean() mat.Vector
	// Time returns the time of the most recent step
	Time() float64
	// Inputs returns the inputs supplied to the most recent step
	Inputs() mat.Vector
}

// Predictor predicts future events from a state estimate
type Predictor interface {
	// Predict rolls the state estimate forward from time t and returns the prediction
	Predict(t float64, state []udata.UData) (*results.Prediction, error)
}

// LoadEstimator supplies future-input samples to a predictor
type LoadEstimator interface {
	// EstimateLoad returns the estimated loading at time t for the given sample index
	EstimateLoad(t float64, sample int) []float64
	// AddLoad records an observed loading vector.
	// Estimators which do not use historical loading return ErrUnsupported.
	AddLoad(load []float64) error
	// UsesHistoricalLoading reports whether the estimator needs AddLoad calls
	UsesHistoricalLoading() bool
	// SampleBased reports whether the estimator returns different samples per call
	SampleBased() bool
}

// Datum is a single sensor value with the time it was last set
type Datum struct {
	value   float64
	updated time.Time
}

// NewDatum returns a Datum holding value, stamped with the current time
func NewDatum(value float64) Datum {
	return Datum{value: value, updated: time.Now()}
}

// Value returns the stored value. It returns NaN if the datum was never set.
func (d Datum) Value() float64 {
	if !d.IsSet() {
		return math.NaN()
	}
	return d.value
}

// Time returns the time the datum was last set
func (d Datum) Time() time.Time {
	return d.updated
}

// IsSet reports whether the datum has been set
func (d Datum) IsSet() bool {
	return !d.updated.IsZero()
}

// Set stores value and stamps the datum with the current time
func (d *Datum) Set(value float64) {
	d.value = value
	d.updated = time.Now()
}

// SetTime overrides the datum timestamp.
// Playback sources use it to replay recorded times.
func (d *Datum) SetTime(t time.Time) {
	d.updated = t
}

// DataStore maps sensor names to their most recent values
type DataStore map[string]Datum
