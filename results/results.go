// Package results holds the output of a prediction step: per-event time of
// event distributions with occurrence probabilities and time-indexed
// predicted-output trajectories.
package results

import (
	"fmt"
	"math"
	"sort"

	"github.com/milosgajdos/go-prognose/udata"
	"gonum.org/v1/gonum/stat"
)

// Event is a named failure event with its predicted time of event
type Event struct {
	// Name is the event name
	Name string
	// TOE is the time-of-event distribution, typically Samples or WSamples
	TOE *udata.UData
	// Reached flags, per sample, whether the event fired within the horizon.
	// Samples which never crossed the threshold record the horizon end as
	// their TOE value.
	Reached []bool
	// Occurrence is the fraction of samples with TOE at or before each
	// prediction interval, indexed like the trajectory slots
	Occurrence []float64
}

// ProbabilityOfOccurrence returns the fraction of samples which reached the
// event within the prediction horizon.
func (e *Event) ProbabilityOfOccurrence() float64 {
	if len(e.Reached) == 0 {
		return 0
	}
	fired := 0
	for _, r := range e.Reached {
		if r {
			fired++
		}
	}
	return float64(fired) / float64(len(e.Reached))
}

// Trajectory is a predicted output recorded at every prediction interval
type Trajectory struct {
	// Name is the predicted output name
	Name string
	// Slots holds one value distribution per prediction interval
	Slots []*udata.UData
}

// Prediction is the result of one prediction step
type Prediction struct {
	// Time is the prediction start time
	Time float64
	// Interval is the spacing of the trajectory slots in seconds
	Interval float64
	// Events holds the per-event results
	Events []Event
	// Trajectories holds the predicted-output trajectories
	Trajectories []Trajectory
}

// Empty reports whether the prediction carries no events and no trajectories
func (p *Prediction) Empty() bool {
	return p == nil || (len(p.Events) == 0 && len(p.Trajectories) == 0)
}

// Event returns the named event
func (p *Prediction) Event(name string) (*Event, error) {
	for i := range p.Events {
		if p.Events[i].Name == name {
			return &p.Events[i], nil
		}
	}
	return nil, fmt.Errorf("unknown event: %q", name)
}

// Trajectory returns the named trajectory
func (p *Prediction) Trajectory(name string) (*Trajectory, error) {
	for i := range p.Trajectories {
		if p.Trajectories[i].Name == name {
			return &p.Trajectories[i], nil
		}
	}
	return nil, fmt.Errorf("unknown trajectory: %q", name)
}

// Mean returns the arithmetic mean of samples
func Mean(samples []float64) float64 {
	if len(samples) == 0 {
		return math.NaN()
	}
	return stat.Mean(samples, nil)
}

// StdDev returns the population standard deviation of samples.
// The population estimator (divide by N) matches the sample sets produced
// by the Monte Carlo predictor.
func StdDev(samples []float64) float64 {
	if len(samples) == 0 {
		return math.NaN()
	}
	mean := stat.Mean(samples, nil)
	sum := 0.0
	for _, s := range samples {
		sum += (s - mean) * (s - mean)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Median returns the middle order statistic of samples
func Median(samples []float64) float64 {
	if len(samples) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

// CDF returns the empirical probability that a sample is below critical
func CDF(samples []float64, critical float64) float64 {
	if len(samples) == 0 {
		return math.NaN()
	}
	below := 0
	for _, s := range samples {
		if s < critical {
			below++
		}
	}
	return float64(below) / float64(len(samples))
}
