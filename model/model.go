// Package model defines the state-space model interfaces the prognostics
// pipeline is built around: a discrete-time nonlinear Model and a
// PrognosticsModel which extends it with event thresholds and predicted
// outputs.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Model is a discrete-time, time-varying nonlinear state-space model with
// fixed state, input and output sizes.
type Model interface {
	// Initialize seeds a plausible state from an initial input and observation
	Initialize(u, z mat.Vector) (mat.Vector, error)
	// StateEqn advances state x one step of length dt under input u,
	// with additive process-noise sample n
	StateEqn(t float64, x, u, n mat.Vector, dt float64) (mat.Vector, error)
	// OutputEqn computes the observation for state x with additive
	// sensor-noise sample n
	OutputEqn(t float64, x, n mat.Vector) (mat.Vector, error)
	// Dims returns the state, input and output dimensions
	Dims() (nx, nu, ny int)
	// Dt returns the default time step
	Dt() float64
	// SetDt overrides the default time step
	SetDt(dt float64)
	// Inputs returns the ordered input names used to bind sensor streams
	Inputs() []string
	// Outputs returns the ordered output names used to bind sensor streams
	Outputs() []string
}

// PrognosticsModel is a Model with named failure events and auxiliary
// predicted outputs.
type PrognosticsModel interface {
	Model
	// Events returns the ordered event names
	Events() []string
	// ThresholdEqn evaluates the per-event termination predicate:
	// true means the event has occurred
	ThresholdEqn(t float64, x, u mat.Vector) ([]bool, error)
	// InputEqn synthesises a future input vector from a load estimator sample
	InputEqn(t float64, params, load []float64) (mat.Vector, error)
	// PredictedOutputEqn computes the auxiliary outputs saved during prediction
	PredictedOutputEqn(t float64, x, u mat.Vector) (mat.Vector, error)
	// PredictedOutputs returns the ordered predicted-output names
	PredictedOutputs() []string
}

// Base carries the fixed sizes, names and time step shared by the concrete
// models. It provides the bookkeeping half of the Model interface; embedding
// types implement the dynamics.
type Base struct {
	nx, nu, ny int
	dt         float64
	inputs     []string
	outputs    []string
}

// NewBase returns a Base for the given dimensions, names and default time step
func NewBase(nx int, inputs, outputs []string, dt float64) Base {
	return Base{
		nx:      nx,
		nu:      len(inputs),
		ny:      len(outputs),
		dt:      dt,
		inputs:  inputs,
		outputs: outputs,
	}
}

// Dims returns the state, input and output dimensions
func (b *Base) Dims() (nx, nu, ny int) {
	return b.nx, b.nu, b.ny
}

// Dt returns the default time step
func (b *Base) Dt() float64 { return b.dt }

// SetDt overrides the default time step
func (b *Base) SetDt(dt float64) { b.dt = dt }

// Inputs returns the ordered input names
func (b *Base) Inputs() []string { return b.inputs }

// Outputs returns the ordered output names
func (b *Base) Outputs() []string { return b.outputs }

// StateVector returns a zeroed state-sized vector
func (b *Base) StateVector() *mat.VecDense {
	return mat.NewVecDense(b.nx, nil)
}

// InputVector returns a zeroed input-sized vector
func (b *Base) InputVector() *mat.VecDense {
	return mat.NewVecDense(b.nu, nil)
}

// OutputVector returns a zeroed output-sized vector
func (b *Base) OutputVector() *mat.VecDense {
	return mat.NewVecDense(b.ny, nil)
}
