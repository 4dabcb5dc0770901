// Package sim provides a forward-simulation harness for state-space models:
// single trajectories under configurable noise, and ensembles with sample
// statistics.
package sim

import (
	"fmt"

	"github.com/milosgajdos/go-prognose/model"
	"github.com/milosgajdos/go-prognose/noise"
	gomatrix "github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// InputFunc supplies the model input at time t
type InputFunc func(t float64) mat.Vector

// Trajectory holds one simulated run: states and outputs per step
type Trajectory struct {
	// Times holds the step times
	Times []float64
	// States stores the state vectors in its columns
	States *mat.Dense
	// Outputs stores the output vectors in its columns
	Outputs *mat.Dense
}

// Run simulates m from initial state x0 for the given number of steps of
// the model time step, drawing process and sensor noise from the supplied
// sources. Nil noise sources mean zero noise.
func Run(m model.Model, x0 mat.Vector, in InputFunc, process, sensor noise.Noise, steps int) (*Trajectory, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("invalid step count: %d", steps)
	}
	nx, _, ny := m.Dims()
	if x0.Len() != nx {
		return nil, fmt.Errorf("initial state %d, want %d", x0.Len(), nx)
	}

	var err error
	if process == nil {
		if process, err = noise.NewZero(nx); err != nil {
			return nil, err
		}
	}
	if sensor == nil {
		if sensor, err = noise.NewZero(ny); err != nil {
			return nil, err
		}
	}

	dt := m.Dt()
	traj := &Trajectory{
		Times:   make([]float64, steps+1),
		States:  mat.NewDense(nx, steps+1, nil),
		Outputs: mat.NewDense(ny, steps+1, nil),
	}

	x := mat.NewVecDense(nx, nil)
	x.CloneFromVec(x0)

	for s := 0; s <= steps; s++ {
		t := float64(s) * dt
		traj.Times[s] = t

		z, err := m.OutputEqn(t, x, sensor.Sample())
		if err != nil {
			return nil, fmt.Errorf("output at step %d: %v", s, err)
		}
		for i := 0; i < nx; i++ {
			traj.States.Set(i, s, x.AtVec(i))
		}
		for i := 0; i < ny; i++ {
			traj.Outputs.Set(i, s, z.AtVec(i))
		}

		if s == steps {
			break
		}

		next, err := m.StateEqn(t, x, in(t), process.Sample(), dt)
		if err != nil {
			return nil, fmt.Errorf("state at step %d: %v", s, err)
		}
		x.CloneFromVec(next)
	}

	return traj, nil
}

// Ensemble simulates n independent runs of m and returns their final states
// stored in the columns of the returned matrix.
func Ensemble(m model.Model, x0 mat.Vector, in InputFunc, process, sensor noise.Noise, steps, n int) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid ensemble size: %d", n)
	}

	nx, _, _ := m.Dims()
	out := mat.NewDense(nx, n, nil)

	for k := 0; k < n; k++ {
		traj, err := Run(m, x0, in, process, sensor, steps)
		if err != nil {
			return nil, err
		}
		_, cols := traj.States.Dims()
		for i := 0; i < nx; i++ {
			out.Set(i, k, traj.States.At(i, cols-1))
		}
	}

	return out, nil
}

// Cov returns the sample covariance of an ensemble of states stored in the
// columns of x.
func Cov(x *mat.Dense) (*mat.SymDense, error) {
	return gomatrix.Cov(x, "cols")
}
