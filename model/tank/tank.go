// Package tank implements a three-tank hydraulic model: three mass states,
// three inflows and three measured pressures. The dynamics are linear and
// discretised by explicit Euler at the model time step.
package tank

import (
	"fmt"

	"github.com/milosgajdos/go-prognose/model"
	"gonum.org/v1/gonum/mat"
)

// State indices
const (
	M1 = iota
	M2
	M3
)

// Parameters are the tank flow and capacity coefficients
type Parameters struct {
	K1   float64
	K2   float64
	K3   float64
	R1   float64
	R2   float64
	R3   float64
	R1c2 float64
	R2c3 float64
}

// Tank3 is the three-tank model
type Tank3 struct {
	model.Base
	// Params are the model parameters
	Params Parameters
}

// New creates a new Tank3 with the given parameters and a 1s default step
func New(p Parameters) *Tank3 {
	return &Tank3{
		Base: model.NewBase(3,
			[]string{"inflow1", "inflow2", "inflow3"},
			[]string{"pressure1", "pressure2", "pressure3"},
			1.0),
		Params: p,
	}
}

// Initialize returns the zero initial state
func (t3 *Tank3) Initialize(u, z mat.Vector) (mat.Vector, error) {
	return t3.StateVector(), nil
}

// StateEqn advances the tank masses one Euler step of length dt
func (t3 *Tank3) StateEqn(t float64, x, u, n mat.Vector, dt float64) (mat.Vector, error) {
	if x.Len() != 3 || u.Len() != 3 || n.Len() != 3 {
		return nil, fmt.Errorf("invalid dimensions: x %d u %d n %d", x.Len(), u.Len(), n.Len())
	}

	p := t3.Params

	m1, m2, m3 := x.AtVec(M1), x.AtVec(M2), x.AtVec(M3)

	p1 := m1 / p.K1
	p2 := m2 / p.K2
	p3 := m3 / p.K3
	q1 := p1 / p.R1
	q2 := p2 / p.R2
	q3 := p3 / p.R3
	q1c2 := (p1 - p2) / p.R1c2
	q2c3 := (p2 - p3) / p.R2c3

	m1dot := -q1 - q1c2 + u.AtVec(0)
	m2dot := q1c2 - q2 - q2c3 + u.AtVec(1)
	m3dot := q2c3 - q3 + u.AtVec(2)

	next := mat.NewVecDense(3, []float64{
		m1 + dt*m1dot + dt*n.AtVec(0),
		m2 + dt*m2dot + dt*n.AtVec(1),
		m3 + dt*m3dot + dt*n.AtVec(2),
	})

	return next, nil
}

// OutputEqn computes the measured tank pressures
func (t3 *Tank3) OutputEqn(t float64, x, n mat.Vector) (mat.Vector, error) {
	if x.Len() != 3 || n.Len() != 3 {
		return nil, fmt.Errorf("invalid dimensions: x %d n %d", x.Len(), n.Len())
	}

	p := t3.Params

	z := mat.NewVecDense(3, []float64{
		x.AtVec(M1)/p.K1 + n.AtVec(0),
		x.AtVec(M2)/p.K2 + n.AtVec(1),
		x.AtVec(M3)/p.K3 + n.AtVec(2),
	})

	return z, nil
}
