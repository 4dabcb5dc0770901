// Package battery implements a lumped electrochemical battery model with an
// end-of-discharge event. The model tracks bulk and surface charge in both
// electrodes, surface overpotentials, ohmic drop and temperature; the cell
// voltage follows from Redlich-Kister equilibrium potentials. The single
// input is the power drawn from the cell; current is derived as i = P/V.
package battery

import (
	"fmt"
	"math"

	"github.com/milosgajdos/go-prognose/model"
	"gonum.org/v1/gonum/mat"
)

// State indices
const (
	Tb = iota
	Vo
	Vsn
	Vsp
	QnB
	QnS
	QpB
	QpS
)

// Output indices
const (
	Tbm = iota
	Vm
)

// EOD is the end-of-discharge event name
const EOD = "EOD"

// Parameters holds the battery model parameters. Derived capacity values are
// recomputed from QMobile by SetParameters.
type Parameters struct {
	// QMobile is the mobile charge available for the discharge reaction
	QMobile float64
	// mole fraction bounds of the negative (n) and positive (p) electrodes
	XnMax float64
	XnMin float64
	XpMax float64
	XpMin float64
	// Ro is the ohmic resistance
	Ro float64
	// R is the universal gas constant
	R float64
	// F is the Faraday constant
	F float64
	// Alpha is the charge transfer coefficient
	Alpha float64
	// Sn, Sp are the electrode surface areas
	Sn float64
	Sp float64
	// Kn, Kp are the lumped exchange current density constants
	Kn float64
	Kp float64
	// Vol is the total electrode volume, VolSFraction the surface-layer share
	Vol          float64
	VolSFraction float64
	// TDiffusion is the bulk/surface diffusion time constant
	TDiffusion float64
	// To, Tsn, Tsp are the ohmic and surface overpotential time constants
	To  float64
	Tsn float64
	Tsp float64
	// U0p, U0n are the equilibrium potential reference values
	U0p float64
	U0n float64
	// Ap, An are the Redlich-Kister expansion coefficients
	Ap [13]float64
	An [13]float64
	// VEOD is the end-of-discharge voltage threshold
	VEOD float64

	// derived values, recomputed by SetParameters
	QMax   float64
	VolS   float64
	VolB   float64
	QpMin  float64
	QpMax  float64
	QpSMin float64
	QpSMax float64
	QpBMin float64
	QpBMax float64
	QnMin  float64
	QnMax  float64
	QnSMax float64
	QnBMax float64
	QSMax  float64
	QBMax  float64
}

// Battery is the electrochemical battery model
type Battery struct {
	model.Base
	// Params are the battery parameters
	Params Parameters
}

// New creates a new battery model with the default parameter set and a 1s
// default time step.
func New() *Battery {
	b := &Battery{
		Base: model.NewBase(8,
			[]string{"power"},
			[]string{"temperature", "voltage"},
			1.0),
		Params: Parameters{
			XnMax:        0.6,
			XnMin:        0.0,
			XpMax:        1.0,
			XpMin:        0.4,
			Ro:           0.117215,
			R:            8.3144621,
			F:            96487,
			Alpha:        0.5,
			Sn:           0.000437545,
			Sp:           0.00030962,
			Kn:           2120.96,
			Kp:           248898,
			Vol:          2e-5,
			VolSFraction: 0.1,
			TDiffusion:   7e6,
			To:           6.08671,
			Tsn:          1001.38,
			Tsp:          46.4311,
			U0p:          4.03,
			U0n:          0.01,
			Ap: [13]float64{
				-31593.7, 0.106747, 24606.4, -78561.9, 13317.9,
				307387, 84916.1, -1.07469e+06, 2285.04, 990894,
				283920, -161513, -469218,
			},
			An:   [13]float64{86.19},
			VEOD: 3.0,
		},
	}
	b.SetParameters(7600)

	return b
}

// SetParameters recomputes the derived capacity parameters from the mobile
// charge qMobile.
func (b *Battery) SetParameters(qMobile float64) {
	p := &b.Params

	p.QMobile = qMobile
	p.QMax = qMobile / (p.XnMax - p.XnMin)

	p.VolS = p.VolSFraction * p.Vol
	p.VolB = p.Vol - p.VolS

	p.QpMin = p.QMax * p.XpMin
	p.QpMax = p.QMax * p.XpMax
	p.QpSMin = p.QpMin * p.VolS / p.Vol
	p.QpSMax = p.QpMax * p.VolS / p.Vol
	p.QpBMin = p.QpMin * p.VolB / p.Vol
	p.QpBMax = p.QpMax * p.VolB / p.Vol

	p.QnMin = p.QMax * p.XnMin
	p.QnMax = p.QMax * p.XnMax
	p.QnSMax = p.QnMax * p.VolS / p.Vol
	p.QnBMax = p.QnMax * p.VolB / p.Vol

	p.QSMax = p.QMax * p.VolS / p.Vol
	p.QBMax = p.QMax * p.VolB / p.Vol
}

// Events returns the battery event names
func (b *Battery) Events() []string { return []string{EOD} }

// PredictedOutputs returns the battery predicted-output names
func (b *Battery) PredictedOutputs() []string { return []string{"SOC"} }

// redlichKister evaluates the Redlich-Kister expansion for mole fraction x
func redlichKister(a *[13]float64, f, x float64) float64 {
	sum := 0.0
	for k, ak := range a {
		if ak == 0 {
			continue
		}
		kf := float64(k)
		term := math.Pow(2*x-1, kf+1)
		if k > 0 {
			term -= (2 * x * kf * (1 - x)) / math.Pow(2*x-1, 1-kf)
		}
		sum += ak / f * term
	}
	return sum
}

// vEn is the negative electrode equilibrium potential at mole fraction xn
func (b *Battery) vEn(xn, tb float64) float64 {
	p := &b.Params
	return p.U0n + p.R*tb/p.F*math.Log((1-xn)/xn) + redlichKister(&p.An, p.F, xn)
}

// vEp is the positive electrode equilibrium potential at mole fraction xp
func (b *Battery) vEp(xp, tb float64) float64 {
	p := &b.Params
	return p.U0p + p.R*tb/p.F*math.Log((1-xp)/xp) + redlichKister(&p.Ap, p.F, xp)
}

// voltage computes the cell voltage for state x
func (b *Battery) voltage(x mat.Vector) float64 {
	p := &b.Params
	xnS := x.AtVec(QnS) / p.QSMax
	xpS := x.AtVec(QpS) / p.QSMax
	tb := x.AtVec(Tb)

	return b.vEp(xpS, tb) - b.vEn(xnS, tb) - x.AtVec(Vo) - x.AtVec(Vsn) - x.AtVec(Vsp)
}

// Initialize seeds the battery state from the initial power draw u and
// observation z = (temperature, voltage). The state of charge is solved from
// the equilibrium voltage by bisection; the solution is clamped to [0, 1].
func (b *Battery) Initialize(u, z mat.Vector) (mat.Vector, error) {
	if u.Len() != 1 || z.Len() != 2 {
		return nil, fmt.Errorf("invalid dimensions: u %d z %d", u.Len(), z.Len())
	}

	p := &b.Params

	tb := z.AtVec(Tbm) + 273.15
	v := z.AtVec(Vm)

	var i0 float64
	if v != 0 {
		i0 = u.AtVec(0) / v
	}
	vo := p.Ro * i0

	soc := b.solveSOC(v, vo, tb)
	xn := p.XnMin + soc*(p.XnMax-p.XnMin)
	xp := p.XpMax - soc*(p.XpMax-p.XpMin)

	x := mat.NewVecDense(8, nil)
	x.SetVec(Tb, tb)
	x.SetVec(Vo, vo)
	x.SetVec(Vsn, 0)
	x.SetVec(Vsp, 0)
	x.SetVec(QnB, xn*p.QBMax)
	x.SetVec(QnS, xn*p.QSMax)
	x.SetVec(QpB, xp*p.QBMax)
	x.SetVec(QpS, xp*p.QSMax)

	return x, nil
}

// solveSOC finds the state of charge whose equilibrium voltage less the
// ohmic drop vo matches the measured voltage v.
func (b *Battery) solveSOC(v, vo, tb float64) float64 {
	p := &b.Params

	f := func(soc float64) float64 {
		xn := p.XnMin + soc*(p.XnMax-p.XnMin)
		xp := p.XpMax - soc*(p.XpMax-p.XpMin)
		return b.vEp(xp, tb) - b.vEn(xn, tb) - vo - v
	}

	// the equilibrium voltage is increasing in the state of charge
	if f(1) <= 0 {
		return 1
	}

	lo, hi := 0.0, 1.0
	for iter := 0; iter < 100; iter++ {
		mid := 0.5 * (lo + hi)
		if f(mid) < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}

	return 0.5 * (lo + hi)
}

// StateEqn advances the battery state one step of length dt under power
// draw u, with additive process-noise sample n.
func (b *Battery) StateEqn(t float64, x, u, n mat.Vector, dt float64) (mat.Vector, error) {
	if x.Len() != 8 || u.Len() != 1 || n.Len() != 8 {
		return nil, fmt.Errorf("invalid dimensions: x %d u %d n %d", x.Len(), u.Len(), n.Len())
	}

	p := &b.Params

	v := b.voltage(x)
	i := u.AtVec(0) / v

	tb := x.AtVec(Tb)
	xnS := x.AtVec(QnS) / p.QSMax
	xpS := x.AtVec(QpS) / p.QSMax

	// bulk to surface diffusion
	cnBulk := x.AtVec(QnB) / p.VolB
	cnSurface := x.AtVec(QnS) / p.VolS
	qDiffusionN := (cnBulk - cnSurface) / p.TDiffusion
	cpBulk := x.AtVec(QpB) / p.VolB
	cpSurface := x.AtVec(QpS) / p.VolS
	qDiffusionP := (cpBulk - cpSurface) / p.TDiffusion

	qnBdot := -qDiffusionN
	qnSdot := qDiffusionN - i
	qpBdot := -qDiffusionP
	qpSdot := qDiffusionP + i

	// Butler-Volmer surface overpotentials
	jn := i / p.Sn
	jp := i / p.Sp
	jn0 := p.Kn * math.Pow((1-xnS)*xnS, p.Alpha)
	jp0 := p.Kp * math.Pow((1-xpS)*xpS, p.Alpha)
	vsnNominal := p.R * tb / (p.F * p.Alpha) * math.Asinh(jn/(2*jn0))
	vspNominal := p.R * tb / (p.F * p.Alpha) * math.Asinh(jp/(2*jp0))
	vsnDot := (vsnNominal - x.AtVec(Vsn)) / p.Tsn
	vspDot := (vspNominal - x.AtVec(Vsp)) / p.Tsp

	// ohmic drop
	voNominal := i * p.Ro
	voDot := (voNominal - x.AtVec(Vo)) / p.To

	next := mat.NewVecDense(8, nil)
	next.SetVec(Tb, tb+dt*n.AtVec(Tb))
	next.SetVec(Vo, x.AtVec(Vo)+dt*voDot+dt*n.AtVec(Vo))
	next.SetVec(Vsn, x.AtVec(Vsn)+dt*vsnDot+dt*n.AtVec(Vsn))
	next.SetVec(Vsp, x.AtVec(Vsp)+dt*vspDot+dt*n.AtVec(Vsp))
	next.SetVec(QnB, x.AtVec(QnB)+dt*qnBdot+dt*n.AtVec(QnB))
	next.SetVec(QnS, x.AtVec(QnS)+dt*qnSdot+dt*n.AtVec(QnS))
	next.SetVec(QpB, x.AtVec(QpB)+dt*qpBdot+dt*n.AtVec(QpB))
	next.SetVec(QpS, x.AtVec(QpS)+dt*qpSdot+dt*n.AtVec(QpS))

	return next, nil
}

// OutputEqn computes the measured temperature and voltage with additive
// sensor-noise sample n.
func (b *Battery) OutputEqn(t float64, x, n mat.Vector) (mat.Vector, error) {
	if x.Len() != 8 || n.Len() != 2 {
		return nil, fmt.Errorf("invalid dimensions: x %d n %d", x.Len(), n.Len())
	}

	z := mat.NewVecDense(2, nil)
	z.SetVec(Tbm, x.AtVec(Tb)-273.15+n.AtVec(Tbm))
	z.SetVec(Vm, b.voltage(x)+n.AtVec(Vm))

	return z, nil
}

// ThresholdEqn reports whether the cell voltage has dropped below VEOD
func (b *Battery) ThresholdEqn(t float64, x, u mat.Vector) ([]bool, error) {
	if x.Len() != 8 {
		return nil, fmt.Errorf("invalid state dimension: %d", x.Len())
	}

	return []bool{b.voltage(x) < b.Params.VEOD}, nil
}

// InputEqn synthesises the power input from a load estimator sample.
// When no load sample is available it falls back to the first input
// parameter value.
func (b *Battery) InputEqn(t float64, params, load []float64) (mat.Vector, error) {
	switch {
	case len(load) > 0:
		return mat.NewVecDense(1, []float64{load[0]}), nil
	case len(params) > 0:
		return mat.NewVecDense(1, []float64{params[0]}), nil
	}
	return nil, fmt.Errorf("no load sample and no input parameters")
}

// PredictedOutputEqn computes the battery state of charge
func (b *Battery) PredictedOutputEqn(t float64, x, u mat.Vector) (mat.Vector, error) {
	if x.Len() != 8 {
		return nil, fmt.Errorf("invalid state dimension: %d", x.Len())
	}

	soc := (x.AtVec(QnB) + x.AtVec(QnS)) / b.Params.QMobile

	return mat.NewVecDense(1, []float64{soc}), nil
}
