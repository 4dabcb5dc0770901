// Package ukf implements an Unscented (a.k.a. Sigma Point) Kalman Filter
// over a nonlinear state-space model.
package ukf

import (
	"fmt"
	"math"

	prognose "github.com/milosgajdos/go-prognose"
	"github.com/milosgajdos/go-prognose/config"
	"github.com/milosgajdos/go-prognose/estimate"
	"github.com/milosgajdos/go-prognose/matrix"
	"github.com/milosgajdos/go-prognose/model"
	"github.com/milosgajdos/go-prognose/udata"
	"gonum.org/v1/gonum/mat"
)

// Configuration keys
const (
	QKey     = "Observer.Q"
	RKey     = "Observer.R"
	AlphaKey = "Observer.Alpha"
	BetaKey  = "Observer.Beta"
	KappaKey = "Observer.Kappa"
)

// Config contains the unitless UKF sigma point parameters
type Config struct {
	// Alpha is the sigma point spread parameter (0,1]
	Alpha float64
	// Beta folds in prior distribution knowledge (2 is optimal for Gaussian)
	Beta float64
	// Kappa is a secondary scaling parameter (must be non-negative)
	Kappa float64
}

// DefaultConfig returns the standard sigma point parameters
func DefaultConfig() *Config {
	return &Config{Alpha: 1, Beta: 2, Kappa: 0}
}

// UKF is an Unscented Kalman Filter
type UKF struct {
	// m is the UKF system model
	m model.Model
	// q is state noise a.k.a. process noise covariance
	q *mat.SymDense
	// r is output noise a.k.a. measurement noise covariance
	r *mat.SymDense
	// gamma is the sigma point covariance scaling factor sqrt(nx+lambda)
	gamma float64
	// wm0 is the mean sigma point weight
	wm0 float64
	// wc0 is the mean sigma point covariance weight
	wc0 float64
	// w is the weight of the remaining sigma points and covariances
	w float64
	// x is the posterior state mean
	x *mat.VecDense
	// p is the posterior state covariance
	p *mat.SymDense
	// z is the output estimate for the posterior state
	z *mat.VecDense
	// u holds the inputs of the most recent step
	u *mat.VecDense
	// t is the time of the most recent step
	t float64
	// initialized tracks whether Initialize has been called
	initialized bool
}

// New creates a new UKF for model m with process noise covariance q,
// measurement noise covariance r and sigma point configuration c.
// A nil c selects the default configuration.
// It returns error if the noise dimensions do not match the model or if the
// sigma point parameters are invalid.
func New(m model.Model, q, r mat.Symmetric, c *Config) (*UKF, error) {
	nx, _, ny := m.Dims()
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("invalid model dimensions: [%d x %d]", nx, ny)
	}

	if q.SymmetricDim() != nx {
		return nil, fmt.Errorf("process noise dimension %d, states %d: %w", q.SymmetricDim(), nx, matrix.ErrDimensionMismatch)
	}
	if r.SymmetricDim() != ny {
		return nil, fmt.Errorf("measurement noise dimension %d, outputs %d: %w", r.SymmetricDim(), ny, matrix.ErrDimensionMismatch)
	}

	if c == nil {
		c = DefaultConfig()
	}
	if c.Alpha <= 0 || c.Alpha > 1 || c.Kappa < 0 {
		return nil, fmt.Errorf("invalid sigma point parameters: alpha %g, kappa %g", c.Alpha, c.Kappa)
	}

	lambda := c.Alpha*c.Alpha*(float64(nx)+c.Kappa) - float64(nx)
	gamma := math.Sqrt(float64(nx) + lambda)

	wm0 := lambda / (float64(nx) + lambda)
	wc0 := wm0 + (1 - c.Alpha*c.Alpha + c.Beta)
	w := 1 / (2 * (float64(nx) + lambda))

	qq := mat.NewSymDense(nx, nil)
	qq.CopySym(q)
	rr := mat.NewSymDense(ny, nil)
	rr.CopySym(r)

	return &UKF{
		m:     m,
		q:     qq,
		r:     rr,
		gamma: gamma,
		wm0:   wm0,
		wc0:   wc0,
		w:     w,
		x:     mat.NewVecDense(nx, nil),
		p:     mat.NewSymDense(nx, nil),
		z:     mat.NewVecDense(ny, nil),
		u:     mat.NewVecDense(1, nil),
	}, nil
}

// NewFromConfig creates a new UKF for model m configured from cfg.
// Observer.Q must hold nx*nx row-major entries and Observer.R ny*ny entries;
// Observer.Alpha, Observer.Beta and Observer.Kappa override the sigma point
// defaults.
func NewFromConfig(m model.Model, cfg config.Map) (*UKF, error) {
	nx, _, ny := m.Dims()

	qVals, err := cfg.Float64s(QKey)
	if err != nil {
		return nil, err
	}
	q, err := matrix.Sym(nx, qVals)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", QKey, err, config.ErrConfig)
	}

	rVals, err := cfg.Float64s(RKey)
	if err != nil {
		return nil, err
	}
	r, err := matrix.Sym(ny, rVals)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", RKey, err, config.ErrConfig)
	}

	c := DefaultConfig()
	if cfg.Has(AlphaKey) {
		if c.Alpha, err = cfg.Float64(AlphaKey); err != nil {
			return nil, err
		}
	}
	if cfg.Has(BetaKey) {
		if c.Beta, err = cfg.Float64(BetaKey); err != nil {
			return nil, err
		}
	}
	if cfg.Has(KappaKey) {
		if c.Kappa, err = cfg.Float64(KappaKey); err != nil {
			return nil, err
		}
	}

	return New(m, q, r, c)
}

// Initialize sets the filter state to x0 with covariance Q at time t and
// computes the initial output estimate by propagating sigma points through
// the output equation with zero noise.
func (k *UKF) Initialize(t float64, x0, u0 mat.Vector) error {
	nx, _, _ := k.m.Dims()
	if x0.Len() != nx {
		return fmt.Errorf("state %d, want %d: %w", x0.Len(), nx, matrix.ErrDimensionMismatch)
	}

	k.x.CloneFromVec(x0)
	k.p.CopySym(k.q)
	k.u = mat.NewVecDense(u0.Len(), nil)
	k.u.CloneFromVec(u0)
	k.t = t
	k.initialized = true

	z, err := k.outputEstimate(t)
	if err != nil {
		return err
	}
	k.z = z

	return nil
}

// sigmaPoints generates the 2nx+1 sigma points around mean with covariance cov:
// the mean itself and mean +- gamma*L[:,i] for the lower Cholesky factor L.
func (k *UKF) sigmaPoints(mean *mat.VecDense, cov *mat.SymDense) (*mat.Dense, error) {
	nx := mean.Len()

	l, err := matrix.CholLower(cov)
	if err != nil {
		return nil, fmt.Errorf("sigma point generation: %w", err)
	}

	points := mat.NewDense(nx, 2*nx+1, nil)
	for c := 0; c < 2*nx+1; c++ {
		for i := 0; i < nx; i++ {
			points.Set(i, c, mean.AtVec(i))
		}
	}
	for j := 0; j < nx; j++ {
		for i := 0; i < nx; i++ {
			spread := k.gamma * l.At(i, j)
			points.Set(i, 1+j, points.At(i, 1+j)+spread)
			points.Set(i, 1+nx+j, points.At(i, 1+nx+j)-spread)
		}
	}

	return points, nil
}

// weightedMean accumulates the sigma point mean using the UT mean weights
func (k *UKF) weightedMean(points *mat.Dense) *mat.VecDense {
	rows, cols := points.Dims()
	mean := mat.NewVecDense(rows, nil)
	for c := 0; c < cols; c++ {
		w := k.w
		if c == 0 {
			w = k.wm0
		}
		for i := 0; i < rows; i++ {
			mean.SetVec(i, mean.AtVec(i)+w*points.At(i, c))
		}
	}
	return mean
}

// covWeight returns the UT covariance weight for sigma point column c
func (k *UKF) covWeight(c int) float64 {
	if c == 0 {
		return k.wc0
	}
	return k.w
}

// Step performs one predict/update cycle for input u and measurement z at
// time t. It returns ErrNotInitialized before Initialize and
// ErrTimeNotAdvanced when t does not advance past the previous step.
func (k *UKF) Step(t float64, u, z mat.Vector) error {
	if !k.initialized {
		return prognose.ErrNotInitialized
	}
	if t <= k.t {
		return fmt.Errorf("t %g, previous %g: %w", t, k.t, prognose.ErrTimeNotAdvanced)
	}

	nx, _, ny := k.m.Dims()
	if z.Len() != ny {
		return fmt.Errorf("measurement %d, want %d: %w", z.Len(), ny, matrix.ErrDimensionMismatch)
	}
	dt := t - k.t

	// generate sigma points around the posterior
	points, err := k.sigmaPoints(k.x, k.p)
	if err != nil {
		return err
	}

	// propagate sigma points with zero process noise
	cols := 2*nx + 1
	propagated := mat.NewDense(nx, cols, nil)
	noise := mat.NewVecDense(nx, nil)
	for c := 0; c < cols; c++ {
		next, err := k.m.StateEqn(t, points.ColView(c), u, noise, dt)
		if err != nil {
			return fmt.Errorf("sigma point propagation: %v", err)
		}
		for i := 0; i < nx; i++ {
			propagated.Set(i, c, next.AtVec(i))
		}
	}

	// predicted state mean and covariance; process noise enters additively
	xMean := k.weightedMean(propagated)
	pPred := mat.NewSymDense(nx, nil)
	pPred.CopySym(k.q)
	diff := mat.NewVecDense(nx, nil)
	for c := 0; c < cols; c++ {
		for i := 0; i < nx; i++ {
			diff.SetVec(i, propagated.At(i, c)-xMean.AtVec(i))
		}
		pPred.SymRankOne(pPred, k.covWeight(c), diff)
	}

	// observe the propagated sigma points with zero sensor noise
	outNoise := mat.NewVecDense(ny, nil)
	outputs := mat.NewDense(ny, cols, nil)
	for c := 0; c < cols; c++ {
		out, err := k.m.OutputEqn(t, propagated.ColView(c), outNoise)
		if err != nil {
			return fmt.Errorf("sigma point observation: %v", err)
		}
		for i := 0; i < ny; i++ {
			outputs.Set(i, c, out.AtVec(i))
		}
	}

	// output and cross covariances from the propagated set
	zMean := k.weightedMean(outputs)
	pzz := mat.NewSymDense(ny, nil)
	pzz.CopySym(k.r)
	pxz := mat.NewDense(nx, ny, nil)
	zDiff := mat.NewVecDense(ny, nil)
	cross := mat.NewDense(nx, ny, nil)
	for c := 0; c < cols; c++ {
		for i := 0; i < nx; i++ {
			diff.SetVec(i, propagated.At(i, c)-xMean.AtVec(i))
		}
		for i := 0; i < ny; i++ {
			zDiff.SetVec(i, outputs.At(i, c)-zMean.AtVec(i))
		}
		pzz.SymRankOne(pzz, k.covWeight(c), zDiff)
		cross.Mul(diff, zDiff.T())
		cross.Scale(k.covWeight(c), cross)
		pxz.Add(pxz, cross)
	}

	// Kalman gain
	pzzInv, err := matrix.Inverse(pzz)
	if err != nil {
		return fmt.Errorf("output covariance: %w", err)
	}
	gain := &mat.Dense{}
	gain.Mul(pxz, pzzInv)

	// correct the state mean with the innovation
	inn := mat.NewVecDense(ny, nil)
	for i := 0; i < ny; i++ {
		inn.SetVec(i, z.AtVec(i)-zMean.AtVec(i))
	}
	corr := mat.NewVecDense(nx, nil)
	corr.MulVec(gain, inn)
	k.x.AddVec(xMean, corr)

	// correct the covariance: P = P- - K Pzz K^T
	kp := &mat.Dense{}
	kp.Mul(gain, pzz)
	pCorr := &mat.Dense{}
	pCorr.Mul(kp, gain.T())
	for i := 0; i < nx; i++ {
		for j := i; j < nx; j++ {
			k.p.SetSym(i, j, pPred.At(i, j)-pCorr.At(i, j))
		}
	}

	k.u = mat.NewVecDense(u.Len(), nil)
	k.u.CloneFromVec(u)
	k.t = t

	zEst, err := k.outputEstimate(t)
	if err != nil {
		return err
	}
	k.z = zEst

	return nil
}

// outputEstimate propagates sigma points around the current posterior
// through the output equation with zero noise and returns their mean.
func (k *UKF) outputEstimate(t float64) (*mat.VecDense, error) {
	_, _, ny := k.m.Dims()

	points, err := k.sigmaPoints(k.x, k.p)
	if err != nil {
		return nil, err
	}

	_, cols := points.Dims()
	noise := mat.NewVecDense(ny, nil)
	outputs := mat.NewDense(ny, cols, nil)
	for c := 0; c < cols; c++ {
		out, err := k.m.OutputEqn(t, points.ColView(c), noise)
		if err != nil {
			return nil, fmt.Errorf("output estimation: %v", err)
		}
		for i := 0; i < ny; i++ {
			outputs.Set(i, c, out.AtVec(i))
		}
	}

	return k.weightedMean(outputs), nil
}

// StateEstimate returns the posterior estimate in MeanCovar form: one UData
// per state holding the component mean and the full row of the covariance.
func (k *UKF) StateEstimate() []udata.UData {
	state, err := estimate.NewMeanCovar(k.x, k.p)
	if err != nil {
		// dimensions are fixed at construction; this cannot fail
		panic(err)
	}
	return state
}

// StateMean returns the posterior state mean
func (k *UKF) StateMean() mat.Vector {
	x := mat.NewVecDense(k.x.Len(), nil)
	x.CloneFromVec(k.x)
	return x
}

// OutputMean returns the output estimate for the posterior state
func (k *UKF) OutputMean() mat.Vector {
	z := mat.NewVecDense(k.z.Len(), nil)
	z.CloneFromVec(k.z)
	return z
}

// Cov returns the posterior state covariance
func (k *UKF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(k.p.SymmetricDim(), nil)
	cov.CopySym(k.p)
	return cov
}

// Time returns the time of the most recent step
func (k *UKF) Time() float64 { return k.t }

// Inputs returns the inputs of the most recent step
func (k *UKF) Inputs() mat.Vector {
	u := mat.NewVecDense(k.u.Len(), nil)
	u.CloneFromVec(k.u)
	return u
}
