// Package prognoser wires a prognostics model, an observer, a predictor and
// a load estimator into the step loop which turns sensor data into event
// predictions.
package prognoser

import (
	"fmt"

	prognose "github.com/milosgajdos/go-prognose"
	"github.com/milosgajdos/go-prognose/config"
	"github.com/milosgajdos/go-prognose/load"
	"github.com/milosgajdos/go-prognose/model"
	"github.com/milosgajdos/go-prognose/model/battery"
	"github.com/milosgajdos/go-prognose/observer/pf"
	"github.com/milosgajdos/go-prognose/observer/ukf"
	"github.com/milosgajdos/go-prognose/predictor/montecarlo"
	"github.com/milosgajdos/go-prognose/results"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Configuration keys
const (
	ModelKey    = "model"
	ObserverKey = "observer"
	// PredictorKey selects the predictor implementation
	PredictorKey = "predictor"
	StepSizeKey  = "Model.StepSize"

	QMobileKey = "Battery.qMobile"
	RoKey      = "Battery.Ro"
	VEODKey    = "Battery.VEOD"
)

// Component names accepted by NewFromConfig
const (
	BatteryModelName = "Battery"
	UKFName          = "UKF"
	PFName           = "PF"
	MonteCarloName   = "MC"
)

// Prognoser runs the model-observer-predictor pipeline over sensor data
type Prognoser struct {
	// m is the prognostics model
	m model.PrognosticsModel
	// obs estimates the hidden model state
	obs prognose.Observer
	// pred predicts events from the state estimate
	pred prognose.Predictor
	// loadEst supplies future loading to the predictor
	loadEst prognose.LoadEstimator
	// log is the step loop logger
	log *zap.Logger
	// initialized tracks whether the first data frame has been consumed
	initialized bool
	// lastTime is the time of the most recent successful step
	lastTime float64
}

// New creates a new prognoser from its collaborators.
// A nil logger disables logging.
func New(m model.PrognosticsModel, obs prognose.Observer, pred prognose.Predictor, loadEst prognose.LoadEstimator, log *zap.Logger) (*Prognoser, error) {
	if m == nil || obs == nil || pred == nil || loadEst == nil {
		return nil, fmt.Errorf("nil collaborator supplied")
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Prognoser{
		m:       m,
		obs:     obs,
		pred:    pred,
		loadEst: loadEst,
		log:     log,
	}, nil
}

// NewFromConfig builds the full pipeline named by the model, observer and
// predictor keys of cfg. Unknown component names and missing required keys
// fail with ErrConfig.
func NewFromConfig(cfg config.Map, log *zap.Logger) (*Prognoser, error) {
	if err := cfg.RequireKeys(ModelKey, ObserverKey, PredictorKey); err != nil {
		return nil, err
	}

	m, err := newModel(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Has(StepSizeKey) {
		dt, err := cfg.Float64(StepSizeKey)
		if err != nil {
			return nil, err
		}
		m.SetDt(dt)
	}

	loadEst, err := load.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(m, cfg)
	if err != nil {
		return nil, err
	}

	pred, err := newPredictor(m, loadEst, cfg)
	if err != nil {
		return nil, err
	}

	return New(m, obs, pred, loadEst, log)
}

// newModel builds the configured prognostics model
func newModel(cfg config.Map) (model.PrognosticsModel, error) {
	name, err := cfg.String(ModelKey)
	if err != nil {
		return nil, err
	}

	switch name {
	case BatteryModelName:
		b := battery.New()
		if cfg.Has(QMobileKey) {
			qMobile, err := cfg.Float64(QMobileKey)
			if err != nil {
				return nil, err
			}
			b.SetParameters(qMobile)
		}
		if cfg.Has(RoKey) {
			if b.Params.Ro, err = cfg.Float64(RoKey); err != nil {
				return nil, err
			}
		}
		if cfg.Has(VEODKey) {
			if b.Params.VEOD, err = cfg.Float64(VEODKey); err != nil {
				return nil, err
			}
		}
		return b, nil
	}

	return nil, fmt.Errorf("unknown model %q: %w", name, config.ErrConfig)
}

// newObserver builds the configured observer
func newObserver(m model.PrognosticsModel, cfg config.Map) (prognose.Observer, error) {
	name, err := cfg.String(ObserverKey)
	if err != nil {
		return nil, err
	}

	switch name {
	case UKFName:
		return ukf.NewFromConfig(m, cfg)
	case PFName:
		return pf.NewFromConfig(m, cfg)
	}

	return nil, fmt.Errorf("unknown observer %q: %w", name, config.ErrConfig)
}

// newPredictor builds the configured predictor
func newPredictor(m model.PrognosticsModel, loadEst prognose.LoadEstimator, cfg config.Map) (prognose.Predictor, error) {
	name, err := cfg.String(PredictorKey)
	if err != nil {
		return nil, err
	}

	switch name {
	case MonteCarloName:
		return montecarlo.NewFromConfig(m, loadEst, cfg)
	}

	return nil, fmt.Errorf("unknown predictor %q: %w", name, config.ErrConfig)
}

// Model returns the prognoser model
func (p *Prognoser) Model() model.PrognosticsModel { return p.m }

// Step consumes one frame of sensor data and returns a prediction. The
// first complete frame initialises the observer and yields an empty
// prediction, as do frames with missing values, non-advancing time, or
// observer/predictor failures; the pipeline stays resumable throughout.
func (p *Prognoser) Step(data prognose.DataStore) (*results.Prediction, error) {
	empty := new(results.Prediction)

	outputs := p.m.Outputs()
	z := mat.NewVecDense(len(outputs), nil)
	for i, name := range outputs {
		datum, ok := data[name]
		if !ok || !datum.IsSet() {
			p.log.Debug("output not yet available, skipping step", zap.String("output", name))
			return empty, nil
		}
		z.SetVec(i, datum.Value())
	}

	inputs := p.m.Inputs()
	u := mat.NewVecDense(len(inputs), nil)
	for i, name := range inputs {
		datum, ok := data[name]
		if !ok || !datum.IsSet() {
			p.log.Debug("input not yet available, skipping step", zap.String("input", name))
			return empty, nil
		}
		u.SetVec(i, datum.Value())
	}

	// step time comes from the first model output, in seconds
	now := float64(data[outputs[0]].Time().UnixNano()) / 1e9

	if !p.initialized {
		x, err := p.m.Initialize(u, z)
		if err != nil {
			return nil, fmt.Errorf("model initialization: %w", err)
		}
		if err := p.obs.Initialize(now, x, u); err != nil {
			return nil, fmt.Errorf("observer initialization: %w", err)
		}
		p.initialized = true
		p.lastTime = now
		p.log.Info("prognoser initialized", zap.Float64("t", now))
		return empty, nil
	}

	if now <= p.lastTime {
		p.log.Debug("time did not advance, skipping step", zap.Float64("t", now))
		return empty, nil
	}

	if err := p.obs.Step(now, u, z); err != nil {
		p.log.Error("observer step failed, skipping", zap.Float64("t", now), zap.Error(err))
		return empty, nil
	}

	if p.loadEst.UsesHistoricalLoading() {
		loading := make([]float64, u.Len())
		for i := range loading {
			loading[i] = u.AtVec(i)
		}
		if err := p.loadEst.AddLoad(loading); err != nil {
			p.log.Error("recording load failed", zap.Error(err))
		}
	}

	prediction, err := p.pred.Predict(now, p.obs.StateEstimate())
	if err != nil {
		p.log.Error("prediction failed, skipping", zap.Float64("t", now), zap.Error(err))
		return empty, nil
	}

	p.lastTime = now

	return prediction, nil
}
