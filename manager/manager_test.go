package manager

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	prognose "github.com/milosgajdos/go-prognose"
	"github.com/milosgajdos/go-prognose/config"
	"github.com/milosgajdos/go-prognose/prognoser"
	"github.com/stretchr/testify/assert"
)

func batteryConfig() config.Map {
	cfg := config.New()
	cfg.Set("model", prognoser.BatteryModelName)
	cfg.Set("observer", prognoser.UKFName)
	cfg.Set("predictor", prognoser.MonteCarloName)

	q := make([]string, 0, 64)
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			if i == j {
				q = append(q, "1e-10")
				continue
			}
			q = append(q, "0")
		}
	}
	cfg.Set("Observer.Q", q...)
	cfg.Set("Observer.R", "1e-2", "0", "0", "1e-2")

	cfg.Set("Predictor.SampleCount", "3")
	cfg.Set("Predictor.Horizon", "50")
	cfg.Set("Predictor.loadEstimator", "const")
	cfg.Set("LoadEstimator.Loading", "8")

	pn := make([]string, 8)
	for i := range pn {
		pn[i] = "1e-5"
	}
	cfg.Set("Model.ProcessNoise", pn...)

	return cfg
}

func frames(count int) []prognose.DataStore {
	start := time.Unix(1000, 0)
	out := make([]prognose.DataStore, count)
	for i := range out {
		stamp := start.Add(time.Duration(i) * time.Second)
		mk := func(v float64) prognose.Datum {
			d := prognose.NewDatum(v)
			d.SetTime(stamp)
			return d
		}
		out[i] = prognose.DataStore{
			"power":       mk(8),
			"temperature": mk(20),
			"voltage":     mk(4.1 - 0.005*float64(i)),
		}
	}
	return out
}

func TestRun(t *testing.T) {
	assert := assert.New(t)

	m := New(nil)

	p, err := prognoser.NewFromConfig(batteryConfig(), nil)
	assert.NoError(err)

	id, err := m.Add(Job{Name: "battery", Prognoser: p, Frames: frames(4)})
	assert.NoError(err)
	assert.NotEqual(uuid.Nil, id)

	out := make(chan Result, 16)
	assert.NoError(m.Run(context.Background(), out))
	close(out)

	// the first frame initialises; the remaining three predict
	var got []Result
	for r := range out {
		got = append(got, r)
	}
	assert.Len(got, 3)
	for _, r := range got {
		assert.Equal(id, r.Job)
		assert.Equal("battery", r.Name)
		assert.False(r.Prediction.Empty())
	}
}

func TestAddNilPrognoser(t *testing.T) {
	assert := assert.New(t)

	m := New(nil)
	_, err := m.Add(Job{Name: "broken"})
	assert.Error(err)
}

func TestRunCancelled(t *testing.T) {
	assert := assert.New(t)

	m := New(nil)

	p, err := prognoser.NewFromConfig(batteryConfig(), nil)
	assert.NoError(err)

	_, err = m.Add(Job{Name: "battery", Prognoser: p, Frames: frames(4)})
	assert.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan Result, 1)
	assert.ErrorIs(m.Run(ctx, out), context.Canceled)
}
