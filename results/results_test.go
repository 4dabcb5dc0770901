package results

import (
	"math"
	"testing"

	"github.com/milosgajdos/go-prognose/udata"
	"github.com/stretchr/testify/assert"
)

func sampleEvent(t *testing.T, samples []float64, reached []bool) Event {
	t.Helper()

	toe := udata.New(udata.Samples)
	toe.SetNPoints(len(samples))
	if err := toe.SetAll(samples); err != nil {
		t.Fatal(err)
	}

	return Event{Name: "EOD", TOE: toe, Reached: reached}
}

func TestPrediction(t *testing.T) {
	assert := assert.New(t)

	var empty *Prediction
	assert.True(empty.Empty())
	assert.True((&Prediction{}).Empty())

	event := sampleEvent(t, []float64{100, 200, 300}, []bool{true, true, false})
	soc := Trajectory{Name: "SOC"}
	p := &Prediction{
		Time:         10,
		Interval:     1,
		Events:       []Event{event},
		Trajectories: []Trajectory{soc},
	}
	assert.False(p.Empty())

	got, err := p.Event("EOD")
	assert.NoError(err)
	assert.Equal("EOD", got.Name)
	_, err = p.Event("bogus")
	assert.Error(err)

	traj, err := p.Trajectory("SOC")
	assert.NoError(err)
	assert.Equal("SOC", traj.Name)
	_, err = p.Trajectory("bogus")
	assert.Error(err)
}

func TestProbabilityOfOccurrence(t *testing.T) {
	assert := assert.New(t)

	event := sampleEvent(t, []float64{1, 2, 3, 4}, []bool{true, true, true, false})
	assert.InDelta(0.75, event.ProbabilityOfOccurrence(), 1e-15)

	none := sampleEvent(t, nil, nil)
	assert.Equal(0.0, none.ProbabilityOfOccurrence())
}

func TestStatistics(t *testing.T) {
	assert := assert.New(t)

	samples := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.InDelta(5.0, Mean(samples), 1e-15)
	assert.InDelta(2.0, StdDev(samples), 1e-15)
	assert.Equal(5.0, Median(samples))
	assert.InDelta(0.125, CDF(samples, 4), 1e-15)
	assert.InDelta(1.0, CDF(samples, 10), 1e-15)

	assert.True(math.IsNaN(Mean(nil)))
	assert.True(math.IsNaN(StdDev(nil)))
	assert.True(math.IsNaN(Median(nil)))
	assert.True(math.IsNaN(CDF(nil, 1)))
}

func TestTOEHistogram(t *testing.T) {
	assert := assert.New(t)

	event := sampleEvent(t, []float64{100, 150, 150, 200, 250, 300}, nil)

	p, err := TOEHistogram(&event, 4)
	assert.NoError(err)
	assert.NotNil(p)

	_, err = TOEHistogram(nil, 4)
	assert.Error(err)
}

func TestTrajectoryPlot(t *testing.T) {
	assert := assert.New(t)

	slots := make([]*udata.UData, 3)
	for i := range slots {
		u := udata.New(udata.Samples)
		u.SetNPoints(2)
		assert.NoError(u.SetAll([]float64{float64(i), float64(i + 1)}))
		slots[i] = u
	}
	traj := &Trajectory{Name: "SOC", Slots: slots}

	p, err := TrajectoryPlot(traj, 0, 1)
	assert.NoError(err)
	assert.NotNil(p)

	_, err = TrajectoryPlot(&Trajectory{Name: "empty"}, 0, 1)
	assert.Error(err)
}
