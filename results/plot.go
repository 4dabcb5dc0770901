package results

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// TOEHistogram renders the time-of-event sample distribution of event as a
// histogram. It returns error if the event carries no samples.
func TOEHistogram(event *Event, bins int) (*plot.Plot, error) {
	if event == nil || event.TOE == nil {
		return nil, fmt.Errorf("invalid event supplied")
	}

	samples, err := event.TOE.Samples()
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("event %q has no samples", event.Name)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s time of event", event.Name)
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "count"

	hist, err := plotter.NewHist(plotter.Values(samples), bins)
	if err != nil {
		return nil, err
	}
	hist.FillColor = color.RGBA{R: 255, B: 128, A: 255}

	p.Add(hist)

	return p, nil
}

// TrajectoryPlot renders the per-slot mean of a predicted-output trajectory
// against prediction time. Slots which hold no samples are skipped.
func TrajectoryPlot(traj *Trajectory, start, interval float64) (*plot.Plot, error) {
	if traj == nil || len(traj.Slots) == 0 {
		return nil, fmt.Errorf("invalid trajectory supplied")
	}

	pts := make(plotter.XYs, 0, len(traj.Slots))
	for i, slot := range traj.Slots {
		if slot == nil || !slot.Valid() {
			continue
		}
		samples, err := slot.Samples()
		if err != nil {
			return nil, err
		}
		pts = append(pts, plotter.XY{
			X: start + float64(i)*interval,
			Y: Mean(samples),
		})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("trajectory %q has no recorded slots", traj.Name)
	}

	p := plot.New()
	p.Title.Text = traj.Name
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = traj.Name

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(1)
	line.LineStyle.Color = color.RGBA{B: 255, A: 255}

	p.Add(line)
	p.Legend.Add(traj.Name, line)

	return p, nil
}
