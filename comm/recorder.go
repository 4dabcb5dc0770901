package comm

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/milosgajdos/go-prognose/results"
)

// Recorder appends event predictions to a CSV file: one row per event per
// recorded prediction.
type Recorder struct {
	f *os.File
	w *csv.Writer
}

// recorderHeader names the recorded columns
var recorderHeader = []string{"time", "event", "toe_mean", "toe_median", "toe_stddev", "probability"}

// NewRecorder creates the output file and writes the header row
func NewRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(recorderHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing header: %w", err)
	}

	return &Recorder{f: f, w: w}, nil
}

// Record appends one row per event of the prediction.
// Empty predictions are skipped.
func (r *Recorder) Record(p *results.Prediction) error {
	if p.Empty() {
		return nil
	}

	for i := range p.Events {
		event := &p.Events[i]
		samples, err := event.TOE.Samples()
		if err != nil {
			return fmt.Errorf("event %s: %w", event.Name, err)
		}

		row := []string{
			formatFloat(p.Time),
			event.Name,
			formatFloat(results.Mean(samples)),
			formatFloat(results.Median(samples)),
			formatFloat(results.StdDev(samples)),
			formatFloat(event.ProbabilityOfOccurrence()),
		}
		if err := r.w.Write(row); err != nil {
			return fmt.Errorf("writing %s row: %w", event.Name, err)
		}
	}
	r.w.Flush()

	return r.w.Error()
}

// Close flushes and closes the output file
func (r *Recorder) Close() error {
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
