// Package comm provides the file communicators around the prognoser: CSV
// playback of recorded sensor data and CSV recording of predictions.
package comm

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	prognose "github.com/milosgajdos/go-prognose"
)

// Playback replays sensor data frames recorded in a CSV file. The first
// column holds the frame time as a second offset; the remaining column
// headers name the sensors.
type Playback struct {
	// sensors holds the sensor column names
	sensors []string
	// frames holds one DataStore per file row
	frames []prognose.DataStore
}

// LoadPlayback reads a playback file. Frame timestamps are the base time
// plus each row's time offset.
func LoadPlayback(path string, base time.Time) (*Playback, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) < 1 || len(records[0]) < 2 {
		return nil, fmt.Errorf("%s: want a header with a time column and at least one sensor", path)
	}

	sensors := records[0][1:]
	frames := make([]prognose.DataStore, 0, len(records)-1)

	for line, rec := range records[1:] {
		offset, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: time %q: %w", path, line+2, rec[0], err)
		}
		stamp := base.Add(time.Duration(offset * float64(time.Second)))

		frame := prognose.DataStore{}
		for i, name := range sensors {
			value, err := strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %s %q: %w", path, line+2, name, rec[i+1], err)
			}
			datum := prognose.NewDatum(value)
			datum.SetTime(stamp)
			frame[name] = datum
		}
		frames = append(frames, frame)
	}

	return &Playback{sensors: sensors, frames: frames}, nil
}

// Sensors returns the sensor names found in the playback header
func (p *Playback) Sensors() []string { return p.sensors }

// Frames returns the replayed data frames in file order
func (p *Playback) Frames() []prognose.DataStore { return p.frames }
