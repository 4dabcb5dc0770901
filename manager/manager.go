// Package manager runs prognosers against their data sources. Every
// prognoser is stepped by exactly one worker goroutine, so a step in
// progress excludes any other step on the same instance; predictions are
// published to a shared result channel.
package manager

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	prognose "github.com/milosgajdos/go-prognose"
	"github.com/milosgajdos/go-prognose/prognoser"
	"github.com/milosgajdos/go-prognose/results"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job pairs a prognoser with the data frames it consumes
type Job struct {
	// Name labels the job in logs and results
	Name string
	// Prognoser is the pipeline stepped by this job's worker
	Prognoser *prognoser.Prognoser
	// Frames are the sensor data frames, in arrival order
	Frames []prognose.DataStore
}

// Result is one published prediction
type Result struct {
	// Job identifies the job which produced the prediction
	Job uuid.UUID
	// Name is the job name
	Name string
	// Prediction is the non-empty prediction
	Prediction *results.Prediction
}

type job struct {
	id uuid.UUID
	Job
}

// Manager owns a set of prognoser jobs
type Manager struct {
	log  *zap.Logger
	jobs []job
}

// New creates a new manager. A nil logger disables logging.
func New(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{log: log}
}

// Add registers a job and returns its id
func (m *Manager) Add(j Job) (uuid.UUID, error) {
	if j.Prognoser == nil {
		return uuid.Nil, fmt.Errorf("job %q: nil prognoser", j.Name)
	}

	id := uuid.New()
	m.jobs = append(m.jobs, job{id: id, Job: j})

	return id, nil
}

// Run steps every job in its own worker until its frames are exhausted or
// ctx is cancelled. Non-empty predictions are sent to out. Run returns the
// first worker error; it does not close out.
func (m *Manager) Run(ctx context.Context, out chan<- Result) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := range m.jobs {
		j := m.jobs[i]
		g.Go(func() error {
			log := m.log.With(zap.String("job", j.Name), zap.String("id", j.id.String()))
			log.Info("starting", zap.Int("frames", len(j.Frames)))

			for _, frame := range j.Frames {
				if err := ctx.Err(); err != nil {
					return err
				}

				prediction, err := j.Prognoser.Step(frame)
				if err != nil {
					return fmt.Errorf("job %q: %w", j.Name, err)
				}
				if prediction.Empty() {
					continue
				}

				select {
				case out <- Result{Job: j.id, Name: j.Name, Prediction: prediction}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			log.Info("done")
			return nil
		})
	}

	return g.Wait()
}
