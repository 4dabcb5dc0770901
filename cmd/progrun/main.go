// Command progrun runs a configured prognoser over a recorded data file and
// streams its event predictions to stdout and, optionally, a CSV recorder.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/milosgajdos/go-prognose/comm"
	"github.com/milosgajdos/go-prognose/config"
	"github.com/milosgajdos/go-prognose/prognoser"
	"github.com/milosgajdos/go-prognose/results"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	dataPath   string
	outputPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "progrun",
	Short: "Run a prognoser over recorded sensor data",
	Long: `progrun builds a prognoser pipeline (model, observer, predictor and
load estimator) from a YAML configuration file, replays a recorded CSV data
file through it and reports the predicted time of event after every step.`,
	RunE: run,

	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "prognoser configuration file (required)")
	rootCmd.Flags().StringVarP(&dataPath, "data", "d", "", "recorded sensor data file (required)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "prediction recorder output file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cobra.CheckErr(rootCmd.MarkFlagRequired("config"))
	cobra.CheckErr(rootCmd.MarkFlagRequired("data"))
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	p, err := prognoser.NewFromConfig(cfg, log)
	if err != nil {
		return err
	}

	playback, err := comm.LoadPlayback(dataPath, time.Now())
	if err != nil {
		return err
	}
	log.Info("loaded playback data",
		zap.String("file", dataPath),
		zap.Int("frames", len(playback.Frames())),
		zap.Strings("sensors", playback.Sensors()))

	var recorder *comm.Recorder
	if outputPath != "" {
		if recorder, err = comm.NewRecorder(outputPath); err != nil {
			return err
		}
		defer recorder.Close() //nolint:errcheck
	}

	for i, frame := range playback.Frames() {
		prediction, err := p.Step(frame)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if prediction.Empty() {
			continue
		}

		for e := range prediction.Events {
			event := &prediction.Events[e]
			samples, err := event.TOE.Samples()
			if err != nil {
				return fmt.Errorf("step %d: event %s: %w", i, event.Name, err)
			}
			fmt.Printf("%s: median TOE %.1fs (p=%.2f)\n",
				event.Name,
				results.Median(samples)-prediction.Time,
				event.ProbabilityOfOccurrence())
		}

		if recorder != nil {
			if err := recorder.Record(prediction); err != nil {
				return fmt.Errorf("recording step %d: %w", i, err)
			}
		}
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
