package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/basekick-labs/flightdata/internal/config"
	"github.com/basekick-labs/flightdata/internal/export"
	"github.com/basekick-labs/flightdata/internal/ingest"
	"github.com/basekick-labs/flightdata/internal/logger"
	"github.com/basekick-labs/flightdata/internal/metrics"
	"github.com/basekick-labs/flightdata/internal/storage"
	"github.com/basekick-labs/flightdata/pkg/models"
)

// decodeFlags select the rocket configuration and the error handling of
// the commands that decode a flight log
type decodeFlags struct {
	rocketPath  string
	keepGoing   bool
	maxErrors   int
	columns     string
	metricsPath string
}

func (d *decodeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&d.rocketPath, "config", "", "Rocket configuration (JSON) the flight computer used (required)")
	fs.BoolVar(&d.keepGoing, "keep-going", false, "Skip malformed packets instead of stopping at the first one")
	fs.IntVar(&d.maxErrors, "max-errors", -1, "With --keep-going, stop after this many errors; 0 is unlimited (default decode.max_errors)")
	fs.StringVar(&d.metricsPath, "metrics", "", "Write the run's counters in Prometheus text format to this path")
}

// registerColumns adds --columns. Only convert takes it: a report over a
// projection would describe unselected sensors as silent.
func (d *decodeFlags) registerColumns(fs *flag.FlagSet) {
	fs.StringVar(&d.columns, "columns", "", "Only output these columns, e.g. imu:accel_x,accel_y,baro:pressure")
}

// pipeline is an opened flight log: source stream, decoder and table
type pipeline struct {
	rocket *models.RocketConfig
	source io.ReadCloser
	table  *ingest.TableGenerator
	stats  *metrics.Stats
	copy   export.CopyOptions
}

// openPipeline loads the rocket configuration and wires the decoder and
// table generator over the data stream under the configured error policy
func openPipeline(ctx context.Context, cfg *config.Config, backend storage.Backend, flags *decodeFlags, dataPath string) (*pipeline, error) {
	rocket, err := config.LoadRocketConfig(ctx, backend, flags.rocketPath)
	if err != nil {
		return nil, err
	}

	policy, err := ingest.ParseErrorPolicy(cfg.Decode.ErrorPolicy)
	if err != nil {
		return nil, err
	}
	if flags.keepGoing {
		policy = ingest.PolicyContinue
	}
	maxErrors := cfg.Decode.MaxErrors
	if flags.maxErrors >= 0 {
		maxErrors = flags.maxErrors
	}

	columns, err := config.ParseColumns(flags.columns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}

	compression, err := ingest.ParseCompression(cfg.Input.Compression)
	if err != nil {
		return nil, err
	}
	source, err := ingest.OpenSource(ctx, backend, dataPath, compression)
	if err != nil {
		return nil, err
	}

	stats := metrics.NewStats()
	decoder := ingest.NewPacketDecoder(source, rocket, logger.Get("decoder"),
		ingest.WithDecoderPolicy(policy),
		ingest.WithReadBufferSize(int(cfg.Decode.BufferSize)),
		ingest.WithDecoderStats(stats),
	)
	table := ingest.NewTableGenerator(decoder, rocket, logger.Get("table"),
		ingest.WithTablePolicy(policy),
		ingest.WithTableStats(stats),
	)
	if err := table.AllowColumns(columns); err != nil {
		source.Close()
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}

	return &pipeline{
		rocket: rocket,
		source: source,
		table:  table,
		stats:  stats,
		copy: export.CopyOptions{
			KeepGoing: policy == ingest.PolicyContinue,
			MaxErrors: maxErrors,
			Stats:     stats,
			Logger:    logger.Get("copy"),
		},
	}, nil
}

func (p *pipeline) Close() error {
	return p.source.Close()
}

// writeMetrics stores the run's counters when --metrics was given
func (p *pipeline) writeMetrics(ctx context.Context, backend storage.Backend, path string) error {
	if path == "" {
		return nil
	}
	if err := backend.Write(ctx, path, []byte(p.stats.PrometheusFormat())); err != nil {
		return fmt.Errorf("failed to write metrics %s: %w", path, err)
	}
	return nil
}
