package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/basekick-labs/flightdata/internal/export"
	"github.com/basekick-labs/flightdata/internal/logger"
	"github.com/basekick-labs/flightdata/internal/storage"
)

func runConvert(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("convert", stderr)
	var (
		common commonFlags
		decode decodeFlags
	)
	common.register(fs)
	decode.register(fs)
	decode.registerColumns(fs)
	to := fs.String("to", "", "Output format: csv, parquet, msgpack or sqlite (default output.format)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%w: convert takes <data> and <output|->", errUsage)
	}
	if decode.rocketPath == "" {
		return fmt.Errorf("%w: --config is required", errUsage)
	}
	dataPath, outPath := fs.Arg(0), fs.Arg(1)

	cfg, runID, err := common.setup(stderr)
	if err != nil {
		return err
	}

	formatName := cfg.Output.Format
	if *to != "" {
		formatName = *to
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if outPath == "-" && !format.Streamable() {
		return fmt.Errorf("%w: %s output cannot be written to stdout", errUsage, format)
	}

	backend, err := newBackend(ctx, &cfg.Storage)
	if err != nil {
		return err
	}
	defer backend.Close()

	p, err := openPipeline(ctx, cfg, backend, &decode, dataPath)
	if err != nil {
		return err
	}
	defer p.Close()

	table := cfg.Output.SQLiteTable
	if table == "" {
		table = p.rocket.Name
	}
	opts := export.Options{
		BatchSize:          cfg.Output.BatchSize,
		ParquetCompression: cfg.Output.ParquetCompression,
		Table:              table,
		Metadata: map[string]string{
			"rocket":    p.rocket.Name,
			"source":    dataPath,
			"run_id":    runID,
			"generator": "flightdata " + Version,
		},
		Stats:  p.stats,
		Logger: logger.Get("export"),
	}

	l := logger.Get("convert")
	l.Info().
		Str("rocket", p.rocket.Name).
		Str("input", dataPath).
		Str("output", outPath).
		Str("format", string(format)).
		Bool("keep_going", p.copy.KeepGoing).
		Msg("Converting flight log")

	var res export.CopyResult
	if outPath == "-" {
		res, err = convertStream(ctx, p, format, stdout, opts)
	} else {
		res, err = convertFile(ctx, p, backend, format, outPath, opts)
	}

	p.stats.LogSummary(l, "Conversion finished")
	if mErr := p.writeMetrics(ctx, backend, decode.metricsPath); mErr != nil && err == nil {
		err = mErr
	}
	if err != nil {
		return fmt.Errorf("conversion stopped after %d rows: %w", res.Rows, err)
	}

	l.Info().
		Int64("rows", res.Rows).
		Int("skipped", res.Errors).
		Str("output", outPath).
		Msg("Wrote output")
	return nil
}

// convertStream copies the table to a streamable sink such as stdout
func convertStream(ctx context.Context, p *pipeline, format export.Format, sink io.Writer, opts export.Options) (export.CopyResult, error) {
	w, err := export.NewWriter(format, sink, opts)
	if err != nil {
		return export.CopyResult{}, err
	}
	res, err := export.Copy(ctx, p.table, w, p.copy)
	if cerr := w.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return res, err
}

// convertFile writes the output to a local temporary file and publishes it
// to the storage backend once complete. Rows copied before a decode error
// are still published.
func convertFile(ctx context.Context, p *pipeline, backend storage.Backend, format export.Format, outPath string, opts export.Options) (export.CopyResult, error) {
	tmp, err := os.CreateTemp("", "flightdata-*"+format.Extension())
	if err != nil {
		return export.CopyResult{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	w, err := export.NewWriter(format, tmp, opts)
	if err != nil {
		return export.CopyResult{}, err
	}
	res, copyErr := export.Copy(ctx, p.table, w, p.copy)
	if err := w.Close(); err != nil {
		return res, fmt.Errorf("failed to finish %s output: %w", format, err)
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return res, fmt.Errorf("failed to rewind temp file: %w", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		return res, fmt.Errorf("failed to stat temp file: %w", err)
	}
	if err := backend.WriteReader(ctx, outPath, tmp, info.Size()); err != nil {
		return res, fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return res, copyErr
}
