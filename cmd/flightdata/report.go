package main

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/basekick-labs/flightdata/internal/export"
	"github.com/basekick-labs/flightdata/internal/logger"
	"github.com/basekick-labs/flightdata/internal/report"
)

func runReport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("report", stderr)
	var (
		common commonFlags
		decode decodeFlags
	)
	common.register(fs)
	decode.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%w: report takes <data> and <output.tex|->", errUsage)
	}
	if decode.rocketPath == "" {
		return fmt.Errorf("%w: --config is required", errUsage)
	}
	dataPath, outPath := fs.Arg(0), fs.Arg(1)

	cfg, _, err := common.setup(stderr)
	if err != nil {
		return err
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

	l := logger.Get("report")
	collector := report.NewCollector()
	res, err := export.Copy(ctx, p.table, collector, p.copy)
	p.stats.LogSummary(l, "Decoding finished")
	if mErr := p.writeMetrics(ctx, backend, decode.metricsPath); mErr != nil && err == nil {
		err = mErr
	}
	if err != nil {
		return fmt.Errorf("report stopped after %d rows: %w", res.Rows, err)
	}

	var buf bytes.Buffer
	if err := report.New(p.rocket, collector).Write(&buf); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if outPath == "-" {
		_, err = stdout.Write(buf.Bytes())
		return err
	}
	if err := backend.Write(ctx, outPath, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	l.Info().
		Int64("rows", res.Rows).
		Int("sensors", len(p.rocket.Sensors)).
		Str("output", outPath).
		Msg("Wrote report")
	return nil
}
