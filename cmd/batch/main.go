package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Simplici0/invoicing/internal/batch"
	"github.com/Simplici0/invoicing/internal/config"
	"github.com/Simplici0/invoicing/internal/invoice"
	"github.com/Simplici0/invoicing/internal/obs"
)

const (
	exitSuccess      = 0
	exitFileFailures = 1
	exitRunFailure   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return exitRunFailure
	}

	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.StringVar(&cfg.InputDir, "in", cfg.InputDir, "directory containing invoice JSON files")
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "directory receiving result files")
	fs.StringVar(&cfg.OutputSuffix, "suffix", cfg.OutputSuffix, "suffix appended to the input base name")
	fs.IntVar(&cfg.BatchWorkers, "workers", cfg.BatchWorkers, "files processed concurrently")
	metricsFile := fs.String("metrics-file", "", "write Prometheus metrics in text format to this file after the run")
	if err := fs.Parse(args); err != nil {
		return exitRunFailure
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	reg := prometheus.NewRegistry()
	var metrics *obs.InvoiceMetrics
	if cfg.MetricsEnabled {
		metrics = obs.NewInvoiceMetrics(cfg.MetricsNamespace, reg)
	}

	p := batch.Processor{
		InputDir:  cfg.InputDir,
		OutputDir: cfg.OutputDir,
		Suffix:    cfg.OutputSuffix,
		Workers:   cfg.BatchWorkers,
		Calc:      invoice.NewCalculator(),
		Logger:    logger,
		Metrics:   metrics,
	}

	report, err := p.Run(ctx)
	fmt.Fprintf(stdout, "run %s: %d processed, %d failed\n", report.RunID, len(report.Processed), len(report.Failed))
	for _, fe := range report.Failed {
		fmt.Fprintf(stdout, "  failed %s: %v\n", fe.File, fe.Err)
	}
	if *metricsFile != "" {
		if werr := prometheus.WriteToTextfile(*metricsFile, reg); werr != nil {
			logger.Error().Err(werr).Str("path", *metricsFile).Msg("write metrics file")
		}
	}
	if err != nil {
		if errors.Is(err, batch.ErrInputDirMissing) {
			logger.Error().Str("input_dir", cfg.InputDir).Msg("input directory does not exist, create it and add JSON invoices")
		} else {
			logger.Error().Err(err).Msg("batch run failed")
		}
		return exitRunFailure
	}
	if len(report.Failed) > 0 {
		return exitFileFailures
	}
	return exitSuccess
}
