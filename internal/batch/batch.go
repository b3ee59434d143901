package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/Simplici0/invoicing/internal/invoice"
	"github.com/Simplici0/invoicing/internal/obs"
	"github.com/Simplici0/invoicing/internal/wire"
)

const (
	inputExt      = ".json"
	defaultSuffix = "_output"
)

// ErrInputDirMissing is returned when the input directory does not exist.
var ErrInputDirMissing = errors.New("input directory does not exist")

// Calculator prices one invoice.
type Calculator interface {
	Process(inv invoice.Invoice) invoice.Result
}

// Processor prices every invoice file in InputDir and writes one result file per
// input into OutputDir. A nil Calc uses the default rule sets.
type Processor struct {
	InputDir  string
	OutputDir string
	Suffix    string
	Workers   int
	Calc      Calculator
	Logger    zerolog.Logger
	Metrics   *obs.InvoiceMetrics
}

// FileResult describes one successfully written output file.
type FileResult struct {
	File   string
	Output string
}

// FileError describes one input file that could not be processed.
type FileError struct {
	File string
	Err  error
}

// Error implements the error interface.
func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

// Unwrap returns the underlying failure.
func (e FileError) Unwrap() error {
	return e.Err
}

// Report summarises a batch run. Processed and Failed are sorted by file name.
type Report struct {
	RunID     string
	Processed []FileResult
	Failed    []FileError
}

// Err folds every per-file failure into one error, or nil when all files succeeded.
func (r Report) Err() error {
	var err error
	for _, fe := range r.Failed {
		err = multierr.Append(err, fe)
	}
	return err
}

// OutputName derives the output file name for an input file name.
func OutputName(fileName, suffix string) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	return base + suffix + inputExt
}

// Run processes every *.json file in InputDir. Per-file failures are recorded in
// the report and never stop the remaining files; the returned error is reserved
// for run-level failures.
func (p Processor) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	logger := p.Logger.With().Str("run_id", report.RunID).Logger()

	files, err := p.listInputs()
	if err != nil {
		return report, err
	}
	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return report, fmt.Errorf("create output directory: %w", err)
	}

	suffix := p.Suffix
	if suffix == "" {
		suffix = defaultSuffix
	}
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, name := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			logger.Info().Str("file", name).Msg("processing invoice file")

			out, err := p.processFile(logger, name, suffix)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Error().Err(err).Str("file", name).Msg("invoice file failed")
				p.Metrics.ObserveBatchFile(obs.OutcomeFailed)
				report.Failed = append(report.Failed, FileError{File: name, Err: err})
				return nil
			}
			logger.Info().Str("file", name).Str("output", out).Msg("invoice file processed")
			p.Metrics.ObserveBatchFile(obs.OutcomeProcessed)
			report.Processed = append(report.Processed, FileResult{File: name, Output: out})
			return nil
		})
	}

	waitErr := g.Wait()
	sort.Slice(report.Processed, func(i, j int) bool { return report.Processed[i].File < report.Processed[j].File })
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].File < report.Failed[j].File })

	if waitErr == nil {
		waitErr = ctx.Err()
	}
	if waitErr != nil {
		return report, fmt.Errorf("batch run interrupted: %w", waitErr)
	}
	return report, nil
}

func (p Processor) listInputs() ([]string, error) {
	entries, err := os.ReadDir(p.InputDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputDirMissing, p.InputDir)
		}
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), inputExt) {
			continue
		}
		files = append(files, entry.Name())
	}
	return files, nil
}

func (p Processor) processFile(logger zerolog.Logger, name, suffix string) (string, error) {
	in, err := os.Open(filepath.Join(p.InputDir, name))
	if err != nil {
		return "", fmt.Errorf("open input: %w", err)
	}
	inv, err := wire.DecodeInvoice(in)
	in.Close()
	if err != nil {
		return "", err
	}

	known := invoice.IsKnownDiscount(inv.DiscountKey)
	if !known {
		logger.Debug().Str("file", name).Str("discount", inv.DiscountKey).Msg("unknown discount key, applying none")
	}
	calc := p.Calc
	if calc == nil {
		calc = invoice.NewCalculator()
	}
	result := calc.Process(inv)
	p.Metrics.ObserveInvoice(obs.SourceBatch, inv.DiscountKey, known)

	outPath := filepath.Join(p.OutputDir, OutputName(name, suffix))
	if err := writeResult(outPath, result); err != nil {
		return "", err
	}
	return outPath, nil
}

// writeResult writes to a temporary sibling and renames it so readers never see
// a partial output file.
func writeResult(path string, result invoice.Result) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*"+inputExt)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := wire.EncodeResult(tmp, result); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
