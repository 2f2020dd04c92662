// Package cascade runs several table detectors over the same document and
// merges their output into one deduplicated, deterministically ordered set.
package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/a3tai/pdf-rag-ingest/internal/table"
)

// Acceptance thresholds used when Options leaves them unset: a table needs
// at least this many body rows and columns.
const (
	DefaultMinRows = 2
	DefaultMinCols = 2
)

// Detector locates tables in a PDF file. pages lists the 1-based pages to
// scan; nil means every page. Implementations may fail for any reason,
// including a missing external dependency.
type Detector interface {
	Name() string
	Detect(ctx context.Context, path string, pages []int) ([]table.Grid, error)
}

// DetectorFailure records why a detector produced no tables.
type DetectorFailure struct {
	Detector string
	Err      error
}

func (f *DetectorFailure) Error() string {
	return fmt.Sprintf("detector %s: %v", f.Detector, f.Err)
}

func (f *DetectorFailure) Unwrap() error {
	return f.Err
}

// RecoveredTable is an accepted table tagged with its provenance.
type RecoveredTable struct {
	Page        int
	Source      string
	Fingerprint string
	Ordinal     int
	Table       table.Table
}

// Result is the outcome of one cascade run.
type Result struct {
	Tables   []RecoveredTable
	Failures []*DetectorFailure
}

// Options tunes candidate acceptance and header reconstruction.
type Options struct {
	MinRows       int
	MinCols       int
	MaxHeaderRows int
	Parallel      bool
}

// DefaultOptions returns the acceptance thresholds used when none are configured.
func DefaultOptions() Options {
	return Options{
		MinRows:       DefaultMinRows,
		MinCols:       DefaultMinCols,
		MaxHeaderRows: table.DefaultMaxHeaderRows,
	}
}

// Cascade invokes detectors in priority order; earlier detectors win ties.
type Cascade struct {
	detectors     []Detector
	reconstructor *table.Reconstructor
	opts          Options
	logger        *slog.Logger
}

// New creates a cascade. detectors must be given highest priority first.
func New(detectors []Detector, reconstructor *table.Reconstructor, opts Options, logger *slog.Logger) *Cascade {
	if reconstructor == nil {
		reconstructor = table.NewReconstructor(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cascade{
		detectors:     detectors,
		reconstructor: reconstructor,
		opts:          opts,
		logger:        logger,
	}
}

// Detectors returns the detector names in priority order.
func (c *Cascade) Detectors() []string {
	names := make([]string, len(c.detectors))
	for i, d := range c.detectors {
		names[i] = d.Name()
	}
	return names
}

type outcome struct {
	grids   []table.Grid
	failure *DetectorFailure
}

// Extract runs every detector and returns the merged tables. Detector
// failures are logged and reported in Result.Failures; they never abort the run.
func (c *Cascade) Extract(ctx context.Context, path string, pages []int) Result {
	outcomes := make([]outcome, len(c.detectors))

	if c.opts.Parallel && len(c.detectors) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for i, d := range c.detectors {
			g.Go(func() error {
				outcomes[i] = c.run(gctx, d, path, pages)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, d := range c.detectors {
			outcomes[i] = c.run(ctx, d, path, pages)
		}
	}

	var result Result
	seen := make(map[string]bool)
	for i, d := range c.detectors {
		o := outcomes[i]
		if o.failure != nil {
			c.logger.Warn("table detector failed", "detector", o.failure.Detector, "error", o.failure.Err)
			result.Failures = append(result.Failures, o.failure)
			continue
		}

		accepted := 0
		for _, g := range o.grids {
			t, ok := c.prepare(g)
			if !ok {
				continue
			}
			fp := table.Fingerprint(t)
			if fp == "" || seen[fp] {
				continue
			}
			seen[fp] = true
			accepted++
			result.Tables = append(result.Tables, RecoveredTable{
				Page:        g.Page,
				Source:      d.Name(),
				Fingerprint: fp,
				Table:       t,
			})
		}
		c.logger.Debug("table detector finished", "detector", d.Name(), "candidates", len(o.grids), "accepted", accepted)
	}

	sort.SliceStable(result.Tables, func(i, j int) bool {
		a, b := result.Tables[i], result.Tables[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Fingerprint < b.Fingerprint
	})
	for i := range result.Tables {
		result.Tables[i].Ordinal = i + 1
	}

	return result
}

// run invokes one detector, turning errors and panics into a DetectorFailure.
func (c *Cascade) run(ctx context.Context, d Detector, path string, pages []int) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("table detector panicked", "detector", d.Name(), "stack", string(debug.Stack()))
			o = outcome{failure: &DetectorFailure{Detector: d.Name(), Err: fmt.Errorf("panic: %v", r)}}
		}
	}()

	grids, err := d.Detect(ctx, path, pages)
	if err != nil {
		return outcome{failure: &DetectorFailure{Detector: d.Name(), Err: err}}
	}
	return outcome{grids: grids}
}

// prepare normalizes, reconstructs headers and applies the size thresholds.
func (c *Cascade) prepare(g table.Grid) (table.Table, bool) {
	t := table.Normalize(table.FromGrid(g))
	t = c.reconstructor.Reconstruct(t, c.opts.MaxHeaderRows)
	t = table.Normalize(t)

	if t.NumRows() < c.opts.MinRows || t.NumCols() < c.opts.MinCols {
		return t, false
	}
	return t, true
}
