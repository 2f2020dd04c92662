// Package detect provides the concrete PDF collaborators of the ingest
// pipeline: three table detectors of decreasing confidence, a per-page text
// extractor and a page-selector resolver.
package detect

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Detector source names, in cascade priority order.
const (
	SourceLattice = "lattice"
	SourceStream  = "stream"
	SourceLayout  = "layout"
)

// Options carries the detector tuning knobs.
type Options struct {
	// Lattice: minimum ruling length and alignment tolerance, in points.
	LatticeMinLineLength      float64
	LatticeAlignmentTolerance float64

	// Stream: horizontal gap that separates two cells, and the snap grid
	// used to align column starts across rows, in points.
	StreamColumnGap     float64
	StreamSnapTolerance float64

	// Layout: minimum confidence reported by the geometric detector.
	LayoutMinConfidence float64

	// Quiet suppresses per-page diagnostics from the detectors.
	Quiet bool
}

// DefaultOptions returns the tuning used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		LatticeMinLineLength:      10,
		LatticeAlignmentTolerance: 3,
		StreamColumnGap:           8,
		StreamSnapTolerance:       3,
		LayoutMinConfidence:       0.5,
		Quiet:                     true,
	}
}

// PageText is the plain text of one page.
type PageText struct {
	Page int
	Text string
}

// selectPages returns the 1-based pages to visit. nil selects every page;
// out-of-range entries are dropped.
func selectPages(pages []int, count int) []int {
	if pages == nil {
		all := make([]int, count)
		for i := range all {
			all[i] = i + 1
		}
		return all
	}

	out := make([]int, 0, len(pages))
	seen := make(map[int]bool, len(pages))
	for _, p := range pages {
		if p >= 1 && p <= count && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}

// pageLogger logs per-page problems unless the detector is quiet.
type pageLogger struct {
	logger   *slog.Logger
	detector string
	quiet    bool
}

func newPageLogger(logger *slog.Logger, detector string, quiet bool) pageLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return pageLogger{logger: logger, detector: detector, quiet: quiet}
}

func (l pageLogger) skip(page int, err error) {
	if l.quiet {
		return
	}
	l.logger.Debug("skipping page", "detector", l.detector, "page", page, "error", err)
}

// recoverPanic converts a panic inside a third-party parser into an error.
func recoverPanic(op string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s: panic: %v", op, r)
	}
}

func trimCells(rows [][]string) [][]string {
	for _, row := range rows {
		for j := range row {
			row[j] = strings.TrimSpace(row[j])
		}
	}
	return rows
}
