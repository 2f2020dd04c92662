package ingest

import (
	"log/slog"

	"github.com/a3tai/pdf-rag-ingest/internal/cascade"
	"github.com/a3tai/pdf-rag-ingest/internal/config"
	"github.com/a3tai/pdf-rag-ingest/internal/detect"
	"github.com/a3tai/pdf-rag-ingest/internal/document"
	"github.com/a3tai/pdf-rag-ingest/internal/table"
)

// NewFromConfig builds the production pipeline: lattice, stream and layout
// detectors in that priority order, the ledongthuc text fallback and the
// pdfcpu page selector.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	numeric := table.NewNumericMatcher(cfg.NumericTokens, cfg.NumericUnits)

	reconstructor := table.NewReconstructor(numeric)
	reconstructor.NumericRatio = cfg.HeaderNumericRatio

	emitter := document.NewEmitter(numeric)
	emitter.EntityTextRatio = cfg.EntityTextRatio
	emitter.EntityMinValues = cfg.EntityMinValues

	dopts := DetectorOptions(cfg)
	detectors := []cascade.Detector{
		detect.NewLattice(dopts, logger),
		detect.NewStream(dopts, logger),
		detect.NewLayout(dopts, logger),
	}

	c := cascade.New(detectors, reconstructor, cascade.Options{
		MinRows:       cfg.MinRowsForTable,
		MinCols:       cfg.MinColsForTable,
		MaxHeaderRows: cfg.MaxHeaderRows,
		Parallel:      cfg.ParallelDetectors,
	}, logger)

	return NewService(c,
		emitter,
		detect.NewTextExtractor(cfg.DetectorQuiet, logger),
		detect.NewPageSelector(),
		Options{
			MaxDocumentChars: cfg.MaxDocumentChars,
			OverlapChars:     cfg.OverlapChars,
			MaxTextPages:     cfg.MaxTextPages,
			Pages:            cfg.Pages,
		},
		logger)
}

// DetectorOptions extracts the detector tuning from cfg.
func DetectorOptions(cfg *config.Config) detect.Options {
	return detect.Options{
		LatticeMinLineLength:      cfg.LatticeMinLineLength,
		LatticeAlignmentTolerance: cfg.LatticeAlignmentTolerance,
		StreamColumnGap:           cfg.StreamColumnGap,
		StreamSnapTolerance:       cfg.StreamSnapTolerance,
		LayoutMinConfidence:       cfg.LayoutMinConfidence,
		Quiet:                     cfg.DetectorQuiet,
	}
}

// Detectors returns the detector names in priority order.
func (s *Service) Detectors() []string {
	return s.cascade.Detectors()
}
