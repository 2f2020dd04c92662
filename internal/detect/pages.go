package detect

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// AllPages is the selector that visits every page.
const AllPages = "all"

// PageSelector resolves page selectors such as "1-3,7" or "even" against a
// document. Besides ranges it accepts the pdfcpu selection keywords.
type PageSelector struct{}

// NewPageSelector returns a page selector.
func NewPageSelector() *PageSelector {
	return &PageSelector{}
}

// Resolve returns the sorted 1-based pages named by selector. It returns
// nil for an empty or "all" selector, meaning every page. A selector that
// matches nothing yields an empty non-nil slice.
func (s *PageSelector) Resolve(path, selector string) ([]int, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" || strings.EqualFold(selector, AllPages) {
		return nil, nil
	}

	parsed, err := api.ParsePageSelection(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid page selection %q: %w", selector, err)
	}

	count, err := PageCount(path)
	if err != nil {
		return nil, err
	}

	set, err := api.PagesForPageSelection(count, parsed, true, false)
	if err != nil {
		return nil, fmt.Errorf("invalid page selection %q: %w", selector, err)
	}

	pages := make([]int, 0, len(set))
	for p, ok := range set {
		if ok && p >= 1 && p <= count {
			pages = append(pages, p)
		}
	}
	sort.Ints(pages)
	return pages, nil
}

// PageCount validates the document structure and returns its page count.
func PageCount(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("failed to ensure page count: %w", err)
	}
	return ctx.PageCount, nil
}
