// Package extract reads uploaded files into per-page text. It is the only
// place that touches document formats; everything downstream works on
// docModel.Page values.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
	"github.com/ragready/pipeline/internal/domain/docModel"
	"github.com/ragready/pipeline/pkg/logger_i"
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

var logger = logger_i.NewLogger("Extraction")

// Pages extracts per-page text from the file at path, dispatching on the
// extension.
func Pages(path string) ([]docModel.Page, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".docx", ".odt", ".rtf", ".txt":
		return extractFlat(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func extractPDF(path string) ([]docModel.Page, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []docModel.Page
	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// skip the broken page, keep the rest of the document
			logger.Error("Error parsing page content", "page", i, "Error", err)
			continue
		}

		pages = append(pages, docModel.Page{
			Number: i,
			Text:   content,
		})
	}
	return pages, nil
}

// extractFlat reads formats without page structure. All content lands on
// page 1.
func extractFlat(path string) ([]docModel.Page, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document text: %w", err)
	}
	return []docModel.Page{
		{
			Number: 1,
			Text:   text,
		},
	}, nil
}

// protectExtract guards against parser hangs on malformed pages.
func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(time.Second * 10):
		return "", errors.New("timeout")
	}
}
