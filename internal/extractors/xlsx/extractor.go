// Package xlsx extracts text from spreadsheet workbooks.
package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
	"github.com/custodia-labs/docpipe/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles XLSX workbooks and the xlsx-compatible Hancom CELL
// format.
type Extractor struct{}

// New creates a new spreadsheet extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".xlsx", ".cell"}
}

// Extract renders each sheet as a "Sheet: name" header followed by
// tab-joined rows, skipping fully empty rows.
func (e *Extractor) Extract(_ context.Context, content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCorruptDocument, err)
	}
	defer f.Close()

	var parts []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			logger.Debug("xlsx: sheet %q unreadable: %v", sheet, err)
			continue
		}

		var lines []string
		for _, row := range rows {
			if rowEmpty(row) {
				continue
			}
			lines = append(lines, strings.Join(row, "\t"))
		}
		if len(lines) > 0 {
			parts = append(parts, fmt.Sprintf("Sheet: %s\n%s", sheet, strings.Join(lines, "\n")))
		}
	}

	return strings.Join(parts, "\n\n"), nil
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
