package mapping

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	DefaultSheet = "Info"

	sourceHeader = "Database Column"
	columnHeader = "Mapped Column"
)

// WorkbookLoader reads client mappings from the configuration workbook.
// A sheet named after the client wins over the shared fallback sheet.
type WorkbookLoader struct {
	Path     string
	Fallback string
}

func NewWorkbookLoader(path, fallback string) *WorkbookLoader {
	if fallback == "" {
		fallback = DefaultSheet
	}
	return &WorkbookLoader{Path: path, Fallback: fallback}
}

func (l *WorkbookLoader) Load(client string) (*Mapping, error) {
	f, err := excelize.OpenFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("open mapping workbook %q: %w", l.Path, err)
	}
	defer f.Close()

	sheet := ""
	for _, name := range f.GetSheetList() {
		if strings.EqualFold(name, client) {
			sheet = name
			break
		}
	}
	if sheet == "" {
		for _, name := range f.GetSheetList() {
			if name == l.Fallback {
				sheet = name
				break
			}
		}
	}
	if sheet == "" {
		return nil, fmt.Errorf("%w: no sheet for %q in %s", ErrMappingNotFound, client, l.Path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	pairs, err := parseRows(rows)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}

	m, err := New(client, pairs)
	if err != nil {
		return nil, err
	}
	m.Sheet = sheet
	return m, nil
}

func parseRows(rows [][]string) ([]Pair, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty sheet", ErrMappingNotFound)
	}

	srcIdx, colIdx := -1, -1
	for i, h := range rows[0] {
		switch strings.TrimSpace(h) {
		case sourceHeader:
			srcIdx = i
		case columnHeader:
			colIdx = i
		}
	}
	if srcIdx < 0 || colIdx < 0 {
		return nil, fmt.Errorf("header must contain %q and %q", sourceHeader, columnHeader)
	}

	var pairs []Pair
	for _, row := range rows[1:] {
		src := cell(row, srcIdx)
		col := cell(row, colIdx)
		if src == "" && col == "" {
			continue
		}
		pairs = append(pairs, Pair{Source: src, Column: col})
	}
	return pairs, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
