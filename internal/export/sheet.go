package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names for the three row shapes.
const (
	SheetGeneral         = "Algemeen"
	SheetLocations       = "Locaties"
	SheetRepresentatives = "Vertegenwoordigers"
)

// SheetWriter renders the three deduplicated row lists into a workbook.
type SheetWriter interface {
	Write(general, locations, representatives []Row) ([]byte, error)
}

// XLSXWriter writes an xlsx workbook with one sheet per row kind, an
// emphasized header row and column widths derived from header length.
type XLSXWriter struct{}

func NewXLSXWriter() *XLSXWriter { return &XLSXWriter{} }

func (w *XLSXWriter) Write(general, locations, representatives []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, fmt.Errorf("export: header style: %w", err)
	}

	wrote := false
	add := func(name string, columns []string, rows []Row) error {
		if len(rows) == 0 {
			return nil
		}
		if !wrote {
			// Reuse the default sheet for the first populated kind.
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		wrote = true
		return writeSheet(f, name, columns, rows, headerStyle)
	}

	if err := add(SheetGeneral, GeneralColumns, general); err != nil {
		return nil, fmt.Errorf("export: general sheet: %w", err)
	}
	if err := add(SheetLocations, LocationColumns, locations); err != nil {
		return nil, fmt.Errorf("export: locations sheet: %w", err)
	}
	if err := add(SheetRepresentatives, RepresentativeColumns, representatives); err != nil {
		return nil, fmt.Errorf("export: representatives sheet: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("export: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, name string, columns []string, rows []Row, headerStyle int) error {
	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
		width := float64(len(col) + 6)
		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(name, colName, colName, width); err != nil {
			return err
		}
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		cells := make([]any, len(columns))
		for j, col := range columns {
			v := row[col]
			if col == ColStartdatum {
				v = formatStartdatum(v)
			}
			cells[j] = v
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, axis, &cells); err != nil {
			return err
		}
	}
	return nil
}

// formatStartdatum flips an ISO date into the day-first form used in the
// exported sheets ("2006-01-02" becomes "02-01-2006").
func formatStartdatum(v any) any {
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return v
	}
	return parts[2] + "-" + parts[1] + "-" + parts[0]
}
