package extract

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	excelMaxRows = 50
	excelMaxColumns = 30
)

// extractExcel implements the Excel extractor: per sheet, render
// up to the first 50 rows as a Markdown table, truncating columns to 30
// from the right when exceeded, with NaN-equivalent cells rendered
// empty and a truncation footer when the sheet has more rows than shown.
func extractExcel(path string) ([]Unit, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var units []Unit
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}

		totalRows := len(rows)
		shown := rows
		if len(shown) > excelMaxRows {
			shown = shown[:excelMaxRows]
		}

		table := RenderMarkdownTable(shown)
		if totalRows > excelMaxRows {
			table += fmt.Sprintf("\n(Table truncated: total rows = %d)", totalRows)
		}

		units = append(units, Unit{
			Text: table,
			Sheet: sheet,
			Rows: shown,
		})
	}
	return units, nil
}

// RenderMarkdownTable renders rows as a Markdown table, truncating every
// row to the first 30 columns counted from the right (i.e. keeping the
// leftmost 30 columns) and treating a missing cell as empty. Exported so
// the chunker can re-render a sub-range of rows when a sheet's full
// table exceeds the chunk length limit.
func RenderMarkdownTable(rows [][]string) string {
	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	if maxCols > excelMaxColumns {
		maxCols = excelMaxColumns
	}
	if maxCols == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := 0; i < maxCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(" ")
			b.WriteString(cell)
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|")
	for i := 0; i < maxCols; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return strings.TrimRight(b.String(), "\n")
}
