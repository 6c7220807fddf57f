package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/calculator"
	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// sheetName makes a valid, unique worksheet name for a result.
func sheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" {
		clean = "Result"
	}
	if len([]rune(clean)) > maxSheetName {
		clean = string([]rune(clean)[:maxSheetName])
	}
	candidate := clean
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		base := []rune(clean)
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// XLSXFormat writes a workbook with one sheet per result: the table, then
// the summary and notes below it.
func XLSXFormat(w io.Writer, results []calculator.Result) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const defaultSheet = "Sheet1"
	used := make(map[string]bool)
	for i, result := range results {
		name := sheetName(result.Name, used)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}

		line := 1
		setRow := func(values []interface{}) error {
			cell, err := excelize.CoordinatesToCellName(1, line)
			if err != nil {
				return err
			}
			line++
			return f.SetSheetRow(name, cell, &values)
		}

		header := []interface{}{"period"}
		for _, col := range result.Columns {
			header = append(header, col)
		}
		header = append(header, "notes")
		if err := setRow(header); err != nil {
			return fmt.Errorf("write %s header: %w", name, err)
		}
		for _, row := range result.Rows {
			values := []interface{}{row.Period}
			for _, col := range result.Columns {
				if v, ok := row.Values[col]; ok {
					values = append(values, v)
				} else {
					values = append(values, nil)
				}
			}
			values = append(values, strings.Join(row.Notes, ","))
			if err := setRow(values); err != nil {
				return fmt.Errorf("write %s row %s: %w", name, row.Period, err)
			}
		}

		line++
		for _, m := range result.Summary {
			if err := setRow([]interface{}{m.Name, m.Value}); err != nil {
				return fmt.Errorf("write %s summary: %w", name, err)
			}
		}
		for _, note := range result.Notes {
			if err := setRow([]interface{}{"note", note}); err != nil {
				return fmt.Errorf("write %s notes: %w", name, err)
			}
		}
	}

	_, err := f.WriteTo(w)
	return err
}
