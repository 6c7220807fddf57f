// Package output provides utilities for formatting and displaying calculation results.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/calculator"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/constants"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/format"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Write renders results in the named format.
func Write(w io.Writer, outputFormat string, results []calculator.Result) error {
	switch outputFormat {
	case constants.OutputFormatPretty, "":
		return PrettyFormat(w, results)
	case constants.OutputFormatCSV:
		return CsvFormat(w, results)
	case constants.OutputFormatJSON:
		return JSONFormat(w, results)
	case constants.OutputFormatXLSX:
		return XLSXFormat(w, results)
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}

// decimals picks the display precision of a column or metric.
func decimals(name string) int {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "btc"), strings.Contains(lower, "units"):
		return constants.BTCDecimals
	case lower == "year", lower == "month", lower == "age", lower == "sats",
		lower == "months", lower == "positivemonths", lower == "skippedperiods":
		return 0
	default:
		return 2
	}
}

func isMoney(name string) bool {
	lower := strings.ToLower(name)
	for _, part := range []string{"value", "price", "invested", "income", "contributed", "withdrawal", "cost"} {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, results []calculator.Result) error {
	p := message.NewPrinter(language.English)
	for i, result := range results {
		_, _ = fmt.Fprintf(w, "--- Results for %s %s ---\n", result.Kind, result.Name)
		if result.Degraded {
			_, _ = fmt.Fprintf(w, "(degraded: live data unavailable)\n")
		}

		header := append([]string{"Period"}, result.Columns...)
		header = append(header, "Notes")
		_, _ = fmt.Fprintf(w, "%s\n", strings.Join(header, " | "))
		rules := make([]string, len(header))
		for j, h := range header {
			rules[j] = strings.Repeat("_", len(h))
		}
		_, _ = fmt.Fprintf(w, "%s\n", strings.Join(rules, " | "))

		for _, row := range result.Rows {
			cells := []string{row.Period}
			for _, col := range result.Columns {
				v, ok := row.Values[col]
				if !ok {
					cells = append(cells, "-")
					continue
				}
				cells = append(cells, p.Sprintf("%.*f", decimals(col), v))
			}
			cells = append(cells, strings.Join(row.Notes, ","))
			_, _ = fmt.Fprintf(w, "%s\n", strings.Join(cells, " | "))
		}

		if len(result.Summary) > 0 {
			_, _ = fmt.Fprintf(w, "Summary:\n")
			for _, m := range result.Summary {
				var value string
				switch {
				case strings.HasSuffix(m.Name, "Percent"):
					value = p.Sprintf("%.2f%%", m.Value)
				case strings.Contains(strings.ToLower(m.Name), "btc"):
					value = format.BTC(m.Value)
				case isMoney(m.Name) && decimals(m.Name) == 2:
					value = format.CurrencyIn(m.Value, result.Currency)
				default:
					value = p.Sprintf("%.*f", decimals(m.Name), m.Value)
				}
				_, _ = fmt.Fprintf(w, "  %s: %s\n", m.Name, value)
			}
		}
		for _, note := range result.Notes {
			_, _ = fmt.Fprintf(w, "Note: %s\n", note)
		}
		if i < len(results)-1 {
			_, _ = fmt.Fprintf(w, "\n")
		}
	}
	return nil
}

// CsvFormat outputs each result as a comma-separated block; blocks are
// separated by an empty line.
func CsvFormat(w io.Writer, results []calculator.Result) error {
	for i, result := range results {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		cw := csv.NewWriter(w)
		header := append([]string{"calculation", "period"}, result.Columns...)
		header = append(header, "notes")
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, row := range result.Rows {
			record := []string{result.Name, row.Period}
			for _, col := range result.Columns {
				if v, ok := row.Values[col]; ok {
					record = append(record, strconv.FormatFloat(v, 'f', decimals(col), 64))
				} else {
					record = append(record, "")
				}
			}
			record = append(record, strings.Join(row.Notes, ","))
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
	}
	return nil
}

// CsvString returns the CSV rendering of results.
func CsvString(results []calculator.Result) string {
	var buf bytes.Buffer
	if err := CsvFormat(&buf, results); err != nil {
		return ""
	}
	return buf.String()
}

// JSONFormat outputs the results as an indented JSON array.
func JSONFormat(w io.Writer, results []calculator.Result) error {
	if results == nil {
		results = []calculator.Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
