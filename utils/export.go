package utils

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"
)

// Record is one exported row keyed by field name
type Record map[string]interface{}

func exportValue(v interface{}, missing string) string {
	switch val := v.(type) {
	case nil:
		return missing
	case time.Time:
		return FormatTimestamp(val, TimestampFull, time.Now())
	case *time.Time:
		if val == nil {
			return missing
		}
		return FormatTimestamp(*val, TimestampFull, time.Now())
	case string:
		return val
	}
	return fmt.Sprint(v)
}

// ExportCSV writes records as CSV with a header row of fields
func ExportCSV(records []Record, fields []string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	row := make([]string, len(fields))
	for _, r := range records {
		for i, f := range fields {
			row[i] = exportValue(r[f], "")
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}

// ExportTXT renders records as numbered plain-text blocks
func ExportTXT(records []Record, fields []string) string {
	rule := strings.Repeat("=", 50)
	var lines []string
	for i, r := range records {
		lines = append(lines, rule, fmt.Sprintf("Item %d", i+1), rule)
		for _, f := range fields {
			v, ok := r[f]
			if !ok {
				lines = append(lines, f+": N/A")
				continue
			}
			lines = append(lines, f+": "+exportValue(v, "N/A"))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
