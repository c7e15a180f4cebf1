// Package mapping serializes field-mapping records to the reviewable CSV
// table and formats them for display.
package mapping

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fairsailau/congabox2/internal/model"
)

var header = []string{"conga_field", "box_field", "notes"}

// Write serializes records as CSV with the fixed header order.
func Write(w io.Writer, records []model.MappingRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write([]string{rec.CongaField, rec.BoxField, rec.Notes}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the mapping CSV to path, creating any missing parent
// directory.
func WriteFile(path string, records []model.MappingRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &model.WriteError{Path: path, Err: err}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return &model.WriteError{Path: path, Err: err}
	}

	if err := Write(f, records); err != nil {
		f.Close()
		return &model.WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &model.WriteError{Path: path, Err: err}
	}
	return nil
}

// ReadFile loads a mapping CSV produced by WriteFile.
func ReadFile(path string) ([]model.MappingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading mapping CSV %s: %w", path, err)
	}

	var records []model.MappingRecord
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == "conga_field" {
			continue
		}
		if len(row) < 2 {
			continue
		}
		rec := model.MappingRecord{CongaField: row[0], BoxField: row[1]}
		if len(row) > 2 {
			rec.Notes = row[2]
		}
		records = append(records, rec)
	}
	return records, nil
}

// FormatTable renders records as a markdown table for display.
func FormatTable(records []model.MappingRecord) string {
	if len(records) == 0 {
		return "No mappings found."
	}

	var sb strings.Builder
	sb.WriteString("| Conga Field | Box Field | Notes |\n")
	sb.WriteString("|------------|-----------|-------|\n")
	for _, rec := range records {
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", rec.CongaField, rec.BoxField, rec.Notes)
	}
	return sb.String()
}
