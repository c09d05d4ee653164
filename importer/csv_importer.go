// Package importer reads plant registries from CSV and Excel files into
// the canonical record form. Malformed rows are collected, never fatal:
// one bad line must not sink a ten-thousand-row registry.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"plantregistry/registry"
)

// RowError describes one rejected input row.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult carries the accepted records plus every rejected row.
type ImportResult struct {
	Records []registry.PlantRecord
	Errors  []RowError
}

// columnIndices maps the header names we accept onto column positions.
// -1 means the column is absent.
type columnIndices struct {
	id         int
	name       int
	company    int
	technology int
	subtype    int
}

// headerAliases lists the accepted spellings per logical column,
// covering the English and Spanish registry exports seen in practice.
var headerAliases = map[string][]string{
	"id":         {"id", "plant_id", "codigo", "código"},
	"name":       {"name", "plant_name", "central", "nombre"},
	"company":    {"company", "operator", "empresa", "operadora"},
	"technology": {"technology", "type", "tecnologia", "tecnología", "tipo"},
	"subtype":    {"subtype", "subtipo"},
}

// ImportCSV reads a plant registry from a CSV file. The first row is
// the header; column order is free.
func ImportCSV(filePath, source string) (*ImportResult, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	return ReadCSV(f, source)
}

// ReadCSV parses CSV content from a reader. source tags every imported
// record with its registry of origin.
func ReadCSV(r io.Reader, source string) (*ImportResult, error) {
	logger := slog.Default().With("component", "importer", "format", "csv")

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols, err := findColumns(header)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	rowNum := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNum, Reason: err.Error()})
			continue
		}

		record, rowErr := buildRecord(row, cols, source, rowNum)
		if rowErr != nil {
			result.Errors = append(result.Errors, *rowErr)
			continue
		}
		result.Records = append(result.Records, record)
	}

	logger.Info("registry imported",
		"source", source,
		"records", len(result.Records),
		"rejected", len(result.Errors))
	return result, nil
}

// findColumns resolves the logical columns against the header row.
// Name and technology are mandatory; everything else is optional.
func findColumns(header []string) (columnIndices, error) {
	cols := columnIndices{id: -1, name: -1, company: -1, technology: -1, subtype: -1}

	position := make(map[string]int, len(header))
	for i, h := range header {
		position[strings.TrimSpace(strings.ToLower(h))] = i
	}

	lookup := func(logical string) int {
		for _, alias := range headerAliases[logical] {
			if i, ok := position[alias]; ok {
				return i
			}
		}
		return -1
	}

	cols.id = lookup("id")
	cols.name = lookup("name")
	cols.company = lookup("company")
	cols.technology = lookup("technology")
	cols.subtype = lookup("subtype")

	if cols.name == -1 {
		return cols, fmt.Errorf("required column missing: plant name (accepted headers: %s)", strings.Join(headerAliases["name"], ", "))
	}
	if cols.technology == -1 {
		return cols, fmt.Errorf("required column missing: technology (accepted headers: %s)", strings.Join(headerAliases["technology"], ", "))
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// buildRecord validates one data row. Rows without a name or with an
// unrecognized technology are rejected with a reason.
func buildRecord(row []string, cols columnIndices, source string, rowNum int) (registry.PlantRecord, *RowError) {
	name := cell(row, cols.name)
	if name == "" {
		return registry.PlantRecord{}, &RowError{Row: rowNum, Reason: "empty plant name"}
	}

	rawTech := cell(row, cols.technology)
	tech, ok := registry.ParseTechnology(rawTech)
	if !ok {
		return registry.PlantRecord{}, &RowError{Row: rowNum, Reason: fmt.Sprintf("unknown technology %q", rawTech)}
	}

	id := cell(row, cols.id)
	if id == "" {
		id = fmt.Sprintf("%s-%d", source, rowNum)
	}

	record := registry.PlantRecord{
		ID:         id,
		Name:       name,
		Company:    cell(row, cols.company),
		Technology: tech,
		Source:     source,
	}

	// A pre-filled subtype is kept only when it belongs to the
	// technology's label set; anything else stays unresolved.
	if raw := cell(row, cols.subtype); raw != "" {
		if canonical, ok := registry.CanonicalLabel(tech, raw); ok {
			record.Subtype = canonical
			record.SubtypeConfidence = 1.0
		}
	}

	return record, nil
}
