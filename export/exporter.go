// Package export writes reconciled record sets to JSON, CSV and Excel,
// with subtype labels mapped onto their technology codes.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"plantregistry/reconcile"
	"plantregistry/registry"
	"plantregistry/schema"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// ParseFormat resolves a format name, accepting the usual file
// extension spellings.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	}
	return "", fmt.Errorf("unknown export format %q (accepted: json, csv, excel)", s)
}

// ExportedItem is one output row. SchemaCode carries the technology
// code of the resolved subtype, or the reserved unknown code.
type ExportedItem struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Company           string  `json:"company,omitempty"`
	Technology        string  `json:"technology"`
	Subtype           string  `json:"subtype,omitempty"`
	SubtypeConfidence float64 `json:"subtype_confidence"`
	SchemaCode        int     `json:"schema_code"`
	MatchMethod       string  `json:"match_method"`
	MatchRef          string  `json:"match_ref,omitempty"`
	MatchScore        int     `json:"match_score"`
	Source            string  `json:"source,omitempty"`
	ReviewRequired    bool    `json:"review_required"`
}

// Exporter renders one run's outcome.
type Exporter struct {
	runID  string
	items  []ExportedItem
	review []reconcile.ReviewItem
}

// NewExporter prepares the export rows for a finished run.
func NewExporter(result *reconcile.RunResult) *Exporter {
	e := &Exporter{runID: result.RunID, review: result.Review.Items()}
	for _, r := range result.Records {
		e.items = append(e.items, buildItem(r, result.Review.Contains(r.ID)))
	}
	return e
}

func buildItem(r registry.PlantRecord, reviewRequired bool) ExportedItem {
	return ExportedItem{
		ID:                r.ID,
		Name:              r.Name,
		Company:           r.Company,
		Technology:        string(r.Technology),
		Subtype:           r.Subtype,
		SubtypeConfidence: r.SubtypeConfidence,
		SchemaCode:        schema.Map(r.Subtype, r.Technology),
		MatchMethod:       string(r.MatchMethod),
		MatchRef:          r.MatchRef,
		MatchScore:        r.MatchScore,
		Source:            r.Source,
		ReviewRequired:    reviewRequired,
	}
}

// Write renders the run in the requested format.
func (e *Exporter) Write(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		return e.writeJSON(w)
	case FormatCSV:
		return e.writeCSV(w)
	case FormatExcel:
		return e.writeExcel(w)
	}
	return fmt.Errorf("unknown export format %q", format)
}

// WriteFile renders the run into a file.
func (e *Exporter) WriteFile(filename string, format Format) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	return e.Write(file, format)
}

func (e *Exporter) writeJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	result := map[string]interface{}{
		"run_id":      e.runID,
		"exported_at": time.Now().Format(time.RFC3339),
		"total":       len(e.items),
		"items":       e.items,
	}

	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

var csvHeaders = []string{
	"ID", "Name", "Company", "Technology", "Subtype", "Confidence",
	"Schema Code", "Match Method", "Match Ref", "Match Score", "Source", "Review",
}

func (e *Exporter) writeCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, item := range e.items {
		record := []string{
			item.ID,
			item.Name,
			item.Company,
			item.Technology,
			item.Subtype,
			fmt.Sprintf("%.2f", item.SubtypeConfidence),
			fmt.Sprintf("%d", item.SchemaCode),
			item.MatchMethod,
			item.MatchRef,
			fmt.Sprintf("%d", item.MatchScore),
			item.Source,
			fmt.Sprintf("%t", item.ReviewRequired),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func (e *Exporter) writeExcel(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Reconciled Plants"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet(f.GetSheetName(0))

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range csvHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, item := range e.items {
		row := rowIdx + 2
		values := []interface{}{
			item.ID, item.Name, item.Company, item.Technology,
			item.Subtype, item.SubtypeConfidence, item.SchemaCode,
			item.MatchMethod, item.MatchRef, item.MatchScore,
			item.Source, item.ReviewRequired,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	for i := range csvHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 15)
	}

	f.SetActiveSheet(index)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteReviewCSV renders the review queue of the run: the records a
// human still has to look at, with the reason they got queued.
func (e *Exporter) WriteReviewCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Plant ID", "Plant Name", "Reason", "Confidence"}); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for _, item := range e.review {
		record := []string{
			item.PlantID,
			item.PlantName,
			string(item.Reason),
			fmt.Sprintf("%.2f", item.Confidence),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write review record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
