package importer

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

// ImportExcel reads a plant registry from the first sheet of an Excel
// workbook. The first row is the header, same column rules as CSV.
func ImportExcel(filePath, source string) (*ImportResult, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	return readWorkbook(f, source)
}

// ReadExcel parses workbook content from a reader.
func ReadExcel(r io.Reader, source string) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel content: %w", err)
	}
	defer f.Close()

	return readWorkbook(f, source)
}

func readWorkbook(f *excelize.File, source string) (*ImportResult, error) {
	logger := slog.Default().With("component", "importer", "format", "xlsx")

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in workbook")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %s too short, expected a header row and at least one data row", sheetName)
	}

	cols, err := findColumns(rows[0])
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for i, row := range rows[1:] {
		rowNum := i + 2
		record, rowErr := buildRecord(row, cols, source, rowNum)
		if rowErr != nil {
			result.Errors = append(result.Errors, *rowErr)
			continue
		}
		result.Records = append(result.Records, record)
	}

	logger.Info("registry imported",
		"source", source,
		"sheet", sheetName,
		"records", len(result.Records),
		"rejected", len(result.Errors))
	return result, nil
}
