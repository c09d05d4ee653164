package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"plantregistry/reconcile"
	"plantregistry/registry"
	"plantregistry/schema"
)

func sampleRun() *reconcile.RunResult {
	result := &reconcile.RunResult{
		RunID:  "run-42",
		Review: reconcile.NewReviewQueue(),
	}
	result.Records = []registry.PlantRecord{
		{
			ID: "s1", Name: "Central Sopladora", Company: "CELEC EP",
			Technology: registry.TechHydro, Subtype: "Reservoir", SubtypeConfidence: 0.95,
			MatchMethod: registry.MatchExact, MatchRef: "t1", Source: "cenace",
		},
		{
			ID: "s2", Name: "Paute Mazar",
			Technology: registry.TechHydro,
			MatchMethod: registry.MatchUnmatched, Source: "cenace",
		},
	}
	result.Review.Add(reconcile.ReviewItem{PlantID: "s2", PlantName: "Paute Mazar", Reason: reconcile.ReasonUnmatched})
	return result
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExporter(sampleRun()).Write(&buf, FormatJSON); err != nil {
		t.Fatalf("Write(json) error = %v", err)
	}

	var payload struct {
		RunID string         `json:"run_id"`
		Total int            `json:"total"`
		Items []ExportedItem `json:"items"`
	}
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if payload.RunID != "run-42" || payload.Total != 2 {
		t.Errorf("payload header = %+v", payload)
	}

	got := payload.Items[0]
	if got.Subtype != "Reservoir" || got.SchemaCode == schema.CodeUnknown {
		t.Errorf("resolved item = %+v, want mapped schema code", got)
	}
	if !payload.Items[1].ReviewRequired {
		t.Error("unmatched item not flagged for review")
	}
	if payload.Items[1].SchemaCode != schema.CodeUnknown {
		t.Errorf("unresolved item SchemaCode = %d, want %d", payload.Items[1].SchemaCode, schema.CodeUnknown)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExporter(sampleRun()).Write(&buf, FormatCSV); err != nil {
		t.Fatalf("Write(csv) error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want header + 2 records", len(rows))
	}
	if rows[0][0] != "ID" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "s1" || rows[1][4] != "Reservoir" {
		t.Errorf("first record = %v", rows[1])
	}
}

func TestWriteExcel(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExporter(sampleRun()).Write(&buf, FormatExcel); err != nil {
		t.Fatalf("Write(excel) error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("output is not a valid workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Reconciled Plants")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want header + 2 records", len(rows))
	}
	if rows[1][1] != "Central Sopladora" {
		t.Errorf("first record = %v", rows[1])
	}
}

func TestWriteReviewCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExporter(sampleRun()).WriteReviewCSV(&buf); err != nil {
		t.Fatalf("WriteReviewCSV() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want header + 1 item", len(rows))
	}
	if rows[1][0] != "s2" || rows[1][2] != string(reconcile.ReasonUnmatched) {
		t.Errorf("review row = %v", rows[1])
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"excel", FormatExcel, false},
		{"xlsx", FormatExcel, false},
		{"pdf", "", true},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q) error = nil, want error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseFormat(%q) = %v, %v, want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestWriteUnknownFormatRejected(t *testing.T) {
	var buf bytes.Buffer
	err := NewExporter(sampleRun()).Write(&buf, Format("yaml"))
	if err == nil || !strings.Contains(err.Error(), "yaml") {
		t.Errorf("error = %v, want unknown format mention", err)
	}
}
