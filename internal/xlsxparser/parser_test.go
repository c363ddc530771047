package xlsxparser

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/pretix-ifirma/internal/config"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if _, err := f.NewSheet(sheet); err != nil {
			t.Fatalf("NewSheet() error = %v", err)
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "orders.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}
	return path
}

func TestParseFirstSheet(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{
		{"Kod zamówienia", "Nazwa wydarzenia", "Suma zamówienia"},
		{"ABC12", "Concert A", "100,00"},
		{},
		{"DEF34", " Koncert B "},
	})

	table, err := Parse(path, config.XLSXSettings{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}
	if got := table.Rows[0].Fields["Nazwa wydarzenia"]; got != "Concert A" {
		t.Errorf("event = %q, want Concert A", got)
	}
	if table.Rows[0].Number != 2 {
		t.Errorf("first row Number = %d, want 2", table.Rows[0].Number)
	}

	second := table.Rows[1]
	if second.Number != 4 {
		t.Errorf("second row Number = %d, want 4", second.Number)
	}
	if second.Fields["Nazwa wydarzenia"] != "Koncert B" {
		t.Errorf("value not trimmed: %q", second.Fields["Nazwa wydarzenia"])
	}
	if v, ok := second.Lookup("Suma zamówienia"); !ok || v != "" {
		t.Errorf("missing trailing cell = %q, %v", v, ok)
	}
}

func TestParseNamedSheet(t *testing.T) {
	path := writeWorkbook(t, "Orders", [][]any{
		{"Kod zamówienia"},
		{"XYZ99"},
	})

	table, err := Parse(path, config.XLSXSettings{Sheet: "Orders"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0].Fields["Kod zamówienia"] != "XYZ99" {
		t.Errorf("rows = %+v", table.Rows)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(filepath.Join(t.TempDir(), "missing.xlsx"), config.XLSXSettings{}); err == nil {
		t.Error("expected error for missing workbook")
	}

	empty := writeWorkbook(t, "Sheet1", nil)
	if _, err := Parse(empty, config.XLSXSettings{}); err == nil {
		t.Error("expected error for workbook without header row")
	}
}
