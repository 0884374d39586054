package service

import (
	"context"
	"testing"

	"github.com/ARahim900/muscatbay-sub004/entity"
)

func testRegistry() []entity.Meter {
	return []entity.Meter{
		{Label: "Building A", AccountNumber: "4300001", Level: "L3", Zone: "Zone_03_(A)", ParentMeter: "Zone 3A Bulk", Type: "Residential (Apart)"},
		{Label: "Irrigation Tank", AccountNumber: "4300050", Level: "DC", Zone: "Zone_05", ParentMeter: "Main Bulk (NAMA)", Type: "IRR_Servies"},
	}
}

func TestReconcileSkipsUnconfiguredRows(t *testing.T) {
	rows := []entity.ReadingRow{
		{AccountNumber: "4300001"},
		{AccountNumber: "9999999", MeterName: "Somewhere Else"},
	}
	valid, skipped := (&ReconcileServiceImpl{}).Reconcile(rows, testRegistry())
	if len(valid) != 1 || skipped != 1 {
		t.Fatalf("expected 1 valid and 1 skipped, got %d and %d", len(valid), skipped)
	}
	got := valid[0]
	if got.MeterName != "Building A" || got.Label != "L3" || got.Zone != "Zone 3A" ||
		got.ParentMeter != "Zone 3A Bulk" || got.Type != "Residential (Apart)" {
		t.Fatalf("row not enriched from registry: %+v", got)
	}
}

func TestReconcileMatchesNameCaseInsensitively(t *testing.T) {
	rows := []entity.ReadingRow{{MeterName: "  irrigation TANK "}}
	valid, skipped := (&ReconcileServiceImpl{}).Reconcile(rows, testRegistry())
	if len(valid) != 1 || skipped != 0 {
		t.Fatalf("expected name match, got %d valid %d skipped", len(valid), skipped)
	}
	if valid[0].Zone != "Zone 5" || valid[0].Label != "DC" {
		t.Fatalf("unexpected enrichment: %+v", valid[0])
	}
}

func TestReconcileKeepsValuesFromFile(t *testing.T) {
	rows := []entity.ReadingRow{{
		AccountNumber: "4300001",
		MeterName:     "Bldg A (file)",
		Label:         "L4",
		Zone:          "zone_08",
		Type:          "Retail",
	}}
	valid, _ := (&ReconcileServiceImpl{}).Reconcile(rows, testRegistry())
	if len(valid) != 1 {
		t.Fatalf("expected match by account")
	}
	got := valid[0]
	if got.MeterName != "Bldg A (file)" || got.Label != "L4" || got.Type != "Retail" {
		t.Fatalf("file values were overwritten: %+v", got)
	}
	if got.Zone != "Zone 08" {
		t.Fatalf("expected file zone normalized to Zone 08, got %q", got.Zone)
	}
	if got.ParentMeter != "Zone 3A Bulk" {
		t.Fatalf("expected empty parent filled, got %q", got.ParentMeter)
	}
}

func TestNormalizeZone(t *testing.T) {
	cases := map[string]string{
		"Zone_01_(FM)":   "Zone FM",
		"zone_03_(b)":    "Zone 3B",
		"ZONE_VS":        "Village Square",
		"zone 3a":        "Zone 3A",
		"Sales Center":   "Sales Center",
		"Direct Connect": "Direct Connect",
		"":               "",
	}
	for in, want := range cases {
		if got := NormalizeZone(in); got != want {
			t.Errorf("NormalizeZone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNameOnlyRowsPersistAsSeparateRecords(t *testing.T) {
	registry := []entity.Meter{
		{Label: "Building A", AccountNumber: "4300301", Level: "L3", Zone: "Zone_03_(A)"},
		{Label: "Building B", AccountNumber: "4300302", Level: "L3", Zone: "Zone_03_(A)"},
	}
	rows, err := (&CsvParseServiceImpl{}).Parse([]byte("meter_name,day_1\nBuilding A,10\nBuilding B,20\n"), "Jan-25", 2025)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	valid, skipped := (&ReconcileServiceImpl{}).Reconcile(rows, registry)
	if len(valid) != 2 || skipped != 0 {
		t.Fatalf("expected 2 valid rows, got %d valid %d skipped", len(valid), skipped)
	}
	if valid[0].AccountNumber != "4300301" || valid[1].AccountNumber != "4300302" {
		t.Fatalf("account not taken from registry: %q %q", valid[0].AccountNumber, valid[1].AccountNumber)
	}

	store := newFakeConsumptionStore(true)
	res := NewPersistServiceImpl(store, 50).Write(context.Background(), valid)
	if res.Imported != 2 || len(res.Errors) != 0 {
		t.Fatalf("expected 2 imported without errors, got %+v", res)
	}
	if len(store.table) != 2 {
		t.Fatalf("expected 2 stored records, got %d", len(store.table))
	}
}
