package entity

import "testing"

func TestToMeterDefaults(t *testing.T) {
	m := WaterMeterEntity{AccountNumber: "4300301"}.ToMeter()
	if m.Label != "Unknown Meter" || m.Level != LevelNA {
		t.Fatalf("expected defaults, got %+v", m)
	}
	if m.Reading("Jan-25") != 0 {
		t.Fatalf("expected 0 for a meter without readings")
	}
}

func TestReadingRowTotal(t *testing.T) {
	one, half := 1.0, 0.5
	r := ReadingRow{DailyReadings: map[int]*float64{1: &one, 2: nil, 3: &half}}
	if r.Total() != 1.5 {
		t.Fatalf("expected 1.5, got %v", r.Total())
	}
	if r.Day(2) != nil || r.Day(9) != nil || *r.Day(3) != 0.5 {
		t.Fatalf("unexpected day lookups")
	}
	if (ReadingRow{}).Day(1) != nil {
		t.Fatalf("expected nil for empty row")
	}
}

func TestDayValues(t *testing.T) {
	v1, v31 := 1.0, 31.0
	c := WaterDailyConsumptionEntity{Day1: &v1, Day31: &v31}
	days := c.DayValues()
	if days[0] != nil || *days[1] != 1 || *days[31] != 31 || days[15] != nil {
		t.Fatalf("unexpected day values")
	}
}
