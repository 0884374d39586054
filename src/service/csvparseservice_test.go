package service

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseStandardLayout(t *testing.T) {
	content := "Meter Name,Acct #,Zone,Day 1,Day 2,Day 3\n" +
		"\"Building, A\",4300001,Zone_03_(A),\"1,234.5\",,NULL\n" +
		"Villa 2,4300002,,0,7,abc\n"

	rows, err := (&CsvParseServiceImpl{}).Parse([]byte(content), "Jan-26", 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.MeterName != "Building, A" {
		t.Fatalf("quoted field not kept whole: %q", first.MeterName)
	}
	if first.AccountNumber != "4300001" || first.Zone != "Zone_03_(A)" {
		t.Fatalf("unexpected metadata: %+v", first)
	}
	if first.Month != "Jan-26" || first.Year != 2026 {
		t.Fatalf("expected default period, got %s %d", first.Month, first.Year)
	}
	if v := first.Day(1); v == nil || *v != 1234.5 {
		t.Fatalf("expected day 1 = 1234.5, got %v", v)
	}
	if first.Day(2) != nil || first.Day(3) != nil {
		t.Fatalf("expected empty and NULL cells to be null")
	}

	second := rows[1]
	if v := second.Day(1); v == nil || *v != 0 {
		t.Fatalf("expected explicit zero on day 1, got %v", v)
	}
	if second.Day(3) != nil {
		t.Fatalf("expected malformed cell to be null")
	}
	if second.Total() != 7 {
		t.Fatalf("expected total 7, got %v", second.Total())
	}
}

func TestParsePivotLayoutOverridesPeriod(t *testing.T) {
	content := "ACCT #,READING_MNTH,1,2\n" +
		"4300001,122025,5,6\n" +
		"4300002,12026,1,1\n" +
		"4300003,bogus,1,1\n"

	rows, err := (&CsvParseServiceImpl{}).Parse([]byte(content), "Feb-26", 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	cases := []struct {
		month string
		year  int
	}{
		{"Dec-25", 2025},
		{"Jan-26", 2026},
		{"Feb-26", 2026},
	}
	for i, c := range cases {
		if rows[i].Month != c.month || rows[i].Year != c.year {
			t.Errorf("row %d: expected %s %d, got %s %d", i, c.month, c.year, rows[i].Month, rows[i].Year)
		}
	}
	if v := rows[0].Day(2); v == nil || *v != 6 {
		t.Fatalf("expected bare numeric day column, got %v", v)
	}
}

func TestParseTabSeparatedWithBOM(t *testing.T) {
	content := "\uFEFFaccount_number\tmeter_name\tday_1\r\n123\tPump\t7\r\n"

	rows, err := (&CsvParseServiceImpl{}).Parse([]byte(content), "Mar-26", 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].AccountNumber != "123" || rows[0].MeterName != "Pump" {
		t.Fatalf("BOM or tab split broke the header: %+v", rows[0])
	}
	if v := rows[0].Day(1); v == nil || *v != 7 {
		t.Fatalf("expected day 1 = 7, got %v", v)
	}
}

func TestParseMissingIdentifierColumn(t *testing.T) {
	rows, err := (&CsvParseServiceImpl{}).Parse([]byte("foo,bar\n1,2\n"), "Jan-26", 2026)
	if !errors.Is(err, ErrMissingIdentifierColumn) {
		t.Fatalf("expected ErrMissingIdentifierColumn, got %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestParseHeaderOnly(t *testing.T) {
	rows, err := (&CsvParseServiceImpl{}).Parse([]byte("account_number,day_1\n"), "Jan-26", 2026)
	if err != nil || rows != nil {
		t.Fatalf("expected nil rows and no error, got %v %v", rows, err)
	}
}

func TestParseSkipsRowsWithoutIdentifier(t *testing.T) {
	content := "account_number,meter_name,day_1\n,,5\nA1,,3\n\n"
	rows, err := (&CsvParseServiceImpl{}).Parse([]byte(content), "Jan-26", 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].AccountNumber != "A1" {
		t.Fatalf("expected only A1, got %+v", rows)
	}
}

func TestDayColumnsMustBeExact(t *testing.T) {
	header := SplitCSVLine("acct #,01,1.0,32,Day 01,day_2,3")
	h := (&CsvParseServiceImpl{}).inspectHeader(header)

	want := map[int]int{1: 4, 2: 5, 3: 6}
	if !reflect.DeepEqual(h.dayColumns, want) {
		t.Fatalf("expected day columns %v, got %v", want, h.dayColumns)
	}
}

func TestSplitCSVLine(t *testing.T) {
	cases := []struct {
		line string
		want []string
	}{
		{`a,b,c`, []string{"a", "b", "c"}},
		{`"Acme, Inc.",100,"200"`, []string{"Acme, Inc.", "100", "200"}},
		{`"a,b",c`, []string{"a,b", "c"}},
		{`"say ""hi""",x`, []string{`say "hi"`, "x"}},
		{"a\t\"b,c\"\td", []string{"a", "b,c", "d"}},
		{`a,,`, []string{"a", "", ""}},
	}
	for _, c := range cases {
		if got := SplitCSVLine(c.line); !reflect.DeepEqual(got, c.want) {
			t.Errorf("SplitCSVLine(%q) = %q, want %q", c.line, got, c.want)
		}
	}
}

func TestDecodeReadingMonth(t *testing.T) {
	cases := []struct {
		code  string
		month string
		year  int
		ok    bool
	}{
		{"12026", "Jan-26", 2026, true},
		{"122025", "Dec-25", 2025, true},
		{"132025", "", 0, false},
		{"2025", "", 0, false},
		{"x2025", "", 0, false},
	}
	for _, c := range cases {
		month, year, ok := DecodeReadingMonth(c.code)
		if month != c.month || year != c.year || ok != c.ok {
			t.Errorf("DecodeReadingMonth(%q) = %q %d %v", c.code, month, year, ok)
		}
	}
}

func TestParseReading(t *testing.T) {
	if ParseReading("") != nil || ParseReading(" null ") != nil || ParseReading("NaN") != nil || ParseReading("12a") != nil {
		t.Fatalf("expected nulls for empty, NULL, NaN and garbage")
	}
	if v := ParseReading(" 1,000.25 "); v == nil || *v != 1000.25 {
		t.Fatalf("expected 1000.25, got %v", v)
	}
	if v := ParseReading("-3"); v == nil || *v != -3 {
		t.Fatalf("expected -3, got %v", v)
	}
}
