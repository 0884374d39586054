package service

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ARahim900/muscatbay-sub004/config/log"
	"github.com/ARahim900/muscatbay-sub004/entity"

	"go.uber.org/zap"
)

// ErrMissingIdentifierColumn is returned when the header has neither an
// account-number nor a meter-name column. No rows are parsed in that case.
var ErrMissingIdentifierColumn = errors.New("csv: missing meter identification column")

var (
	nameColumns         = []string{"meter_name", "metername", "meter name", "name"}
	accountColumns      = []string{"account_number", "accountnumber", "account", "acct #", "acct#", "acct", "acct no", "meter_id", "meterid"}
	labelColumns        = []string{"label", "level"}
	zoneColumns         = []string{"zone"}
	parentColumns       = []string{"parent_meter", "parentmeter", "parent", "parent meter"}
	typeColumns         = []string{"type", "meter_type"}
	readingMonthColumns = []string{"reading_mnth", "reading_month", "readingmnth", "readingmonth"}

	standardDayColumn = regexp.MustCompile(`^day[_\s]?(\d+)$`)
)

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

type CsvParseServiceImpl struct{}

// csvHeader is the result of inspecting the header line once.
type csvHeader struct {
	nameIdx    int
	accountIdx int
	labelIdx   int
	zoneIdx    int
	parentIdx  int
	typeIdx    int
	dayColumns map[int]int // day of month -> column index
	layout     csvLayout
}

// csvLayout resolves the reporting period of a data row.
type csvLayout interface {
	Name() string
	Period(values []string, defaultMonth string, defaultYear int) (string, int)
}

// standardLayout carries no period column; every row uses the caller's period.
type standardLayout struct{}

func (standardLayout) Name() string { return "standard" }

func (standardLayout) Period(_ []string, defaultMonth string, defaultYear int) (string, int) {
	return defaultMonth, defaultYear
}

// pivotLayout reads a READING_MNTH code on every row.
type pivotLayout struct {
	readingMonthIdx int
}

func (pivotLayout) Name() string { return "pivot" }

func (l pivotLayout) Period(values []string, defaultMonth string, defaultYear int) (string, int) {
	month, year, ok := DecodeReadingMonth(cell(values, l.readingMonthIdx))
	if !ok {
		return defaultMonth, defaultYear
	}
	return month, year
}

// Parse turns raw CSV/TSV content into reading rows. defaultMonth ("Jan-26")
// and defaultYear apply unless a pivot READING_MNTH cell overrides them.
// Malformed cells become nulls; only a header without identifier columns is
// an error.
func (p *CsvParseServiceImpl) Parse(content []byte, defaultMonth string, defaultYear int) ([]entity.ReadingRow, error) {
	text := strings.TrimPrefix(string(content), "\uFEFF")
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return nil, nil
	}

	header := p.inspectHeader(SplitCSVLine(strings.TrimRight(lines[0], "\r")))
	if header.accountIdx < 0 && header.nameIdx < 0 {
		log.Logger.Warn("csv missing required meter identification column")
		return nil, ErrMissingIdentifierColumn
	}
	log.Logger.Info("csv format detected",
		zap.String("layout", header.layout.Name()),
		zap.Int("day_columns", len(header.dayColumns)),
		zap.Int("lines", len(lines)-1))

	rows := make([]entity.ReadingRow, 0, len(lines)-1)
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if row, ok := p.parseRow(SplitCSVLine(line), header, defaultMonth, defaultYear); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (p *CsvParseServiceImpl) inspectHeader(header []string) csvHeader {
	lower := make([]string, len(header))
	for i, h := range header {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}

	h := csvHeader{
		nameIdx:    findColumnIndex(lower, nameColumns),
		accountIdx: findColumnIndex(lower, accountColumns),
		labelIdx:   findColumnIndex(lower, labelColumns),
		zoneIdx:    findColumnIndex(lower, zoneColumns),
		parentIdx:  findColumnIndex(lower, parentColumns),
		typeIdx:    findColumnIndex(lower, typeColumns),
		dayColumns: make(map[int]int),
		layout:     standardLayout{},
	}
	if idx := findColumnIndex(lower, readingMonthColumns); idx >= 0 {
		h.layout = pivotLayout{readingMonthIdx: idx}
	}

	for idx, raw := range header {
		col := strings.TrimSpace(raw)
		if m := standardDayColumn.FindStringSubmatch(strings.ToLower(col)); m != nil {
			if day, err := strconv.Atoi(m[1]); err == nil && day >= 1 && day <= entity.MaxDay {
				h.dayColumns[day] = idx
			}
			continue
		}
		// bare day numbers must be written exactly, "01" or "1.0" are other columns
		if day, err := strconv.Atoi(col); err == nil && day >= 1 && day <= entity.MaxDay && strconv.Itoa(day) == col {
			h.dayColumns[day] = idx
		}
	}
	return h
}

func (p *CsvParseServiceImpl) parseRow(values []string, h csvHeader, defaultMonth string, defaultYear int) (entity.ReadingRow, bool) {
	account := strings.TrimSpace(cell(values, h.accountIdx))
	name := strings.TrimSpace(cell(values, h.nameIdx))
	if account == "" && name == "" {
		return entity.ReadingRow{}, false
	}

	month, year := h.layout.Period(values, defaultMonth, defaultYear)
	readings := make(map[int]*float64, len(h.dayColumns))
	for day, idx := range h.dayColumns {
		readings[day] = ParseReading(cell(values, idx))
	}

	return entity.ReadingRow{
		MeterName:     name,
		AccountNumber: account,
		Label:         strings.TrimSpace(cell(values, h.labelIdx)),
		Zone:          strings.TrimSpace(cell(values, h.zoneIdx)),
		ParentMeter:   strings.TrimSpace(cell(values, h.parentIdx)),
		Type:          strings.TrimSpace(cell(values, h.typeIdx)),
		Month:         month,
		Year:          year,
		DailyReadings: readings,
	}, true
}

// ParseReading converts one reading cell. Empty and NULL cells are nulls, as
// is anything that is not a finite number once thousands separators are removed.
func ParseReading(raw string) *float64 {
	v := strings.TrimSpace(raw)
	if v == "" || strings.EqualFold(v, "NULL") {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// DecodeReadingMonth decodes an M(M)YYYY period code: "12026" is Jan-26 and
// "122025" is Dec-25.
func DecodeReadingMonth(code string) (string, int, bool) {
	code = strings.TrimSpace(code)
	var monthPart, yearPart string
	switch len(code) {
	case 5:
		monthPart, yearPart = code[:1], code[1:]
	case 6:
		monthPart, yearPart = code[:2], code[2:]
	default:
		return "", 0, false
	}
	monthNum, err := strconv.Atoi(monthPart)
	if err != nil || monthNum < 1 || monthNum > 12 {
		return "", 0, false
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return "", 0, false
	}
	return FormatMonth(monthNum, year), year, true
}

// FormatMonth renders a month label such as "Dec-25".
func FormatMonth(monthNum, year int) string {
	return fmt.Sprintf("%s-%02d", monthNames[monthNum-1], year%100)
}

// SplitCSVLine splits one line on tab when the line contains one, otherwise
// on comma. A double quote toggles quoting and "" inside quotes is a literal
// quote.
func SplitCSVLine(line string) []string {
	delimiter := ','
	if strings.ContainsRune(line, '\t') {
		delimiter = '\t'
	}

	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == delimiter && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	return append(fields, current.String())
}

func findColumnIndex(headers []string, names []string) int {
	for _, name := range names {
		for i, h := range headers {
			if h == name {
				return i
			}
		}
	}
	return -1
}

func cell(values []string, idx int) string {
	if idx < 0 || idx >= len(values) {
		return ""
	}
	return values[idx]
}
