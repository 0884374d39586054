package entity

// MaxDay is the highest day-of-month column a reading row can carry.
const MaxDay = 31

// ReadingRow is one meter for one reporting period as read from an import file.
// Label holds the hierarchy level (L1..L4, DC) when the file provides it.
type ReadingRow struct {
	MeterName     string
	AccountNumber string
	Label         string
	Zone          string
	ParentMeter   string
	Type          string
	Month         string // Mon-YY, e.g. Jan-26
	Year          int

	// DailyReadings holds one entry per recognised day column; a nil value is
	// an explicit null, distinct from a zero reading.
	DailyReadings map[int]*float64
}

// Day returns the reading for day d, or nil when absent or null.
func (r ReadingRow) Day(d int) *float64 {
	if r.DailyReadings == nil {
		return nil
	}
	return r.DailyReadings[d]
}

// Total sums the non-null daily readings.
func (r ReadingRow) Total() float64 {
	var sum float64
	for _, v := range r.DailyReadings {
		if v != nil {
			sum += *v
		}
	}
	return sum
}
