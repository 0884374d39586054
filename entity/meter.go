package entity

// Hierarchy levels of the meter registry.
const (
	LevelL1 = "L1"
	LevelL2 = "L2"
	LevelL3 = "L3"
	LevelL4 = "L4"
	LevelDC = "DC"
	LevelNA = "N/A"
)

// Meter is a configured meter plus its monthly readings keyed by "Mon-YY".
// Parent references are names, resolved by matching rather than pointers.
type Meter struct {
	Label         string
	AccountNumber string
	Level         string
	Zone          string
	ParentMeter   string
	Type          string
	Readings      map[string]float64
}

// Reading returns the meter's reading for month, 0 when missing.
func (m Meter) Reading(month string) float64 {
	if m.Readings == nil {
		return 0
	}
	return m.Readings[month]
}

// ToMeter converts a registry row into a Meter without readings.
func (e WaterMeterEntity) ToMeter() Meter {
	level := e.Level
	if level == "" {
		level = LevelNA
	}
	label := e.Label
	if label == "" {
		label = "Unknown Meter"
	}
	return Meter{
		Label:         label,
		AccountNumber: e.AccountNumber,
		Level:         level,
		Zone:          e.Zone,
		ParentMeter:   e.ParentMeter,
		Type:          e.Type,
	}
}
