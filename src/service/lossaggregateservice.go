package service

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ARahim900/muscatbay-sub004/config/log"
	"github.com/ARahim900/muscatbay-sub004/entity"

	"go.uber.org/zap"
)

const (
	L1DisplayName = "Main Bulk (NAMA)"
	L1Account     = "C43659"

	// AnomalousAccount is excluded from every L3 figure and from type totals.
	AnomalousAccount = "4300322"
)

// L1 zero-reading policies.
const (
	L1ZeroFallback = "fallback"
	L1ZeroAlarm    = "alarm"
)

var monthOrdinal = map[string]int{
	"Jan": 1, "Feb": 2, "Mar": 3, "Apr": 4, "May": 5, "Jun": 6,
	"Jul": 7, "Aug": 8, "Sep": 9, "Oct": 10, "Nov": 11, "Dec": 12,
}

// NormalizeL1ZeroPolicy maps an empty or unknown policy to L1ZeroFallback,
// warning about unknown values.
func NormalizeL1ZeroPolicy(policy string) string {
	switch p := strings.ToLower(strings.TrimSpace(policy)); p {
	case L1ZeroFallback, L1ZeroAlarm:
		return p
	case "":
		return L1ZeroFallback
	default:
		log.Logger.Warn("unknown L1 zero policy, using fallback", zap.String("policy", policy))
		return L1ZeroFallback
	}
}

type AggregateOptions struct {
	L1ZeroPolicy string
}

type LossAggregateServiceImpl struct{}

// Aggregate computes supply, stage losses, zone and type breakdowns for every
// month present in the meters' readings. Losses are reported as computed,
// negative values included.
func (a *LossAggregateServiceImpl) Aggregate(meters []entity.Meter, opts AggregateOptions) entity.LossReport {
	months, years := collectMonths(meters)
	report := entity.LossReport{
		Months:            months,
		Years:             years,
		Losses:            make(map[string]entity.MonthLoss, len(months)),
		ZoneData:          make(map[string]map[string]entity.ZoneData, len(months)),
		TypeData:          make(map[string]map[string]entity.TypeData, len(months)),
		ConsumptionByType: make(map[string][]entity.NamedValue, len(months)),
	}

	l1Meter, hasL1 := findL1Meter(meters)
	zones := distinctZones(meters)
	types := distinctTypes(meters)

	for idx, month := range months {
		loss := a.monthLoss(meters, l1Meter, hasL1, month, opts)
		report.Losses[month] = loss

		zoneData := make(map[string]entity.ZoneData, len(zones))
		for _, zone := range zones {
			zoneData[zone] = buildZoneData(meters, zone, month)
		}
		report.ZoneData[month] = zoneData

		report.ConsumptionByType[month] = consumptionByType(meters, month)

		typeData := make(map[string]entity.TypeData, len(types))
		for _, typeName := range types {
			typeData[typeName] = buildTypeData(meters, typeName, months[:idx+1], month)
		}
		report.TypeData[month] = typeData

		log.Logger.Debug("month aggregated",
			zap.String("month", month),
			zap.Float64("l1", loss.L1Supply),
			zap.Float64("l2", loss.L2Volume),
			zap.Float64("l3", loss.L3Volume),
			zap.Float64("total_loss", loss.TotalLoss))
	}
	return report
}

func (a *LossAggregateServiceImpl) monthLoss(meters []entity.Meter, l1Meter entity.Meter, hasL1 bool, month string, opts AggregateOptions) entity.MonthLoss {
	loss := entity.MonthLoss{Month: month}
	if hasL1 {
		loss.L1Supply = l1Meter.Reading(month)
	}

	if loss.L1Supply == 0 {
		if opts.L1ZeroPolicy == L1ZeroAlarm {
			log.Logger.Warn("no L1 supply for month", zap.String("month", month))
			loss.L1ZeroAlarm = true
		} else {
			// last positive alternate wins
			for _, m := range meters {
				if !isAlternateL1(m) {
					continue
				}
				if r := m.Reading(month); r > 0 {
					loss.L1Supply = r
					loss.L1Substituted = true
					loss.L1SourceMeter = m.Label
				}
			}
			if loss.L1Substituted {
				log.Logger.Info("L1 supply substituted", zap.String("month", month), zap.String("meter", loss.L1SourceMeter))
			}
		}
	}

	for _, m := range meters {
		r := m.Reading(month)
		switch m.Level {
		case entity.LevelL2:
			loss.L2Volume += r
		case entity.LevelDC:
			loss.L3Volume += r
			if (hasL1 && m.ParentMeter == l1Meter.Label) || strings.Contains(m.ParentMeter, "Main Bulk") {
				loss.L2Volume += r
			}
		case entity.LevelL3:
			if m.AccountNumber != AnomalousAccount {
				loss.L3Volume += r
			}
		}
	}

	loss.Stage1Loss = loss.L1Supply - loss.L2Volume
	loss.Stage2Loss = loss.L2Volume - loss.L3Volume
	loss.TotalLoss = loss.L1Supply - loss.L3Volume
	loss.Stage1LossPercent = lossPercent(loss.Stage1Loss, loss.L1Supply)
	loss.Stage2LossPercent = lossPercent(loss.Stage2Loss, loss.L2Volume)
	loss.TotalLossPercent = lossPercent(loss.TotalLoss, loss.L1Supply)
	return loss
}

func findL1Meter(meters []entity.Meter) (entity.Meter, bool) {
	for _, m := range meters {
		if m.Level == entity.LevelL1 || m.Label == L1DisplayName || m.AccountNumber == L1Account {
			return m, true
		}
	}
	return entity.Meter{}, false
}

func isAlternateL1(m entity.Meter) bool {
	return strings.Contains(m.Label, "Main Bulk") ||
		strings.Contains(m.ParentMeter, "NAMA") ||
		m.AccountNumber == L1Account
}

func lossPercent(loss, supply float64) float64 {
	if supply <= 0 {
		return 0
	}
	return loss / supply * 100
}

func isZoneL3(m entity.Meter, zone string) bool {
	return m.Level == entity.LevelL3 && m.Zone == zone && m.AccountNumber != AnomalousAccount
}

func buildZoneData(meters []entity.Meter, zone, month string) entity.ZoneData {
	data := entity.ZoneData{Name: zone, Meters: []entity.ZoneMeterReading{}}
	for _, m := range meters {
		if m.Level == entity.LevelL2 && m.Zone == zone {
			data.L2Reading = m.Reading(month)
			break
		}
	}

	byType := newValueAccumulator()
	for _, m := range meters {
		if !isZoneL3(m, zone) {
			continue
		}
		r := m.Reading(month)
		data.L3Sum += r
		if r != 0 {
			byType.add(typeOrUnknown(m.Type), r)
		}
		data.Meters = append(data.Meters, entity.ZoneMeterReading{
			Label:   m.Label,
			AcctNum: m.AccountNumber,
			Type:    m.Type,
			Reading: r,
		})
	}
	data.Loss = data.L2Reading - data.L3Sum
	data.LossPercent = lossPercent(data.Loss, data.L2Reading)
	data.ConsumptionByType = byType.positive()
	return data
}

func consumptionByType(meters []entity.Meter, month string) []entity.NamedValue {
	byType := newValueAccumulator()
	for _, m := range meters {
		if !isConsumer(m) {
			continue
		}
		if r := m.Reading(month); r != 0 {
			byType.add(typeOrUnknown(m.Type), r)
		}
	}
	return byType.positive()
}

// isConsumer reports L3 meters outside the anomaly plus every DC meter.
func isConsumer(m entity.Meter) bool {
	return (m.Level == entity.LevelL3 && m.AccountNumber != AnomalousAccount) || m.Level == entity.LevelDC
}

// isTypeMeter reports the L3 and DC meters counted in type totals. The
// anomalous account never contributes, whatever its level.
func isTypeMeter(m entity.Meter) bool {
	return (m.Level == entity.LevelL3 || m.Level == entity.LevelDC) && m.AccountNumber != AnomalousAccount
}

// buildTypeData summarises one type for month. window holds the months up to
// and including month; the trend uses its last three entries.
func buildTypeData(meters []entity.Meter, typeName string, window []string, month string) entity.TypeData {
	var typeMeters []entity.Meter
	for _, m := range meters {
		if isTypeMeter(m) && m.Type == typeName {
			typeMeters = append(typeMeters, m)
		}
	}

	data := entity.TypeData{Name: typeName}
	byZone := newValueAccumulator()
	for _, m := range typeMeters {
		r := m.Reading(month)
		data.TotalConsumption += r
		if r != 0 {
			zone := m.Zone
			if strings.TrimSpace(zone) == "" {
				zone = "Unknown"
			}
			byZone.add(zone, r)
		}
	}
	data.ZoneBreakdown = []entity.ZoneConsumption{}
	for _, nv := range byZone.positive() {
		data.ZoneBreakdown = append(data.ZoneBreakdown, entity.ZoneConsumption{Zone: nv.Name, Consumption: nv.Value})
	}

	if len(window) > 3 {
		window = window[len(window)-3:]
	}
	data.TrendData = make([]entity.TrendPoint, 0, len(window))
	for _, mon := range window {
		var sum float64
		for _, m := range typeMeters {
			sum += m.Reading(mon)
		}
		name, _, _ := strings.Cut(mon, "-")
		data.TrendData = append(data.TrendData, entity.TrendPoint{Month: name, Consumption: sum})
	}
	return data
}

func typeOrUnknown(t string) string {
	if strings.TrimSpace(t) == "" {
		return "Unknown"
	}
	return t
}

// valueAccumulator sums values per name, keeping first-seen order.
type valueAccumulator struct {
	order  []string
	totals map[string]float64
}

func newValueAccumulator() *valueAccumulator {
	return &valueAccumulator{totals: make(map[string]float64)}
}

func (v *valueAccumulator) add(name string, value float64) {
	if _, ok := v.totals[name]; !ok {
		v.order = append(v.order, name)
	}
	v.totals[name] += value
}

func (v *valueAccumulator) positive() []entity.NamedValue {
	out := []entity.NamedValue{}
	for _, name := range v.order {
		if value := v.totals[name]; value > 0 {
			out = append(out, entity.NamedValue{Name: name, Value: value})
		}
	}
	return out
}

func distinctZones(meters []entity.Meter) []string {
	seen := make(map[string]bool)
	var zones []string
	for _, m := range meters {
		if m.Zone == "" || seen[m.Zone] {
			continue
		}
		seen[m.Zone] = true
		zones = append(zones, m.Zone)
	}
	return zones
}

func distinctTypes(meters []entity.Meter) []string {
	seen := make(map[string]bool)
	var types []string
	for _, m := range meters {
		if strings.TrimSpace(m.Type) == "" || seen[m.Type] {
			continue
		}
		seen[m.Type] = true
		types = append(types, m.Type)
	}
	return types
}

// collectMonths returns the chronologically sorted union of reading keys and
// the distinct "20YY" years they span.
func collectMonths(meters []entity.Meter) ([]string, []string) {
	seen := make(map[string]bool)
	months := []string{}
	for _, m := range meters {
		for key := range m.Readings {
			if !seen[key] {
				seen[key] = true
				months = append(months, key)
			}
		}
	}
	SortMonths(months)

	years := []string{}
	seenYear := make(map[string]bool)
	for _, month := range months {
		_, yy, _ := strings.Cut(month, "-")
		year := "20" + yy
		if !seenYear[year] {
			seenYear[year] = true
			years = append(years, year)
		}
	}
	return months, years
}

// SortMonths orders "Mon-YY" keys by year and then by month of year.
func SortMonths(months []string) {
	sort.SliceStable(months, func(i, j int) bool {
		mi, yi := splitMonthKey(months[i])
		mj, yj := splitMonthKey(months[j])
		if yi != yj {
			return yi < yj
		}
		return mi < mj
	})
}

func splitMonthKey(key string) (int, int) {
	name, yy, _ := strings.Cut(key, "-")
	year, _ := strconv.Atoi(yy)
	return monthOrdinal[name], year
}

// BuildMeters attaches monthly totals from persisted daily records to the
// registry meters. Records with no registry entry become meters of their own
// using the metadata stored with them.
func BuildMeters(registry []entity.Meter, records []entity.WaterDailyConsumptionEntity) []entity.Meter {
	meters := make([]entity.Meter, len(registry))
	byAccount := make(map[string]int, len(registry))
	byName := make(map[string]int, len(registry))
	for i, m := range registry {
		m.Readings = make(map[string]float64)
		if m.Zone != "" {
			m.Zone = NormalizeZone(m.Zone)
		}
		meters[i] = m
		if key := lookupKey(m.AccountNumber); key != "" {
			byAccount[key] = i
		}
		if key := lookupKey(m.Label); key != "" {
			byName[key] = i
		}
	}

	for _, rec := range records {
		i, ok := byAccount[lookupKey(rec.AccountNumber)]
		if !ok {
			i, ok = byName[lookupKey(rec.MeterName)]
		}
		if !ok {
			meters = append(meters, meterFromRecord(rec))
			i = len(meters) - 1
			byAccount[lookupKey(rec.AccountNumber)] = i
		}
		var total float64
		for _, v := range rec.DayValues() {
			if v != nil {
				total += *v
			}
		}
		meters[i].Readings[rec.Month] += total
	}
	return meters
}

func meterFromRecord(rec entity.WaterDailyConsumptionEntity) entity.Meter {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	m := entity.WaterMeterEntity{
		Label:         rec.MeterName,
		AccountNumber: rec.AccountNumber,
		Level:         deref(rec.Label),
		Zone:          deref(rec.Zone),
		ParentMeter:   deref(rec.ParentMeter),
		Type:          deref(rec.Type),
	}.ToMeter()
	m.Readings = make(map[string]float64)
	if m.Zone != "" {
		m.Zone = NormalizeZone(m.Zone)
	}
	return m
}
