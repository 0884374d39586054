package service

import (
	"strings"

	"github.com/ARahim900/muscatbay-sub004/config/log"
	"github.com/ARahim900/muscatbay-sub004/entity"

	"go.uber.org/zap"
)

// zoneCodeToDisplay maps registry zone codes to the labels used by the loss
// reports. Keys are lower case.
var zoneCodeToDisplay = map[string]string{
	"zone_01_(fm)": "Zone FM",
	"zone_03_(a)":  "Zone 3A",
	"zone_03_(b)":  "Zone 3B",
	"zone_05":      "Zone 5",
	"zone_08":      "Zone 08",
	"zone_vs":      "Village Square",
	"zone_sc":      "Sales Center",
}

type ReconcileServiceImpl struct{}

// Reconcile keeps only rows that match a configured meter, by account number
// first and then by name, and fills their empty metadata from the registry.
// Values already present on a row are never replaced.
func (r *ReconcileServiceImpl) Reconcile(rows []entity.ReadingRow, registry []entity.Meter) ([]entity.ReadingRow, int) {
	byAccount := make(map[string]entity.Meter, len(registry))
	byName := make(map[string]entity.Meter, len(registry))
	for _, m := range registry {
		if key := lookupKey(m.AccountNumber); key != "" {
			byAccount[key] = m
		}
		if key := lookupKey(m.Label); key != "" {
			byName[key] = m
		}
	}

	valid := make([]entity.ReadingRow, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		meter, ok := matchMeter(row, byAccount, byName)
		if !ok {
			skipped++
			continue
		}
		valid = append(valid, enrichRow(row, meter))
	}

	log.Logger.Info("reconciled rows against meter registry",
		zap.Int("registry", len(registry)),
		zap.Int("valid", len(valid)),
		zap.Int("skipped", skipped))
	return valid, skipped
}

func matchMeter(row entity.ReadingRow, byAccount, byName map[string]entity.Meter) (entity.Meter, bool) {
	if key := lookupKey(row.AccountNumber); key != "" {
		if m, ok := byAccount[key]; ok {
			return m, true
		}
	}
	if key := lookupKey(row.MeterName); key != "" {
		if m, ok := byName[key]; ok {
			return m, true
		}
	}
	return entity.Meter{}, false
}

func enrichRow(row entity.ReadingRow, m entity.Meter) entity.ReadingRow {
	// the account is the persisted key, name-only rows take the registry's
	if row.AccountNumber == "" {
		row.AccountNumber = m.AccountNumber
	}
	if row.MeterName == "" {
		row.MeterName = m.Label
	}
	if row.Label == "" {
		row.Label = m.Level
	}
	if row.Zone == "" {
		row.Zone = m.Zone
	}
	if row.ParentMeter == "" {
		row.ParentMeter = m.ParentMeter
	}
	if row.Type == "" {
		row.Type = m.Type
	}
	if row.Zone != "" {
		row.Zone = NormalizeZone(row.Zone)
	}
	return row
}

// NormalizeZone converts a zone code such as "Zone_03_(B)" into its display
// form "Zone 3B". Display forms are canonicalised; unknown zones are returned
// unchanged.
func NormalizeZone(zone string) string {
	display, ok := ResolveZoneDisplay(zone)
	if !ok {
		return zone
	}
	return display
}

// ResolveZoneDisplay reports the display label of a zone code or display
// value, and false when the zone is not one of the known zones.
func ResolveZoneDisplay(zone string) (string, bool) {
	key := lookupKey(zone)
	if key == "" {
		return "", false
	}
	if display, ok := zoneCodeToDisplay[key]; ok {
		return display, true
	}
	for _, display := range zoneCodeToDisplay {
		if strings.ToLower(display) == key {
			return display, true
		}
	}
	return "", false
}

func lookupKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
