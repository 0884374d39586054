package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ARahim900/muscatbay-sub004/config/log"
	"github.com/ARahim900/muscatbay-sub004/config/metrics"
	"github.com/ARahim900/muscatbay-sub004/entity"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	summarySheet = "Summary"
	zonesSheet   = "Zones"
	typesSheet   = "Types"
)

// LossReportServiceImpl runs the aggregator over the stored readings.
type LossReportServiceImpl struct {
	registry   MeterRegistry
	reader     ConsumptionReader
	aggregator *LossAggregateServiceImpl
	opts       AggregateOptions
}

func NewLossReportServiceImpl(registry MeterRegistry, reader ConsumptionReader, opts AggregateOptions) *LossReportServiceImpl {
	return &LossReportServiceImpl{
		registry:   registry,
		reader:     reader,
		aggregator: &LossAggregateServiceImpl{},
		opts:       opts,
	}
}

// Report aggregates every stored month of year, or all months when year is 0.
func (s *LossReportServiceImpl) Report(ctx context.Context, year int) (entity.LossReport, error) {
	start := time.Now()
	registry, err := s.registry.ListMeters(ctx)
	if err != nil {
		return entity.LossReport{}, fmt.Errorf("list meters: %w", err)
	}
	records, err := s.reader.ListConsumption(ctx, year)
	if err != nil {
		return entity.LossReport{}, fmt.Errorf("list consumption: %w", err)
	}

	report := s.aggregator.Aggregate(BuildMeters(registry, records), s.opts)
	metrics.ObserveAggregate(time.Since(start))
	log.Logger.Info("loss report built",
		zap.Int("year", year),
		zap.Int("meters", len(registry)),
		zap.Int("records", len(records)),
		zap.Int("months", len(report.Months)))
	return report, nil
}

// Export renders the report as an xlsx workbook.
func (s *LossReportServiceImpl) Export(ctx context.Context, year int) ([]byte, error) {
	report, err := s.Report(ctx, year)
	if err != nil {
		return nil, err
	}
	return BuildLossReportXLSX(report)
}

// BuildLossReportXLSX writes one Summary row per month, one Zones row per
// month and zone, and one Types row per month and type.
func BuildLossReportXLSX(report entity.LossReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(zonesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(typesSheet); err != nil {
		return nil, err
	}

	summary := [][]interface{}{{
		"Month", "L1 Supply", "L2 Volume", "L3 Volume",
		"Stage 1 Loss", "Stage 1 Loss %", "Stage 2 Loss", "Stage 2 Loss %",
		"Total Loss", "Total Loss %", "L1 Substituted", "L1 Source", "L1 Zero Alarm",
	}}
	zones := [][]interface{}{{"Month", "Zone", "L2 Reading", "L3 Sum", "Loss", "Loss %", "Meters"}}
	types := [][]interface{}{{"Month", "Type", "Total Consumption", "Zones"}}

	for _, month := range report.Months {
		l := report.Losses[month]
		summary = append(summary, []interface{}{
			month, l.L1Supply, l.L2Volume, l.L3Volume,
			l.Stage1Loss, l.Stage1LossPercent, l.Stage2Loss, l.Stage2LossPercent,
			l.TotalLoss, l.TotalLossPercent, l.L1Substituted, l.L1SourceMeter, l.L1ZeroAlarm,
		})

		for _, name := range sortedKeys(report.ZoneData[month]) {
			z := report.ZoneData[month][name]
			zones = append(zones, []interface{}{month, z.Name, z.L2Reading, z.L3Sum, z.Loss, z.LossPercent, len(z.Meters)})
		}
		for _, name := range sortedKeys(report.TypeData[month]) {
			t := report.TypeData[month][name]
			types = append(types, []interface{}{month, t.Name, t.TotalConsumption, len(t.ZoneBreakdown)})
		}
	}

	for sheet, rows := range map[string][][]interface{}{summarySheet: summary, zonesSheet: zones, typesSheet: types} {
		if err := writeRows(f, sheet, rows); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
