// Package reports builds energy consumption reports from stored aggregates
// and renders them as XLSX workbooks or gzipped JSON documents.
package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/xuri/excelize/v2"

	"gridwatch/internal/types"
)

// Content types for the two artifact formats.
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeJSON = "application/json"
)

// AggregateSource provides the aggregates a report summarizes.
type AggregateSource interface {
	ListRange(ctx context.Context, bucketType types.BucketType, from, to time.Time, buildingID string) ([]*types.Aggregate, error)
}

// ReportStore persists and loads report rows.
type ReportStore interface {
	Create(ctx context.Context, rp *types.Report) error
	GetByID(ctx context.Context, id string) (*types.Report, error)
}

// GenerateRequest carries the parameters for one report.
type GenerateRequest struct {
	Title       string
	Description string
	ReportType  string
	Period      types.ReportPeriod
	BuildingID  string
	Format      types.ReportFormat
}

// Artifact is a rendered report: the stored metadata row plus the document
// bytes. Bytes are rebuilt on demand rather than stored.
type Artifact struct {
	Report      *types.Report
	Data        []byte
	ContentType string
}

// Generator renders reports.
type Generator struct {
	aggregates AggregateSource
	store      ReportStore
	clock      types.Clock
	logger     *slog.Logger
}

// NewGenerator creates a report generator.
func NewGenerator(aggregates AggregateSource, store ReportStore, logger *slog.Logger) *Generator {
	return &Generator{
		aggregates: aggregates,
		store:      store,
		clock:      types.RealClock{},
		logger:     logger,
	}
}

// Generate builds a report over the period window ending now, persists the
// summary row, and returns the rendered artifact.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (*Artifact, error) {
	if !req.Period.IsValid() {
		return nil, types.NewAppError(types.ErrCodeValidationReportPeriod, "unknown report period", nil)
	}
	if !req.Format.IsValid() {
		return nil, types.NewAppError(types.ErrCodeValidationFailed, "unknown report format", nil)
	}

	from, now := types.ReportWindow(req.Period, g.clock.Now())

	aggregates, err := g.aggregates.ListRange(ctx, bucketForPeriod(req.Period), from, now, req.BuildingID)
	if err != nil {
		return nil, err
	}

	report := &types.Report{
		ID:          "rpt_" + uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		ReportType:  req.ReportType,
		Period:      req.Period,
		BuildingID:  req.BuildingID,
		RangeStart:  from,
		RangeEnd:    now,
		Format:      req.Format,
		GeneratedAt: now,
	}
	if report.Title == "" {
		report.Title = fmt.Sprintf("Energy report (%s)", req.Period)
	}
	if report.ReportType == "" {
		report.ReportType = "consumption"
	}
	report.FileName = fmt.Sprintf("report_%s.%s", report.ID, req.Format)

	summarize(report, aggregates)

	data, contentType, err := g.render(report, aggregates)
	if err != nil {
		return nil, err
	}
	report.FileSize = int64(len(data))

	if err := g.store.Create(ctx, report); err != nil {
		return nil, err
	}

	g.logger.Info("report generated",
		"report_id", report.ID,
		"period", string(req.Period),
		"format", string(req.Format),
		"aggregates", len(aggregates),
		"file_size", report.FileSize,
	)

	return &Artifact{Report: report, Data: data, ContentType: contentType}, nil
}

// Download rebuilds a stored report's artifact from its recorded parameters.
// The range is the stored one, so repeated downloads cover the same window.
func (g *Generator) Download(ctx context.Context, id string) (*Artifact, error) {
	report, err := g.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	aggregates, err := g.aggregates.ListRange(ctx, bucketForPeriod(report.Period), report.RangeStart, report.RangeEnd, report.BuildingID)
	if err != nil {
		return nil, err
	}

	data, contentType, err := g.render(report, aggregates)
	if err != nil {
		return nil, err
	}

	return &Artifact{Report: report, Data: data, ContentType: contentType}, nil
}

// render produces the document bytes for a report.
func (g *Generator) render(report *types.Report, aggregates []*types.Aggregate) ([]byte, string, error) {
	switch report.Format {
	case types.FormatXLSX:
		data, err := renderXLSX(report, aggregates)
		if err != nil {
			return nil, "", types.NewAppError(types.ErrCodeInternalReport, "failed to render workbook", err)
		}
		return data, ContentTypeXLSX, nil
	case types.FormatJSON:
		data, err := renderGzippedJSON(report, aggregates)
		if err != nil {
			return nil, "", types.NewAppError(types.ErrCodeInternalReport, "failed to render document", err)
		}
		return data, ContentTypeJSON, nil
	}
	return nil, "", types.NewAppError(types.ErrCodeValidationFailed, "unknown report format", nil)
}

// summarize fills the report's headline statistics from the aggregates.
func summarize(report *types.Report, aggregates []*types.Aggregate) {
	if len(aggregates) == 0 {
		return
	}

	meters := make(map[string]struct{})
	for _, agg := range aggregates {
		report.TotalConsumption += agg.Sum
		if agg.Max > report.PeakPower {
			report.PeakPower = agg.Max
		}
		meters[agg.MeterID] = struct{}{}
	}
	report.AvgConsumption = report.TotalConsumption / float64(len(aggregates))
	report.MeterCount = len(meters)
}

// bucketForPeriod picks the aggregate granularity a period reads: hourly
// buckets for the one-day report, daily buckets for the longer ones.
func bucketForPeriod(period types.ReportPeriod) types.BucketType {
	if period == types.PeriodDaily {
		return types.BucketHourly
	}
	return types.BucketDaily
}

// reportDocument is the JSON artifact layout.
type reportDocument struct {
	Report *types.Report      `json:"report"`
	Series []*types.Aggregate `json:"series"`
}

func renderGzippedJSON(report *types.Report, aggregates []*types.Aggregate) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(reportDocument{Report: report, Series: aggregates}); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderXLSX(report *types.Report, aggregates []*types.Aggregate) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}

	summaryRows := [][]any{
		{"Title", report.Title},
		{"Period", string(report.Period)},
		{"Range start", report.RangeStart.Format(time.RFC3339)},
		{"Range end", report.RangeEnd.Format(time.RFC3339)},
		{"Total consumption (kWh)", report.TotalConsumption},
		{"Average consumption (kWh)", report.AvgConsumption},
		{"Peak power (kW)", report.PeakPower},
		{"Meters", report.MeterCount},
	}
	for i, row := range summaryRows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(summarySheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	const seriesSheet = "Series"
	if _, err := f.NewSheet(seriesSheet); err != nil {
		return nil, err
	}

	headers := []any{"Bucket", "Meter", "Readings", "Sum", "Avg", "Min", "Max"}
	for j, header := range headers {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(seriesSheet, cell, header); err != nil {
			return nil, err
		}
	}
	for i, agg := range aggregates {
		values := []any{
			agg.BucketTS.Format(time.RFC3339),
			agg.MeterID,
			agg.ReadingCount,
			agg.Sum,
			agg.Avg,
			agg.Min,
			agg.Max,
		}
		for j, value := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(seriesSheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
