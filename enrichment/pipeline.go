// Package enrichment reads part numbers from a sheet, resolves each one through the
// search API and writes manufacturer, category and description back next to it.
package enrichment

import (
	"context"
	"fmt"
	"time"

	"github.com/joe-wehbe/mouser-sheets-automation/entities"
	"github.com/joe-wehbe/mouser-sheets-automation/interfaces"
	"github.com/joe-wehbe/mouser-sheets-automation/logging"
	"github.com/joe-wehbe/mouser-sheets-automation/metrics"
	"github.com/joe-wehbe/mouser-sheets-automation/sheets"
	"github.com/joe-wehbe/mouser-sheets-automation/validation"
)

// Sheet layout: part numbers in A, resolved attributes in B, C and D
const (
	PartNumberColumn   = 1
	ManufacturerColumn = 2
	CategoryColumn     = 3
	DescriptionColumn  = 4
)

// Pipeline performs one sequential pass over a sheet
type Pipeline struct {
	resolver interfaces.PartResolver
	now      func() time.Time
}

// NewPipeline creates a pipeline resolving part numbers with resolver
func NewPipeline(resolver interfaces.PartResolver) *Pipeline {
	return &Pipeline{
		resolver: resolver,
		now:      time.Now,
	}
}

// Run enriches every part number of the gateway's first column.
// Lookup failures never stop the run; read and write failures do.
func (p *Pipeline) Run(ctx context.Context, runID string, gateway interfaces.SheetGateway) (*entities.RunReport, error) {
	report := entities.NewRunReport(runID, gateway.Describe(), p.now())

	partNumbers, err := gateway.ReadColumn(ctx, PartNumberColumn)
	if err != nil {
		return p.finish(report, fmt.Errorf("failed to read part numbers from %s: %w", gateway.Describe(), err))
	}

	total := len(partNumbers)
	logging.Info("Starting enrichment run", "run_id", runID, "source", gateway.Describe(), "part_numbers", total)

	for i, raw := range partNumbers {
		if err := ctx.Err(); err != nil {
			return p.finish(report, fmt.Errorf("run cancelled after %d of %d part numbers: %w", i, total, err))
		}

		result := p.resolveRow(ctx, sheets.FirstDataRow+i, raw)
		report.Add(result)

		logging.Info(fmt.Sprintf("(%d/%d) Processed part number: %s", i+1, total, result.PartNumber),
			"outcome", result.Outcome)
	}

	if total == 0 {
		logging.Info("No part numbers found, nothing to write", "source", gateway.Describe())
		return p.finish(report, nil)
	}

	if err := writeColumns(ctx, gateway, report.Rows); err != nil {
		return p.finish(report, err)
	}
	report.RowsWritten = total

	return p.finish(report, nil)
}

// resolveRow turns one cell into a row result. Blank cells are skipped
// without a request.
func (p *Pipeline) resolveRow(ctx context.Context, row int, raw string) entities.RowResult {
	partNumber, err := validation.NormalizePartNumber(raw)
	if err != nil {
		logging.Debug("Skipping blank part number", "row", row)
		metrics.ObserveSkipped()
		return entities.RowResult{
			Row:        row,
			PartNumber: raw,
			Part:       entities.UnresolvedPart(),
			Outcome:    entities.OutcomeSkipped,
		}
	}

	part, outcome := p.resolver.Resolve(ctx, partNumber)
	if outcome != entities.OutcomeFound {
		part = entities.UnresolvedPart()
	}

	return entities.RowResult{
		Row:        row,
		PartNumber: partNumber,
		Part:       part,
		Outcome:    outcome,
	}
}

// writeColumns writes B, C and D in one call each, sized to the rows read
func writeColumns(ctx context.Context, gateway interfaces.SheetGateway, rows []entities.RowResult) error {
	manufacturers := make([]string, len(rows))
	categories := make([]string, len(rows))
	descriptions := make([]string, len(rows))
	for i, row := range rows {
		manufacturers[i] = row.Part.Manufacturer
		categories[i] = row.Part.Category
		descriptions[i] = row.Part.Description
	}

	rowStart := sheets.FirstDataRow
	rowEnd := rowStart + len(rows) - 1

	columns := []struct {
		name   string
		column int
		values []string
	}{
		{"manufacturer", ManufacturerColumn, manufacturers},
		{"category", CategoryColumn, categories},
		{"description", DescriptionColumn, descriptions},
	}

	for _, c := range columns {
		if err := gateway.WriteRange(ctx, c.column, rowStart, rowEnd, c.values); err != nil {
			return fmt.Errorf("failed to write %s column to %s: %w", c.name, gateway.Describe(), err)
		}
	}

	logging.Debug("Columns written", "rows", len(rows), "row_start", rowStart, "row_end", rowEnd)
	return nil
}

func (p *Pipeline) finish(report *entities.RunReport, err error) (*entities.RunReport, error) {
	report.FinishedAt = p.now()
	metrics.ObserveRun(report, err)

	if err != nil {
		logging.Error("Enrichment run failed", "run_id", report.RunID, "error", err)
		return report, err
	}

	logging.Info("Enrichment run completed",
		"run_id", report.RunID,
		"duration", report.Duration().String(),
		"found", report.Counts[entities.OutcomeFound],
		"not_found", report.Counts[entities.OutcomeNotFound],
		"failed", report.Counts[entities.OutcomeFailed],
		"skipped", report.Counts[entities.OutcomeSkipped],
		"rows_written", report.RowsWritten,
	)
	return report, nil
}
