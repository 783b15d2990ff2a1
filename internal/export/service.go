package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/jobs-ingest/internal/repository"
)

// Service is a tiny façade over the job repository that produces XLSX bytes
// for exports.
type Service struct {
	jobs   repository.JobRepository
	logger *slog.Logger
}

func NewService(jobs repository.JobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// JobsXLSX returns an XLSX workbook (as bytes) with the stored job rows.
// A non-positive limit exports everything.
func (s *Service) JobsXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	recs, err := s.jobs.ListJobs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Jobs"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Title",
		"Salary",
		"Currency",
		"Country",
		"Seniority",
		"Stack",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.Title)
		write(2, r.Salary)
		write(3, r.Currency)
		write(4, r.Country)
		write(5, r.Seniority)
		write(6, r.Stack)

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 32) // title
	_ = f.SetColWidth(sheet, "B", "B", 12) // salary
	_ = f.SetColWidth(sheet, "C", "C", 10) // currency
	_ = f.SetColWidth(sheet, "D", "D", 12) // country
	_ = f.SetColWidth(sheet, "E", "E", 14) // seniority
	_ = f.SetColWidth(sheet, "F", "F", 40) // stack

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
