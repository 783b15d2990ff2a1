package ingest

import (
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/jobs-ingest/constants"
	"github.com/joseph-ayodele/jobs-ingest/internal/entity"
	"github.com/joseph-ayodele/jobs-ingest/internal/tabular"
)

// Normalize applies the canonical cleaning rules to a renamed table and
// returns the surviving records in row order:
//   - salary must coerce to a finite number, otherwise the whole row is
//     dropped (the only row-removing rule);
//   - text fields are whitespace-trimmed, missing cells become "";
//   - an empty currency falls back to the default.
//
// Columns outside the canonical schema are ignored. A zero-length return is
// a valid outcome, distinct from a mapping failure.
func Normalize(table *tabular.Table) []entity.Job {
	title := table.ColumnIndex(constants.FieldTitle)
	salary := table.ColumnIndex(constants.FieldSalary)
	currency := table.ColumnIndex(constants.FieldCurrency)
	country := table.ColumnIndex(constants.FieldCountry)
	seniority := table.ColumnIndex(constants.FieldSeniority)
	stack := table.ColumnIndex(constants.FieldStack)

	jobs := make([]entity.Job, 0, len(table.Rows))
	for i := range table.Rows {
		sal, ok := parseSalary(table.Cell(i, salary))
		if !ok {
			continue
		}
		job := entity.Job{
			Title:     strings.TrimSpace(table.Cell(i, title)),
			Salary:    sal,
			Currency:  strings.TrimSpace(table.Cell(i, currency)),
			Country:   strings.TrimSpace(table.Cell(i, country)),
			Seniority: strings.TrimSpace(table.Cell(i, seniority)),
			Stack:     strings.TrimSpace(table.Cell(i, stack)),
		}
		if job.Currency == "" {
			job.Currency = constants.DefaultCurrency
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// parseSalary coerces a salary cell to a number. Unparseable, NaN and
// infinite values fail the row.
func parseSalary(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
