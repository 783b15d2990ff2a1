package ingest

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/jobs-ingest/constants"
	"github.com/joseph-ayodele/jobs-ingest/internal/entity"
	"github.com/joseph-ayodele/jobs-ingest/internal/tabular"
)

func TestNormalize_SalaryCoercionDropsRows(t *testing.T) {
	table := &tabular.Table{
		Columns: []string{"title", "salary"},
		Rows: [][]string{
			{"Dev", "15000"},
			{"QA", "12000.5"},
			{"PM", "xpto"},
			{"Ops", ""},
			{"SRE", " 9000 "},
			{"ML", "NaN"},
			{"Sec", "Inf"},
		},
	}

	jobs := Normalize(table)

	require.Len(t, jobs, 3)
	assert.Equal(t, 15000.0, jobs[0].Salary)
	assert.Equal(t, 12000.5, jobs[1].Salary)
	assert.Equal(t, 9000.0, jobs[2].Salary)
	assert.Equal(t, "SRE", jobs[2].Title)
}

func TestNormalize_TrimsAndDefaults(t *testing.T) {
	table := &tabular.Table{
		Columns: []string{"title", "salary", "currency", "country"},
		Rows: [][]string{
			{"  Dev  ", "100", "  EUR ", " BR "},
			{"QA", "200", "   ", "PT"},
		},
	}

	jobs := Normalize(table)
	require.Len(t, jobs, 2)

	assert.Equal(t, "Dev", jobs[0].Title)
	assert.Equal(t, "EUR", jobs[0].Currency)
	assert.Equal(t, "BR", jobs[0].Country)

	// whitespace-only currency trims to empty, then takes the default
	assert.Equal(t, "USD", jobs[1].Currency)

	// unmapped fields come out as empty strings
	assert.Equal(t, "", jobs[0].Seniority)
	assert.Equal(t, "", jobs[0].Stack)
}

func TestNormalize_MissingSalaryColumnDropsEverything(t *testing.T) {
	table := &tabular.Table{
		Columns: []string{"title"},
		Rows:    [][]string{{"Dev"}, {"QA"}},
	}

	jobs := Normalize(table)
	assert.Empty(t, jobs)
}

func TestNormalize_PreservesRowOrder(t *testing.T) {
	table := &tabular.Table{
		Columns: []string{"title", "salary"},
		Rows:    [][]string{{"a", "1"}, {"b", "2"}, {"c", "3"}},
	}

	jobs := Normalize(table)
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{jobs[0].Title, jobs[1].Title, jobs[2].Title})
}

func tableFromJobs(jobs []entity.Job) *tabular.Table {
	t := &tabular.Table{Columns: constants.CanonicalFields}
	for _, j := range jobs {
		t.Rows = append(t.Rows, []string{
			j.Title,
			strconv.FormatFloat(j.Salary, 'f', -1, 64),
			j.Currency,
			j.Country,
			j.Seniority,
			j.Stack,
		})
	}
	return t
}

func TestNormalize_IsAFixedPoint(t *testing.T) {
	table := &tabular.Table{
		Columns: []string{"title", "salary", "currency", "country", "seniority", "stack"},
		Rows: [][]string{
			{" Dev ", "15000", "", "BR", "senior", "go"},
			{"QA", "12000.5", "eur", "", "", ""},
		},
	}

	once := Normalize(table)
	twice := Normalize(tableFromJobs(once))

	assert.Equal(t, once, twice)
}
