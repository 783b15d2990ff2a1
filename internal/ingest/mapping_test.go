package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/jobs-ingest/internal/tabular"
)

func TestResolveMapping_FiltersToUsablePairs(t *testing.T) {
	table := &tabular.Table{Columns: []string{"job_title", "annual_salary", "location"}}

	plan, err := ResolveMapping(table, map[string]string{
		"title":   "job_title",
		"salary":  "annual_salary",
		"country": "does_not_exist", // unknown source column
		"bogus":   "location",       // unknown canonical field
	})
	require.NoError(t, err)

	assert.Equal(t, RenamePlan{"title": "job_title", "salary": "annual_salary"}, plan)
}

func TestResolveMapping_AbsentMapping(t *testing.T) {
	table := &tabular.Table{Columns: []string{"a", "b"}}

	_, err := ResolveMapping(table, nil)
	require.Error(t, err)

	var me *MappingError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, []string{"a", "b"}, me.Columns)
}

func TestResolveMapping_NothingSurvivesFiltering(t *testing.T) {
	table := &tabular.Table{Columns: []string{"a", "b"}}

	_, err := ResolveMapping(table, map[string]string{"title": "nope", "what": "a"})
	require.Error(t, err)

	var me *MappingError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, []string{"a", "b"}, me.Columns)
}

// Both failure shapes (mapping absent vs. filtered to nothing) surface the
// same error literal; clients match on it, so it must never drift.
func TestResolveMapping_ErrorLiteralIsStable(t *testing.T) {
	table := &tabular.Table{Columns: []string{"a"}}

	_, absent := ResolveMapping(table, nil)
	_, filtered := ResolveMapping(table, map[string]string{"title": "nope"})

	require.Error(t, absent)
	require.Error(t, filtered)
	assert.Equal(t, "invalid mapping", absent.Error())
	assert.Equal(t, "invalid mapping", filtered.Error())
}

func TestResolveMapping_EmptyTableListsNoColumns(t *testing.T) {
	_, err := ResolveMapping(&tabular.Table{}, map[string]string{"title": "x"})

	var me *MappingError
	require.True(t, errors.As(err, &me))
	require.NotNil(t, me.Columns)
	assert.Empty(t, me.Columns)
}

func TestRenamePlan_Apply(t *testing.T) {
	table := &tabular.Table{
		Columns: []string{"cur", "job_title", "annual_salary", "notes"},
		Rows: [][]string{
			{"USD", "Dev", "15000", "x"},
			{"", "QA"}, // ragged row
		},
	}
	plan := RenamePlan{"title": "job_title", "salary": "annual_salary", "currency": "cur"}

	out := plan.Apply(table)

	// canonical schema order, not source order; unmapped columns dropped
	assert.Equal(t, []string{"title", "salary", "currency"}, out.Columns)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, []string{"Dev", "15000", "USD"}, out.Rows[0])
	assert.Equal(t, []string{"QA", "", ""}, out.Rows[1])
}
