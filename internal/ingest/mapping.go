package ingest

import (
	"github.com/joseph-ayodele/jobs-ingest/constants"
	"github.com/joseph-ayodele/jobs-ingest/internal/tabular"
)

// RenamePlan is the validated subset of a user-supplied column mapping:
// canonical field → source column, every entry usable against the loaded
// table.
type RenamePlan map[string]string

// MappingError reports a column mapping with no usable entries. Columns
// carries the loaded table's header verbatim so the caller can retry with a
// corrected mapping.
type MappingError struct {
	Columns []string
}

// Error returns the one canonical literal for unusable mappings, regardless
// of whether the mapping was absent or filtered down to nothing.
func (e *MappingError) Error() string { return "invalid mapping" }

// ResolveMapping filters mapping down to pairs whose key is a canonical
// field and whose source column exists in table. An absent mapping, or one
// left empty after filtering, fails with a MappingError listing table's
// columns.
func ResolveMapping(table *tabular.Table, mapping map[string]string) (RenamePlan, error) {
	cols := table.Columns
	if cols == nil {
		cols = []string{}
	}
	if len(mapping) == 0 {
		return nil, &MappingError{Columns: cols}
	}

	plan := make(RenamePlan)
	for canon, src := range mapping {
		if constants.IsCanonicalField(canon) && table.ColumnIndex(src) >= 0 {
			plan[canon] = src
		}
	}
	if len(plan) == 0 {
		return nil, &MappingError{Columns: cols}
	}
	return plan, nil
}

// Apply produces a table restricted to the plan's canonical columns, in
// schema order. Source columns outside the plan are dropped.
func (p RenamePlan) Apply(table *tabular.Table) *tabular.Table {
	var cols []string
	var src []int
	for _, canon := range constants.CanonicalFields {
		s, ok := p[canon]
		if !ok {
			continue
		}
		cols = append(cols, canon)
		src = append(src, table.ColumnIndex(s))
	}

	out := &tabular.Table{Columns: cols}
	for i := range table.Rows {
		row := make([]string, len(cols))
		for j, idx := range src {
			row[j] = table.Cell(i, idx)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
