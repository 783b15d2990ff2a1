package ingest

import (
	"encoding/json"

	"github.com/joseph-ayodele/jobs-ingest/internal/entity"
)

// Result is the structured outcome of one ingestion run. Exactly one shape
// is marshaled depending on which fields are set: an error payload (Err,
// plus Columns for mapping failures), a zero-rows payload (Note), or the
// success payload (Inserted/Total/Sample).
type Result struct {
	FileID   string
	Inserted int
	Total    int
	Sample   []entity.Job
	Columns  []string
	Err      string
	Note     string
}

func (r Result) MarshalJSON() ([]byte, error) {
	m := map[string]any{"file_id": r.FileID}
	switch {
	case r.Err != "":
		m["error"] = r.Err
		if r.Columns != nil {
			m["columns"] = r.Columns
		}
	case r.Note != "":
		m["inserted"] = r.Inserted
		m["note"] = r.Note
	default:
		m["inserted"] = r.Inserted
		m["total"] = r.Total
		m["sample"] = r.Sample
	}
	return json.Marshal(m)
}
