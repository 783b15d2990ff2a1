package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/jobs-ingest/constants"
)

// IngestTask represents one background ingestion run for data transfer
// between layers. Progress columns are overwritten at each chunk boundary.
type IngestTask struct {
	ID           uuid.UUID            `json:"id"`
	FileID       string               `json:"file_id"`
	Status       constants.TaskStatus `json:"status"`
	Stage        *string              `json:"stage,omitempty"`
	Processed    int                  `json:"processed"`
	Total        int                  `json:"total"`
	Percent      int                  `json:"percent"`
	ErrorMessage *string              `json:"error_message,omitempty"`
	Result       json.RawMessage      `json:"result,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	FinishedAt   *time.Time           `json:"finished_at,omitempty"`
}
