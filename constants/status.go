package constants

// TaskStatus is the canonical status for rows in ingest_tasks.
type TaskStatus string

// Stable values (store these exact strings in DB).
const (
	TaskStatusQueued   TaskStatus = "QUEUED"   // accepted, waiting for a worker
	TaskStatusStarted  TaskStatus = "STARTED"  // picked up by a worker
	TaskStatusProgress TaskStatus = "PROGRESS" // chunks are being committed
	TaskStatusSuccess  TaskStatus = "SUCCESS"  // terminal success
	TaskStatusFailure  TaskStatus = "FAILURE"  // terminal failure
)

// TaskStatusValues lists every status in lifecycle order, for schema-level
// validation.
var TaskStatusValues = []string{
	string(TaskStatusQueued),
	string(TaskStatusStarted),
	string(TaskStatusProgress),
	string(TaskStatusSuccess),
	string(TaskStatusFailure),
}

// Terminal reports whether s is a final state, i.e. the task will not be
// updated again and its row is eligible for expiry.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailure
}
