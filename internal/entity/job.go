package entity

// Job represents one normalized job posting for data transfer between layers.
// It carries exactly the canonical schema fields; the storage row id is
// generated at insert time and never travels with the record.
type Job struct {
	Title     string  `json:"title"`
	Salary    float64 `json:"salary"`
	Currency  string  `json:"currency"`
	Country   string  `json:"country"`
	Seniority string  `json:"seniority"`
	Stack     string  `json:"stack"`
}
