package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SubmissionRecord describes a ledger entry in a transport-friendly format.
type SubmissionRecord struct {
	ID           int64  `json:"id"`
	RunID        string `json:"runId"`
	Locator      string `json:"locator"`
	Checksum     string `json:"checksum,omitempty"`
	CollectionID int64  `json:"collectionId"`
	Status       string `json:"status"`
	FailureKind  string `json:"failureKind,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Location     string `json:"location,omitempty"`
	Attempts     int    `json:"attempts"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// BatchOutcome summarizes one submission pass.
type BatchOutcome struct {
	RunID     string             `json:"runId"`
	Total     int                `json:"total"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Pending   int                `json:"pending"`
	Duration  string             `json:"duration"`
	Records   []SubmissionRecord `json:"records"`
}

// LedgerStatsResponse provides a normalized ledger stats payload.
type LedgerStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// SubmissionListResponse wraps a collection of ledger records.
type SubmissionListResponse struct {
	Records []SubmissionRecord `json:"records"`
}

// PreflightResult mirrors a readiness check for API consumers.
type PreflightResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}
