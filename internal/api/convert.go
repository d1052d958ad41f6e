package api

import (
	"bindery/internal/batch"
	"bindery/internal/preflight"
)

// FromRecord converts a ledger record to its API representation.
func FromRecord(record *batch.Record) SubmissionRecord {
	if record == nil {
		return SubmissionRecord{}
	}

	dto := SubmissionRecord{
		ID:           record.ID,
		RunID:        record.RunID,
		Locator:      record.Locator,
		Checksum:     record.Checksum,
		CollectionID: record.CollectionID,
		Status:       string(record.Status),
		FailureKind:  string(record.FailureKind),
		ErrorMessage: record.ErrorMessage,
		Location:     record.Location,
		Attempts:     record.Attempts,
	}
	if !record.CreatedAt.IsZero() {
		dto.CreatedAt = record.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !record.UpdatedAt.IsZero() {
		dto.UpdatedAt = record.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromRecords converts a slice of ledger records, preserving order.
func FromRecords(records []*batch.Record) []SubmissionRecord {
	if len(records) == 0 {
		return nil
	}
	dtos := make([]SubmissionRecord, 0, len(records))
	for _, record := range records {
		dtos = append(dtos, FromRecord(record))
	}
	return dtos
}

// MergeLedgerStats converts status-keyed counts to string keys for payloads.
// Every known status appears in the result so consumers see explicit zeros.
func MergeLedgerStats(stats map[batch.Status]int) map[string]int {
	merged := map[string]int{
		string(batch.StatusPending):   0,
		string(batch.StatusSucceeded): 0,
		string(batch.StatusFailed):    0,
	}
	for status, count := range stats {
		merged[string(status)] = count
	}
	return merged
}

// FromPreflightResults converts readiness checks to API representations.
func FromPreflightResults(results []preflight.Result) []PreflightResult {
	if len(results) == 0 {
		return nil
	}
	dtos := make([]PreflightResult, 0, len(results))
	for _, result := range results {
		dtos = append(dtos, PreflightResult{
			Name:   result.Name,
			Passed: result.Passed,
			Detail: result.Detail,
		})
	}
	return dtos
}
