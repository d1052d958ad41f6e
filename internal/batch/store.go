package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"bindery/internal/config"
	"bindery/internal/repo"
)

// Store manages submission ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "ledger.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) applySchema(ctx context.Context) error {
	const schema = `CREATE TABLE IF NOT EXISTS submissions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL,
        locator TEXT NOT NULL,
        checksum TEXT,
        collection_id INTEGER NOT NULL,
        status TEXT NOT NULL,
        failure_kind TEXT,
        error_message TEXT,
        location TEXT,
        response_json TEXT,
        attempts INTEGER NOT NULL DEFAULT 0,
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
    CREATE INDEX IF NOT EXISTS idx_submissions_run ON submissions(run_id);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply ledger schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the ledger database location.
func (s *Store) Path() string {
	return s.path
}

// Enqueue inserts a pending record for a locator entering a run.
func (s *Store) Enqueue(ctx context.Context, runID, locator, checksum string, collectionID int64) (*Record, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO submissions (
            run_id, locator, checksum, collection_id, status,
            attempts, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		locator,
		nullableString(checksum),
		collectionID,
		StatusPending,
		0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a ledger record by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM submissions WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return record, nil
}

// FindPending returns the oldest unresolved record for a locator, or nil.
func (s *Store) FindPending(ctx context.Context, locator string) (*Record, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM submissions WHERE locator = ? AND status = ? ORDER BY id LIMIT 1`,
		locator,
		StatusPending,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pending submission: %w", err)
	}
	return record, nil
}

// FindLatest returns the most recent record for a locator regardless of
// status, or nil when the locator has never been submitted.
func (s *Store) FindLatest(ctx context.Context, locator string) (*Record, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM submissions WHERE locator = ? ORDER BY id DESC LIMIT 1`,
		locator,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest submission: %w", err)
	}
	return record, nil
}

// MarkSucceeded resolves a record as accepted by the repository.
func (s *Store) MarkSucceeded(ctx context.Context, id int64, location, responseJSON string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE submissions
         SET status = ?, failure_kind = NULL, error_message = NULL,
             location = ?, response_json = ?, attempts = attempts + 1, updated_at = ?
         WHERE id = ?`,
		StatusSucceeded,
		nullableString(location),
		nullableString(responseJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark submission succeeded: %w", err)
	}
	return nil
}

// MarkFailed resolves a record with a classified failure.
func (s *Store) MarkFailed(ctx context.Context, id int64, kind repo.FailureKind, message string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE submissions
         SET status = ?, failure_kind = ?, error_message = ?,
             attempts = attempts + 1, updated_at = ?
         WHERE id = ?`,
		StatusFailed,
		string(kind),
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark submission failed: %w", err)
	}
	return nil
}

// MarkRetrying moves a failed record back to pending ahead of a retry pass.
func (s *Store) MarkRetrying(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE submissions
         SET status = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("mark submission retrying: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("submission %d is not failed", id)
	}
	return nil
}

// List returns ledger records filtered by status set (or all records when no
// status is provided), ordered by insertion.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Record, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + recordColumns + ` FROM submissions`
	orderClause := ` ORDER BY id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListRun returns every record belonging to one run, ordered by insertion.
func (s *Store) ListRun(ctx context.Context, runID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM submissions WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list run submissions: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// FailedByKind returns failed records matching a failure kind, oldest first.
// An empty kind matches every failed record.
func (s *Store) FailedByKind(ctx context.Context, kind repo.FailureKind) ([]*Record, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if kind == "" {
		rows, err = s.db.QueryContext(
			ctx,
			`SELECT `+recordColumns+` FROM submissions WHERE status = ? ORDER BY id`,
			StatusFailed,
		)
	} else {
		rows, err = s.db.QueryContext(
			ctx,
			`SELECT `+recordColumns+` FROM submissions WHERE status = ? AND failure_kind = ? ORDER BY id`,
			StatusFailed,
			string(kind),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list failed submissions: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// Stats returns a count of records grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM submissions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Summary aggregates ledger state for diagnostic output.
func (s *Store) Summary(ctx context.Context) (LedgerSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return LedgerSummary{}, err
	}
	summary := LedgerSummary{}
	for status, count := range stats {
		summary.Total += count
		switch status {
		case StatusPending:
			summary.Pending += count
		case StatusSucceeded:
			summary.Succeeded += count
		case StatusFailed:
			summary.Failed += count
		}
	}
	return summary, nil
}

// Remove deletes a record by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes all records from the ledger.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM submissions`)
	if err != nil {
		return 0, fmt.Errorf("clear ledger: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed records from the ledger.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM submissions WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// ClearSucceeded removes only succeeded records from the ledger.
func (s *Store) ClearSucceeded(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM submissions WHERE status = ?`, StatusSucceeded)
	if err != nil {
		return 0, fmt.Errorf("clear succeeded: %w", err)
	}
	return res.RowsAffected()
}

const recordColumns = "id, run_id, locator, checksum, collection_id, status, failure_kind, error_message, location, response_json, attempts, created_at, updated_at"

func collectRecords(rows *sql.Rows) ([]*Record, error) {
	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id           int64
		runID        string
		locator      string
		checksum     sql.NullString
		collectionID int64
		statusStr    string
		failureKind  sql.NullString
		errorMessage sql.NullString
		location     sql.NullString
		responseJSON sql.NullString
		attempts     int
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&runID,
		&locator,
		&checksum,
		&collectionID,
		&statusStr,
		&failureKind,
		&errorMessage,
		&location,
		&responseJSON,
		&attempts,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		ID:           id,
		RunID:        runID,
		Locator:      locator,
		Checksum:     checksum.String,
		CollectionID: collectionID,
		Status:       Status(statusStr),
		ErrorMessage: errorMessage.String,
		Location:     location.String,
		ResponseJSON: responseJSON.String,
		Attempts:     attempts,
	}
	if failureKind.Valid {
		kind, _ := repo.ParseFailureKind(failureKind.String)
		record.FailureKind = kind
	}

	if created, err := parseTimeString(createdRaw); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
