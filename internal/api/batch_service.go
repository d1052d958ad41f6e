package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"bindery/internal/batch"
	"bindery/internal/config"
	"bindery/internal/fileutil"
	"bindery/internal/logging"
	"bindery/internal/notifications"
	"bindery/internal/preflight"
	"bindery/internal/repo"
)

const lockFileName = "bindery.lock"

// BatchService orchestrates submission passes: single-instance locking,
// preflight checks, ledger bookkeeping, coordinator execution, and
// notifications.
type BatchService struct {
	cfg      *config.Config
	store    *batch.Store
	client   *repo.Client
	notifier notifications.Service
	logger   *slog.Logger
	lockPath string
	lock     *flock.Flock
}

// ServiceOption customizes batch service construction.
type ServiceOption func(*BatchService)

// WithClient overrides the repository client, typically for tests.
func WithClient(client *repo.Client) ServiceOption {
	return func(s *BatchService) { s.client = client }
}

// WithNotifier overrides the notification service.
func WithNotifier(notifier notifications.Service) ServiceOption {
	return func(s *BatchService) { s.notifier = notifier }
}

// NewBatchService constructs a batch service with initialized dependencies.
func NewBatchService(cfg *config.Config, store *batch.Store, logger *slog.Logger, opts ...ServiceOption) (*BatchService, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("batch service requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, lockFileName)
	svc := &BatchService{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "batch-service"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.client == nil {
		svc.client = repo.NewClient(cfg, repo.WithLogger(logger))
	}
	if svc.notifier == nil {
		svc.notifier = notifications.NewService(cfg)
	}
	return svc, nil
}

// LockPath returns the pass lock file location.
func (s *BatchService) LockPath() string {
	return s.lockPath
}

// RunBatch submits every locator in order and returns the pass outcome.
// Per-package failures live in the outcome's records; the returned error is
// reserved for pass-level problems such as lock contention, failed preflight,
// or cancellation.
func (s *BatchService) RunBatch(ctx context.Context, locators []string) (*BatchOutcome, error) {
	if len(locators) == 0 {
		return nil, errors.New("no packages to submit")
	}

	release, err := s.acquireLock()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.checkReadiness(ctx); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, s.logger)

	recorder := newLedgerRecorder(s.store)
	for _, locator := range locators {
		checksum, sumErr := fileutil.Checksum(locator)
		if sumErr != nil {
			logger.Warn("failed to checksum package", logging.String(logging.FieldLocator, locator), logging.Error(sumErr))
		}
		if err := recorder.enqueue(ctx, runID, locator, checksum, s.cfg.Repository.CollectionID); err != nil {
			return nil, fmt.Errorf("enqueue %s: %w", locator, err)
		}
	}

	logger.Info("batch pass started",
		logging.Int("packages", len(locators)),
		logging.Int64("collection_id", s.cfg.Repository.CollectionID),
	)
	if s.cfg.Notifications.Batch {
		if err := s.notifier.NotifyBatchStarted(ctx, s.cfg.Repository.CollectionID, len(locators)); err != nil {
			logger.Warn("failed to send batch start notification", logging.Error(err))
		}
	}

	started := time.Now()
	collection := s.client.Collections(s.cfg.Repository.CollectionID)
	coordinator := batch.New(collection, locators,
		batch.WithRecorder(recorder),
		batch.WithLogger(logger),
	)
	runErr := coordinator.Run(ctx)

	outcome, err := s.buildOutcome(ctx, runID, coordinator, recorder, time.Since(started))
	if err != nil {
		return nil, err
	}
	s.finishPass(ctx, logger, outcome, runErr)
	return outcome, runErr
}

// RetryFailed re-submits failed ledger records matching kind (or every failed
// record when kind is empty), reusing their existing ledger rows.
func (s *BatchService) RetryFailed(ctx context.Context, kind repo.FailureKind) (*BatchOutcome, error) {
	release, err := s.acquireLock()
	if err != nil {
		return nil, err
	}
	defer release()

	failed, err := s.store.FailedByKind(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("load failed records: %w", err)
	}
	if len(failed) == 0 {
		return &BatchOutcome{Duration: "0s"}, nil
	}

	if err := s.checkReadiness(ctx); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, s.logger)

	recorder := newLedgerRecorder(s.store)
	locators := make([]string, 0, len(failed))
	for _, record := range failed {
		if err := s.store.MarkRetrying(ctx, record.ID); err != nil {
			return nil, err
		}
		recorder.adopt(record.Locator, record.ID)
		locators = append(locators, record.Locator)
	}

	logger.Info("retry pass started",
		logging.Int("packages", len(locators)),
		logging.String(logging.FieldFailureKind, string(kind)),
	)

	started := time.Now()
	collection := s.client.Collections(s.cfg.Repository.CollectionID)
	coordinator := batch.New(collection, locators,
		batch.WithRecorder(recorder),
		batch.WithLogger(logger),
	)
	runErr := coordinator.Run(ctx)

	outcome, err := s.buildOutcome(ctx, runID, coordinator, recorder, time.Since(started))
	if err != nil {
		return nil, err
	}
	s.finishPass(ctx, logger, outcome, runErr)
	return outcome, runErr
}

// List returns ledger records filtered by status.
func (s *BatchService) List(ctx context.Context, statuses ...batch.Status) ([]SubmissionRecord, error) {
	records, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromRecords(records), nil
}

// Stats returns ledger summary counts keyed by status string.
func (s *BatchService) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeLedgerStats(stats), nil
}

// Clear removes ledger records. When failedOnly is set, succeeded and
// pending records are preserved.
func (s *BatchService) Clear(ctx context.Context, failedOnly bool) (int64, error) {
	if failedOnly {
		return s.store.ClearFailed(ctx)
	}
	return s.store.Clear(ctx)
}

// ClearSucceeded removes only succeeded ledger records.
func (s *BatchService) ClearSucceeded(ctx context.Context) (int64, error) {
	return s.store.ClearSucceeded(ctx)
}

// Preflight runs readiness checks and returns their API representations.
func (s *BatchService) Preflight(ctx context.Context) []PreflightResult {
	return FromPreflightResults(preflight.RunAll(ctx, s.cfg))
}

func (s *BatchService) acquireLock() (func(), error) {
	ok, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire pass lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another bindery pass is already running")
	}
	return func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release pass lock", logging.Error(err))
		}
	}, nil
}

func (s *BatchService) checkReadiness(ctx context.Context) error {
	results := preflight.RunAll(ctx, s.cfg)
	if preflight.AllPassed(results) {
		return nil
	}
	var failed []string
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(failed, "; "))
}

func (s *BatchService) buildOutcome(ctx context.Context, runID string, coordinator *batch.Coordinator, recorder *ledgerRecorder, elapsed time.Duration) (*BatchOutcome, error) {
	records, err := recorder.records(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pass records: %w", err)
	}
	return &BatchOutcome{
		RunID:     runID,
		Total:     len(coordinator.Successes()) + len(coordinator.Failures()) + len(coordinator.Pending()),
		Succeeded: len(coordinator.Successes()),
		Failed:    len(coordinator.Failures()),
		Pending:   len(coordinator.Pending()),
		Duration:  elapsed.Round(time.Millisecond).String(),
		Records:   FromRecords(records),
	}, nil
}

func (s *BatchService) finishPass(ctx context.Context, logger *slog.Logger, outcome *BatchOutcome, runErr error) {
	logger.Info("batch pass finished",
		logging.Int("succeeded", outcome.Succeeded),
		logging.Int("failed", outcome.Failed),
		logging.Int("pending", outcome.Pending),
		logging.String("duration", outcome.Duration),
	)
	if runErr != nil && s.cfg.Notifications.Errors {
		if err := s.notifier.NotifyError(ctx, runErr, "batch pass"); err != nil {
			logger.Warn("failed to send error notification", logging.Error(err))
		}
	}
	if s.cfg.Notifications.Batch {
		for _, record := range outcome.Records {
			if record.Status != string(batch.StatusSucceeded) {
				continue
			}
			if err := s.notifier.NotifyPackageAccepted(ctx, record.Locator, record.Location); err != nil {
				logger.Warn("failed to send package notification", logging.Error(err))
			}
		}
		duration, _ := time.ParseDuration(outcome.Duration)
		if err := s.notifier.NotifyBatchCompleted(ctx, outcome.Succeeded, outcome.Failed, duration); err != nil {
			logger.Warn("failed to send batch completion notification", logging.Error(err))
		}
	}
}

// ledgerRecorder bridges coordinator outcomes to the SQLite ledger. Each
// locator maps to a queue of row IDs consumed in submission order, so a
// locator appearing more than once in a pass (a package that failed in
// several earlier runs) resolves each of its rows exactly once.
type ledgerRecorder struct {
	store *batch.Store
	ids   map[string][]int64
	order []int64
}

func newLedgerRecorder(store *batch.Store) *ledgerRecorder {
	return &ledgerRecorder{
		store: store,
		ids:   make(map[string][]int64),
	}
}

func (r *ledgerRecorder) enqueue(ctx context.Context, runID, locator, checksum string, collectionID int64) error {
	record, err := r.store.Enqueue(ctx, runID, locator, checksum, collectionID)
	if err != nil {
		return err
	}
	r.adopt(locator, record.ID)
	return nil
}

func (r *ledgerRecorder) adopt(locator string, id int64) {
	r.ids[locator] = append(r.ids[locator], id)
	r.order = append(r.order, id)
}

// take pops the next unresolved row ID for locator.
func (r *ledgerRecorder) take(locator string) (int64, bool) {
	queue := r.ids[locator]
	if len(queue) == 0 {
		return 0, false
	}
	r.ids[locator] = queue[1:]
	return queue[0], true
}

func (r *ledgerRecorder) records(ctx context.Context) ([]*batch.Record, error) {
	records := make([]*batch.Record, 0, len(r.order))
	for _, id := range r.order {
		record, err := r.store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if record != nil {
			records = append(records, record)
		}
	}
	return records, nil
}

// RecordSuccess implements batch.Recorder.
func (r *ledgerRecorder) RecordSuccess(ctx context.Context, locator string, result *repo.SubmissionResult) error {
	id, ok := r.take(locator)
	if !ok {
		return fmt.Errorf("no ledger record for %s", locator)
	}
	var responseJSON string
	if result != nil && result.Body != nil {
		encoded, err := json.Marshal(result.Body)
		if err == nil {
			responseJSON = string(encoded)
		}
	}
	var location string
	if result != nil {
		location = result.Location
	}
	return r.store.MarkSucceeded(ctx, id, location, responseJSON)
}

// RecordFailure implements batch.Recorder.
func (r *ledgerRecorder) RecordFailure(ctx context.Context, locator string, kind repo.FailureKind, submitErr error) error {
	id, ok := r.take(locator)
	if !ok {
		return fmt.Errorf("no ledger record for %s", locator)
	}
	var message string
	if submitErr != nil {
		message = submitErr.Error()
	}
	return r.store.MarkFailed(ctx, id, kind, message)
}
