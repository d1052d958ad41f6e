package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"bindery/internal/logging"
	"bindery/internal/repo"
)

// ErrPassInProgress is returned when Run or RetryFailed is called while
// another pass is active on the same coordinator. Callers must serialize
// access; the coordinator is single-writer by design.
var ErrPassInProgress = errors.New("batch pass already in progress")

// Submitter accepts a materialized package artifact and returns the created
// resource or a classified failure. *repo.Collection satisfies it.
type Submitter interface {
	SubmitPackage(ctx context.Context, locator string) (*repo.SubmissionResult, error)
}

// Success is one ledger entry for an accepted package.
type Success struct {
	Locator string
	Result  *repo.SubmissionResult
}

// Failure is one ledger entry for a failed submission.
type Failure struct {
	Locator string
	Err     error
	Kind    repo.FailureKind
}

// Recorder mirrors ledger outcomes to durable storage. Recorder errors are
// logged and never interrupt a pass.
type Recorder interface {
	RecordSuccess(ctx context.Context, locator string, result *repo.SubmissionResult) error
	RecordFailure(ctx context.Context, locator string, kind repo.FailureKind, submitErr error) error
}

// Coordinator submits a sequence of package artifacts to one target and
// tracks per-package outcomes. Every locator handed to New ends up in
// exactly one of pending, successes, or failures.
type Coordinator struct {
	target    Submitter
	pending   []string
	successes []Success
	failures  []Failure

	running  atomic.Bool
	recorder Recorder
	logger   *slog.Logger
}

// Option customizes coordinator construction.
type Option func(*Coordinator)

// WithRecorder mirrors outcomes to the given recorder.
func WithRecorder(recorder Recorder) Option {
	return func(c *Coordinator) { c.recorder = recorder }
}

// WithLogger attaches a logger to the coordinator.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "batch")
		}
	}
}

// New builds a coordinator over target for the given locators, preserving
// their order. The target is shared and never mutated.
func New(target Submitter, locators []string, opts ...Option) *Coordinator {
	c := &Coordinator{
		target:  target,
		pending: append([]string(nil), locators...),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run submits every pending locator in order. Per-package failures are
// captured in the ledger, never returned; Run only fails on coordinator
// misuse or context cancellation. On cancellation the in-flight package
// completes and the remainder stays pending.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.target == nil {
		return errors.New("coordinator has no submission target")
	}
	if !c.running.CompareAndSwap(false, true) {
		return ErrPassInProgress
	}
	defer c.running.Store(false)

	for len(c.pending) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		locator := c.pending[0]
		c.pending = c.pending[1:]
		c.submit(ctx, locator)
	}
	return nil
}

// RetryFailed removes the failure entries matching predicate and re-submits
// them in their current ledger order. Matching entries that succeed move to
// successes; entries that fail again are appended as fresh failures, which
// may carry a different kind than before. Non-matching entries are left
// untouched.
func (c *Coordinator) RetryFailed(ctx context.Context, predicate func(Failure) bool) error {
	if c.target == nil {
		return errors.New("coordinator has no submission target")
	}
	if !c.running.CompareAndSwap(false, true) {
		return ErrPassInProgress
	}
	defer c.running.Store(false)

	var matched []Failure
	retained := c.failures[:0:0]
	for _, failure := range c.failures {
		if predicate == nil || predicate(failure) {
			matched = append(matched, failure)
		} else {
			retained = append(retained, failure)
		}
	}
	c.failures = retained

	for i, failure := range matched {
		if err := ctx.Err(); err != nil {
			// Abandoned mid-pass: unprocessed entries keep their prior failure.
			c.failures = append(c.failures, matched[i:]...)
			return err
		}
		c.submit(ctx, failure.Locator)
	}
	return nil
}

func (c *Coordinator) submit(ctx context.Context, locator string) {
	itemCtx := logging.WithLocator(ctx, locator)
	logger := logging.WithContext(itemCtx, c.logger)

	result, err := c.target.SubmitPackage(itemCtx, locator)
	if err != nil {
		kind := repo.ClassifyFailure(err)
		c.failures = append(c.failures, Failure{Locator: locator, Err: err, Kind: kind})
		logger.Warn("package submission failed",
			logging.String(logging.FieldFailureKind, string(kind)),
			logging.Error(err),
		)
		c.record(itemCtx, logger, func(r Recorder) error {
			return r.RecordFailure(itemCtx, locator, kind, err)
		})
		return
	}

	c.successes = append(c.successes, Success{Locator: locator, Result: result})
	logger.Info("package submission succeeded", logging.String("location", result.Location))
	c.record(itemCtx, logger, func(r Recorder) error {
		return r.RecordSuccess(itemCtx, locator, result)
	})
}

func (c *Coordinator) record(ctx context.Context, logger *slog.Logger, fn func(Recorder) error) {
	if c.recorder == nil {
		return
	}
	if err := fn(c.recorder); err != nil {
		logger.Warn("failed to record ledger outcome", logging.Error(err))
	}
}

// Pending returns the locators not yet processed, in order.
func (c *Coordinator) Pending() []string {
	return append([]string(nil), c.pending...)
}

// Successes returns the success ledger in submission order.
func (c *Coordinator) Successes() []Success {
	return append([]Success(nil), c.successes...)
}

// Failures returns the failure ledger in submission order.
func (c *Coordinator) Failures() []Failure {
	return append([]Failure(nil), c.failures...)
}

// KindIs builds a retry predicate matching one failure kind.
func KindIs(kind repo.FailureKind) func(Failure) bool {
	return func(failure Failure) bool {
		return failure.Kind == kind
	}
}
