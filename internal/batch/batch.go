// Package batch runs a list of catalog operations against one kernel,
// either stopping at the first failure or recording each failure beside its
// item and carrying on.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/starford/siyuanflow/internal/apperr"
	"github.com/starford/siyuanflow/internal/operation"
	"github.com/starford/siyuanflow/internal/siyuan"
)

// Item is one unit of work.
type Item struct {
	Operation string         `json:"operation"`
	Params    map[string]any `json:"params"`
}

// Result is the outcome of one item.
type Result struct {
	Index     int    `json:"index"`
	Operation string `json:"operation"`
	Data      any    `json:"data,omitempty"`
	Error     *Fault `json:"error,omitempty"`
}

// Fault is the recorded form of a failed item.
type Fault struct {
	Message  string `json:"message"`
	Kind     string `json:"kind"`
	Code     string `json:"code,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// Run is the outcome of a whole batch.
type Run struct {
	ID       string   `json:"runId"`
	Results  []Result `json:"results"`
	Failures int      `json:"failures"`
}

// Recorder persists item outcomes.
type Recorder interface {
	RecordItem(ctx context.Context, runID string, r Result) error
}

// Recorders fans item outcomes out to every non-nil recorder. All of them
// are called even when one fails.
func Recorders(rs ...Recorder) Recorder {
	var out multiRecorder
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multiRecorder []Recorder

func (m multiRecorder) RecordItem(ctx context.Context, runID string, r Result) error {
	var result error
	for _, rec := range m {
		if err := rec.RecordItem(ctx, runID, r); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// Executor runs batches.
type Executor struct {
	catalog        *operation.Catalog
	client         *siyuan.Client
	logger         *slog.Logger
	recorder       Recorder
	continueOnFail bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithContinueOnFail keeps going after a failed item.
func WithContinueOnFail(on bool) Option {
	return func(e *Executor) {
		e.continueOnFail = on
	}
}

// WithRecorder stores every item outcome in r.
func WithRecorder(r Recorder) Option {
	return func(e *Executor) {
		e.recorder = r
	}
}

// WithLogger sets the executor logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates an Executor.
func NewExecutor(catalog *operation.Catalog, client *siyuan.Client, opts ...Option) *Executor {
	e := &Executor{
		catalog: catalog,
		client:  client,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes items in order. Without continue-on-fail the first failure
// is returned as the error, together with the results gathered so far.
func (e *Executor) Run(ctx context.Context, items []Item) (*Run, error) {
	run := &Run{ID: uuid.NewString(), Results: make([]Result, 0, len(items))}
	log := e.logger.With(slog.String("run_id", run.ID))
	start := time.Now()

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return run, err
		}

		res := Result{Index: i, Operation: item.Operation}
		data, err := e.catalog.Invoke(ctx, e.client, item.Operation, item.Params)
		if err != nil {
			res.Error = faultOf(err)
			run.Failures++
			log.Warn("batch: item failed",
				slog.Int("index", i),
				slog.String("operation", item.Operation),
				slog.String("error", err.Error()))
		} else {
			res.Data = data
		}
		run.Results = append(run.Results, res)

		if e.recorder != nil {
			if recErr := e.recorder.RecordItem(ctx, run.ID, res); recErr != nil {
				log.Warn("batch: record failed", slog.Int("index", i), slog.String("error", recErr.Error()))
			}
		}

		if err != nil && !e.continueOnFail {
			return run, fmt.Errorf("batch: item %d (%s): %w", i, item.Operation, err)
		}
	}

	log.Info("batch: finished",
		slog.Int("items", len(items)),
		slog.Int("failures", run.Failures),
		slog.Duration("elapsed", time.Since(start)))
	return run, nil
}

func faultOf(err error) *Fault {
	if se, ok := siyuan.AsError(err); ok {
		return &Fault{
			Message:  se.Error(),
			Kind:     se.Kind.String(),
			Code:     se.Code,
			Endpoint: se.Endpoint,
		}
	}
	kind := "Caller"
	switch {
	case errors.Is(err, apperr.ErrInvalidParams):
		kind = "InvalidParams"
	case errors.Is(err, apperr.ErrUnknownOperation):
		kind = "UnknownOperation"
	case errors.Is(err, apperr.ErrStatementNotAllowed):
		kind = "StatementNotAllowed"
	}
	return &Fault{Message: err.Error(), Kind: kind}
}
