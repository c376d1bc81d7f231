// Package workflow owns the lifecycle of a single statement analysis: staging a
// file, issuing the analyze request, interpreting the answer and persisting the
// resulting report.
package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rentscore/internal/analysis"
	"rentscore/internal/apperror"
	"rentscore/internal/intake"
	"rentscore/internal/logging"
	"rentscore/internal/metrics"
	"rentscore/internal/model"
)

const tracerName = "rentscore/internal/workflow"

// Results is where a successful report is written for the results view.
type Results interface {
	Save(report *model.ScoreReport) error
	Clear() error
}

// Snapshot is a read-only projection of the controller state for the view layer.
type Snapshot struct {
	Phase      Phase
	FileName   string
	FileSize   int64
	Message    string
	Validation bool
}

// CanAnalyze reports whether an analyze invocation would issue a request.
func (s Snapshot) CanAnalyze() bool {
	return s.FileName != "" && (s.Phase == PhaseIdle || s.Phase == PhaseDragging)
}

// Controller is safe for concurrent use. At most one analyze request is in flight
// at any time; further invocations while one is pending return ErrInFlight without
// touching the network.
type Controller struct {
	svc     analysis.Service
	results Results
	log     *logging.Logger
	metrics *metrics.Workflow
	tracer  trace.Tracer

	mu    sync.Mutex
	state state
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) { c.log = l.With("workflow") }
}

// WithMetrics sets the counters analyze outcomes are recorded on.
func WithMetrics(m *metrics.Workflow) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithTracerProvider sets where analyze spans go. The global provider is the default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Controller) { c.tracer = tp.Tracer(tracerName) }
}

// New creates a controller in the idle phase.
func New(svc analysis.Service, results Results, opts ...Option) *Controller {
	c := &Controller{
		svc:     svc,
		results: results,
		tracer:  otel.Tracer(tracerName),
		state:   state{phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{Phase: c.state.phase, Message: c.state.message, Validation: c.state.validation}
	if c.state.file != nil {
		s.FileName = c.state.file.Name
		s.FileSize = c.state.file.Size
	}
	return s
}

// DragEnter enters the dragging sub-state. It is ignored outside idle.
func (c *Controller) DragEnter() {
	c.apply(event{kind: evDragEnter})
}

// DragLeave returns from dragging to idle.
func (c *Controller) DragLeave() {
	c.apply(event{kind: evDragLeave})
}

// Offer runs the candidate through intake. An accepted file replaces any staged
// one; a rejected file moves the controller to the error phase with the
// validation message. The returned error is the rejection, if any.
func (c *Controller) Offer(candidate *intake.Candidate) error {
	// Leave dragging whichever way the drop goes.
	c.apply(event{kind: evDragLeave})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.phase == PhaseUploading {
		return ErrInFlight
	}

	file, err := intake.Accept(candidate)
	if err != nil {
		c.state, _ = next(c.state, event{kind: evFileRejected, message: apperror.Message(err, intake.MsgInvalidFile)})
		c.log.Info("file_rejected", map[string]any{"reason": c.state.message})
		c.metrics.Analysis(metrics.OutcomeRejected)
		return err
	}
	c.state, err = next(c.state, event{kind: evFileAccepted, file: file})
	if err != nil {
		return err
	}
	c.log.Info("file_staged", map[string]any{"file_name": file.Name, "size": file.Size})
	return nil
}

// Analyze submits the staged file. The password is trimmed and omitted when blank.
// On success the report is saved to Results before the controller reports
// success. Errors are *apperror.Error values whose message is meant for the user,
// or ErrInFlight / ErrNothingStaged when no request was issued.
func (c *Controller) Analyze(ctx context.Context, password string) (*model.ScoreReport, error) {
	c.mu.Lock()
	st, err := next(c.state, event{kind: evAnalyze})
	if err != nil {
		c.mu.Unlock()
		if errors.Is(err, ErrInFlight) {
			c.metrics.Analysis(metrics.OutcomeIgnored)
		}
		return nil, err
	}
	c.state = st
	file := st.file
	c.mu.Unlock()

	c.log.Info("analysis_started", map[string]any{"file_name": file.Name, "size": file.Size})

	ctx, span := c.tracer.Start(ctx, "workflow.analyze", trace.WithAttributes(
		attribute.Int64("statement.size", file.Size),
		attribute.Bool("statement.password_supplied", strings.TrimSpace(password) != ""),
	))
	defer span.End()

	report, err := c.svc.Analyze(ctx, file, password)
	if err == nil {
		if saveErr := c.results.Save(report); saveErr != nil {
			err = apperror.Internal(analysis.MsgAnalysisFailed, saveErr)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		msg := apperror.Message(err, analysis.MsgUploadFailed)
		c.state, _ = next(c.state, event{kind: evFailed, message: msg})
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		c.log.Error("analysis_failed", err, map[string]any{"file_name": file.Name})
		c.metrics.Analysis(metrics.OutcomeFailed)
		return nil, err
	}
	c.state, _ = next(c.state, event{kind: evSucceeded})
	span.SetAttributes(attribute.Int("report.trust_score", report.TrustScore))
	c.log.Info("analysis_succeeded", map[string]any{
		"file_name":      file.Name,
		"trust_score":    report.TrustScore,
		"verified_count": len(report.VerifiedPayments),
	})
	c.metrics.Analysis(metrics.OutcomeSuccess)
	return report, nil
}

// Reset clears the staged file and any message and drops the stored report so a
// later visitor of the results view does not see a previous analysis.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, err := next(c.state, event{kind: evReset})
	if err != nil {
		return err
	}
	c.state = st
	if err := c.results.Clear(); err != nil {
		c.log.Error("results_clear_failed", err, nil)
	}
	return nil
}

func (c *Controller) apply(e event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, err := next(c.state, e); err == nil {
		c.state = st
	}
}
