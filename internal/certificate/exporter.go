// Package certificate exports the verification certificate for a score report.
package certificate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"rentscore/internal/analysis"
	"rentscore/internal/apperror"
	"rentscore/internal/logging"
	"rentscore/internal/metrics"
	"rentscore/internal/model"
)

const (
	// FileName is the name every exported certificate is delivered under.
	FileName    = "rentscore-certificate.pdf"
	ContentType = "application/pdf"
)

var tracer = otel.Tracer("rentscore/internal/certificate")

// ErrInFlight is returned when an export is already running; no request was made.
var ErrInFlight = errors.New("certificate export already in progress")

// Sink receives the finished certificate. The reader is only valid for the
// duration of the call.
type Sink interface {
	Deliver(name string, r io.Reader, size int64) error
}

// Archiver keeps a copy of an exported certificate for later verification.
type Archiver interface {
	Archive(ctx context.Context, report *model.ScoreReport, r io.Reader, size int64) (*model.CertificateRecord, error)
}

// Result describes a completed export.
type Result struct {
	Size int64
	// Record is set when the certificate was archived.
	Record *model.CertificateRecord
}

// Exporter requests certificates and hands them to a Sink. At most one export
// runs at a time per Exporter.
type Exporter struct {
	svc      analysis.Service
	tempDir  string
	archiver Archiver
	log      *logging.Logger
	metrics  *metrics.Workflow

	mu   sync.Mutex
	busy bool
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithTempDir sets where response bodies are spooled. Empty means os.TempDir.
func WithTempDir(dir string) Option {
	return func(e *Exporter) { e.tempDir = dir }
}

// WithArchiver enables archiving after delivery.
func WithArchiver(a Archiver) Option {
	return func(e *Exporter) { e.archiver = a }
}

func WithLogger(l *logging.Logger) Option {
	return func(e *Exporter) { e.log = l.With("certificate") }
}

func WithMetrics(m *metrics.Workflow) Option {
	return func(e *Exporter) { e.metrics = m }
}

// NewExporter creates an exporter backed by svc.
func NewExporter(svc analysis.Service, opts ...Option) *Exporter {
	e := &Exporter{svc: svc}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InFlight reports whether an export is running.
func (e *Exporter) InFlight() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// Export requests the certificate for report and delivers it to sink under
// FileName. The body is spooled to a temporary file that is removed before Export
// returns, whatever the outcome. Failures are *apperror.Error values carrying the
// message to show, except ErrInFlight.
func (e *Exporter) Export(ctx context.Context, report *model.ScoreReport, sink Sink) (*Result, error) {
	if !e.acquire() {
		e.metrics.Certificate(metrics.OutcomeIgnored)
		return nil, ErrInFlight
	}
	defer e.release()

	ctx, span := tracer.Start(ctx, "certificate.export")
	defer span.End()

	res, err := e.export(ctx, report, sink)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperror.Message(err, analysis.MsgDownloadFailed))
		e.log.Error("certificate_failed", err, nil)
		e.metrics.Certificate(metrics.OutcomeFailed)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("certificate.size", res.Size), attribute.Bool("certificate.archived", res.Record != nil))
	fields := map[string]any{"size": res.Size, "trust_score": report.TrustScore}
	if res.Record != nil {
		fields["certificate_id"] = res.Record.ID
	}
	e.log.Info("certificate_exported", fields)
	e.metrics.Certificate(metrics.OutcomeSuccess)
	return res, nil
}

func (e *Exporter) export(ctx context.Context, report *model.ScoreReport, sink Sink) (*Result, error) {
	if report == nil {
		return nil, apperror.Validation(analysis.MsgCertificateFailed)
	}
	if sink == nil {
		return nil, apperror.Internal(analysis.MsgDownloadFailed, errors.New("no sink"))
	}

	body, err := e.svc.Certificate(ctx, report)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	spool, err := os.CreateTemp(e.tempDir, "rentscore-certificate-*.pdf")
	if err != nil {
		return nil, apperror.Internal(analysis.MsgDownloadFailed, fmt.Errorf("create spool: %w", err))
	}
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()

	size, err := io.Copy(spool, body)
	if err != nil {
		return nil, apperror.Network(analysis.MsgDownloadFailed, fmt.Errorf("read certificate: %w", err))
	}

	if err := rewind(spool); err != nil {
		return nil, err
	}
	if err := sink.Deliver(FileName, spool, size); err != nil {
		return nil, apperror.Internal(analysis.MsgDownloadFailed, fmt.Errorf("deliver certificate: %w", err))
	}

	res := &Result{Size: size}
	if e.archiver == nil {
		return res, nil
	}
	// The user already has the file; a failed archive only costs verifiability.
	if err := rewind(spool); err != nil {
		e.log.Warn("certificate_archive_skipped", map[string]any{"error_message": err.Error()})
		return res, nil
	}
	rec, err := e.archiver.Archive(ctx, report, spool, size)
	if err != nil {
		e.log.Warn("certificate_archive_failed", map[string]any{"error_message": err.Error()})
		return res, nil
	}
	res.Record = rec
	return res, nil
}

func (e *Exporter) acquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return false
	}
	e.busy = true
	return true
}

func (e *Exporter) release() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

func rewind(f *os.File) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return apperror.Internal(analysis.MsgDownloadFailed, fmt.Errorf("rewind spool: %w", err))
	}
	return nil
}
