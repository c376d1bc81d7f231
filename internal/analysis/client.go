package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"rentscore/internal/apperror"
	"rentscore/internal/model"
)

const (
	// FileField and PasswordField are the multipart field names of POST /analyze.
	FileField     = "file"
	PasswordField = "password"

	MsgAnalysisFailed    = "Analysis failed. Please try again."
	MsgUploadFailed      = "Upload failed."
	MsgCertificateFailed = "Certificate generation failed. Please try again."
	MsgDownloadFailed    = "Download failed."

	// maxErrorBody bounds how much of a failed response is read looking for detail.
	maxErrorBody = 64 << 10
)

// Service is the remote statement-analysis and certificate-rendering contract.
type Service interface {
	// Analyze submits a statement and returns the score report.
	// An empty password is never sent.
	Analyze(ctx context.Context, file *model.StagedFile, password string) (*model.ScoreReport, error)

	// Certificate renders a certificate for report. The caller must close the body.
	Certificate(ctx context.Context, report *model.ScoreReport) (io.ReadCloser, error)
}

// Client is the HTTP implementation of Service.
// It is safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service rooted at baseURL. Outgoing requests
// are traced through otelhttp. A zero timeout means no client-side deadline.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// NewClientWithHTTP creates a client using the provided http.Client.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

var _ Service = (*Client)(nil)

// Analyze posts the statement as multipart/form-data to /analyze.
func (c *Client) Analyze(ctx context.Context, file *model.StagedFile, password string) (*model.ScoreReport, error) {
	if file == nil {
		return nil, apperror.Validation(MsgAnalysisFailed)
	}

	body, contentType, err := analyzeBody(file, strings.TrimSpace(password))
	if err != nil {
		return nil, apperror.Internal(MsgUploadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", body)
	if err != nil {
		return nil, apperror.Internal(MsgUploadFailed, fmt.Errorf("build analyze request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Network(MsgUploadFailed, fmt.Errorf("analyze: %w", err))
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		return nil, failure(resp, MsgAnalysisFailed)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.Network(MsgUploadFailed, fmt.Errorf("read analyze response: %w", err))
	}
	report, err := model.ParseScoreReport(raw)
	if err != nil {
		return nil, apperror.Payload(MsgAnalysisFailed, err)
	}
	return report, nil
}

// Certificate posts the report as JSON to /certificate and returns the binary body.
func (c *Client) Certificate(ctx context.Context, report *model.ScoreReport) (io.ReadCloser, error) {
	if report == nil {
		return nil, apperror.Validation(MsgCertificateFailed)
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, apperror.Internal(MsgDownloadFailed, fmt.Errorf("encode report: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/certificate", bytes.NewReader(payload))
	if err != nil {
		return nil, apperror.Internal(MsgDownloadFailed, fmt.Errorf("build certificate request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Network(MsgDownloadFailed, fmt.Errorf("certificate: %w", err))
	}
	if !success(resp.StatusCode) {
		defer resp.Body.Close()
		return nil, failure(resp, MsgCertificateFailed)
	}
	return resp.Body, nil
}

func analyzeBody(file *model.StagedFile, password string) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FileField, file.Name))
	h.Set("Content-Type", file.MediaType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, file.Reader()); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}
	if password != "" {
		if err := w.WriteField(PasswordField, password); err != nil {
			return nil, "", fmt.Errorf("write password field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// failure reads a non-2xx response best-effort. A string "detail" field becomes the
// message shown to the user; anything else falls back to the generic message.
func failure(resp *http.Response, fallback string) error {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := fallback
	if err := json.Unmarshal(raw, &payload); err == nil && len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil && strings.TrimSpace(detail) != "" {
			msg = detail
		}
	}
	return apperror.Upstream(msg, resp.StatusCode)
}
