package handler

import (
	"bytes"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"rentscore/internal/analysis"
	"rentscore/internal/apperror"
	"rentscore/internal/certificate"
	"rentscore/internal/intake"
	"rentscore/internal/logging"
	"rentscore/internal/render"
	"rentscore/internal/workflow"
)

// sessionCookie carries the session ID. It has no expiry, so the browser drops it
// when the session ends and a new tab starts clean.
const sessionCookie = "rentscore_session"

// Web serves the upload and results pages on behalf of browser sessions.
type Web struct {
	sessions   *session.Store
	workspaces *Workspaces
	log        *logging.Logger
}

// NewWeb creates the page handlers. Sessions live server-side for ttl after the
// last request.
func NewWeb(workspaces *Workspaces, ttl time.Duration, log *logging.Logger) *Web {
	return &Web{
		sessions: session.New(session.Config{
			Expiration:        ttl,
			KeyLookup:         "cookie:" + sessionCookie,
			CookieHTTPOnly:    true,
			CookieSameSite:    "Lax",
			CookieSessionOnly: true,
		}),
		workspaces: workspaces,
		log:        log.With("web"),
	}
}

// workspace resolves the caller's session and refreshes its expiry.
func (h *Web) workspace(c *fiber.Ctx) (*Workspace, error) {
	sess, err := h.sessions.Get(c)
	if err != nil {
		h.log.Error("session_load_failed", err, map[string]any{"request_id": requestIDFromCtx(c)})
		return nil, err
	}
	id := sess.ID()
	sess.Set("seen", time.Now().Unix())
	if err := sess.Save(); err != nil {
		h.log.Error("session_save_failed", err, map[string]any{"request_id": requestIDFromCtx(c)})
		return nil, err
	}
	return h.workspaces.Get(id), nil
}

func wantsJSON(c *fiber.Ctx) bool {
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

func sendHTML(c *fiber.Ctx, status int, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.Status(status).Send(buf.Bytes())
}

// Intake renders the upload page.
func (h *Web) Intake(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	snap := ws.Controller.Snapshot()
	if wantsJSON(c) {
		return c.JSON(snapshotJSON(snap))
	}
	return sendHTML(c, fiber.StatusOK, func(w io.Writer) error {
		return render.WriteIntakeHTML(w, render.Intake(snap))
	})
}

// Upload stages the multipart field "file". A missing or invalid file moves the
// workflow to the error phase; the page shows why.
func (h *Web) Upload(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}

	var candidate *intake.Candidate
	if fh, err := c.FormFile(analysis.FileField); err == nil {
		candidate = intake.FromFileHeader(fh)
	}

	err = ws.Controller.Offer(candidate)
	switch {
	case errors.Is(err, workflow.ErrInFlight):
		return writeError(c, fiber.StatusConflict, "IN_PROGRESS", "An analysis is already running.")
	case err != nil && wantsJSON(c):
		return writeAppError(c, err, intake.MsgInvalidFile)
	case wantsJSON(c):
		return c.JSON(snapshotJSON(ws.Controller.Snapshot()))
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

// Analyze submits the staged file with the optional form field "password".
func (h *Web) Analyze(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}

	report, err := ws.Controller.Analyze(c.UserContext(), c.FormValue(analysis.PasswordField))
	switch {
	case errors.Is(err, workflow.ErrInFlight):
		return writeError(c, fiber.StatusConflict, "IN_PROGRESS", "An analysis is already running.")
	case errors.Is(err, workflow.ErrNothingStaged):
		return writeError(c, fiber.StatusBadRequest, "NO_FILE_STAGED", "Select a PDF statement first.")
	case err != nil:
		if wantsJSON(c) {
			return writeAppError(c, err, analysis.MsgUploadFailed)
		}
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	ws.setCertificateError("")
	if wantsJSON(c) {
		return c.JSON(report)
	}
	return c.Redirect("/results", fiber.StatusSeeOther)
}

// Reset clears the staged file, messages and the stored report.
func (h *Web) Reset(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	if err := ws.Controller.Reset(); err != nil {
		return writeError(c, fiber.StatusConflict, "IN_PROGRESS", "An analysis is already running.")
	}
	ws.setCertificateError("")
	if wantsJSON(c) {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

// Results renders the stored report, or the no-data page.
func (h *Web) Results(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	if wantsJSON(c) {
		report, ok := ws.Results.Load()
		if !ok {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", render.NoDataTitle)
		}
		return c.JSON(report)
	}

	view := render.Results(ws.Results)
	view.CertificateError = ws.CertificateError()
	return sendHTML(c, fiber.StatusOK, func(w io.Writer) error {
		return render.WriteResultsHTML(w, view)
	})
}

// DownloadCertificate exports the certificate of the stored report as an
// attachment named rentscore-certificate.pdf.
func (h *Web) DownloadCertificate(c *fiber.Ctx) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	report, ok := ws.Results.Load()
	if !ok {
		if wantsJSON(c) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", render.NoDataTitle)
		}
		return sendHTML(c, fiber.StatusNotFound, func(w io.Writer) error {
			return render.WriteResultsHTML(w, render.ResultsView{NoData: true})
		})
	}

	res, err := ws.Exporter.Export(c.UserContext(), report, attachmentSink{c: c})
	if errors.Is(err, certificate.ErrInFlight) {
		return writeError(c, fiber.StatusConflict, "IN_PROGRESS", "The certificate is already being generated.")
	}
	if err != nil {
		msg := apperror.Message(err, analysis.MsgDownloadFailed)
		ws.setCertificateError(msg)
		if wantsJSON(c) {
			return writeAppError(c, err, analysis.MsgDownloadFailed)
		}
		return c.Redirect("/results", fiber.StatusSeeOther)
	}

	ws.setCertificateError("")
	if res.Record != nil {
		c.Set("X-Certificate-ID", res.Record.ID)
	}
	return nil
}

// attachmentSink writes the certificate as the response body. The reader is
// drained before returning because the spool is removed afterwards.
type attachmentSink struct {
	c *fiber.Ctx
}

func (s attachmentSink) Deliver(name string, r io.Reader, size int64) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.c.Attachment(name)
	s.c.Set(fiber.HeaderContentType, certificate.ContentType)
	return s.c.Status(fiber.StatusOK).Send(b)
}

type snapshotBody struct {
	Phase      string `json:"phase"`
	FileName   string `json:"file_name,omitempty"`
	FileSize   int64  `json:"file_size,omitempty"`
	Message    string `json:"message,omitempty"`
	Validation bool   `json:"validation_error,omitempty"`
	CanAnalyze bool   `json:"can_analyze"`
}

func snapshotJSON(s workflow.Snapshot) snapshotBody {
	return snapshotBody{
		Phase:      s.Phase.String(),
		FileName:   s.FileName,
		FileSize:   s.FileSize,
		Message:    s.Message,
		Validation: s.Validation,
		CanAnalyze: s.CanAnalyze(),
	}
}
