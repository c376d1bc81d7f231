// Package intake gates which files may enter the analysis workflow.
//
// Every acceptance path (browser upload, local path) builds a Candidate and goes
// through Accept, so there is exactly one set of rules.
package intake

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"rentscore/internal/apperror"
	"rentscore/internal/model"
)

const (
	MsgInvalidFile = "Invalid file. Please upload a PDF under 15MB."
	MsgNotPDF      = "File type must be application/pdf (.pdf)."
	MsgTooLarge    = "File is larger than 15MB."
)

// Candidate is a file the user selected but that has not been accepted yet.
// Only the metadata is inspected by Accept; Open is called once the file passed.
type Candidate struct {
	Name      string
	MediaType string
	Size      int64
	Open      func() (io.ReadCloser, error)
}

// Accept validates c and, when it passes, loads it into a StagedFile.
// Constraints are checked in order (media type, then size); the returned error is
// an *apperror.Error carrying the first violated constraint's message.
func Accept(c *Candidate) (*model.StagedFile, error) {
	if c == nil || c.Open == nil {
		return nil, apperror.Validation(MsgInvalidFile)
	}
	if normalizeMediaType(c.MediaType) != model.PDFMediaType {
		return nil, apperror.Validation(MsgNotPDF)
	}
	if c.Size < 0 || c.Size > model.MaxStatementSize {
		return nil, apperror.Validation(MsgTooLarge)
	}

	rc, err := c.Open()
	if err != nil {
		return nil, apperror.Internal(MsgInvalidFile, fmt.Errorf("open candidate: %w", err))
	}
	defer rc.Close()

	// Read one byte past the limit so a lying Size cannot smuggle a bigger file in.
	content, err := io.ReadAll(io.LimitReader(rc, model.MaxStatementSize+1))
	if err != nil {
		return nil, apperror.Internal(MsgInvalidFile, fmt.Errorf("read candidate: %w", err))
	}
	if int64(len(content)) > model.MaxStatementSize {
		return nil, apperror.Validation(MsgTooLarge)
	}

	return &model.StagedFile{
		Name:      filepath.Base(c.Name),
		MediaType: model.PDFMediaType,
		Size:      int64(len(content)),
		Content:   content,
	}, nil
}

// FromFileHeader builds a candidate from a multipart upload. The browser-declared
// type is trusted; when it is missing or generic the file signature decides.
func FromFileHeader(fh *multipart.FileHeader) *Candidate {
	if fh == nil {
		return nil
	}
	open := func() (io.ReadCloser, error) { return fh.Open() }
	ct := fh.Header.Get("Content-Type")
	if isGeneric(ct) {
		ct = sniff(open)
	}
	return &Candidate{Name: fh.Filename, MediaType: ct, Size: fh.Size, Open: open}
}

// FromPath builds a candidate from a local file, typing it by its signature.
func FromPath(path string) (*Candidate, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	open := func() (io.ReadCloser, error) { return os.Open(path) }
	return &Candidate{
		Name:      st.Name(),
		MediaType: sniff(open),
		Size:      st.Size(),
		Open:      open,
	}, nil
}

// FromBytes builds a candidate from an in-memory payload with a declared type.
func FromBytes(name, mediaType string, b []byte) *Candidate {
	return &Candidate{
		Name:      name,
		MediaType: mediaType,
		Size:      int64(len(b)),
		Open:      func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(b)), nil },
	}
}

func normalizeMediaType(ct string) string {
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mt
}

func isGeneric(ct string) bool {
	mt := normalizeMediaType(ct)
	return mt == "" || mt == "application/octet-stream"
}

func sniff(open func() (io.ReadCloser, error)) string {
	rc, err := open()
	if err != nil {
		return ""
	}
	defer rc.Close()
	m, err := mimetype.DetectReader(rc)
	if err != nil {
		return ""
	}
	return m.String()
}
