package model

import (
	"bytes"
	"io"
)

// MaxStatementSize is the largest statement accepted into the workflow (15 MiB).
const MaxStatementSize int64 = 15 * 1024 * 1024

// PDFMediaType is the only media type accepted into the workflow.
const PDFMediaType = "application/pdf"

// StagedFile is the candidate statement held in memory until it is analyzed.
// The password that may unlock it is held by the controller, never here.
type StagedFile struct {
	Name      string
	MediaType string
	Size      int64
	Content   []byte
}

// Reader returns a fresh reader over the file content.
func (f *StagedFile) Reader() io.Reader {
	return bytes.NewReader(f.Content)
}
