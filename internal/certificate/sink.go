package certificate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DirSink writes the certificate into a directory, replacing an earlier export of
// the same name.
type DirSink struct {
	Dir string

	// Path is set to the written file after a successful Deliver.
	Path string
}

func (s *DirSink) Deliver(name string, r io.Reader, size int64) error {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	dst := filepath.Join(dir, filepath.Base(name))
	tmp, err := os.CreateTemp(dir, ".rentscore-*.part")
	if err != nil {
		return fmt.Errorf("create in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if size >= 0 && n != size {
		return fmt.Errorf("write %s: short write %d of %d bytes", dst, n, size)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("rename to %s: %w", dst, err)
	}
	s.Path = dst
	return nil
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(name string, r io.Reader, size int64) error

func (f SinkFunc) Deliver(name string, r io.Reader, size int64) error {
	return f(name, r, size)
}
