package bytestream

import (
	"fmt"
	"os"
)

// LazyFileStream buffers up to maxBuffered bytes in memory and only opens
// a backing file once Open is called, flushing the buffer first. This is
// how the logging sink (internal/orclog) avoids losing messages produced
// before the output directory is known - the same shape as the host
// project's gzip-buffer-then-POST pipeline in internal/agent/sender.go,
// just writing to a file instead of a socket.
type LazyFileStream struct {
	maxBuffered int
	buf         []byte
	f           *os.File
	closed      bool
}

// NewLazyFileStream returns a stream that accepts writes into an in-memory
// buffer (capped at maxBuffered bytes) until Open is called.
func NewLazyFileStream(maxBuffered int) *LazyFileStream {
	return &LazyFileStream{maxBuffered: maxBuffered}
}

func (s *LazyFileStream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, fmt.Errorf("bytestream: write on closed lazy-file stream")
	}
	if s.f != nil {
		return s.f.Write(p)
	}
	room := s.maxBuffered - len(s.buf)
	if room <= 0 {
		// Buffer exhausted before a path was ever supplied: drop silently
		// rather than growing unbounded, matching the "log producers must
		// not be blocked" contract.
		return len(p), nil
	}
	if len(p) > room {
		p = p[:room]
	}
	s.buf = append(s.buf, p...)
	return len(p), nil
}

// Open flushes any buffered bytes to path (created with disposition flags)
// and routes subsequent writes directly to the file.
func (s *LazyFileStream) Open(path string, disposition int) error {
	if s.f != nil {
		return fmt.Errorf("bytestream: lazy-file stream already opened")
	}
	f, err := os.OpenFile(path, disposition, 0o644)
	if err != nil {
		return fmt.Errorf("bytestream: open %s: %w", path, err)
	}
	if len(s.buf) > 0 {
		if _, err := f.Write(s.buf); err != nil {
			f.Close()
			return fmt.Errorf("bytestream: flush buffered bytes to %s: %w", path, err)
		}
		s.buf = nil
	}
	s.f = f
	return nil
}

func (s *LazyFileStream) Read(p []byte) (int, error) {
	return 0, fmt.Errorf("bytestream: lazy-file stream is write-only")
}

func (s *LazyFileStream) CanRead() bool  { return false }
func (s *LazyFileStream) CanWrite() bool { return true }
func (s *LazyFileStream) CanSeek() bool  { return false }
func (s *LazyFileStream) IsOpen() bool   { return !s.closed }
func (s *LazyFileStream) Size() int64    { return -1 }

func (s *LazyFileStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.f != nil {
		return s.f.Close()
	}
	return nil
}
