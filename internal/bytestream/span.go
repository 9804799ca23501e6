package bytestream

import (
	"fmt"
	"io"
)

// SpanStream presents a bounded [offset, offset+length) window over
// another ReadSeeker. It does not own the inner stream: Close is a no-op
// unless the span was constructed with WithOwnership.
type SpanStream struct {
	inner  ReadSeeker
	base   int64
	length int64
	pos    int64
	owns   bool
}

// NewSpanStream returns a window over inner spanning [offset, offset+length).
// The inner stream is borrowed for the lifetime of the span.
func NewSpanStream(inner ReadSeeker, offset, length int64) *SpanStream {
	return &SpanStream{inner: inner, base: offset, length: length}
}

// WithOwnership marks the span as the owner of its inner stream, so Close
// propagates. Chains default to borrowing per spec.md 4.1.
func (s *SpanStream) WithOwnership() *SpanStream {
	s.owns = true
	return s
}

func (s *SpanStream) Read(p []byte) (int, error) {
	if s.pos >= s.length {
		return 0, io.EOF
	}
	if _, err := s.inner.Seek(s.base+s.pos, SeekStart); err != nil {
		return 0, err
	}
	remain := s.length - s.pos
	if int64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := s.inner.Read(p)
	s.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (s *SpanStream) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case SeekStart:
		base = 0
	case SeekCurrent:
		base = s.pos
	case SeekEnd:
		base = s.length
	default:
		return 0, fmt.Errorf("bytestream: invalid whence %d", whence)
	}
	newPos := base + offset
	if newPos < 0 {
		return 0, fmt.Errorf("bytestream: negative seek position")
	}
	s.pos = newPos
	return s.pos, nil
}

func (s *SpanStream) CanRead() bool  { return s.inner.CanRead() }
func (s *SpanStream) CanWrite() bool { return false }
func (s *SpanStream) CanSeek() bool  { return true }
func (s *SpanStream) IsOpen() bool   { return s.inner.IsOpen() }
func (s *SpanStream) Size() int64    { return s.length }

func (s *SpanStream) Close() error {
	if s.owns {
		return s.inner.Close()
	}
	return nil
}
