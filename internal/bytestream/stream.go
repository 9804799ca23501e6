// Package bytestream provides the uniform read/write/seek abstraction that
// every other component builds on: volume readers, attribute readers, and
// compressed-stream views are all a Stream underneath.
package bytestream

import (
	"errors"
	"io"
)

// ErrDecompression distinguishes a codec failure from an ordinary I/O
// failure on the underlying stream, per spec.md 4.1's error policy.
var ErrDecompression = errors.New("bytestream: decompression mismatch")

// Whence mirrors io.Seeker's constants; kept local so callers don't need to
// import io just to seek a Stream.
const (
	SeekStart   = io.SeekStart
	SeekCurrent = io.SeekCurrent
	SeekEnd     = io.SeekEnd
)

// Stream is the narrow contract every chaining layer (compression, tee,
// lazy-file, span, pipe) is built from. A Stream advertises its own
// capabilities instead of relying on type assertions, so a caller can
// decide up front whether to request a seek.
type Stream interface {
	io.Closer

	// Read may return a short read; 0 bytes with a nil error never
	// happens - io.EOF marks end of stream.
	Read(p []byte) (n int, err error)

	CanRead() bool
	CanWrite() bool
	CanSeek() bool
	IsOpen() bool

	// Size reports the total logical size, or -1 if unknown.
	Size() int64
}

// Writer is implemented by streams for which CanWrite reports true.
type Writer interface {
	Write(p []byte) (n int, err error)
}

// Seeker is implemented by streams for which CanSeek reports true.
type Seeker interface {
	Seek(offset int64, whence int) (int64, error)
}

// ReadSeeker is the common combination the NTFS and FAT walkers need.
type ReadSeeker interface {
	Stream
	Seeker
}
