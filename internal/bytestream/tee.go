package bytestream

import "io"

// TeeWriter splits every write across a primary sink and zero or more
// side sinks (hash tees), running each side sink to completion before the
// call returns - this is what lets the archive pipeline (C9) pipeline
// hashing with compression without an extra goroutine per item.
type TeeWriter struct {
	primary io.Writer
	sides   []io.Writer
}

// NewTeeWriter returns a writer that forwards every Write to primary and
// every side writer in order.
func NewTeeWriter(primary io.Writer, sides ...io.Writer) *TeeWriter {
	return &TeeWriter{primary: primary, sides: sides}
}

func (t *TeeWriter) Write(p []byte) (int, error) {
	n, err := t.primary.Write(p)
	if err != nil {
		return n, err
	}
	for _, side := range t.sides {
		if _, sideErr := side.Write(p[:n]); sideErr != nil {
			return n, sideErr
		}
	}
	return n, nil
}

// PipeStream connects a producer and a consumer through an in-process
// io.Pipe, exposed with the Stream capability surface so it can be
// enqueued into the archive pipeline like any other byte source.
type PipeStream struct {
	r *io.PipeReader
	w *io.PipeWriter
}

// NewPipeStream returns the reader half of an io.Pipe together with the
// writer half a producer goroutine should feed.
func NewPipeStream() (*PipeStream, *io.PipeWriter) {
	r, w := io.Pipe()
	return &PipeStream{r: r, w: w}, w
}

func (p *PipeStream) Read(b []byte) (int, error) { return p.r.Read(b) }
func (p *PipeStream) CanRead() bool               { return true }
func (p *PipeStream) CanWrite() bool              { return false }
func (p *PipeStream) CanSeek() bool               { return false }
func (p *PipeStream) IsOpen() bool                { return true }
func (p *PipeStream) Size() int64                 { return -1 }
func (p *PipeStream) Close() error                { return p.r.Close() }
