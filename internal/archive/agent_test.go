package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
)

// memCodec is an in-memory Codec for tests, recording entry names and
// bodies instead of writing a real zip.
type memCodec struct {
	mu      sync.Mutex
	entries map[string][]byte
	cur     *bytes.Buffer
	curName string
	closed  bool
	failNew error
}

func newMemCodec() *memCodec { return &memCodec{entries: map[string][]byte{}} }

func (m *memCodec) CreateEntry(name string) (io.Writer, error) {
	if m.failNew != nil {
		return nil, ErrCodecFatal{Err: m.failNew}
	}
	m.cur = &bytes.Buffer{}
	m.curName = name
	return m.cur, nil
}

func (m *memCodec) CloseEntry() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != nil {
		m.entries[m.curName] = m.cur.Bytes()
		m.cur = nil
	}
	return nil
}

func (m *memCodec) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// memSink is an in-memory IndexSink for tests.
type memSink struct {
	mu   sync.Mutex
	rows []IndexRow
}

func (s *memSink) WriteRow(_ context.Context, row IndexRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return nil
}

func (s *memSink) Close() error { return nil }

func silentLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestAgentProcessesItemAndInvokesCallback(t *testing.T) {
	codec := newMemCodec()
	sink := &memSink{}
	agent := NewAgent(codec, silentLogger(), 2, sink)

	done := make(chan Result, 1)
	it := &Item{
		FullPath:       "C:/file.txt",
		ArchiveName:    "file.txt",
		HashAlgorithms: []string{"MD5", "SHA256"},
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte("hello"))), nil
		},
		Done: func(r Result) { done <- r },
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = agent.Run(ctx)
	}()

	if err := agent.Enqueue(ctx, it); err != nil {
		t.Fatal(err)
	}
	agent.Shutdown()
	wg.Wait()

	if runErr != nil {
		t.Fatalf("Run returned error: %v", runErr)
	}

	select {
	case r := <-done:
		if r.Status != StatusOK {
			t.Fatalf("expected StatusOK, got %v (%s)", r.Status, r.Reason)
		}
		if r.Hashes["MD5"] == "" || r.Hashes["SHA256"] == "" {
			t.Fatalf("expected both hashes populated, got %+v", r.Hashes)
		}
	default:
		t.Fatal("completion callback never fired")
	}

	if got := codec.entries["file.txt"]; string(got) != "hello" {
		t.Fatalf("expected archived content %q, got %q", "hello", got)
	}
	if len(sink.rows) != 1 || sink.rows[0].Status != "ok" {
		t.Fatalf("expected one ok row, got %+v", sink.rows)
	}
}

func TestAgentMetadataOnlyItemSkipsEntry(t *testing.T) {
	codec := newMemCodec()
	sink := &memSink{}
	agent := NewAgent(codec, silentLogger(), 1, sink)

	done := make(chan Result, 1)
	it := &Item{
		FullPath:    "C:/dir",
		ArchiveName: "dir",
		Done:        func(r Result) { done <- r },
	}

	ctx := context.Background()
	go agent.Run(ctx)
	if err := agent.Enqueue(ctx, it); err != nil {
		t.Fatal(err)
	}
	agent.Shutdown()

	r := <-done
	if r.Status != StatusSkipped {
		t.Fatalf("expected StatusSkipped for nil Open, got %v", r.Status)
	}
}

func TestAgentOpenFailureMarksFailedAndContinues(t *testing.T) {
	codec := newMemCodec()
	sink := &memSink{}
	agent := NewAgent(codec, silentLogger(), 2, sink)

	firstDone := make(chan Result, 1)
	secondDone := make(chan Result, 1)

	failing := &Item{
		FullPath:    "C:/bad",
		ArchiveName: "bad",
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("access denied")
		},
		Done: func(r Result) { firstDone <- r },
	}
	ok := &Item{
		FullPath:    "C:/good",
		ArchiveName: "good",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte("data"))), nil
		},
		Done: func(r Result) { secondDone <- r },
	}

	ctx := context.Background()
	go agent.Run(ctx)
	if err := agent.Enqueue(ctx, failing); err != nil {
		t.Fatal(err)
	}
	if err := agent.Enqueue(ctx, ok); err != nil {
		t.Fatal(err)
	}
	agent.Shutdown()

	r1 := <-firstDone
	if r1.Status != StatusFailed {
		t.Fatalf("expected StatusFailed for open error, got %v", r1.Status)
	}
	r2 := <-secondDone
	if r2.Status != StatusOK {
		t.Fatalf("expected pipeline to continue after a failed item, got %v", r2.Status)
	}
}

func TestAgentCodecFatalHardAborts(t *testing.T) {
	codec := newMemCodec()
	codec.failNew = errors.New("disk full")
	sink := &memSink{}
	agent := NewAgent(codec, silentLogger(), 4, sink)

	done := make(chan Result, 1)
	it := &Item{
		FullPath:    "C:/file",
		ArchiveName: "file",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte("x"))), nil
		},
		Done: func(r Result) { done <- r },
	}

	ctx := context.Background()
	runErr := make(chan error, 1)
	go func() { runErr <- agent.Run(ctx) }()

	if err := agent.Enqueue(ctx, it); err != nil {
		t.Fatal(err)
	}

	if err := <-runErr; err == nil {
		t.Fatal("expected Run to return the codec-fatal error")
	}

	if !codec.closed {
		t.Fatal("expected codec to be closed on hard abort")
	}

	if err := agent.Enqueue(ctx, it); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed after hard abort, got %v", err)
	}
}

func TestDefaultConcurrencyIsPositive(t *testing.T) {
	if DefaultConcurrency() < 1 {
		t.Fatal("expected at least one worker")
	}
}
