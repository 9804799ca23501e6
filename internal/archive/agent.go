package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/tklauser/go-sysconf"
	"github.com/tklauser/numcpus"

	"github.com/orcforensics/dfir-orc-go/internal/bytestream"
	"github.com/orcforensics/dfir-orc-go/internal/sample"
)

// DefaultChannelCapacity is the agent's default bounded queue depth
// (spec.md 4.9: "a bounded channel (default capacity 8)").
const DefaultChannelCapacity = 8

// DefaultConcurrency reports a default worker count for volume
// traversal (spec.md 5: "each volume traversal runs on its own worker,
// multiple may run concurrently"); cmd/orc does not call it and starts
// one traversal worker per volume. It prefers the online processor count from
// tklauser/go-sysconf's POSIX sysconf(3) binding, falling back to
// tklauser/numcpus, and finally to 1 if both fail - which happens on
// Windows, where neither syscall exists, so this is mostly exercised
// on the cross-platform parts of the pipeline (CSV/zip/hash tee) that
// don't require an NTFS-capable host to test.
func DefaultConcurrency() int {
	if n, err := sysconf.Sysconf(sysconf.SC_NPROCESSORS_ONLN); err == nil && n > 0 {
		return int(n)
	}
	if n, err := numcpus.GetOnline(); err == nil && n > 0 {
		return n
	}
	return 1
}

// Agent is the single worker described by spec.md 4.9 and 5: it owns
// the one open output archive and CSV index, reading Items off a
// bounded channel and writing them one at a time, so archive mutation
// is never contended even though many volume traversals enqueue
// concurrently.
type Agent struct {
	codec Codec
	sinks []IndexSink
	queue chan *Item

	logger *log.Logger

	mu       sync.RWMutex
	draining bool
	aborted  bool
}

// NewAgent creates an Agent writing through codec and indexing through
// sinks (at least the CSV index; a Postgres mirror may also be
// attached). capacity <= 0 uses DefaultChannelCapacity.
func NewAgent(codec Codec, logger *log.Logger, capacity int, sinks ...IndexSink) *Agent {
	if capacity <= 0 {
		capacity = DefaultChannelCapacity
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Agent{
		codec:  codec,
		sinks:  sinks,
		queue:  make(chan *Item, capacity),
		logger: logger,
	}
}

// ErrQueueClosed is returned by Enqueue once the agent has begun
// draining or has hard-aborted.
var ErrQueueClosed = errors.New("archive: agent is no longer accepting items")

// Enqueue submits it for archiving. It blocks when the channel is full
// (spec.md 5's back-pressure contract) and returns ErrQueueClosed if
// the agent is shutting down, in which case the caller should treat it
// as it.Done(Result{Status: StatusCancelled}).
// Enqueue holds a read lock for the duration of the send so it can
// never race Shutdown's close(a.queue): Shutdown takes the write lock,
// which waits for every in-flight Enqueue to finish first.
func (a *Agent) Enqueue(ctx context.Context, it *Item) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.draining || a.aborted {
		it.complete(Result{Status: StatusCancelled, Reason: "agent shutting down"})
		return ErrQueueClosed
	}
	select {
	case a.queue <- it:
		return nil
	case <-ctx.Done():
		it.complete(Result{Status: StatusCancelled, Reason: ctx.Err().Error()})
		return ctx.Err()
	}
}

// Shutdown stops Enqueue from accepting new items and closes the
// queue, letting Run drain whatever is already in flight to completion
// (spec.md 5: "shutdown drains the queue: in-flight items complete,
// newly enqueued items are rejected").
func (a *Agent) Shutdown() {
	a.mu.Lock()
	if !a.draining && !a.aborted {
		a.draining = true
		close(a.queue)
	}
	a.mu.Unlock()
}

// Run consumes the queue until it is closed (via Shutdown) or ctx is
// cancelled, processing one Item at a time. It returns once the queue
// is drained (normal shutdown) or once a codec-fatal failure has
// hard-aborted the pipeline.
func (a *Agent) Run(ctx context.Context) error {
	for {
		select {
		case it, ok := <-a.queue:
			if !ok {
				return nil
			}
			if err := a.process(ctx, it); err != nil {
				a.hardAbort(err)
				return err
			}
		case <-ctx.Done():
			a.hardAbort(ctx.Err())
			return ctx.Err()
		}
	}
}

// hardAbort closes the archive with whatever has been written and
// fires every still-queued callback as aborted (spec.md 4.9).
func (a *Agent) hardAbort(cause error) {
	a.mu.Lock()
	if a.aborted {
		a.mu.Unlock()
		return
	}
	a.aborted = true
	a.mu.Unlock()

	a.logger.Printf("archive: hard-aborting pipeline: %v", cause)
	_ = a.codec.Close()
	for _, sink := range a.sinks {
		_ = sink.Close()
	}

	a.mu.Lock()
	a.draining = true
	a.mu.Unlock()
	for {
		select {
		case it, ok := <-a.queue:
			if !ok {
				return
			}
			it.complete(Result{Status: StatusAborted, Reason: cause.Error()})
		default:
			return
		}
	}
}

// process runs one Item through the codec, tees its content through
// any requested hashers, writes the CSV (and any other sink's) row,
// and invokes the item's completion callback - spec.md 4.9's full
// per-item cycle.
func (a *Agent) process(ctx context.Context, it *Item) error {
	row := IndexRow{
		ComputerName:     it.ComputerName,
		ParentFRN:        it.ParentFRN,
		FRN:              it.FRN,
		FullPath:         it.FullPath,
		Size:             it.Size,
		RuleID:           it.RuleID,
		CreationTime:     it.CreationTime,
		LastModifiedTime: it.LastModifiedTime,
		LastAccessTime:   it.LastAccessTime,
		MFTChangeTime:    it.MFTChangeTime,
		ArchiveName:      it.ArchiveName,
	}
	if it.SnapshotGUID != nil {
		row.SnapshotGUID = it.SnapshotGUID.String()
	}
	row.VolumeSerial = fmt.Sprintf("%d", it.VolumeSerial)

	result := Result{Status: StatusOK, Hashes: map[string]string{}}

	if it.Open == nil {
		row.Status = StatusSkipped.String()
		result.Status = StatusSkipped
		return a.finish(ctx, row, result, it)
	}

	src, err := it.Open()
	if err != nil {
		row.Status = StatusFailed.String()
		result.Status = StatusFailed
		result.Reason = err.Error()
		a.logger.Printf("archive: open failed for %s: %v", it.FullPath, err)
		return a.finish(ctx, row, result, it)
	}
	defer src.Close()

	dst, err := a.codec.CreateEntry(it.ArchiveName)
	if err != nil {
		return fmt.Errorf("archive: create entry %s: %w", it.ArchiveName, err)
	}

	hashers := make([]sample.Hasher, 0, len(it.HashAlgorithms))
	sinks := make([]io.Writer, 0, len(it.HashAlgorithms))
	for _, alg := range it.HashAlgorithms {
		h, err := sample.NewHasher(alg)
		if err != nil {
			a.logger.Printf("archive: skipping unknown hash algorithm %q for %s: %v", alg, it.FullPath, err)
			continue
		}
		hashers = append(hashers, h)
		sinks = append(sinks, hasherStream{h})
	}

	tee := bytestream.NewTeeWriter(dst, sinks...)
	if _, err := io.Copy(tee, src); err != nil {
		row.Status = StatusFailed.String()
		result.Status = StatusFailed
		result.Reason = err.Error()
		a.logger.Printf("archive: content read failed for %s: %v", it.FullPath, err)
		_ = a.codec.CloseEntry()
		return a.finish(ctx, row, result, it)
	}

	if err := a.codec.CloseEntry(); err != nil {
		var fatal ErrCodecFatal
		if errors.As(err, &fatal) {
			return err
		}
		row.Status = StatusFailed.String()
		result.Status = StatusFailed
		result.Reason = err.Error()
		return a.finish(ctx, row, result, it)
	}

	for _, h := range hashers {
		result.Hashes[h.Algorithm()] = h.SumHex()
		switch h.Algorithm() {
		case "MD5":
			row.MD5 = h.SumHex()
		case "SHA1":
			row.SHA1 = h.SumHex()
		case "SHA256":
			row.SHA256 = h.SumHex()
		case "SSDeep":
			row.SSDeep = h.SumHex()
		case "TLSH":
			row.TLSH = h.SumHex()
		}
	}
	row.Status = StatusOK.String()
	return a.finish(ctx, row, result, it)
}

func (a *Agent) finish(ctx context.Context, row IndexRow, result Result, it *Item) error {
	for _, sink := range a.sinks {
		if err := sink.WriteRow(ctx, row); err != nil {
			a.logger.Printf("archive: index sink write failed for %s: %v", it.FullPath, err)
		}
	}
	it.complete(result)
	return nil
}

// hasherStream adapts a sample.Hasher to bytestream.Stream's Write-only
// surface for use as a TeeWriter side sink.
type hasherStream struct{ h sample.Hasher }

func (s hasherStream) Write(p []byte) (int, error) { return s.h.Write(p) }
