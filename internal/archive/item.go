// Package archive implements the archive pipeline (C9): a single agent
// owning one open output archive, fed by a bounded channel of Items from
// however many volume traversals are running concurrently, per spec.md
// 4.9.
package archive

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome an Item's completion callback reports, per
// spec.md 4.9's "ok/failed(reason)/skipped" contract plus the two
// cancellation outcomes spec.md 5 adds.
type Status int

const (
	StatusOK Status = iota
	StatusFailed
	StatusSkipped
	StatusCancelled
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusCancelled:
		return "cancelled"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result is passed to an Item's Done callback once its CSV row has been
// written (spec.md 5: "completion callbacks are invoked after the CSV
// row for that item is written").
type Result struct {
	Status Status
	Reason string

	// Hashes, keyed by algorithm name ("MD5", "SHA1", "SHA256",
	// "SSDeep", "TLSH"), populated from whichever of Item.HashAlgorithms
	// actually ran to completion before Status was decided.
	Hashes map[string]string
}

// Item is one unit of archive work: either a sample the sample engine
// (C8) matched, or the system-inventory preamble document (C11) - both
// go through the same enqueue/begin-entry/pump/close/index/callback
// cycle.
type Item struct {
	ComputerName string
	VolumeSerial uint64
	SnapshotGUID *uuid.UUID
	ParentFRN    string
	FRN          string
	FullPath     string
	Size         int64
	RuleID       string

	CreationTime     time.Time
	LastModifiedTime time.Time
	LastAccessTime   time.Time
	MFTChangeTime    time.Time

	// ArchiveName is the entry name this item is stored under inside the
	// output archive; also the CSV index's ArchiveName column.
	ArchiveName string

	// HashAlgorithms lists which digests to tee alongside compression,
	// by name, matching Result.Hashes's keys.
	HashAlgorithms []string

	// Open lazily opens this item's content. A nil Open means
	// metadata-only (spec.md 4.8's content action): no archive entry is
	// created, only a CSV row.
	Open func() (io.ReadCloser, error)

	// Done is called exactly once, after the CSV (and any other index
	// sink's) row has been written.
	Done func(Result)
}

func (it *Item) complete(r Result) {
	if it.Done != nil {
		it.Done(r)
	}
}
