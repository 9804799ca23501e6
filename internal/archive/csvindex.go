package archive

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/pgzip"
)

// IndexRow is one row of the archive index CSV, column order matching
// spec.md 6's schema exactly.
type IndexRow struct {
	ComputerName     string
	VolumeSerial     string
	SnapshotGUID     string
	ParentFRN        string
	FRN              string
	FullPath         string
	Size             int64
	MD5              string
	SHA1             string
	SHA256           string
	SSDeep           string
	TLSH             string
	RuleID           string
	CreationTime     time.Time
	LastModifiedTime time.Time
	LastAccessTime   time.Time
	MFTChangeTime    time.Time
	ArchiveName      string
	Status           string
}

var csvHeader = []string{
	"ComputerName", "VolumeSerial", "SnapshotGuid", "ParentFRN", "FRN",
	"FullPath", "Size", "MD5", "SHA1", "SHA256", "SSDeep", "TLSH", "RuleId",
	"CreationTime", "LastModifiedTime", "LastAccessTime", "MFTChangeTime",
	"ArchiveName", "Status",
}

func (r IndexRow) record() []string {
	ft := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339Nano)
	}
	return []string{
		r.ComputerName, r.VolumeSerial, r.SnapshotGUID, r.ParentFRN, r.FRN,
		r.FullPath, fmt.Sprintf("%d", r.Size), r.MD5, r.SHA1, r.SHA256,
		r.SSDeep, r.TLSH, r.RuleID,
		ft(r.CreationTime), ft(r.LastModifiedTime), ft(r.LastAccessTime), ft(r.MFTChangeTime),
		r.ArchiveName, r.Status,
	}
}

// IndexSink receives one IndexRow per archive item, in archive-write
// order. Multiple sinks can be attached to one Agent (spec.md 4.9's CSV
// plus SPEC_FULL.md 11's optional Postgres mirror).
type IndexSink interface {
	WriteRow(ctx context.Context, row IndexRow) error
	Close() error
}

// CSVIndex is the archive index's source of truth (spec.md 6): a plain
// CSV writer, optionally wrapped in a gzip sidecar for large runs.
type CSVIndex struct {
	w      *csv.Writer
	closer io.Closer
}

// NewCSVIndex writes an uncompressed CSV index to out (not closed by
// this CSVIndex - the caller owns out's lifetime).
func NewCSVIndex(out io.Writer) (*CSVIndex, error) {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("archive: write csv header: %w", err)
	}
	w.Flush()
	return &CSVIndex{w: w}, nil
}

// NewGzipCSVIndex wraps out in a parallel gzip writer (klauspost/pgzip,
// the same library distr1-distri uses for its initramfs image) before
// writing the CSV through it, for callers who want a compressed index
// sidecar alongside the archive itself.
func NewGzipCSVIndex(out io.WriteCloser) (*CSVIndex, error) {
	zw := pgzip.NewWriter(out)
	w := csv.NewWriter(zw)
	if err := w.Write(csvHeader); err != nil {
		zw.Close()
		return nil, fmt.Errorf("archive: write gzip csv header: %w", err)
	}
	w.Flush()
	return &CSVIndex{w: w, closer: zw}, nil
}

func (c *CSVIndex) WriteRow(_ context.Context, row IndexRow) error {
	if err := c.w.Write(row.record()); err != nil {
		return fmt.Errorf("archive: write csv row: %w", err)
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVIndex) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return err
	}
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

var _ IndexSink = (*CSVIndex)(nil)
