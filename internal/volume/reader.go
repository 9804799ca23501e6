// Package volume implements the sector-aligned block-I/O abstraction (C2)
// over the several backends a location can resolve to: a physical disk, a
// disk partition, a mounted-volume handle, a flat disk-image file, a
// Volume Shadow Copy view, or a BitLocker-decrypted view.
package volume

import (
	"errors"
	"fmt"

	"github.com/orcforensics/dfir-orc-go/internal/bytestream"
)

// FSType is the filesystem family detected from the boot sector.
type FSType int

const (
	FSUnknown FSType = iota
	FSNTFS
	FSFAT12
	FSFAT16
	FSFAT32
	FSExFAT
)

func (t FSType) String() string {
	switch t {
	case FSNTFS:
		return "NTFS"
	case FSFAT12:
		return "FAT12"
	case FSFAT16:
		return "FAT16"
	case FSFAT32:
		return "FAT32"
	case FSExFAT:
		return "exFAT"
	default:
		return "unknown"
	}
}

// Geometry is the triple every backend must agree on after LoadBootSector,
// per spec.md 4.2's invariant that all backends covering the same volume
// report the same sector/cluster/MFT layout.
type Geometry struct {
	SectorSize      uint32
	ClusterSize     uint32
	MFTStartLCN     uint64
	MFTRecordSize   uint32
	TotalSectors    uint64
	FSType          FSType
	Serial          uint64
}

// ErrOutOfRange is returned by backends that choose to error instead of
// truncate on out-of-bounds reads; the volume.Reader contract truncates by
// default, per spec.md 4.2.
var ErrOutOfRange = errors.New("volume: read beyond volume length")

// Reader is the uniform contract for sector-aligned I/O over one of the
// six backends named in spec.md 4.2. It deliberately looks like the
// teacher project's syscall-call-then-check-return pattern: no backend is
// safe for concurrent use, matching "the reader is single-threaded" (4.2).
type Reader interface {
	// LoadBootSector reads sector 0 (or the image's equivalent) and
	// populates Geometry. It must be called before ReadAt/Read.
	LoadBootSector() error

	// ReadAt reads sectors*SectorSize bytes starting at logical cluster
	// lcn. Reads that run past GetLength are truncated, never errored,
	// unless the reader is in strict (non-tolerant) mode and the
	// underlying medium itself faults.
	ReadAt(lcn uint64, sectors uint32) ([]byte, error)

	// Read/Seek operate at byte granularity, rounding internally to
	// whole sectors.
	bytestream.ReadSeeker

	GetLength() uint64
	GetSerial() uint64
	GetFSType() FSType
	Geometry() Geometry
}

// TolerantMode controls whether a damaged sector yields zeros (true) or
// propagates the I/O error (false), per the failure model in spec.md
// 4.2. The backends log nothing when they substitute zeros.
type TolerantMode bool

const (
	Strict   TolerantMode = false
	Tolerant TolerantMode = true
)

// Backend names the six device-path flavors a Location can resolve to.
type Backend int

const (
	BackendPhysical Backend = iota
	BackendPartition
	BackendMounted
	BackendImage
	BackendShadow
	BackendBitLocker
)

func (b Backend) String() string {
	switch b {
	case BackendPhysical:
		return "physical"
	case BackendPartition:
		return "partition"
	case BackendMounted:
		return "mounted"
	case BackendImage:
		return "image"
	case BackendShadow:
		return "shadow"
	case BackendBitLocker:
		return "bitlocker"
	default:
		return "unknown"
	}
}

// blockSourceReader is the common rounding/truncation logic shared by
// every concrete backend: each backend only has to supply readBytesAt,
// reading from an absolute byte offset on the underlying medium.
type blockSourceReader struct {
	geom        Geometry
	length      uint64
	pos         int64
	tolerant    TolerantMode
	closed      bool
	readBytesAt func(offset int64, n int) ([]byte, error)
}

func (r *blockSourceReader) IsOpen() bool { return !r.closed }

// ReadAt implements logical-cluster-addressed reads per spec.md 4.2:
// sectors*SectorSize bytes starting at cluster lcn.
func (r *blockSourceReader) ReadAt(lcn uint64, sectors uint32) ([]byte, error) {
	offset := int64(lcn) * int64(r.geom.ClusterSize)
	n := int(sectors) * int(r.geom.SectorSize)
	return r.readBytesAt(offset, n)
}

func (r *blockSourceReader) Read(p []byte) (int, error) {
	if r.geom.SectorSize == 0 {
		return 0, fmt.Errorf("volume: LoadBootSector not called")
	}
	if uint64(r.pos) >= r.length {
		return 0, nil // truncated per 4.2, not an error
	}
	sectorSize := int64(r.geom.SectorSize)
	startOffset := (r.pos / sectorSize) * sectorSize
	skip := r.pos - startOffset
	needed := skip + int64(len(p))
	roundedLen := int(((needed + sectorSize - 1) / sectorSize) * sectorSize)

	buf, err := r.readBytesAt(startOffset, roundedLen)
	if err != nil {
		return 0, err
	}
	if skip >= int64(len(buf)) {
		return 0, nil
	}
	n := copy(p, buf[skip:])
	r.pos += int64(n)
	return n, nil
}

func (r *blockSourceReader) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case bytestream.SeekStart:
		base = 0
	case bytestream.SeekCurrent:
		base = r.pos
	case bytestream.SeekEnd:
		base = int64(r.length)
	default:
		return 0, fmt.Errorf("volume: invalid whence %d", whence)
	}
	newPos := base + offset
	if newPos < 0 {
		return 0, fmt.Errorf("volume: negative seek position")
	}
	r.pos = newPos
	return r.pos, nil
}

func (r *blockSourceReader) CanRead() bool  { return true }
func (r *blockSourceReader) CanWrite() bool { return false }
func (r *blockSourceReader) CanSeek() bool  { return true }
func (r *blockSourceReader) GetLength() uint64   { return r.length }
func (r *blockSourceReader) GetSerial() uint64   { return r.geom.Serial }
func (r *blockSourceReader) GetFSType() FSType   { return r.geom.FSType }
func (r *blockSourceReader) Geometry() Geometry  { return r.geom }
func (r *blockSourceReader) Size() int64         { return int64(r.length) }
