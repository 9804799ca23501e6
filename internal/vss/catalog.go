// Package vss implements the Volume Shadow Copy catalog parser (C6):
// reading the in-band VSS catalog, diff-area tables, and bitmaps to
// expose historical snapshots as additional volume.Reader instances.
package vss

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orcforensics/dfir-orc-go/internal/volume"
)

// BlockSize is the fixed size of every catalog block, per spec.md 4.6.
const BlockSize = 16384

const (
	entrySize       = 128
	headerSize      = 128
	entriesPerBlock = (BlockSize - headerSize) / entrySize
)

// BlockType discriminates a catalog block's role.
type BlockType uint32

const (
	BlockCatalog              BlockType = 0
	BlockDiffAreaTable        BlockType = 1
	BlockDiffAreaLocationTable BlockType = 2
	BlockBitmap               BlockType = 3
)

// EntryType discriminates a catalog entry within a catalog block, keyed
// by its first 4 bytes per spec.md 4.6.
type EntryType uint32

const (
	EntryEndOfCatalog EntryType = 0
	EntryFree         EntryType = 1
	EntrySnapshotInfo EntryType = 2
	EntryDiffAreaInfo EntryType = 3
)

// ErrMisalignedBlock is returned when a block's next-offset (or a
// diff-area sub-block offset) is not 16384-aligned, which spec.md 4.6
// treats as corruption serious enough to abort catalog parsing entirely.
var ErrMisalignedBlock = errors.New("vss: catalog sub-block offset not 16384-aligned")

// ErrShortBlock is returned when fewer than BlockSize bytes are available
// to parse a block.
var ErrShortBlock = errors.New("vss: catalog block truncated")

// BlockHeader is the 128-byte header prefixing every catalog block.
type BlockHeader struct {
	Signature      uint64
	Type           BlockType
	RelativeOffset int64
	CurrentOffset  int64
	NextOffset     int64
}

// CatalogSignature is the expected 8-byte signature ("VSS identifier",
// the concrete byte value is vendor-documented). Only FindCatalogStart
// compares against it; ParseBlockHeader decodes the field without
// checking it.
const CatalogSignature uint64 = 0x6b870d10

// SnapshotInfo is a decoded snapshot-info catalog entry.
type SnapshotInfo struct {
	Size          uint64
	GUID          uuid.UUID
	StackPosition uint64
	Flags         uint64
	CreationTime  time.Time
}

// DiffAreaInfo is a decoded diff-area-info catalog entry.
type DiffAreaInfo struct {
	FirstDiffTableOffset   int64
	SnapshotGUID           uuid.UUID
	ApplicationInfoOffset  int64
	DiffLocationTableOffset int64
	BitmapOffset           int64
	FRN                    uint64
	AllocatedSize          uint64
	PreviousBitmapOffset   int64
}

// ParseBlockHeader decodes the 128-byte header at the start of buf.
func ParseBlockHeader(buf []byte) (BlockHeader, error) {
	if len(buf) < headerSize {
		return BlockHeader{}, ErrShortBlock
	}
	var h BlockHeader
	h.Signature = binary.LittleEndian.Uint64(buf[0:8])
	h.Type = BlockType(binary.LittleEndian.Uint32(buf[8:12]))
	h.RelativeOffset = int64(binary.LittleEndian.Uint64(buf[16:24]))
	h.CurrentOffset = int64(binary.LittleEndian.Uint64(buf[24:32]))
	h.NextOffset = int64(binary.LittleEndian.Uint64(buf[32:40]))
	if h.NextOffset != 0 && h.NextOffset%BlockSize != 0 {
		return h, ErrMisalignedBlock
	}
	return h, nil
}

// ParseCatalogBlock decodes a full 16384-byte catalog block into its
// header plus typed entries (only snapshot-info and diff-area-info
// entries are returned; free and end-of-catalog entries stop the scan
// or are skipped, matching spec.md 4.6's entry discrimination).
func ParseCatalogBlock(buf []byte) (BlockHeader, []SnapshotInfo, []DiffAreaInfo, error) {
	if len(buf) < BlockSize {
		return BlockHeader{}, nil, nil, ErrShortBlock
	}
	header, err := ParseBlockHeader(buf)
	if err != nil {
		return header, nil, nil, err
	}

	var snapshots []SnapshotInfo
	var diffAreas []DiffAreaInfo

	for i := 0; i < entriesPerBlock; i++ {
		off := headerSize + i*entrySize
		entry := buf[off : off+entrySize]
		entryType := EntryType(binary.LittleEndian.Uint32(entry[0:4]))

		switch entryType {
		case EntryEndOfCatalog:
			return header, snapshots, diffAreas, nil
		case EntryFree:
			continue
		case EntrySnapshotInfo:
			si, err := decodeSnapshotInfo(entry)
			if err != nil {
				return header, snapshots, diffAreas, fmt.Errorf("vss: entry %d: %w", i, err)
			}
			snapshots = append(snapshots, si)
		case EntryDiffAreaInfo:
			di, err := decodeDiffAreaInfo(entry)
			if err != nil {
				return header, snapshots, diffAreas, fmt.Errorf("vss: entry %d: %w", i, err)
			}
			diffAreas = append(diffAreas, di)
		default:
			// Unknown entry types are tolerated and skipped; only
			// misaligned sub-block offsets are treated as fatal
			// corruption, per spec.md 4.6.
			continue
		}
	}
	return header, snapshots, diffAreas, nil
}

func decodeSnapshotInfo(entry []byte) (SnapshotInfo, error) {
	if len(entry) < 56 {
		return SnapshotInfo{}, ErrShortBlock
	}
	var si SnapshotInfo
	si.Size = binary.LittleEndian.Uint64(entry[8:16])
	guidBytes := entry[16:32]
	g, err := uuid.FromBytes(reverseGUIDByteOrder(guidBytes))
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("vss: snapshot guid: %w", err)
	}
	si.GUID = g
	si.StackPosition = binary.LittleEndian.Uint64(entry[32:40])
	si.Flags = binary.LittleEndian.Uint64(entry[40:48])
	si.CreationTime = filetimeToTime(binary.LittleEndian.Uint64(entry[48:56]))
	return si, nil
}

func decodeDiffAreaInfo(entry []byte) (DiffAreaInfo, error) {
	if len(entry) < 88 {
		return DiffAreaInfo{}, ErrShortBlock
	}
	var di DiffAreaInfo
	di.FirstDiffTableOffset = int64(binary.LittleEndian.Uint64(entry[8:16]))
	g, err := uuid.FromBytes(reverseGUIDByteOrder(entry[16:32]))
	if err != nil {
		return DiffAreaInfo{}, fmt.Errorf("vss: diff-area guid: %w", err)
	}
	di.SnapshotGUID = g
	di.ApplicationInfoOffset = int64(binary.LittleEndian.Uint64(entry[32:40]))
	di.DiffLocationTableOffset = int64(binary.LittleEndian.Uint64(entry[40:48]))
	di.BitmapOffset = int64(binary.LittleEndian.Uint64(entry[48:56]))
	di.FRN = binary.LittleEndian.Uint64(entry[56:64])
	di.AllocatedSize = binary.LittleEndian.Uint64(entry[64:72])
	di.PreviousBitmapOffset = int64(binary.LittleEndian.Uint64(entry[72:80]))

	if di.DiffLocationTableOffset != 0 && di.DiffLocationTableOffset%BlockSize != 0 {
		return di, ErrMisalignedBlock
	}
	if di.BitmapOffset != 0 && di.BitmapOffset%BlockSize != 0 {
		return di, ErrMisalignedBlock
	}
	return di, nil
}

// maxCatalogScanBlocks bounds how far FindCatalogStart scans looking for
// a catalog signature before giving up, per spec.md 4.6's fallback
// discovery path ("or by scanning unallocated regions for the signature
// ... header"). 65536 blocks * 16384 bytes covers 1 GiB, comfortably more
// than any real VSS catalog needs to be found within from its expected
// location near the start of unallocated space.
const maxCatalogScanBlocks = 65536

// ErrCatalogNotFound is returned by FindCatalogStart when no
// 16384-aligned block within the scan window carries CatalogSignature.
var ErrCatalogNotFound = errors.New("vss: no VSS catalog signature found")

// FindCatalogStart scans vol for the first 16384-aligned block whose
// header carries CatalogSignature, starting at startOffset (itself
// 16384-aligned). This is the fallback discovery path spec.md 4.6
// describes for volumes where the catalog's System Volume Information
// file path cannot be resolved directly.
func FindCatalogStart(vol volume.Reader, startOffset int64) (int64, error) {
	if startOffset%BlockSize != 0 {
		return 0, ErrMisalignedBlock
	}
	geom := vol.Geometry()
	clusterSize := uint64(geom.ClusterSize)
	if clusterSize == 0 {
		return 0, fmt.Errorf("vss: volume has zero cluster size")
	}
	sectorsNeeded := uint32((BlockSize + uint64(geom.SectorSize) - 1) / uint64(geom.SectorSize))

	offset := startOffset
	for i := 0; i < maxCatalogScanBlocks; i++ {
		lcn := uint64(offset) / clusterSize
		buf, err := vol.ReadAt(lcn, sectorsNeeded)
		if err != nil {
			return 0, fmt.Errorf("vss: scan read at %d: %w", offset, err)
		}
		within := uint64(offset) % clusterSize
		if within+8 <= uint64(len(buf)) {
			sig := binary.LittleEndian.Uint64(buf[within : within+8])
			if sig == CatalogSignature {
				return offset, nil
			}
		}
		offset += BlockSize
	}
	return 0, ErrCatalogNotFound
}

// reverseGUIDByteOrder converts a little-endian-encoded Windows GUID (the
// on-disk form: 3 little-endian integer fields followed by 8 big-endian
// bytes) into the byte order uuid.FromBytes expects (RFC 4122 big-endian
// throughout).
func reverseGUIDByteOrder(b []byte) []byte {
	out := make([]byte, 16)
	out[0], out[1], out[2], out[3] = b[3], b[2], b[1], b[0]
	out[4], out[5] = b[5], b[4]
	out[6], out[7] = b[7], b[6]
	copy(out[8:], b[8:16])
	return out
}

// filetimeToTime converts a Windows FILETIME (100ns intervals since
// 1601-01-01) to time.Time.
func filetimeToTime(ft uint64) time.Time {
	const epochDiff = 116444736000000000 // 1601-01-01 to 1970-01-01, in 100ns units
	if ft < epochDiff {
		return time.Time{}
	}
	unix100ns := int64(ft - epochDiff)
	return time.Unix(0, unix100ns*100).UTC()
}
