package vss

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/orcforensics/dfir-orc-go/internal/volume"
)

// LocationEntry maps one diff-area-relocated block: a read at Offset
// (relative to the live volume) must instead be satisfied from the
// diff-area container at DataRelativeOffset, for Size bytes.
type LocationEntry struct {
	Offset             uint64
	DataRelativeOffset uint64
	Size               uint64
}

const locationEntrySize = 24

// ErrShortLocationEntry is returned when fewer than 24 bytes remain for a
// location-table entry.
var ErrShortLocationEntry = errors.New("vss: truncated diff-area location entry")

// ParseLocationTableBlock decodes one diff-area-location-table block's
// header and entries. The block shares the same 128-byte node-style
// header as catalog blocks (signature/type/relative/current/next), with
// 24-byte location entries packed after it rather than 128-byte catalog
// entries.
func ParseLocationTableBlock(buf []byte) (BlockHeader, []LocationEntry, error) {
	if len(buf) < BlockSize {
		return BlockHeader{}, nil, ErrShortBlock
	}
	header, err := ParseBlockHeader(buf)
	if err != nil {
		return header, nil, err
	}

	var entries []LocationEntry
	for off := headerSize; off+locationEntrySize <= BlockSize; off += locationEntrySize {
		raw := buf[off : off+locationEntrySize]
		// An all-zero entry marks the end of the in-use portion of this
		// block, mirroring the catalog's end-of-catalog convention.
		if allZero(raw) {
			break
		}
		entries = append(entries, LocationEntry{
			Offset:             binary.LittleEndian.Uint64(raw[0:8]),
			DataRelativeOffset: binary.LittleEndian.Uint64(raw[8:16]),
			Size:               binary.LittleEndian.Uint64(raw[16:24]),
		})
	}
	return header, entries, nil
}

func allZero(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}

// ReadLocationTable walks the diff-area-location-table block chain
// starting at startOffset (into the live volume), following next-offset
// exactly like ReadCatalog.
func ReadLocationTable(vol volume.Reader, startOffset int64) ([]LocationEntry, error) {
	if startOffset%BlockSize != 0 {
		return nil, ErrMisalignedBlock
	}
	geom := vol.Geometry()
	clusterSize := uint64(geom.ClusterSize)
	if clusterSize == 0 {
		return nil, fmt.Errorf("vss: volume has zero cluster size")
	}

	var all []LocationEntry
	offset := startOffset
	for i := 0; i < maxCatalogBlocks; i++ {
		lcn := uint64(offset) / clusterSize
		sectorsNeeded := uint32((BlockSize + uint64(geom.SectorSize) - 1) / uint64(geom.SectorSize))
		buf, err := vol.ReadAt(lcn, sectorsNeeded)
		if err != nil {
			return all, fmt.Errorf("vss: read location table block at %d: %w", offset, err)
		}
		within := uint64(offset) % clusterSize
		if within+BlockSize > uint64(len(buf)) {
			return all, ErrShortBlock
		}
		header, entries, err := ParseLocationTableBlock(buf[within : within+BlockSize])
		if err != nil {
			return all, err
		}
		all = append(all, entries...)
		if header.NextOffset == 0 {
			break
		}
		offset = header.NextOffset
	}
	return all, nil
}

// Resolve finds the location entry (if any) covering a read of length n
// starting at the live-volume offset, returning the matching diff-area
// data offset. If no entry covers the range, the read should fall
// through to the live volume unchanged.
func Resolve(entries []LocationEntry, offset uint64, n uint64) (dataOffset uint64, ok bool) {
	for _, e := range entries {
		if offset >= e.Offset && offset+n <= e.Offset+e.Size {
			return e.DataRelativeOffset + (offset - e.Offset), true
		}
	}
	return 0, false
}
