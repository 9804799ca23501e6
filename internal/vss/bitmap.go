package vss

import (
	"errors"
	"fmt"

	"github.com/orcforensics/dfir-orc-go/internal/volume"
)

// Bitmap tracks, one bit per volume cluster, whether a cluster has been
// overwritten since the snapshot was taken (bit set -> read from the
// diff area) or is unchanged (bit clear -> read from the live volume).
//
// Open Question decision: no bitmap-specific layout was present in the
// filtered original_source subset (only DiffAreaInfo's BitmapOffset
// field and DiffAreaLocationTableEntry's own layout were confirmed), so
// the one-bit-per-cluster, block-chained-like-the-catalog layout below
// is a reasoned assumption rather than a source-confirmed one: it
// mirrors the standard copy-on-write semantics VSS is documented to use
// and reuses the same 128-byte node-header-plus-payload shape already
// confirmed for catalog and location-table blocks.
type Bitmap struct {
	// FirstCluster is the volume cluster number the bitmap's first bit
	// corresponds to.
	FirstCluster uint64
	Bits         []byte
}

// ErrShortBitmapBlock is returned when a bitmap block is truncated.
var ErrShortBitmapBlock = errors.New("vss: truncated bitmap block")

// ParseBitmapBlock decodes one bitmap block: the standard 128-byte
// header, followed by payload bits filling the rest of the block.
func ParseBitmapBlock(buf []byte) (BlockHeader, []byte, error) {
	if len(buf) < BlockSize {
		return BlockHeader{}, nil, ErrShortBitmapBlock
	}
	header, err := ParseBlockHeader(buf)
	if err != nil {
		return header, nil, err
	}
	payload := make([]byte, BlockSize-headerSize)
	copy(payload, buf[headerSize:])
	return header, payload, nil
}

// ReadBitmap walks the bitmap block chain starting at startOffset,
// concatenating payload bits in block-chain order. firstCluster is the
// volume cluster number the very first bit represents, taken by the
// caller from the diff area's own bookkeeping (spec.md 4.6 does not
// otherwise surface this, so callers generally pass 0 and rely on
// IsOverwritten's bounds check).
func ReadBitmap(vol volume.Reader, startOffset int64, firstCluster uint64) (*Bitmap, error) {
	if startOffset%BlockSize != 0 {
		return nil, ErrMisalignedBlock
	}
	geom := vol.Geometry()
	clusterSize := uint64(geom.ClusterSize)
	if clusterSize == 0 {
		return nil, fmt.Errorf("vss: volume has zero cluster size")
	}

	bm := &Bitmap{FirstCluster: firstCluster}
	offset := startOffset
	for i := 0; i < maxCatalogBlocks; i++ {
		lcn := uint64(offset) / clusterSize
		sectorsNeeded := uint32((BlockSize + uint64(geom.SectorSize) - 1) / uint64(geom.SectorSize))
		buf, err := vol.ReadAt(lcn, sectorsNeeded)
		if err != nil {
			return bm, fmt.Errorf("vss: read bitmap block at %d: %w", offset, err)
		}
		within := uint64(offset) % clusterSize
		if within+BlockSize > uint64(len(buf)) {
			return bm, ErrShortBitmapBlock
		}
		header, payload, err := ParseBitmapBlock(buf[within : within+BlockSize])
		if err != nil {
			return bm, err
		}
		bm.Bits = append(bm.Bits, payload...)
		if header.NextOffset == 0 {
			break
		}
		offset = header.NextOffset
	}
	return bm, nil
}

// IsOverwritten reports whether the given volume cluster has been
// overwritten since the snapshot, per the bitmap. Clusters outside the
// bitmap's tracked range are reported unoverwritten (read the live
// volume), matching the conservative default spec.md 4.2 uses elsewhere
// for out-of-range reads.
func (b *Bitmap) IsOverwritten(cluster uint64) bool {
	if b == nil || cluster < b.FirstCluster {
		return false
	}
	idx := cluster - b.FirstCluster
	byteIdx := idx / 8
	if byteIdx >= uint64(len(b.Bits)) {
		return false
	}
	bitIdx := uint(idx % 8)
	return b.Bits[byteIdx]&(1<<bitIdx) != 0
}
