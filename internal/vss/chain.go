package vss

import (
	"fmt"

	"github.com/orcforensics/dfir-orc-go/internal/volume"
)

// maxCatalogBlocks bounds the catalog chain walk against a cyclic
// next-offset pointer; 16384-byte blocks mean this allows scanning up to
// roughly 16 GiB of catalog chain, far more than any real VSS catalog.
const maxCatalogBlocks = 1_000_000

// Catalog is the fully walked VSS catalog for one volume: every
// snapshot-info and diff-area-info entry found across the block chain.
type Catalog struct {
	Snapshots []SnapshotInfo
	DiffAreas []DiffAreaInfo
}

// ReadCatalog walks the catalog block chain starting at startOffset
// (byte offset into vol, must be 16384-aligned), reading blocks through
// vol until next-offset is 0. A misaligned sub-block offset anywhere in
// the chain aborts the whole parse, per spec.md 4.6, returning whatever
// was accumulated so the caller can fall back to OS-provided shadow
// enumeration.
func ReadCatalog(vol volume.Reader, startOffset int64) (Catalog, error) {
	var cat Catalog
	if startOffset%BlockSize != 0 {
		return cat, ErrMisalignedBlock
	}

	geom := vol.Geometry()
	clusterSize := uint64(geom.ClusterSize)
	if clusterSize == 0 {
		return cat, fmt.Errorf("vss: volume has zero cluster size")
	}

	offset := startOffset
	for i := 0; i < maxCatalogBlocks; i++ {
		lcn := uint64(offset) / clusterSize
		sectorsNeeded := uint32((BlockSize + uint64(geom.SectorSize) - 1) / uint64(geom.SectorSize))
		buf, err := vol.ReadAt(lcn, sectorsNeeded)
		if err != nil {
			return cat, fmt.Errorf("vss: read catalog block at %d: %w", offset, err)
		}
		within := uint64(offset) % clusterSize
		if within+BlockSize > uint64(len(buf)) {
			return cat, ErrShortBlock
		}
		block := buf[within : within+BlockSize]

		header, snapshots, diffAreas, err := ParseCatalogBlock(block)
		if err != nil {
			return cat, err
		}
		cat.Snapshots = append(cat.Snapshots, snapshots...)
		cat.DiffAreas = append(cat.DiffAreas, diffAreas...)

		if header.NextOffset == 0 {
			break
		}
		offset = header.NextOffset
	}
	return cat, nil
}
