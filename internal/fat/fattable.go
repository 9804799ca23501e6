package fat

import (
	"encoding/binary"
	"fmt"

	"github.com/orcforensics/dfir-orc-go/internal/volume"
)

// Cluster-marker sentinels, variant-specific widths handled by Table's
// methods rather than exposed as raw constants to callers.
const (
	clusterFree = 0
)

// Table wraps a volume.Reader and a BootParams to resolve the active FAT's
// next-cluster links, reading sector-by-sector and caching nothing beyond
// the current sector (mirrors the teacher's single-sector "window" idiom
// used throughout its disk/registry readers, rather than loading the
// whole FAT into memory for multi-gigabyte volumes).
type Table struct {
	vol    volume.Reader
	params BootParams

	cachedSector uint32
	haveCache    bool
	sectorBuf    []byte
}

// NewTable builds a FAT table reader over vol using the active (first)
// FAT copy.
func NewTable(vol volume.Reader, params BootParams) *Table {
	return &Table{vol: vol, params: params}
}

func (t *Table) readSector(sector uint32) ([]byte, error) {
	if t.haveCache && t.cachedSector == sector {
		return t.sectorBuf, nil
	}
	clusterSize := t.params.ClusterSize()
	sectorsPerCluster := uint32(t.params.SectorsPerCluster)
	lcn := uint64(sector) / uint64(sectorsPerCluster)
	buf, err := t.vol.ReadAt(lcn, sectorsPerCluster)
	if err != nil {
		return nil, err
	}
	within := (sector % sectorsPerCluster) * uint32(t.params.BytesPerSector)
	if within+uint32(t.params.BytesPerSector) > uint32(len(buf)) {
		return nil, fmt.Errorf("fat: short sector read at sector %d", sector)
	}
	_ = clusterSize
	t.sectorBuf = buf[within : within+uint32(t.params.BytesPerSector)]
	t.cachedSector = sector
	t.haveCache = true
	return t.sectorBuf, nil
}

// Next returns the cluster that follows cluster in the chain, and whether
// it denotes end-of-chain.
func (t *Table) Next(cluster uint32) (next uint32, eoc bool, err error) {
	switch t.params.Variant {
	case VariantFAT12:
		return t.next12(cluster)
	case VariantFAT16:
		return t.next16(cluster)
	case VariantFAT32, VariantExFAT:
		return t.next32(cluster)
	default:
		return 0, true, fmt.Errorf("fat: unsupported variant %v", t.params.Variant)
	}
}

func (t *Table) next12(cluster uint32) (uint32, bool, error) {
	byteOffset := cluster + cluster/2
	sector := t.params.FirstFATSector + byteOffset/uint32(t.params.BytesPerSector)
	within := byteOffset % uint32(t.params.BytesPerSector)

	buf, err := t.readSector(sector)
	if err != nil {
		return 0, true, err
	}
	var lo, hi byte
	lo = buf[within]
	if within+1 < uint32(len(buf)) {
		hi = buf[within+1]
	} else {
		nextBuf, err := t.readSector(sector + 1)
		if err != nil {
			return 0, true, err
		}
		hi = nextBuf[0]
	}
	entry := uint16(lo) | uint16(hi)<<8
	if cluster&1 == 1 {
		entry >>= 4
	} else {
		entry &= 0x0FFF
	}
	return uint32(entry), entry >= 0x0FF8, nil
}

func (t *Table) next16(cluster uint32) (uint32, bool, error) {
	byteOffset := cluster * 2
	sector := t.params.FirstFATSector + byteOffset/uint32(t.params.BytesPerSector)
	within := byteOffset % uint32(t.params.BytesPerSector)

	buf, err := t.readSector(sector)
	if err != nil {
		return 0, true, err
	}
	entry := binary.LittleEndian.Uint16(buf[within : within+2])
	return uint32(entry), entry >= 0xFFF8, nil
}

func (t *Table) next32(cluster uint32) (uint32, bool, error) {
	byteOffset := cluster * 4
	sector := t.params.FirstFATSector + byteOffset/uint32(t.params.BytesPerSector)
	within := byteOffset % uint32(t.params.BytesPerSector)

	buf, err := t.readSector(sector)
	if err != nil {
		return 0, true, err
	}
	entry := binary.LittleEndian.Uint32(buf[within:within+4]) & 0x0FFFFFFF
	return entry, entry >= 0x0FFFFFF8, nil
}

// maxChainLength bounds cluster-chain walks so a cross-linked or cyclic
// chain halts the specific file being read rather than looping forever,
// per spec.md 4.4.
const maxChainLength = 16 * 1024 * 1024

// ErrCrossLinkedChain is returned when Chain detects a cluster repeated
// within a single file's chain.
var ErrCrossLinkedChain = fmt.Errorf("fat: cross-linked or cyclic cluster chain")

// Chain follows the cluster chain starting at startCluster and returns
// every cluster number in order, stopping at end-of-chain. A
// cross-linked chain returns the clusters successfully walked so far
// plus ErrCrossLinkedChain, so the caller can still recover a partial
// file (matching spec.md's "halt the specific file, logged" posture); a
// failed FAT read likewise returns the clusters walked so far, with the
// read error.
func (t *Table) Chain(startCluster uint32) ([]uint32, error) {
	seen := make(map[uint32]bool)
	var clusters []uint32
	cur := startCluster

	for i := 0; i < maxChainLength; i++ {
		if cur < 2 {
			break
		}
		if seen[cur] {
			return clusters, ErrCrossLinkedChain
		}
		seen[cur] = true
		clusters = append(clusters, cur)

		next, eoc, err := t.Next(cur)
		if err != nil {
			return clusters, err
		}
		if eoc || next == clusterFree {
			break
		}
		cur = next
	}
	return clusters, nil
}
