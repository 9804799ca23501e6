// Package fat implements the FAT12/16/32 and exFAT engine (C4): boot
// parameter block parsing, directory-entry and long-file-name decoding,
// and cluster-chain traversal.
package fat

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Variant distinguishes the on-disk FAT flavor; the cluster-chain walk and
// directory-entry layout differ enough between them that callers need to
// know which one they are looking at.
type Variant int

const (
	VariantUnknown Variant = iota
	VariantFAT12
	VariantFAT16
	VariantFAT32
	VariantExFAT
)

func (v Variant) String() string {
	switch v {
	case VariantFAT12:
		return "FAT12"
	case VariantFAT16:
		return "FAT16"
	case VariantFAT32:
		return "FAT32"
	case VariantExFAT:
		return "exFAT"
	default:
		return "unknown"
	}
}

// BootParams is the decoded BIOS Parameter Block, covering the fields
// spec.md 4.4 names for FAT12/16/32 (exFAT uses a structurally different
// BPB, see ParseExFATBootSector).
type BootParams struct {
	Variant          Variant
	BytesPerSector   uint16
	SectorsPerCluster uint8
	ReservedSectors  uint16
	NumFATs          uint8
	RootEntries      uint16
	TotalSectors     uint32
	SectorsPerFAT    uint32
	RootCluster      uint32 // FAT32/exFAT only

	FirstFATSector   uint32
	FirstRootSector  uint32 // FAT12/16 only, fixed-size root directory
	FirstDataSector  uint32
	RootDirSectors   uint32
	ClusterCount     uint32
}

// ErrInvalidBootSector is returned when the trailing 0x55AA signature is
// absent or mandatory fields are zero.
var ErrInvalidBootSector = errors.New("fat: invalid boot sector")

// ParseBootSector decodes a FAT12/16/32 boot sector (not exFAT, see
// ParseExFATBootSector) and derives the fixed sector-geography fields
// spec.md 4.4 lists, classifying the variant by cluster count per the
// Microsoft-documented rule (the only reliable test; never trust the
// filesystem-type string in the BPB).
func ParseBootSector(sector []byte) (BootParams, error) {
	if len(sector) < 512 || sector[510] != 0x55 || sector[511] != 0xAA {
		return BootParams{}, ErrInvalidBootSector
	}

	var p BootParams
	p.BytesPerSector = binary.LittleEndian.Uint16(sector[11:13])
	p.SectorsPerCluster = sector[13]
	p.ReservedSectors = binary.LittleEndian.Uint16(sector[14:16])
	p.NumFATs = sector[16]
	p.RootEntries = binary.LittleEndian.Uint16(sector[17:19])

	totalSectors16 := binary.LittleEndian.Uint16(sector[19:21])
	totalSectors32 := binary.LittleEndian.Uint32(sector[32:36])
	if totalSectors16 != 0 {
		p.TotalSectors = uint32(totalSectors16)
	} else {
		p.TotalSectors = totalSectors32
	}

	fatSize16 := binary.LittleEndian.Uint16(sector[22:24])
	if fatSize16 != 0 {
		p.SectorsPerFAT = uint32(fatSize16)
	} else {
		if len(sector) < 40 {
			return BootParams{}, ErrInvalidBootSector
		}
		p.SectorsPerFAT = binary.LittleEndian.Uint32(sector[36:40])
		p.RootCluster = binary.LittleEndian.Uint32(sector[44:48])
	}

	if p.BytesPerSector == 0 || p.SectorsPerCluster == 0 || p.NumFATs == 0 {
		return BootParams{}, ErrInvalidBootSector
	}

	p.RootDirSectors = (uint32(p.RootEntries)*32 + uint32(p.BytesPerSector) - 1) / uint32(p.BytesPerSector)
	p.FirstFATSector = uint32(p.ReservedSectors)
	p.FirstRootSector = p.FirstFATSector + uint32(p.NumFATs)*p.SectorsPerFAT
	p.FirstDataSector = p.FirstRootSector + p.RootDirSectors

	dataSectors := p.TotalSectors - p.FirstDataSector
	p.ClusterCount = dataSectors / uint32(p.SectorsPerCluster)

	switch {
	case p.ClusterCount < 4085:
		p.Variant = VariantFAT12
	case p.ClusterCount < 65525:
		p.Variant = VariantFAT16
	default:
		p.Variant = VariantFAT32
	}
	return p, nil
}

// ClusterSize returns the cluster size in bytes.
func (p BootParams) ClusterSize() uint32 {
	return uint32(p.BytesPerSector) * uint32(p.SectorsPerCluster)
}

// ClusterToSector converts a cluster number (>= 2) to its first sector in
// the data region.
func (p BootParams) ClusterToSector(cluster uint32) (uint32, error) {
	if cluster < 2 {
		return 0, fmt.Errorf("fat: invalid cluster number %d", cluster)
	}
	return p.FirstDataSector + (cluster-2)*uint32(p.SectorsPerCluster), nil
}

// ParseExFATBootSector decodes the structurally distinct exFAT BPB. exFAT
// keeps almost everything the same sector-geography math needs but moves
// fields to different offsets and replaces the 16-bit sector counts with
// always-32/64-bit ones.
func ParseExFATBootSector(sector []byte) (BootParams, error) {
	if len(sector) < 512 || sector[510] != 0x55 || sector[511] != 0xAA {
		return BootParams{}, ErrInvalidBootSector
	}
	if string(sector[3:11]) != "EXFAT   " {
		return BootParams{}, ErrInvalidBootSector
	}

	var p BootParams
	p.Variant = VariantExFAT
	fatOffset := binary.LittleEndian.Uint32(sector[80:84])
	fatLength := binary.LittleEndian.Uint32(sector[84:88])
	clusterHeapOffset := binary.LittleEndian.Uint32(sector[88:92])
	clusterCount := binary.LittleEndian.Uint32(sector[92:96])
	rootDirCluster := binary.LittleEndian.Uint32(sector[96:100])
	bytesPerSectorShift := sector[108]
	sectorsPerClusterShift := sector[109]
	p.NumFATs = sector[110]

	p.BytesPerSector = 1 << bytesPerSectorShift
	p.SectorsPerCluster = 1 << sectorsPerClusterShift
	p.SectorsPerFAT = fatLength
	p.FirstFATSector = fatOffset
	p.FirstDataSector = clusterHeapOffset
	p.RootCluster = rootDirCluster
	p.ClusterCount = clusterCount

	if p.BytesPerSector == 0 || p.SectorsPerCluster == 0 || p.NumFATs == 0 {
		return BootParams{}, ErrInvalidBootSector
	}
	return p, nil
}
