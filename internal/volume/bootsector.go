package volume

import (
	"encoding/binary"
	"fmt"
)

// ParseNTFSBootSector decodes the first 512 bytes of an NTFS volume per
// the layout in spec.md 6: offset 3 OEM id, 11 bytes/sector, 13
// sectors/cluster (or negative exponent for huge clusters), 48
// total-sectors, 56 $MFT LCN, 64 $MFTMirr LCN, 72 clusters-per-file-record
// (signed) and serial, 80 clusters-per-index-buffer.
func ParseNTFSBootSector(sector []byte) (Geometry, error) {
	if len(sector) < 512 {
		return Geometry{}, fmt.Errorf("volume: boot sector too short (%d bytes)", len(sector))
	}
	if string(sector[3:11]) != "NTFS    " {
		return Geometry{}, fmt.Errorf("volume: not an NTFS boot sector")
	}

	sectorSize := binary.LittleEndian.Uint16(sector[11:13])
	spc := int8(sector[13])

	var clusterSize uint32
	if spc > 0 {
		clusterSize = uint32(spc) * uint32(sectorSize)
	} else {
		// Negative value encodes cluster size as 2^|spc| bytes directly -
		// used for huge clusters whose sector count does not fit the byte.
		clusterSize = 1 << uint(-spc)
	}

	totalSectors := binary.LittleEndian.Uint64(sector[48:56])
	mftLCN := binary.LittleEndian.Uint64(sector[56:64])

	clustersPerRecord := int8(sector[72])
	var mftRecordSize uint32
	if clustersPerRecord > 0 {
		mftRecordSize = uint32(clustersPerRecord) * clusterSize
	} else {
		mftRecordSize = 1 << uint(-clustersPerRecord)
	}

	serial := binary.LittleEndian.Uint64(sector[72:80])

	return Geometry{
		SectorSize:    uint32(sectorSize),
		ClusterSize:   clusterSize,
		MFTStartLCN:   mftLCN,
		MFTRecordSize: mftRecordSize,
		TotalSectors:  totalSectors,
		FSType:        FSNTFS,
		Serial:        serial,
	}, nil
}

// DetectFSType sniffs the first 512 bytes of a boot sector to decide which
// family to hand off to (NTFS vs. the FAT family); it does not itself
// parse FAT geometry - see internal/fat for that.
func DetectFSType(sector []byte) FSType {
	if len(sector) < 512 {
		return FSUnknown
	}
	if len(sector) >= 11 && string(sector[3:11]) == "NTFS    " {
		return FSNTFS
	}
	// FAT/exFAT boot sectors carry their OEM name at the same offset;
	// the specific FAT flavor is disambiguated by internal/fat from the
	// BPB fields themselves (root-entry count, total sectors, FAT size).
	if len(sector) >= 11 {
		oem := string(sector[3:11])
		switch {
		case len(oem) >= 5 && oem[:5] == "EXFAT":
			return FSExFAT
		}
	}
	// Signature 0x55AA at the end of a 512-byte sector is common to all
	// FAT variants; the precise 12/16/32 split needs the BPB.
	if sector[510] == 0x55 && sector[511] == 0xAA {
		return FSFAT16
	}
	return FSUnknown
}
