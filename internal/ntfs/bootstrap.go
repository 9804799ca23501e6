package ntfs

import (
	"fmt"

	"github.com/orcforensics/dfir-orc-go/internal/volume"
)

// BootstrapMFTRunList solves NTFS's classic chicken-and-egg problem:
// record 0 ($MFT itself) lives inside the very run list a Walker needs
// to locate any record, including record 0. This reads record 0
// directly off the boot sector's MFTStartLCN (valid because $MFT's own
// first record is always resident at that cluster), parses its DATA
// attribute, and returns the resulting run list - which a caller then
// passes to NewWalker to read every other record, $MFT's own
// continuation records included.
func BootstrapMFTRunList(vol volume.Reader) ([]Run, error) {
	geom := vol.Geometry()
	sectorsPerRecord := geom.MFTRecordSize / geom.SectorSize
	if sectorsPerRecord == 0 {
		sectorsPerRecord = 1
	}
	clusterSectors := geom.ClusterSize / geom.SectorSize
	if clusterSectors == 0 {
		clusterSectors = 1
	}

	buf, err := vol.ReadAt(geom.MFTStartLCN, clusterSectors)
	if err != nil {
		return nil, fmt.Errorf("ntfs: bootstrap: reading $MFT's first cluster: %w", err)
	}
	if len(buf) < int(geom.MFTRecordSize) {
		return nil, fmt.Errorf("ntfs: bootstrap: $MFT record truncated (%d < %d bytes)", len(buf), geom.MFTRecordSize)
	}
	buf = buf[:geom.MFTRecordSize]

	if err := CheckSignature(buf); err != nil {
		return nil, fmt.Errorf("ntfs: bootstrap: $MFT record signature: %w", err)
	}
	if err := ApplyFixup(buf); err != nil {
		return nil, fmt.Errorf("ntfs: bootstrap: $MFT record fixup: %w", err)
	}
	header, err := ParseRecordHeader(buf)
	if err != nil {
		return nil, fmt.Errorf("ntfs: bootstrap: $MFT record header: %w", err)
	}
	attrs, err := ParseAttributes(buf, header)
	if err != nil {
		return nil, fmt.Errorf("ntfs: bootstrap: $MFT record attributes: %w", err)
	}

	data, ok := First(attrs, AttrData)
	if !ok {
		return nil, fmt.Errorf("ntfs: bootstrap: $MFT record has no DATA attribute")
	}
	if data.Resident {
		return nil, fmt.Errorf("ntfs: bootstrap: $MFT's DATA attribute is unexpectedly resident")
	}
	return data.RunList, nil
}
