package fat

import "testing"

func synthFAT16BootSector() []byte {
	sector := make([]byte, 512)
	copy(sector[3:11], "MSDOS5.0")
	sector[11], sector[12] = 0x00, 0x02 // 512 bytes/sector
	sector[13] = 4                      // 4 sectors/cluster
	sector[14], sector[15] = 1, 0       // 1 reserved sector
	sector[16] = 2 // 2 FATs
	putU16(sector[17:19], 512) // 512 root entries -> 32 sectors
	putU16(sector[19:21], 32768) // total sectors (16-bit field)
	putU16(sector[22:24], 100)   // sectors per FAT
	sector[510], sector[511] = 0x55, 0xAA
	return sector
}

func putU16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func TestParseBootSectorFAT16Geometry(t *testing.T) {
	sector := synthFAT16BootSector()
	p, err := ParseBootSector(sector)
	if err != nil {
		t.Fatal(err)
	}
	if p.Variant != VariantFAT16 {
		t.Fatalf("variant = %v, want FAT16", p.Variant)
	}
	if p.FirstFATSector != 1 {
		t.Fatalf("FirstFATSector = %d, want 1", p.FirstFATSector)
	}
	wantFirstRoot := uint32(1 + 2*100)
	if p.FirstRootSector != wantFirstRoot {
		t.Fatalf("FirstRootSector = %d, want %d", p.FirstRootSector, wantFirstRoot)
	}
	wantRootSectors := uint32((512*32 + 511) / 512)
	if p.RootDirSectors != wantRootSectors {
		t.Fatalf("RootDirSectors = %d, want %d", p.RootDirSectors, wantRootSectors)
	}
}

func TestParseBootSectorRejectsBadSignature(t *testing.T) {
	sector := synthFAT16BootSector()
	sector[511] = 0x00
	if _, err := ParseBootSector(sector); err != ErrInvalidBootSector {
		t.Fatalf("err = %v, want ErrInvalidBootSector", err)
	}
}

func TestClusterToSector(t *testing.T) {
	sector := synthFAT16BootSector()
	p, err := ParseBootSector(sector)
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.ClusterToSector(2)
	if err != nil {
		t.Fatal(err)
	}
	if got != p.FirstDataSector {
		t.Fatalf("cluster 2 should map to first data sector, got %d want %d", got, p.FirstDataSector)
	}
}

func TestParseDirectorySectorShortNameOnly(t *testing.T) {
	buf := make([]byte, 64)
	copy(buf[0:11], "HELLO   TXT")
	buf[11] = attrArchive
	putU16(buf[26:28], 5) // first cluster low
	putU16(buf[20:22], 0) // first cluster high
	entries, _ := ParseDirectorySector(buf)
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d", len(entries))
	}
	if entries[0].ShortName != "HELLO.TXT" {
		t.Fatalf("ShortName = %q", entries[0].ShortName)
	}
	if entries[0].FirstCluster != 5 {
		t.Fatalf("FirstCluster = %d", entries[0].FirstCluster)
	}
}

func TestParseDirectorySectorDeletedEntryFlagged(t *testing.T) {
	buf := make([]byte, 32)
	buf[0] = 0xE5
	copy(buf[1:11], "ELETE   TX")
	buf[11] = attrArchive
	entries, _ := ParseDirectorySector(buf)
	if len(entries) != 1 || !entries[0].Deleted {
		t.Fatalf("expected one deleted entry, got %+v", entries)
	}
}

func TestAssembleLFN(t *testing.T) {
	frags := []lfnFragment{
		{sequence: 1 | lastLongEntryFlag, chars: []uint16{'t', 'x', 't'}},
		{sequence: 0x01, chars: []uint16{'l', 'o', 'n', 'g', 'n', 'a', 'm', 'e', '.'}},
	}
	got := assembleLFN(frags)
	if got != "longname.txt" {
		t.Fatalf("assembleLFN = %q", got)
	}
}
