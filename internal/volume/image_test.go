package volume

import (
	"os"
	"testing"
)

func synthNTFSImage(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "ntfs-*.img")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sector := make([]byte, 512)
	copy(sector[3:11], "NTFS    ")
	// bytes-per-sector = 512
	sector[11], sector[12] = 0x00, 0x02
	// sectors-per-cluster = 8 (4096-byte clusters)
	sector[13] = 8
	// total-sectors = 204800 (100MiB)
	putUint64(sector[48:56], 204800)
	// $MFT LCN = 4
	putUint64(sector[56:64], 4)
	// offset 72 doubles as both clusters-per-file-record (low byte, per
	// spec.md's boot-sector layout) and the 8-byte serial: 0xF6 = -10,
	// i.e. 2^10 = 1024-byte MFT records.
	putUint64(sector[72:80], 0x11223344556677F6)
	sector[510], sector[511] = 0x55, 0xAA

	if _, err := f.Write(sector); err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(100 * 1024 * 1024); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func TestImageReaderLoadBootSector(t *testing.T) {
	path := synthNTFSImage(t)
	r, err := NewImageReader(path, Strict)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if err := r.LoadBootSector(); err != nil {
		t.Fatalf("LoadBootSector: %v", err)
	}

	g := r.Geometry()
	if g.FSType != FSNTFS {
		t.Fatalf("FSType = %v, want NTFS", g.FSType)
	}
	if g.SectorSize != 512 || g.ClusterSize != 4096 {
		t.Fatalf("geometry = %+v", g)
	}
	if g.MFTRecordSize != 1024 {
		t.Fatalf("MFTRecordSize = %d, want 1024", g.MFTRecordSize)
	}
	if g.MFTStartLCN != 4 {
		t.Fatalf("MFTStartLCN = %d, want 4", g.MFTStartLCN)
	}
}

func TestImageReaderTruncatesPastEnd(t *testing.T) {
	path := synthNTFSImage(t)
	r, err := NewImageReader(path, Strict)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if err := r.LoadBootSector(); err != nil {
		t.Fatal(err)
	}

	buf, err := r.ReadAt(r.GetLength()/uint64(r.Geometry().ClusterSize)+1000, 1)
	if err != nil {
		t.Fatalf("ReadAt past end should truncate, not error: %v", err)
	}
	for _, b := range buf {
		if b != 0 {
			t.Fatalf("expected zero-filled truncation, got %v", buf)
		}
	}
}
