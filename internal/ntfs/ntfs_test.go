package ntfs

import (
	"encoding/binary"
	"testing"
)

func TestFRNPackUnpack(t *testing.T) {
	f := NewFRN(12345, 7)
	if f.RecordIndex() != 12345 {
		t.Fatalf("RecordIndex = %d", f.RecordIndex())
	}
	if f.Sequence() != 7 {
		t.Fatalf("Sequence = %d", f.Sequence())
	}
}

func TestDecodeRunList(t *testing.T) {
	// Single non-sparse run: length=16 (1 byte), LCN delta=+100 (2 bytes).
	buf := []byte{0x21, 0x10, 0x64, 0x00, 0x00}
	runs, err := DecodeRunList(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d", len(runs))
	}
	if runs[0].LengthClusters != 16 || runs[0].LCN != 100 {
		t.Fatalf("run = %+v", runs[0])
	}
}

func TestDecodeRunListSparseThenReal(t *testing.T) {
	// Sparse run: header 0x01 (len bytes=1, offset bytes=0), length=5.
	// Then real run: header 0x11, length=10, LCN delta=+50.
	buf := []byte{
		0x01, 0x05,
		0x11, 0x0A, 0x32,
		0x00,
	}
	runs, err := DecodeRunList(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d", len(runs))
	}
	if !runs[0].Sparse || runs[0].LengthClusters != 5 {
		t.Fatalf("run0 = %+v", runs[0])
	}
	if runs[1].Sparse || runs[1].LCN != 50 || runs[1].LengthClusters != 10 {
		t.Fatalf("run1 = %+v", runs[1])
	}
}

func TestResolveVCN(t *testing.T) {
	runs := []Run{
		{LengthClusters: 4, LCN: 100},
		{LengthClusters: 3, Sparse: true},
		{LengthClusters: 2, LCN: 200},
	}
	lcn, sparse, err := ResolveVCN(runs, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !sparse {
		t.Fatalf("vcn 5 should be within the sparse run")
	}

	lcn, sparse, err = ResolveVCN(runs, 8)
	if err != nil {
		t.Fatal(err)
	}
	if sparse || lcn != 201 {
		t.Fatalf("vcn 8 -> lcn=%d sparse=%v, want lcn=201", lcn, sparse)
	}

	if _, _, err := ResolveVCN(runs, 100); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestApplyFixupRestoresSectorTrailers(t *testing.T) {
	record := make([]byte, 1024)
	copy(record[0:4], "FILE")
	binary.LittleEndian.PutUint16(record[4:6], 48) // usa offset
	binary.LittleEndian.PutUint16(record[6:8], 3)   // usa count: covers 2 sectors
	// Signature word the fixup expects at each sector's last 2 bytes.
	record[48], record[49] = 0xAB, 0xCD // USA signature word
	record[510], record[511] = 0xAB, 0xCD // sector 1 end, pre-fixup
	record[1022], record[1023] = 0xAB, 0xCD // sector 2 end, pre-fixup
	record[48+2], record[48+3] = 0x11, 0x22 // fixup entry for sector 1
	record[48+4], record[48+5] = 0x33, 0x44 // fixup entry for sector 2

	if err := ApplyFixup(record); err != nil {
		t.Fatalf("ApplyFixup: %v", err)
	}
	if record[510] != 0x11 || record[511] != 0x22 {
		t.Fatalf("sector 1 fixup not applied: %x %x", record[510], record[511])
	}
}

func TestApplyFixupRejectsMismatch(t *testing.T) {
	record := make([]byte, 1024)
	binary.LittleEndian.PutUint16(record[4:6], 48)
	binary.LittleEndian.PutUint16(record[6:8], 2)
	record[48], record[49] = 0xAB, 0xCD
	record[510], record[511] = 0x00, 0x00 // mismatched signature

	if err := ApplyFixup(record); err != ErrCorruptRecord {
		t.Fatalf("expected ErrCorruptRecord, got %v", err)
	}
}

func TestNamespaceRank(t *testing.T) {
	if NamespacePosix.Rank() <= NamespaceWin32.Rank() {
		t.Fatal("POSIX should outrank Win32")
	}
	if NamespaceWin32.Rank() <= NamespaceDOS.Rank() {
		t.Fatal("Win32 should outrank DOS")
	}
}

func TestDecodeUSNRecordV2(t *testing.T) {
	name := "foo.txt"
	nameBytes := encodeUTF16(name)
	headerLen := 60
	total := headerLen + len(nameBytes)
	buf := make([]byte, total)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(total))
	binary.LittleEndian.PutUint16(buf[4:6], 2) // major version
	binary.LittleEndian.PutUint64(buf[8:16], uint64(NewFRN(10, 1)))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(NewFRN(5, 1)))
	binary.LittleEndian.PutUint32(buf[40:44], USNReasonFileCreate)
	binary.LittleEndian.PutUint16(buf[56:58], uint16(len(nameBytes)))
	binary.LittleEndian.PutUint16(buf[58:60], uint16(headerLen))
	copy(buf[headerLen:], nameBytes)

	rec, n, err := DecodeUSNRecord(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != total {
		t.Fatalf("consumed %d, want %d", n, total)
	}
	if rec.Name != name {
		t.Fatalf("Name = %q, want %q", rec.Name, name)
	}
	if !rec.HasReason(USNReasonFileCreate) {
		t.Fatal("expected FileCreate reason")
	}
}

func encodeUTF16(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		u16 := uint16(r)
		out = append(out, byte(u16), byte(u16>>8))
	}
	return out
}

func TestParseLogFileRestartAreaDirty(t *testing.T) {
	buf := make([]byte, 128)
	copy(buf[0:4], "RSTR")
	binary.LittleEndian.PutUint16(buf[24:26], 64) // restart area offset
	// flags at restartArea+10: leave clean-unmount bit clear -> dirty
	binary.LittleEndian.PutUint16(buf[64+10:64+12], 0)

	info, err := ParseLogFileRestartArea(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !info.Dirty {
		t.Fatal("expected Dirty=true when clean-unmount bit is clear")
	}
}

func TestDecodeWOFReparsePoint(t *testing.T) {
	buf := make([]byte, 20)
	binary.LittleEndian.PutUint32(buf[0:4], ReparseTagWOF)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(WOFProviderFile))
	binary.LittleEndian.PutUint32(buf[12:16], 1)
	binary.LittleEndian.PutUint32(buf[16:20], 2) // algorithm

	w, err := DecodeWOFReparsePoint(buf)
	if err != nil {
		t.Fatal(err)
	}
	if w.Provider != WOFProviderFile || w.Algorithm != 2 {
		t.Fatalf("w = %+v", w)
	}
}
