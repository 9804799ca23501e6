package ntfs

import "testing"

func TestBootstrapMFTRunListRejectsResidentData(t *testing.T) {
	// Build a minimal record buffer: header + a resident DATA attribute,
	// which the $MFT's DATA attribute must never be in practice - this
	// exercises the defensive check without needing a full disk image.
	const recordSize = 1024
	buf := make([]byte, recordSize)
	copy(buf[0:4], []byte("FILE"))
	// FixupOffset=48, FixupCount=1 (no actual fixup array entries needed
	// since ApplyFixup with count<=1 is a no-op check only).
	putUint16(buf[4:6], 48)
	putUint16(buf[6:8], 1)
	putUint16(buf[20:22], 56) // FirstAttrOffset
	putUint16(buf[16:18], 1)  // SequenceNumber

	// One resident DATA attribute at offset 56: type(4) length(4) resident-flag(1) ... instance(2 at +14)
	attrOff := 56
	putUint32(buf[attrOff:attrOff+4], uint32(AttrData))
	putUint32(buf[attrOff+4:attrOff+8], 24) // attribute record length
	buf[attrOff+8] = 0                      // non-resident flag byte == 0 means resident
	// end marker after this attribute
	putUint32(buf[attrOff+24:attrOff+28], 0xFFFFFFFF)

	vol := newFakeClusterVolume(recordSize, buf)
	vol.geom.MFTRecordSize = recordSize
	vol.geom.MFTStartLCN = 0

	_, err := BootstrapMFTRunList(vol)
	if err == nil {
		t.Fatal("expected an error for a resident $MFT DATA attribute")
	}
}

func putUint16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
