package ntfs

import (
	"errors"
	"fmt"
	"log"

	"github.com/orcforensics/dfir-orc-go/internal/volume"
)

// Walker reads MFT records off a volume.Reader, applying fixups, splicing
// ATTRIBUTE_LIST extension records, and optionally resurrecting deleted
// entries, per spec.md 4.3.
type Walker struct {
	vol          volume.Reader
	recordSize   uint32
	mftRunList   []Run
	logger       *log.Logger

	// Resurrect controls whether records with the in-use flag clear are
	// still emitted (Record.Deleted = true) instead of skipped.
	Resurrect bool
}

// NewWalker prepares a Walker over an already-LoadBootSector'd volume. The
// $MFT's own run list must be supplied by the caller (read from the boot
// sector's MFT start LCN, record index 0, before any other record can be
// located - the classic NTFS bootstrap problem).
func NewWalker(vol volume.Reader, mftRunList []Run, logger *log.Logger) *Walker {
	if logger == nil {
		logger = log.New(log.Writer(), "ntfs: ", log.LstdFlags)
	}
	geom := vol.Geometry()
	return &Walker{
		vol:        vol,
		recordSize: geom.MFTRecordSize,
		mftRunList: mftRunList,
		logger:     logger,
	}
}

// ReadRecord reads and parses the MFT record at the given index, applying
// fixup and splicing any ATTRIBUTE_LIST extension records it finds.
func (w *Walker) ReadRecord(index uint64) (Record, error) {
	buf, err := w.readRawRecord(index)
	if err != nil {
		return Record{}, err
	}

	if err := CheckSignature(buf); err != nil {
		if ErrBaadRecord(err) {
			w.logger.Printf("record %d: BAAD signature, skipping", index)
		}
		return Record{}, err
	}
	if err := ApplyFixup(buf); err != nil {
		return Record{}, fmt.Errorf("ntfs: record %d: %w", index, err)
	}

	header, err := ParseRecordHeader(buf)
	if err != nil {
		return Record{}, err
	}
	attrs, err := ParseAttributes(buf, header)
	if err != nil {
		return Record{}, fmt.Errorf("ntfs: record %d: %w", index, err)
	}

	rec := Record{
		Index:      index,
		Header:     header,
		Attributes: attrs,
		Deleted:    !header.InUse(),
	}

	if al, ok := First(attrs, AttrAttributeList); ok {
		extAttrs, err := w.spliceAttributeList(rec, al)
		if err != nil {
			w.logger.Printf("record %d: attribute list splice failed: %v", index, err)
		} else {
			rec.Attributes = extAttrs
		}
	}

	return rec, nil
}

// spliceAttributeList reads every extension record an ATTRIBUTE_LIST
// attribute points to and merges their attributes into the base record's
// list, in the order the list enumerates them (spec.md 4.3 step 4).
func (w *Walker) spliceAttributeList(base Record, al Attribute) ([]Attribute, error) {
	entries, err := decodeAttributeListEntries(al.ResidentData)
	if err != nil {
		return base.Attributes, err
	}

	merged := append([]Attribute(nil), base.Attributes...)
	visited := map[uint64]bool{base.Index: true}
	for _, e := range entries {
		idx := e.FRN.RecordIndex()
		if idx == base.Index || visited[idx] {
			continue
		}
		visited[idx] = true

		ext, err := w.ReadRecord(idx)
		if err != nil {
			w.logger.Printf("attribute list: extension record %d unreadable: %v", idx, err)
			continue
		}
		if !ext.Header.IsExtension() {
			continue
		}
		merged = append(merged, ext.Attributes...)
	}
	return merged, nil
}

type attributeListEntry struct {
	Type AttributeType
	FRN  FRN
}

func decodeAttributeListEntries(data []byte) ([]attributeListEntry, error) {
	var entries []attributeListEntry
	offset := 0
	for offset+26 <= len(data) {
		entryLen := int(leUint16(data[offset+4 : offset+6]))
		if entryLen < 26 || offset+entryLen > len(data) {
			break
		}
		typeCode := leUint32(data[offset : offset+4])
		frn := leUint64(data[offset+16 : offset+24])
		entries = append(entries, attributeListEntry{
			Type: AttributeType(typeCode),
			FRN:  FRN(frn),
		})
		offset += entryLen
	}
	return entries, nil
}

func leUint16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func leUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * uint(i))
	}
	return v
}

// readRawRecord locates record index within the $MFT's run list and reads
// recordSize bytes through the volume reader's cluster-addressed ReadAt.
func (w *Walker) readRawRecord(index uint64) ([]byte, error) {
	geom := w.vol.Geometry()
	byteOffset := index * uint64(w.recordSize)
	vcn := byteOffset / uint64(geom.ClusterSize)
	within := byteOffset % uint64(geom.ClusterSize)

	lcn, sparse, err := ResolveVCN(w.mftRunList, vcn)
	if err != nil {
		return nil, fmt.Errorf("ntfs: locating record %d: %w", index, err)
	}
	if sparse {
		return make([]byte, w.recordSize), nil
	}

	sectorsPerRecord := w.recordSize / geom.SectorSize
	if sectorsPerRecord == 0 {
		sectorsPerRecord = 1
	}
	buf, err := w.vol.ReadAt(uint64(lcn), uint32(within)/geom.SectorSize+sectorsPerRecord)
	if err != nil {
		return nil, err
	}
	buf = buf[min(within, uint64(len(buf))):]
	if len(buf) < int(w.recordSize) {
		padded := make([]byte, w.recordSize)
		copy(padded, buf)
		return padded, nil
	}
	return buf[:w.recordSize], nil
}

// Walk calls fn for every record from startIndex through count-1 past it,
// stopping early if fn returns false or an error. Corrupt/BAAD records are
// logged and skipped rather than aborting the whole walk, matching
// spec.md 4.3's tolerant-scan posture.
func (w *Walker) Walk(startIndex, count uint64, fn func(Record) (bool, error)) error {
	for i := startIndex; i < startIndex+count; i++ {
		rec, err := w.ReadRecord(i)
		if err != nil {
			if errors.Is(err, ErrCorruptRecord) || ErrBaadRecord(err) || err == ErrUnknownSignature {
				w.logger.Printf("record %d: %v, skipping", i, err)
				continue
			}
			return err
		}
		if rec.Deleted && !w.Resurrect {
			continue
		}
		cont, err := fn(rec)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}
