package ntfs

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// USN change reason bits, the subset spec.md 4.3's journal reader is asked
// to recognize; the full Windows set is much larger, but these are the
// ones sample rules key off (spec.md 4.8).
const (
	USNReasonDataOverwrite  uint32 = 0x00000001
	USNReasonDataExtend     uint32 = 0x00000002
	USNReasonDataTruncation uint32 = 0x00000004
	USNReasonFileCreate     uint32 = 0x00000100
	USNReasonFileDelete     uint32 = 0x00000200
	USNReasonRename         uint32 = 0x00002000
	USNReasonClose          uint32 = 0x80000000
)

// ErrShortUSNRecord is returned when a record's declared length overruns
// the remaining buffer, or the buffer is too short to hold even the fixed
// V2 header.
var ErrShortUSNRecord = errors.New("ntfs: truncated usn record")

// USNRecord is a decoded $UsnJrnl :$J record. Only the V2 layout is
// decoded fully; V3 records (128-bit file/parent IDs, used on ReFS and
// some NTFS configurations) are decoded too, but only the low 64 bits of
// their file/parent IDs are kept; the high 64 bits are dropped, since
// nothing downstream needs them.
type USNRecord struct {
	RecordLength    uint32
	MajorVersion    uint16
	MinorVersion    uint16
	FileReference   FRN
	ParentReference FRN
	USN             int64
	Timestamp       uint64
	Reason          uint32
	SourceInfo      uint32
	SecurityID      uint32
	FileAttributes  uint32
	Name            string
}

// HasReason reports whether any of the given reason bits are set.
func (r USNRecord) HasReason(bits uint32) bool { return r.Reason&bits != 0 }

// DecodeUSNRecord decodes one record from the head of buf and returns the
// number of bytes it consumed (RecordLength), so callers can advance
// through a $J data stream or a journal page sequentially.
func DecodeUSNRecord(buf []byte) (USNRecord, int, error) {
	if len(buf) < 4 {
		return USNRecord{}, 0, ErrShortUSNRecord
	}
	recordLength := binary.LittleEndian.Uint32(buf[0:4])
	if recordLength == 0 {
		return USNRecord{}, 0, ErrShortUSNRecord
	}
	if int(recordLength) > len(buf) {
		return USNRecord{}, 0, ErrShortUSNRecord
	}
	rec := buf[:recordLength]
	if len(rec) < 56 {
		return USNRecord{}, 0, ErrShortUSNRecord
	}

	var r USNRecord
	r.RecordLength = recordLength
	r.MajorVersion = binary.LittleEndian.Uint16(rec[4:6])
	r.MinorVersion = binary.LittleEndian.Uint16(rec[6:8])

	switch r.MajorVersion {
	case 2:
		r.FileReference = FRN(binary.LittleEndian.Uint64(rec[8:16]))
		r.ParentReference = FRN(binary.LittleEndian.Uint64(rec[16:24]))
		r.USN = int64(binary.LittleEndian.Uint64(rec[24:32]))
		r.Timestamp = binary.LittleEndian.Uint64(rec[32:40])
		r.Reason = binary.LittleEndian.Uint32(rec[40:44])
		r.SourceInfo = binary.LittleEndian.Uint32(rec[44:48])
		r.SecurityID = binary.LittleEndian.Uint32(rec[48:52])
		r.FileAttributes = binary.LittleEndian.Uint32(rec[52:56])
		if len(rec) < 60 {
			return USNRecord{}, 0, ErrShortUSNRecord
		}
		nameLength := binary.LittleEndian.Uint16(rec[56:58])
		nameOffset := binary.LittleEndian.Uint16(rec[58:60])
		end := int(nameOffset) + int(nameLength)
		if end > len(rec) {
			return USNRecord{}, 0, ErrShortUSNRecord
		}
		r.Name = decodeUTF16(rec[nameOffset:end])
	case 3:
		// V3 widens the file/parent references to 128 bits; we keep the
		// low 64 bits of each (sufficient to key into the same FRN space
		// our MFT walker uses) and skip the high 64 bits.
		if len(rec) < 88 {
			return USNRecord{}, 0, ErrShortUSNRecord
		}
		r.FileReference = FRN(binary.LittleEndian.Uint64(rec[8:16]))
		r.ParentReference = FRN(binary.LittleEndian.Uint64(rec[24:32]))
		r.USN = int64(binary.LittleEndian.Uint64(rec[40:48]))
		r.Timestamp = binary.LittleEndian.Uint64(rec[48:56])
		r.Reason = binary.LittleEndian.Uint32(rec[56:60])
		r.SourceInfo = binary.LittleEndian.Uint32(rec[60:64])
		r.SecurityID = binary.LittleEndian.Uint32(rec[64:68])
		r.FileAttributes = binary.LittleEndian.Uint32(rec[68:72])
		nameLength := binary.LittleEndian.Uint16(rec[72:74])
		nameOffset := binary.LittleEndian.Uint16(rec[74:76])
		end := int(nameOffset) + int(nameLength)
		if end > len(rec) {
			return USNRecord{}, 0, ErrShortUSNRecord
		}
		r.Name = decodeUTF16(rec[nameOffset:end])
	default:
		return USNRecord{}, 0, fmt.Errorf("ntfs: unsupported usn record version %d", r.MajorVersion)
	}

	return r, int(recordLength), nil
}

// USNJournalParams describes a volume's $UsnJrnl configuration, the
// fields of an FSCTL_QUERY_USN_JOURNAL reply. This package has no decoder
// that fills it from a volume; ProposeResize is its only consumer. ORC
// never resizes or creates a journal.
type USNJournalParams struct {
	JournalID          uint64
	FirstUSN           int64
	NextUSN            int64
	LowestValidUSN     int64
	MaxUSN             int64
	MaximumSize        uint64
	AllocationDelta    uint64
}

// ProposeResize computes the journal size ORC would recommend to fully
// cover a requested retention window, without writing anything back to
// the volume - a pure advisory calculation used only for reporting.
func ProposeResize(current USNJournalParams, desiredMaximumSize uint64) USNJournalParams {
	proposed := current
	if desiredMaximumSize > proposed.MaximumSize {
		proposed.MaximumSize = desiredMaximumSize
	}
	if proposed.AllocationDelta > proposed.MaximumSize/2 {
		proposed.AllocationDelta = proposed.MaximumSize / 2
	}
	return proposed
}
