package ntfs

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// AttributeType enumerates the NTFS attribute type codes this engine
// understands, per spec.md 4.3's attribute walk.
type AttributeType uint32

const (
	AttrStandardInformation AttributeType = 0x10
	AttrAttributeList       AttributeType = 0x20
	AttrFileName            AttributeType = 0x30
	AttrObjectID            AttributeType = 0x40
	AttrSecurityDescriptor  AttributeType = 0x50
	AttrVolumeName          AttributeType = 0x60
	AttrVolumeInformation   AttributeType = 0x70
	AttrData                AttributeType = 0x80
	AttrIndexRoot           AttributeType = 0x90
	AttrIndexAllocation     AttributeType = 0xA0
	AttrBitmap              AttributeType = 0xB0
	AttrReparsePoint        AttributeType = 0xC0
	AttrEAInformation       AttributeType = 0xD0
	AttrEA                  AttributeType = 0xE0
	AttrLoggedUtilityStream AttributeType = 0x100
	AttrEndMarker           AttributeType = 0xFFFFFFFF
)

func (t AttributeType) String() string {
	switch t {
	case AttrStandardInformation:
		return "STANDARD_INFORMATION"
	case AttrAttributeList:
		return "ATTRIBUTE_LIST"
	case AttrFileName:
		return "FILE_NAME"
	case AttrData:
		return "DATA"
	case AttrIndexRoot:
		return "INDEX_ROOT"
	case AttrIndexAllocation:
		return "INDEX_ALLOCATION"
	case AttrBitmap:
		return "BITMAP"
	case AttrReparsePoint:
		return "REPARSE_POINT"
	default:
		return fmt.Sprintf("0x%X", uint32(t))
	}
}

// Attribute is one parsed MFT attribute record, resident or not.
type Attribute struct {
	Type       AttributeType
	Name       string
	ID         uint16
	Resident   bool
	Instance   uint16

	// Resident payload.
	ResidentData []byte

	// Non-resident fields.
	StartVCN      uint64
	LastVCN       uint64
	AllocatedSize uint64
	RealSize      uint64
	InitializedSize uint64
	RunList       []Run
}

// ErrAttributeTooShort is returned when an attribute header claims a
// length that would run past the end of the record buffer.
var ErrAttributeTooShort = errors.New("ntfs: attribute record truncated")

// ParseAttributes walks the attribute list starting at header.FirstAttrOffset
// inside buf (the full, fixed-up record buffer) until it hits the 0xFFFFFFFF
// end marker or runs out of room, per spec.md 4.3 step 4.
func ParseAttributes(buf []byte, header RecordHeader) ([]Attribute, error) {
	var attrs []Attribute
	offset := int(header.FirstAttrOffset)

	for {
		if offset+4 > len(buf) {
			break
		}
		typeCode := binary.LittleEndian.Uint32(buf[offset : offset+4])
		if typeCode == uint32(AttrEndMarker) || typeCode == 0 {
			break
		}
		if offset+16 > len(buf) {
			return attrs, ErrAttributeTooShort
		}
		length := binary.LittleEndian.Uint32(buf[offset+4 : offset+8])
		if length == 0 || offset+int(length) > len(buf) {
			return attrs, ErrAttributeTooShort
		}

		a, err := parseOneAttribute(buf[offset : offset+int(length)])
		if err != nil {
			return attrs, err
		}
		attrs = append(attrs, a)
		offset += int(length)
	}
	return attrs, nil
}

func parseOneAttribute(rec []byte) (Attribute, error) {
	if len(rec) < 16 {
		return Attribute{}, ErrAttributeTooShort
	}
	a := Attribute{
		Type:     AttributeType(binary.LittleEndian.Uint32(rec[0:4])),
		Resident: rec[8] == 0,
		Instance: binary.LittleEndian.Uint16(rec[14:16]),
	}

	nameLength := int(rec[9])
	nameOffset := int(binary.LittleEndian.Uint16(rec[10:12]))
	if nameLength > 0 && nameOffset+nameLength*2 <= len(rec) {
		a.Name = decodeUTF16(rec[nameOffset : nameOffset+nameLength*2])
	}

	if a.Resident {
		if len(rec) < 24 {
			return Attribute{}, ErrAttributeTooShort
		}
		contentLength := binary.LittleEndian.Uint32(rec[16:20])
		contentOffset := binary.LittleEndian.Uint16(rec[20:22])
		a.ID = binary.LittleEndian.Uint16(rec[22:24])
		end := int(contentOffset) + int(contentLength)
		if end > len(rec) {
			return Attribute{}, ErrAttributeTooShort
		}
		a.ResidentData = append([]byte(nil), rec[contentOffset:end]...)
		return a, nil
	}

	if len(rec) < 64 {
		return Attribute{}, ErrAttributeTooShort
	}
	a.StartVCN = binary.LittleEndian.Uint64(rec[16:24])
	a.LastVCN = binary.LittleEndian.Uint64(rec[24:32])
	runListOffset := binary.LittleEndian.Uint16(rec[32:34])
	a.ID = binary.LittleEndian.Uint16(rec[34:36])
	a.AllocatedSize = binary.LittleEndian.Uint64(rec[40:48])
	a.RealSize = binary.LittleEndian.Uint64(rec[48:56])
	a.InitializedSize = binary.LittleEndian.Uint64(rec[56:64])

	if int(runListOffset) < len(rec) {
		runs, err := DecodeRunList(rec[runListOffset:])
		if err != nil {
			return Attribute{}, err
		}
		a.RunList = runs
	}
	return a, nil
}

func decodeUTF16(b []byte) string {
	u16 := make([]uint16, len(b)/2)
	for i := range u16 {
		u16[i] = binary.LittleEndian.Uint16(b[i*2 : i*2+2])
	}
	return string(utf16Decode(u16))
}

// utf16Decode is a minimal UTF-16LE-to-rune decoder kept local to avoid
// pulling in golang.org/x/text for a handful of call sites; it handles the
// BMP and surrogate pairs NTFS names actually use.
func utf16Decode(s []uint16) []rune {
	out := make([]rune, 0, len(s))
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		if r >= 0xD800 && r <= 0xDBFF && i+1 < len(s) {
			r2 := rune(s[i+1])
			if r2 >= 0xDC00 && r2 <= 0xDFFF {
				out = append(out, ((r-0xD800)<<10|(r2-0xDC00))+0x10000)
				i++
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// First returns the first attribute of the given type, if any.
func First(attrs []Attribute, t AttributeType) (Attribute, bool) {
	for _, a := range attrs {
		if a.Type == t {
			return a, true
		}
	}
	return Attribute{}, false
}

// All returns every attribute of the given type, preserving order.
func All(attrs []Attribute, t AttributeType) []Attribute {
	var out []Attribute
	for _, a := range attrs {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}
