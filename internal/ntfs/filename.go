package ntfs

import "encoding/binary"

// Namespace ranks an NTFS FILE_NAME attribute's naming convention; POSIX
// names win over Win32, which win over DOS-only 8.3 names, matching the
// precedence spec.md 4.3 asks path resolution to apply when a record
// carries more than one FILE_NAME attribute (hard links aside).
type Namespace byte

const (
	NamespacePosix   Namespace = 0
	NamespaceWin32   Namespace = 1
	NamespaceDOS     Namespace = 2
	NamespaceWin32DOS Namespace = 3
)

// FileNameAttr is the decoded content of a FILE_NAME attribute.
type FileNameAttr struct {
	ParentDirectory FRN
	Created         uint64 // FILETIME, left opaque; callers format as needed
	Modified        uint64
	MFTModified     uint64
	Accessed        uint64
	AllocatedSize   uint64
	RealSize        uint64
	Flags           uint32
	Namespace       Namespace
	Name            string
}

// Rank returns precedence for namespace selection; higher wins.
func (ns Namespace) Rank() int {
	switch ns {
	case NamespacePosix:
		return 3
	case NamespaceWin32, NamespaceWin32DOS:
		return 2
	case NamespaceDOS:
		return 1
	default:
		return 0
	}
}

// DecodeFileName parses a resident FILE_NAME attribute's content, per
// spec.md 6's layout for $FILE_NAME.
func DecodeFileName(data []byte) (FileNameAttr, error) {
	if len(data) < 66 {
		return FileNameAttr{}, ErrAttributeTooShort
	}
	var fn FileNameAttr
	fn.ParentDirectory = FRN(binary.LittleEndian.Uint64(data[0:8]))
	fn.Created = binary.LittleEndian.Uint64(data[8:16])
	fn.Modified = binary.LittleEndian.Uint64(data[16:24])
	fn.MFTModified = binary.LittleEndian.Uint64(data[24:32])
	fn.Accessed = binary.LittleEndian.Uint64(data[32:40])
	fn.AllocatedSize = binary.LittleEndian.Uint64(data[40:48])
	fn.RealSize = binary.LittleEndian.Uint64(data[48:56])
	fn.Flags = binary.LittleEndian.Uint32(data[56:60])
	nameLength := int(data[64])
	fn.Namespace = Namespace(data[65])

	nameStart := 66
	nameEnd := nameStart + nameLength*2
	if nameEnd > len(data) {
		return FileNameAttr{}, ErrAttributeTooShort
	}
	fn.Name = decodeUTF16(data[nameStart:nameEnd])
	return fn, nil
}

// BestFileName picks the highest-namespace-precedence FILE_NAME attribute
// out of a record's attribute list, per the rule documented on Namespace.
func BestFileName(attrs []Attribute) (FileNameAttr, bool) {
	var best FileNameAttr
	found := false
	for _, a := range All(attrs, AttrFileName) {
		fn, err := DecodeFileName(a.ResidentData)
		if err != nil {
			continue
		}
		if !found || fn.Namespace.Rank() > best.Namespace.Rank() {
			best = fn
			found = true
		}
	}
	return best, found
}
