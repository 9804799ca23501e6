package volume

import "fmt"

// PartitionReader restricts another Reader (typically a PhysicalReader) to
// the [offset, offset+length) byte range a partition table entry
// describes. It implements the "lowest altitude" read path: through a
// physical-drive/partition offset rather than a mounted volume handle.
type PartitionReader struct {
	blockSourceReader
	disk   Reader
	offset int64
}

// NewPartitionReader wraps disk, exposing only the partition at
// [offset, offset+length).
func NewPartitionReader(disk Reader, offset, length int64, tolerant TolerantMode) *PartitionReader {
	r := &PartitionReader{disk: disk, offset: offset}
	r.tolerant = tolerant
	r.length = uint64(length)
	r.readBytesAt = r.readAt
	return r
}

func (r *PartitionReader) LoadBootSector() error {
	sector, err := r.readAt(0, 512)
	if err != nil {
		return fmt.Errorf("volume: read partition boot sector: %w", err)
	}
	fsType := DetectFSType(sector)
	if fsType == FSNTFS {
		geom, err := ParseNTFSBootSector(sector)
		if err != nil {
			return err
		}
		r.geom = geom
	} else {
		r.geom = Geometry{SectorSize: 512, ClusterSize: 512, FSType: fsType}
	}
	return nil
}

func (r *PartitionReader) readAt(offset int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	absOffset := r.offset + offset
	if uint64(offset) >= r.length {
		return buf, nil
	}
	avail := int64(r.length) - offset
	toRead := n
	if int64(toRead) > avail {
		toRead = int(avail)
	}

	m := make([]byte, toRead)
	if _, err := r.disk.Seek(absOffset, 0); err != nil {
		return nil, fmt.Errorf("volume: seek backing disk: %w", err)
	}
	read := 0
	for read < toRead {
		n, err := r.disk.Read(m[read:])
		read += n
		if n == 0 || err != nil {
			break
		}
	}
	copy(buf, m[:read])
	return buf, nil
}

func (r *PartitionReader) Close() error { r.closed = true; return nil } // the disk is borrowed

var _ Reader = (*PartitionReader)(nil)
