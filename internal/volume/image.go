package volume

import (
	"fmt"
	"io"
	"os"
)

// ImageReader backs a flat disk-image file (e.g. a .raw/.dd capture) or,
// equally, the dense test fixtures used by the ntfs/fat/vss packages: it
// is the one backend with no platform-specific syscalls, so it is also
// what every other backend's ReadAt ultimately gets exercised against in
// tests.
type ImageReader struct {
	blockSourceReader
	f *os.File
}

// NewImageReader opens path read-only and prepares it for LoadBootSector.
func NewImageReader(path string, tolerant TolerantMode) (*ImageReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("volume: open image %s: %w", path, err)
	}
	r := &ImageReader{f: f}
	r.tolerant = tolerant
	r.readBytesAt = r.readAt
	return r, nil
}

// NewImageReaderFromFile adapts an already-open file (or anything
// exposing ReadAt/Stat through *os.File) - used by tests that build
// synthetic images with os.CreateTemp.
func NewImageReaderFromFile(f *os.File, tolerant TolerantMode) *ImageReader {
	r := &ImageReader{f: f}
	r.tolerant = tolerant
	r.readBytesAt = r.readAt
	return r
}

func (r *ImageReader) LoadBootSector() error {
	sector := make([]byte, 512)
	if _, err := r.f.ReadAt(sector, 0); err != nil && err != io.EOF {
		return fmt.Errorf("volume: read boot sector: %w", err)
	}

	fi, err := r.f.Stat()
	if err != nil {
		return fmt.Errorf("volume: stat image: %w", err)
	}

	fsType := DetectFSType(sector)
	if fsType == FSNTFS {
		geom, err := ParseNTFSBootSector(sector)
		if err != nil {
			return err
		}
		r.geom = geom
	} else {
		// FAT geometry is parsed by internal/fat; record what we can
		// from the common BPB prefix so Geometry().FSType is still
		// meaningful to callers that only need filesystem dispatch.
		r.geom = Geometry{
			SectorSize:  512,
			ClusterSize: 512,
			FSType:      fsType,
		}
	}
	r.length = uint64(fi.Size())
	return nil
}

func (r *ImageReader) readAt(offset int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if offset >= int64(r.length) {
		return buf, nil // fully truncated, per 4.2
	}
	avail := int64(r.length) - offset
	toRead := n
	if int64(toRead) > avail {
		toRead = int(avail)
	}
	read, err := r.f.ReadAt(buf[:toRead], offset)
	if err != nil && err != io.EOF {
		if r.tolerant == Tolerant {
			return buf, nil
		}
		return nil, fmt.Errorf("volume: read at %d: %w", offset, err)
	}
	_ = read
	return buf, nil
}

func (r *ImageReader) Close() error {
	r.closed = true
	return r.f.Close()
}

var _ Reader = (*ImageReader)(nil)
