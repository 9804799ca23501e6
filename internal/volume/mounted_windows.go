//go:build windows

package volume

import "fmt"

// MountedReader opens a mounted-volume handle (`\\.\C:`), the "highest
// altitude" read path: clearer and less invasive than reading through the
// owning physical drive's partition offset, at the cost of depending on
// the volume still being mounted.
type MountedReader struct {
	*PhysicalReader
}

// NewMountedReader opens the volume at driveLetter (e.g. "C") via its
// mounted-volume device path.
func NewMountedReader(driveLetter string, tolerant TolerantMode) (*MountedReader, error) {
	devicePath := fmt.Sprintf(`\\.\%s:`, driveLetter)
	pr, err := NewPhysicalReader(devicePath, tolerant)
	if err != nil {
		return nil, err
	}
	return &MountedReader{PhysicalReader: pr}, nil
}

var _ Reader = (*MountedReader)(nil)
