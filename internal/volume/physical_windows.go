//go:build windows

package volume

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procCreateFileW          = kernel32.NewProc("CreateFileW")
	procReadFile              = kernel32.NewProc("ReadFile")
	procSetFilePointerEx      = kernel32.NewProc("SetFilePointerEx")
	procDeviceIoControl       = kernel32.NewProc("DeviceIoControl")
	procGetFileSizeEx         = kernel32.NewProc("GetFileSizeEx")
)

// IOCTL codes reused from the disk-inventory side of the host project
// (internal/collector/win_api.go in the teacher project).
const (
	ioctlStorageQueryProperty       = 0x2D1400
	ioctlVolumeGetVolumeDiskExtents = 0x560000
	ioctlDiskGetLengthInfo          = 0x7405C
)

type storagePropertyQuery struct {
	PropertyId           uint32
	QueryType            uint32
	AdditionalParameters [1]byte
}

type storageDeviceDescriptor struct {
	Version               uint32
	Size                  uint32
	DeviceType            byte
	DeviceTypeModifier    byte
	RemovableMedia        bool
	CommandQueueing       bool
	VendorIdOffset        uint32
	ProductIdOffset       uint32
	ProductRevisionOffset uint32
	SerialNumberOffset    uint32
	BusType               uint32
	RawPropertiesLength   uint32
}

// PhysicalReader opens \\.\PhysicalDriveN (or \\.\X: for a mounted volume
// handle, via NewMountedReader below) and issues sector-aligned ReadFile
// calls, exactly the CreateFile+DeviceIoControl idiom the host project's
// disk_windows.go uses for GetDiskFreeSpaceEx and friends.
type PhysicalReader struct {
	blockSourceReader
	path   string
	handle windows.Handle
}

// NewPhysicalReader opens the physical drive at devicePath (e.g.
// `\\.\PhysicalDrive0`) for reading; the handle is opened with no
// CreateFile flags, so reads go through the system cache.
func NewPhysicalReader(devicePath string, tolerant TolerantMode) (*PhysicalReader, error) {
	pathPtr, err := windows.UTF16PtrFromString(devicePath)
	if err != nil {
		return nil, fmt.Errorf("volume: invalid device path %q: %w", devicePath, err)
	}

	ret, _, callErr := procCreateFileW.Call(
		uintptr(unsafe.Pointer(pathPtr)),
		uintptr(windows.GENERIC_READ),
		uintptr(windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE),
		0,
		uintptr(windows.OPEN_EXISTING),
		0,
		0,
	)
	handle := windows.Handle(ret)
	if handle == windows.InvalidHandle {
		return nil, fmt.Errorf("volume: CreateFile %q: %w", devicePath, callErr)
	}

	r := &PhysicalReader{path: devicePath, handle: handle}
	r.tolerant = tolerant
	r.readBytesAt = r.readAt
	return r, nil
}

func (r *PhysicalReader) LoadBootSector() error {
	sector, err := r.readAt(0, 512)
	if err != nil {
		return fmt.Errorf("volume: read boot sector of %s: %w", r.path, err)
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

	length, err := r.queryLength()
	if err != nil {
		return fmt.Errorf("volume: query length of %s: %w", r.path, err)
	}
	r.length = length
	return nil
}

func (r *PhysicalReader) queryLength() (uint64, error) {
	var size int64
	ret, _, callErr := procGetFileSizeEx.Call(uintptr(r.handle), uintptr(unsafe.Pointer(&size)))
	if ret == 0 {
		return 0, callErr
	}
	return uint64(size), nil
}

// QuerySerial issues IOCTL_STORAGE_QUERY_PROPERTY to read the device's
// serial number. Nothing in this module calls it; internal/inventory
// takes drive serials from WMI's Win32_DiskDrive instead.
func (r *PhysicalReader) QuerySerial() (string, error) {
	query := storagePropertyQuery{PropertyId: 0, QueryType: 0}
	var desc [512]byte

	var bytesReturned uint32
	ret, _, callErr := procDeviceIoControl.Call(
		uintptr(r.handle),
		uintptr(ioctlStorageQueryProperty),
		uintptr(unsafe.Pointer(&query)),
		unsafe.Sizeof(query),
		uintptr(unsafe.Pointer(&desc[0])),
		uintptr(len(desc)),
		uintptr(unsafe.Pointer(&bytesReturned)),
		0,
	)
	if ret == 0 {
		return "", fmt.Errorf("volume: DeviceIoControl storage property: %w", callErr)
	}

	sd := (*storageDeviceDescriptor)(unsafe.Pointer(&desc[0]))
	if sd.SerialNumberOffset == 0 || sd.SerialNumberOffset >= uint32(len(desc)) {
		return "", nil
	}
	end := sd.SerialNumberOffset
	for end < uint32(len(desc)) && desc[end] != 0 {
		end++
	}
	return string(desc[sd.SerialNumberOffset:end]), nil
}

func (r *PhysicalReader) readAt(offset int64, n int) ([]byte, error) {
	var pos int64 = offset
	ret, _, callErr := procSetFilePointerEx.Call(
		uintptr(r.handle),
		uintptr(pos),
		0,
		0, // FILE_BEGIN
	)
	if ret == 0 {
		if r.tolerant == Tolerant {
			return make([]byte, n), nil
		}
		return nil, fmt.Errorf("volume: seek %s to %d: %w", r.path, offset, callErr)
	}

	buf := make([]byte, n)
	var bytesRead uint32
	ret, _, callErr = procReadFile.Call(
		uintptr(r.handle),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(n),
		uintptr(unsafe.Pointer(&bytesRead)),
		0,
	)
	if ret == 0 {
		if r.tolerant == Tolerant {
			return buf, nil // damaged sector reads as zeros, per 4.2
		}
		return nil, fmt.Errorf("volume: ReadFile %s at %d: %w", r.path, offset, callErr)
	}
	return buf, nil
}

func (r *PhysicalReader) Close() error {
	r.closed = true
	return windows.CloseHandle(r.handle)
}

var _ Reader = (*PhysicalReader)(nil)
