package ntfs

import (
	"encoding/binary"
	"errors"
)

// ErrNotLogFileRestartArea is returned when the buffer passed to
// ParseLogFileRestartArea doesn't carry the "RSTR" signature.
var ErrNotLogFileRestartArea = errors.New("ntfs: not a $LogFile restart area")

// LogFileInfo summarizes a $LogFile's restart area: enough to tell a
// collector whether the volume was cleanly unmounted, without replaying
// any of the transaction log itself. Replaying $LogFile transactions to
// reconstruct pre-flush metadata is out of scope, per spec.md's Non-goals;
// this is read-only awareness only, per SPEC_FULL.md 12.
type LogFileInfo struct {
	// Dirty is true when the restart area's clean-unmount bit is clear,
	// meaning the volume may have outstanding transactions that Windows'
	// own chkdsk/recovery would normally replay on next mount.
	Dirty bool

	CurrentLSN    uint64
	RestartLSN    uint64
	RestartArea   uint16
	LogClients    uint16
}

const logFileCleanUnmountFlag = 0x0002

// ParseLogFileRestartArea parses one of $LogFile's two restart-area copies
// (each is fixup-protected exactly like an MFT record, so callers must run
// ApplyFixup on buf first). spec.md's NTFS engine only needs to report
// whether the volume was dirty; the transaction records that follow the
// restart area are intentionally never interpreted.
func ParseLogFileRestartArea(buf []byte) (LogFileInfo, error) {
	if len(buf) < 8 || string(buf[0:4]) != "RSTR" {
		return LogFileInfo{}, ErrNotLogFileRestartArea
	}

	var info LogFileInfo
	if len(buf) >= 48 {
		info.CurrentLSN = binary.LittleEndian.Uint64(buf[8:16])
		systemPageSize := binary.LittleEndian.Uint32(buf[16:20])
		restartAreaOffset := binary.LittleEndian.Uint16(buf[24:26])
		_ = systemPageSize
		if int(restartAreaOffset)+24 <= len(buf) {
			ra := buf[restartAreaOffset:]
			flags := binary.LittleEndian.Uint16(ra[10:12])
			info.Dirty = flags&logFileCleanUnmountFlag == 0
			info.RestartArea = restartAreaOffset
			info.LogClients = binary.LittleEndian.Uint16(ra[12:14])
			info.RestartLSN = binary.LittleEndian.Uint64(ra[0:8])
		}
	}
	return info, nil
}
