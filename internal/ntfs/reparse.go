package ntfs

import (
	"encoding/binary"
	"errors"
)

// Reparse tag for WOF (Windows Overlay Filter) reparse points, the
// mechanism behind both system-compressed files (xpress4k/8k/16k) and
// WIMBoot projection. spec.md 4.5 asks the compression layer to recognize
// this tag on $REPARSE_POINT before deciding whether a file's $DATA
// stream needs WOF decompression.
const ReparseTagWOF uint32 = 0x80000017

// ErrNotWOFReparsePoint is returned when the buffer's reparse tag isn't
// IO_REPARSE_TAG_WOF.
var ErrNotWOFReparsePoint = errors.New("ntfs: not a WOF reparse point")

// WOFProvider distinguishes the two WOF backends; only FileProvider
// (system file compression) is decoded further, WIMProvider (WIMBoot
// projection) is recognized but left unhandled.
type WOFProvider uint32

const (
	WOFProviderUnknown WOFProvider = 0
	WOFProviderWIM     WOFProvider = 1
	WOFProviderFile    WOFProvider = 2
)

// WOFReparseData is the decoded payload of a WOF reparse point.
type WOFReparseData struct {
	Provider       WOFProvider
	FileProviderVersion uint32
	Algorithm      uint32
}

// DecodeWOFReparsePoint parses the reparse-point attribute's resident
// content. The general reparse point header is 8 bytes (tag, data length,
// reserved) followed by provider-specific data; for WOF that is two
// uint32s (provider, version) then the file-provider sub-struct.
func DecodeWOFReparsePoint(data []byte) (WOFReparseData, error) {
	if len(data) < 8 {
		return WOFReparseData{}, ErrNotWOFReparsePoint
	}
	tag := binary.LittleEndian.Uint32(data[0:4])
	if tag != ReparseTagWOF {
		return WOFReparseData{}, ErrNotWOFReparsePoint
	}
	if len(data) < 16 {
		return WOFReparseData{}, ErrNotWOFReparsePoint
	}
	var w WOFReparseData
	w.Provider = WOFProvider(binary.LittleEndian.Uint32(data[8:12]))
	w.FileProviderVersion = binary.LittleEndian.Uint32(data[12:16])
	if w.Provider == WOFProviderFile && len(data) >= 20 {
		w.Algorithm = binary.LittleEndian.Uint32(data[16:20])
	}
	return w, nil
}
