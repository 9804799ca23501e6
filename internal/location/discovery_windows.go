//go:build windows

package location

import (
	"golang.org/x/sys/windows"
)

var kernel32 = windows.NewLazySystemDLL("kernel32.dll")
var procGetLogicalDrives = kernel32.NewProc("GetLogicalDrives")

// enumerateLogicalDrives lists every in-use drive letter, mirroring the
// host project's own `procGetLogicalDrives.Call()` idiom in
// mount_manager_windows.go.
func enumerateLogicalDrives() []string {
	ret, _, _ := procGetLogicalDrives.Call()
	mask := uint32(ret)

	var letters []string
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		letters = append(letters, string(rune('A'+i))+":")
	}
	return letters
}

func defaultSystemRoot() string {
	return `C:\Windows`
}

// enumerateUserProfiles lists every directory under C:\Users as a
// profile home directory. internal/inventory's profile collector (C11)
// takes its profile list from WMI's Win32_UserProfile instead; this
// function only needs the paths, not that metadata.
func enumerateUserProfiles() []string {
	root := `C:\Users`
	entries, err := readDirNames(root)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, root+`\`+e)
	}
	return out
}

