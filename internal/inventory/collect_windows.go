//go:build windows

package inventory

import (
	"fmt"
	"log"
	"time"
	"unsafe"

	"github.com/yusufpapurcu/wmi"
	"golang.org/x/sys/windows"
)

var (
	kernel32                 = windows.NewLazySystemDLL("kernel32.dll")
	procGetUserDefaultLocale  = kernel32.NewProc("GetUserDefaultLocaleName")
	procGetSystemDefaultLocale = kernel32.NewProc("GetSystemDefaultLocaleName")
)

type win32OperatingSystem struct {
	Caption        string
	Version        string
	OSArchitecture string
}

type win32ComputerSystem struct {
	DNSHostName string
	Domain      string
}

type win32NetworkAdapterConfiguration struct {
	Description    string
	MACAddress     string
	IPAddress      []string
	DNSServerSearchOrder []string
	IPEnabled      bool
}

type win32DiskDrive struct {
	DeviceID     string
	SerialNumber string
	Size         uint64
	InterfaceType string
	Status       string
}

type win32UserProfile struct {
	SID         string
	LocalPath   string
	LastUseTime time.Time
}

type win32QuickFixEngineering struct {
	HotFixID string
}

// collectPlatform fills in everything spec.md 4.11 asks for that only
// Windows can answer: WMI for OS/network/disk/profile enumeration
// (github.com/yusufpapurcu/wmi, per SPEC_FULL.md 11's wiring), plus a
// couple of raw kernel32 calls for locale and elevation that WMI
// doesn't expose directly, following win_api.go's
// NewLazySystemDLL/NewProc/Call idiom.
func collectPlatform(doc *Document, logger *log.Logger) error {
	var firstErr error
	note := func(stage string, err error) {
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", stage, err)
		}
		if err != nil {
			logger.Printf("inventory: %s failed: %v", stage, err)
		}
	}

	var osRows []win32OperatingSystem
	if err := wmi.Query("SELECT Caption, Version, OSArchitecture FROM Win32_OperatingSystem", &osRows); err == nil && len(osRows) > 0 {
		doc.OSDescription = osRows[0].Caption
		doc.OSVersion = osRows[0].Version
	} else {
		note("Win32_OperatingSystem query", err)
	}

	var csRows []win32ComputerSystem
	if err := wmi.Query("SELECT DNSHostName, Domain FROM Win32_ComputerSystem", &csRows); err == nil && len(csRows) > 0 {
		doc.FullHostname = csRows[0].DNSHostName + "." + csRows[0].Domain
	} else {
		note("Win32_ComputerSystem query", err)
	}

	var nicRows []win32NetworkAdapterConfiguration
	if err := wmi.Query("SELECT Description, MACAddress, IPAddress, DNSServerSearchOrder, IPEnabled FROM Win32_NetworkAdapterConfiguration WHERE IPEnabled=true", &nicRows); err == nil {
		for _, n := range nicRows {
			doc.NetworkAdapters = append(doc.NetworkAdapters, NetworkAdapter{
				Description: n.Description,
				MAC:         n.MACAddress,
				Addresses:   n.IPAddress,
				DNS:         n.DNSServerSearchOrder,
			})
		}
	} else {
		note("Win32_NetworkAdapterConfiguration query", err)
	}

	var diskRows []win32DiskDrive
	if err := wmi.Query("SELECT DeviceID, SerialNumber, Size, InterfaceType, Status FROM Win32_DiskDrive", &diskRows); err == nil {
		for _, d := range diskRows {
			doc.PhysicalDrives = append(doc.PhysicalDrives, PhysicalDrive{
				Path:         d.DeviceID,
				Serial:       d.SerialNumber,
				SizeBytes:    int64(d.Size),
				Type:         d.InterfaceType,
				Availability: d.Status,
			})
		}
	} else {
		note("Win32_DiskDrive query", err)
	}

	var profRows []win32UserProfile
	if err := wmi.Query("SELECT SID, LocalPath, LastUseTime FROM Win32_UserProfile", &profRows); err == nil {
		for _, p := range profRows {
			lu := p.LastUseTime
			doc.Profiles = append(doc.Profiles, Profile{
				SID:      p.SID,
				Path:     p.LocalPath,
				LoadTime: &lu,
			})
		}
	} else {
		note("Win32_UserProfile query", err)
	}

	var qfeRows []win32QuickFixEngineering
	if err := wmi.Query("SELECT HotFixID FROM Win32_QuickFixEngineering", &qfeRows); err == nil {
		for _, q := range qfeRows {
			doc.QFEList = append(doc.QFEList, q.HotFixID)
		}
	} else {
		note("Win32_QuickFixEngineering query", err)
	}

	doc.Locale = localeName(procGetUserDefaultLocale)
	doc.Language = localeName(procGetSystemDefaultLocale)

	if user, domain, sid, elevated, err := currentIdentity(); err == nil {
		if domain != "" {
			doc.CurrentUser = domain + `\` + user
		} else {
			doc.CurrentUser = user
		}
		doc.UserSID = sid
		doc.Elevated = elevated
	} else {
		note("current token identity", err)
	}

	doc.WOW64 = isWow64()

	return firstErr
}

// localeName calls one of kernel32's GetUserDefaultLocaleName /
// GetSystemDefaultLocaleName procs, which both share the signature
// LCTYPE(LPWSTR buf, int bufSize).
func localeName(proc *windows.LazyProc) string {
	buf := make([]uint16, 85) // LOCALE_NAME_MAX_LENGTH
	ret, _, _ := proc.Call(uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if ret == 0 {
		return ""
	}
	return windows.UTF16ToString(buf)
}

// currentIdentity reads the process token for the running user's
// name, domain, SID string, and elevation state.
func currentIdentity() (user, domain, sid string, elevated bool, err error) {
	tok := windows.GetCurrentProcessToken()

	tu, err := tok.GetTokenUser()
	if err != nil {
		return "", "", "", false, fmt.Errorf("GetTokenUser: %w", err)
	}
	account, dom, _, err := tu.User.Sid.LookupAccount("")
	if err == nil {
		user, domain = account, dom
	}
	sid, _ = tu.User.Sid.String()
	elevated = tok.IsElevated()
	return user, domain, sid, elevated, nil
}

// isWow64 reports whether this process is a 32-bit process running
// under WOW64 on a 64-bit host, as IsWow64Process answers it; a native
// build, or a failed call, reports false.
func isWow64() bool {
	var wow64Process bool
	_ = windows.IsWow64Process(windows.CurrentProcess(), &wow64Process)
	return wow64Process
}
