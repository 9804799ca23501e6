//go:build !windows

package inventory

import "log"

// collectPlatform has no meaningful Windows registry/WMI surface to
// query off Windows, for the same reason internal/location's
// discovery_stub.go leaves drive/profile enumeration empty there: this
// module's cross-platform build targets image-file collection, not a
// live non-Windows host inventory. The returned Document keeps
// whatever Collect already filled in from the standard library.
func collectPlatform(doc *Document, logger *log.Logger) error {
	logger.Printf("inventory: platform-specific fields unavailable outside Windows")
	return nil
}
