// Package location implements the location set (C7): discovering,
// canonicalising, filtering, and iterating the storage locations a
// collection run reads from.
package location

import (
	"time"

	"github.com/google/uuid"

	"github.com/orcforensics/dfir-orc-go/internal/volume"
)

// Altitude selects how a Location's device path is opened, per spec.md
// 4.7's three-way choice.
type Altitude int

const (
	// AltitudeLowest reads through a physical-drive/partition offset.
	AltitudeLowest Altitude = iota
	// AltitudeHighest reads through a mounted-volume handle.
	AltitudeHighest
	// AltitudeExact uses a caller-provided device path verbatim.
	AltitudeExact
)

func (a Altitude) String() string {
	switch a {
	case AltitudeLowest:
		return "lowest"
	case AltitudeHighest:
		return "highest"
	case AltitudeExact:
		return "exact"
	default:
		return "unknown"
	}
}

// SpecKind discriminates the four forms add() accepts.
type SpecKind int

const (
	SpecDevicePath SpecKind = iota
	SpecDriveLetter
	SpecDirPattern
	SpecAll // the literal "*"
)

// Spec is one raw request passed to Set.Add, before resolution into a
// concrete Location.
type Spec struct {
	Kind SpecKind
	// Value holds the device path, drive letter, or directory glob
	// pattern; empty when Kind is SpecAll.
	Value string
}

// ParseSpec classifies a raw add() argument into a Spec, per spec.md
// 4.7: the literal "*" means every local volume, a single letter
// followed by ":" (optionally with a trailing backslash) is a drive
// letter, anything containing a glob metacharacter is a directory
// pattern, and everything else is taken as a device path.
func ParseSpec(raw string) Spec {
	if raw == "*" {
		return Spec{Kind: SpecAll}
	}
	if isDriveLetterSpec(raw) {
		return Spec{Kind: SpecDriveLetter, Value: raw}
	}
	if containsGlobMeta(raw) {
		return Spec{Kind: SpecDirPattern, Value: raw}
	}
	return Spec{Kind: SpecDevicePath, Value: raw}
}

func isDriveLetterSpec(raw string) bool {
	if len(raw) < 2 || len(raw) > 3 {
		return false
	}
	c := raw[0]
	if !((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')) {
		return false
	}
	if raw[1] != ':' {
		return false
	}
	if len(raw) == 3 && raw[2] != '\\' && raw[2] != '/' {
		return false
	}
	return true
}

func containsGlobMeta(raw string) bool {
	for _, r := range raw {
		switch r {
		case '*', '?', '[':
			return true
		}
	}
	return false
}

// Volume is the resolved identity spec.md 3 ("Volume identity")
// describes: everything a consumer needs to decide whether two
// enumerations refer to the same underlying storage, plus enough to open
// a volume.Reader over it.
type Volume struct {
	Serial       uint64
	PathID       string
	FSType       volume.FSType
	ClusterSize  uint32
	TotalSectors uint64
	SectorSize   uint32
	MountPoints  []string

	// IsValid is false when parsing the volume failed; Diagnostic then
	// carries the reason, per spec.md 4.7's consolidate() invariant.
	IsValid    bool
	Diagnostic error

	// Parent and ShadowGUID are set for shadow-copy volumes: Parent
	// points at the live volume the snapshot was taken from, ShadowGUID
	// is the snapshot's own identity.
	Parent       *Volume
	ShadowGUID   *uuid.UUID
	CreationTime time.Time

	Backend  volume.Backend
	Altitude Altitude
	Reader   volume.Reader
}

// Key returns the (serial, snapshot-guid) identity spec.md 3 defines:
// two volumes with equal serial and equal snapshot GUID are the same
// volume.
func (v *Volume) Key() VolumeKey {
	k := VolumeKey{Serial: v.Serial}
	if v.ShadowGUID != nil {
		k.ShadowGUID = *v.ShadowGUID
	}
	return k
}

// VolumeKey is the map key a Set indexes Locations by.
type VolumeKey struct {
	Serial     uint64
	ShadowGUID uuid.UUID
}

// Location is one entry in the location set: the spec that produced it,
// the resolution altitude, and (once consolidated) the Volume it
// resolved to.
type Location struct {
	Spec     Spec
	Altitude Altitude
	Volume   *Volume

	// PathPattern carries a SpecDirPattern's glob forward after the
	// underlying volume has been resolved, so later components (the
	// sample engine) can still restrict traversal to the directories the
	// original spec named.
	PathPattern string
}
