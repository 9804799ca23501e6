package location

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/orcforensics/dfir-orc-go/internal/volume"
	"github.com/orcforensics/dfir-orc-go/internal/vss"
)

// Set is the location set (C7): a mapping from serial+snapshot-guid to
// Location, plus the shadow/exclude/altitude policy spec.md 4.7 assigns
// it.
type Set struct {
	locations map[VolumeKey]*Location
	pending   []*Location

	shadowPolicy  ShadowPolicy
	specificGUIDs []uuid.UUID
	pathExcludes  []string
	altitude      Altitude
	tolerant      volume.TolerantMode

	logger *log.Logger
}

// NewSet builds an empty location set. altitude is the default applied
// to specs that don't otherwise dictate one (a "*" or drive-letter spec
// always resolves at AltitudeHighest; an explicit device path resolves
// at the caller's requested altitude).
func NewSet(altitude Altitude, policy ShadowPolicy, specificGUIDs []uuid.UUID, pathExcludes []string, logger *log.Logger) *Set {
	if logger == nil {
		logger = log.New(log.Writer(), "[location] ", log.LstdFlags)
	}
	return &Set{
		locations:     make(map[VolumeKey]*Location),
		shadowPolicy:  policy,
		specificGUIDs: specificGUIDs,
		pathExcludes:  pathExcludes,
		altitude:      altitude,
		logger:        logger,
	}
}

// Add registers one raw spec (device path, drive letter, directory
// pattern, or "*"), per spec.md 4.7. Resolution into a concrete Volume
// happens later, in Consolidate.
func (s *Set) Add(raw string) error {
	spec := ParseSpec(raw)
	switch spec.Kind {
	case SpecAll:
		for _, letter := range enumerateLogicalDrives() {
			s.pending = append(s.pending, &Location{
				Spec:     Spec{Kind: SpecDriveLetter, Value: letter},
				Altitude: AltitudeHighest,
			})
		}
		if len(s.pending) == 0 {
			s.logger.Printf("add(*): no logical drives discovered on this platform")
		}
		return nil
	case SpecDriveLetter:
		s.pending = append(s.pending, &Location{Spec: spec, Altitude: AltitudeHighest})
		return nil
	case SpecDirPattern:
		root, pattern := splitPatternRoot(spec.Value)
		loc := &Location{
			Spec:        Spec{Kind: SpecDriveLetter, Value: root},
			Altitude:    AltitudeHighest,
			PathPattern: pattern,
		}
		s.pending = append(s.pending, loc)
		return nil
	case SpecDevicePath:
		s.pending = append(s.pending, &Location{Spec: spec, Altitude: s.altitude})
		return nil
	default:
		return fmt.Errorf("location: unrecognized spec %q", raw)
	}
}

// splitPatternRoot pulls the drive-letter (or UNC share) prefix off a
// directory-pattern spec, returning the root to resolve as a volume and
// the remaining glob to keep as a path filter.
func splitPatternRoot(pattern string) (root, rest string) {
	norm := strings.ReplaceAll(pattern, "/", `\`)
	if len(norm) >= 2 && norm[1] == ':' {
		root = norm[0:2]
		rest = strings.TrimPrefix(norm[2:], `\`)
		return root, rest
	}
	return "C:", norm
}

// AddKnownLocations injects the default profile/system paths spec.md 4.7
// names: %SystemRoot%\System32 and every profile's home directory.
func (s *Set) AddKnownLocations() {
	sysRoot := defaultSystemRoot()
	if err := s.Add(filepath.Join(sysRoot, "System32") + `\*`); err != nil {
		s.logger.Printf("add known location %s: %v", sysRoot, err)
	}
	for _, profile := range enumerateUserProfiles() {
		if err := s.Add(profile + `\*`); err != nil {
			s.logger.Printf("add known location %s: %v", profile, err)
		}
	}
}

// Consolidate resolves every pending spec into a Volume, merges
// duplicates keyed by (serial, snapshot-guid), classifies by filesystem
// (filter decides what survives; a nil filter keeps spec.md 4.7's
// default of NTFS and FAT only), and expands shadow copies for each
// surviving live volume per the configured shadow policy. consolidate is
// idempotent: locations already resolved are left untouched on a second
// call.
func (s *Set) Consolidate(filter func(*Volume) bool) error {
	if filter == nil {
		filter = defaultFilesystemFilter
	}

	for _, loc := range s.pending {
		if err := s.resolveOne(loc); err != nil {
			loc.Volume = &Volume{IsValid: false, Diagnostic: err}
			s.logger.Printf("resolve %v: %v", loc.Spec, err)
		}
	}
	s.pending = nil

	for key, loc := range s.locations {
		if loc.Volume == nil || !loc.Volume.IsValid {
			continue
		}
		if !filter(loc.Volume) {
			delete(s.locations, key)
		}
	}

	for _, loc := range s.snapshotOfExistingLocations() {
		if err := s.expandShadowCopies(loc, filter); err != nil {
			s.logger.Printf("expand shadow copies for %s: %v", loc.Volume.PathID, err)
		}
	}
	return nil
}

// snapshotOfExistingLocations takes a stable slice of the current live
// locations before shadow expansion starts adding new ones, so the
// expansion loop doesn't also walk the snapshots it just inserted.
func (s *Set) snapshotOfExistingLocations() []*Location {
	out := make([]*Location, 0, len(s.locations))
	for _, loc := range s.locations {
		out = append(out, loc)
	}
	return out
}

func defaultFilesystemFilter(v *Volume) bool {
	switch v.FSType {
	case volume.FSNTFS, volume.FSFAT12, volume.FSFAT16, volume.FSFAT32, volume.FSExFAT:
		return true
	default:
		return false
	}
}

func (s *Set) resolveOne(loc *Location) error {
	reader, err := s.open(loc)
	if err != nil {
		return err
	}
	if err := reader.LoadBootSector(); err != nil {
		return fmt.Errorf("load boot sector: %w", err)
	}
	geom := reader.Geometry()
	v := &Volume{
		Serial:       reader.GetSerial(),
		PathID:       loc.Spec.Value,
		FSType:       reader.GetFSType(),
		ClusterSize:  geom.ClusterSize,
		TotalSectors: geom.TotalSectors,
		SectorSize:   geom.SectorSize,
		MountPoints:  mountPointsFor(loc),
		IsValid:      true,
		Backend:      backendFor(loc),
		Altitude:     loc.Altitude,
		Reader:       reader,
	}
	loc.Volume = v

	key := v.Key()
	if existing, ok := s.locations[key]; ok {
		existing.Volume.MountPoints = mergeMountPoints(existing.Volume.MountPoints, v.MountPoints)
		return nil
	}
	s.locations[key] = loc
	return nil
}

func mountPointsFor(loc *Location) []string {
	if loc.Spec.Kind == SpecDriveLetter {
		return []string{loc.Spec.Value}
	}
	return nil
}

func mergeMountPoints(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string{}, a...)
	for _, m := range a {
		seen[m] = true
	}
	for _, m := range b {
		if !seen[m] {
			out = append(out, m)
			seen[m] = true
		}
	}
	return out
}

func backendFor(loc *Location) volume.Backend {
	switch {
	case loc.Spec.Kind == SpecDriveLetter:
		return volume.BackendMounted
	case loc.Altitude == AltitudeLowest:
		return volume.BackendPartition
	default:
		return volume.BackendPhysical
	}
}

func (s *Set) open(loc *Location) (volume.Reader, error) {
	switch loc.Spec.Kind {
	case SpecDriveLetter:
		return volume.NewMountedReader(driveLetterOnly(loc.Spec.Value), s.tolerant)
	case SpecDevicePath:
		if isImageFilePath(loc.Spec.Value) {
			return volume.NewImageReader(loc.Spec.Value, s.tolerant)
		}
		return volume.NewPhysicalReader(loc.Spec.Value, s.tolerant)
	default:
		return nil, fmt.Errorf("location: cannot open spec kind %v directly", loc.Spec.Kind)
	}
}

// driveLetterOnly strips the trailing ":" (and any "\") from a
// SpecDriveLetter value, since volume.NewMountedReader builds the
// `\\.\X:` device path itself.
func driveLetterOnly(v string) string {
	return strings.TrimRight(strings.TrimSuffix(v, `\`), ":")
}

// isImageFilePath distinguishes a flat disk-image path (used pervasively
// by this module's own tests and by offline triage against a prior
// capture) from a live Win32 device path: device paths always begin
// with the `\\.\` device namespace prefix.
func isImageFilePath(path string) bool {
	return !strings.HasPrefix(path, `\\.\`)
}

// expandShadowCopies reads loc's VSS catalog (if any) and adds one
// Location per snapshot the shadow policy selects.
func (s *Set) expandShadowCopies(loc *Location, filter func(*Volume) bool) error {
	if s.shadowPolicy == ShadowNone {
		return nil
	}
	v := loc.Volume
	if v == nil || !v.IsValid || v.FSType != volume.FSNTFS {
		return nil // VSS catalogs are an NTFS-only in-band structure
	}

	start, err := vss.FindCatalogStart(v.Reader, 0)
	if err != nil {
		return fmt.Errorf("locate catalog: %w", err)
	}
	cat, err := vss.ReadCatalog(v.Reader, start)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	selected := SelectSnapshots(cat.Snapshots, s.shadowPolicy, s.specificGUIDs, s.logger)
	for _, snap := range selected {
		diffArea, ok := matchingDiffArea(cat.DiffAreas, snap.GUID)
		if !ok {
			s.logger.Printf("shadow copy %s: no matching diff-area-info entry, skipping", snap.GUID)
			continue
		}
		shadowReader, err := vss.NewShadowCopyReader(v.Reader, v.Reader, diffArea, s.logger)
		if err != nil {
			s.logger.Printf("shadow copy %s: %v", snap.GUID, err)
			continue
		}
		guid := snap.GUID
		shadowVol := &Volume{
			Serial:       v.Serial,
			PathID:       fmt.Sprintf("%s@%s", v.PathID, guid),
			FSType:       v.FSType,
			ClusterSize:  v.ClusterSize,
			TotalSectors: v.TotalSectors,
			SectorSize:   v.SectorSize,
			IsValid:      true,
			Parent:       v,
			ShadowGUID:   &guid,
			CreationTime: snap.CreationTime,
			Backend:      volume.BackendShadow,
			Altitude:     loc.Altitude,
			Reader:       shadowReader,
		}
		if !filter(shadowVol) {
			continue
		}
		shadowLoc := &Location{
			Spec:        Spec{Kind: SpecDevicePath, Value: shadowVol.PathID},
			Altitude:    loc.Altitude,
			Volume:      shadowVol,
			PathPattern: loc.PathPattern,
		}
		s.locations[shadowVol.Key()] = shadowLoc
	}
	return nil
}

func matchingDiffArea(areas []vss.DiffAreaInfo, guid uuid.UUID) (vss.DiffAreaInfo, bool) {
	for _, a := range areas {
		if a.SnapshotGUID == guid {
			return a, true
		}
	}
	return vss.DiffAreaInfo{}, false
}

// Enumerate returns every consolidated Volume, per spec.md 4.7.
func (s *Set) Enumerate() []*Volume {
	out := make([]*Volume, 0, len(s.locations))
	for _, loc := range s.locations {
		if loc.Volume != nil {
			out = append(out, loc.Volume)
		}
	}
	return out
}
