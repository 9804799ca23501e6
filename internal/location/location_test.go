package location

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orcforensics/dfir-orc-go/internal/volume"
	"github.com/orcforensics/dfir-orc-go/internal/vss"
)

func TestParseSpecKinds(t *testing.T) {
	cases := []struct {
		raw  string
		kind SpecKind
	}{
		{"*", SpecAll},
		{"C:", SpecDriveLetter},
		{`C:\`, SpecDriveLetter},
		{`C:\Users\*\Documents`, SpecDirPattern},
		{`\\.\PhysicalDrive0`, SpecDevicePath},
		{`D:\images\disk.dd`, SpecDevicePath},
	}

	for _, c := range cases {
		got := ParseSpec(c.raw)
		if got.Kind != c.kind {
			t.Errorf("ParseSpec(%q).Kind = %v, want %v", c.raw, got.Kind, c.kind)
		}
	}
}

func TestSplitPatternRoot(t *testing.T) {
	root, rest := splitPatternRoot(`C:\Users\*\Documents`)
	if root != "C:" {
		t.Errorf("root = %q, want C:", root)
	}
	if rest != `Users\*\Documents` {
		t.Errorf("rest = %q", rest)
	}
}

func TestDriveLetterOnly(t *testing.T) {
	for _, in := range []string{"C:", `C:\`, "C"} {
		if got := driveLetterOnly(in); got != "C" {
			t.Errorf("driveLetterOnly(%q) = %q, want C", in, got)
		}
	}
}

func TestMergeMountPoints(t *testing.T) {
	got := mergeMountPoints([]string{"C:"}, []string{"C:", "E:"})
	if len(got) != 2 || got[0] != "C:" || got[1] != "E:" {
		t.Fatalf("got %v", got)
	}
}

func TestDefaultFilesystemFilterKeepsOnlyNTFSAndFAT(t *testing.T) {
	keep := []volume.FSType{volume.FSNTFS, volume.FSFAT12, volume.FSFAT16, volume.FSFAT32, volume.FSExFAT}
	for _, fst := range keep {
		if !defaultFilesystemFilter(&Volume{FSType: fst}) {
			t.Errorf("%v should be kept", fst)
		}
	}
	if defaultFilesystemFilter(&Volume{FSType: volume.FSUnknown}) {
		t.Error("unknown fs type should be filtered out")
	}
}

func TestIsImageFilePath(t *testing.T) {
	if isImageFilePath(`\\.\PhysicalDrive0`) {
		t.Error("device path misclassified as image")
	}
	if !isImageFilePath(`/tmp/disk.dd`) {
		t.Error("plain file path misclassified as device")
	}
}

func TestVolumeKeyEquality(t *testing.T) {
	g := uuid.New()
	v1 := &Volume{Serial: 42, ShadowGUID: &g}
	v2 := &Volume{Serial: 42, ShadowGUID: &g}
	if v1.Key() != v2.Key() {
		t.Fatal("volumes with equal serial+guid should share a key")
	}
	v3 := &Volume{Serial: 42}
	if v1.Key() == v3.Key() {
		t.Fatal("a shadow volume and its live parent must not collide")
	}
}

func TestSelectSnapshotsPolicies(t *testing.T) {
	g1, g2, g3 := uuid.New(), uuid.New(), uuid.New()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	snaps := []vss.SnapshotInfo{
		{GUID: g2, CreationTime: now.Add(2 * time.Hour)},
		{GUID: g1, CreationTime: now},
		{GUID: g3, CreationTime: now.Add(time.Hour)},
	}

	newest := SelectSnapshots(snaps, ShadowNewest, nil, nil)
	if len(newest) != 1 || newest[0].GUID != g2 {
		t.Fatalf("newest = %+v", newest)
	}

	oldest := SelectSnapshots(snaps, ShadowOldest, nil, nil)
	if len(oldest) != 1 || oldest[0].GUID != g1 {
		t.Fatalf("oldest = %+v", oldest)
	}

	all := SelectSnapshots(snaps, ShadowAll, nil, nil)
	if len(all) != 3 {
		t.Fatalf("all = %d snapshots, want 3", len(all))
	}
	if !all[0].CreationTime.Before(all[1].CreationTime) || !all[1].CreationTime.Before(all[2].CreationTime) {
		t.Fatalf("all() must be ordered ascending by creation time: %+v", all)
	}

	specific := SelectSnapshots(snaps, ShadowSpecificGUIDs, []uuid.UUID{g3}, nil)
	if len(specific) != 1 || specific[0].GUID != g3 {
		t.Fatalf("specific-guids = %+v", specific)
	}

	none := SelectSnapshots(snaps, ShadowNone, nil, nil)
	if none != nil {
		t.Fatalf("none policy should select nothing, got %+v", none)
	}
}

func TestParseShadowPolicy(t *testing.T) {
	cases := map[string]ShadowPolicy{
		"":               ShadowNone,
		"none":           ShadowNone,
		"newest":         ShadowNewest,
		"oldest":         ShadowOldest,
		"all":            ShadowAll,
		"specific-guids": ShadowSpecificGUIDs,
	}
	for raw, want := range cases {
		got, err := ParseShadowPolicy(raw)
		if err != nil {
			t.Fatalf("ParseShadowPolicy(%q): %v", raw, err)
		}
		if got != want {
			t.Errorf("ParseShadowPolicy(%q) = %v, want %v", raw, got, want)
		}
	}
	if _, err := ParseShadowPolicy("bogus"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
