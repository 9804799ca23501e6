package location

import (
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/orcforensics/dfir-orc-go/internal/vss"
)

// ShadowPolicy selects which of a volume's VSS snapshots consolidate()
// expands into additional Volumes, per spec.md 4.7.
type ShadowPolicy int

const (
	ShadowNone ShadowPolicy = iota
	ShadowNewest
	ShadowOldest
	ShadowAll
	ShadowSpecificGUIDs
)

func (p ShadowPolicy) String() string {
	switch p {
	case ShadowNone:
		return "none"
	case ShadowNewest:
		return "newest"
	case ShadowOldest:
		return "oldest"
	case ShadowAll:
		return "all"
	case ShadowSpecificGUIDs:
		return "specific-guids"
	default:
		return "unknown"
	}
}

// SelectSnapshots orders snapshots by creation time ascending, then
// applies policy: newest/oldest pick the single extreme by creation
// timestamp, all returns every snapshot, specific-guids matches by
// snapshot GUID (any requested GUID absent from snapshots is logged as
// a warning, per spec.md 4.7).
func SelectSnapshots(snapshots []vss.SnapshotInfo, policy ShadowPolicy, specificGUIDs []uuid.UUID, logger *log.Logger) []vss.SnapshotInfo {
	if len(snapshots) == 0 || policy == ShadowNone {
		return nil
	}
	ordered := make([]vss.SnapshotInfo, len(snapshots))
	copy(ordered, snapshots)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].CreationTime.Before(ordered[j].CreationTime)
	})

	switch policy {
	case ShadowNewest:
		return ordered[len(ordered)-1:]
	case ShadowOldest:
		return ordered[:1]
	case ShadowAll:
		return ordered
	case ShadowSpecificGUIDs:
		var out []vss.SnapshotInfo
		found := make(map[uuid.UUID]bool)
		for _, s := range ordered {
			for _, g := range specificGUIDs {
				if s.GUID == g {
					out = append(out, s)
					found[g] = true
				}
			}
		}
		if logger != nil {
			for _, g := range specificGUIDs {
				if !found[g] {
					logger.Printf("shadow policy: requested snapshot guid %s not found", g)
				}
			}
		}
		return out
	default:
		if logger != nil {
			logger.Printf("shadow policy: unrecognized policy %v, treating as none", policy)
		}
		return nil
	}
}

// ParseShadowPolicy parses the configuration string form (§6).
func ParseShadowPolicy(s string) (ShadowPolicy, error) {
	switch s {
	case "none", "":
		return ShadowNone, nil
	case "newest":
		return ShadowNewest, nil
	case "oldest":
		return ShadowOldest, nil
	case "all":
		return ShadowAll, nil
	case "specific-guids":
		return ShadowSpecificGUIDs, nil
	default:
		return ShadowNone, fmt.Errorf("location: unknown shadow policy %q", s)
	}
}
