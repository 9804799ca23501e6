package ntfs

import (
	"errors"
	"strings"
)

// ErrOrphaned is returned when a record's parent chain never reaches the
// filesystem root within the configured depth bound, either because a
// directory was itself deleted and reused, or because of a genuine cycle
// (spec.md 4.3's resolver must terminate either way).
var ErrOrphaned = errors.New("ntfs: path resolution did not reach root")

// maxResolveDepth bounds parent-chain walks so a corrupted or maliciously
// crafted record set cannot spin the resolver forever.
const maxResolveDepth = 512

// PathResolver caches resolved directory paths so that resolving the full
// path of N files under the same directory tree costs O(depth) amortized
// instead of O(depth) per file with no reuse.
type PathResolver struct {
	walker *Walker
	cache  map[uint64]string
}

// NewPathResolver builds a resolver over walker, seeded with the root.
func NewPathResolver(walker *Walker) *PathResolver {
	return &PathResolver{
		walker: walker,
		cache:  map[uint64]string{RootRecordIndex: ""},
	}
}

// Resolve returns the full path (forward-slash separated, no drive letter)
// of the given record index, using and populating the cache as it walks
// towards the root.
func (p *PathResolver) Resolve(index uint64) (string, error) {
	if path, ok := p.cache[index]; ok {
		return path, nil
	}

	var chain []string
	var walked []uint64
	cur := index
	visited := make(map[uint64]bool)

	for depth := 0; depth < maxResolveDepth; depth++ {
		if cached, ok := p.cache[cur]; ok {
			for i, idx := range walked {
				p.cache[idx] = joinPath(cached, chain[i:])
			}
			return p.cache[index], nil
		}
		if visited[cur] {
			return "", ErrOrphaned
		}
		visited[cur] = true

		rec, err := p.walker.ReadRecord(cur)
		if err != nil {
			return "", err
		}
		fn, ok := BestFileName(rec.Attributes)
		if !ok {
			return "", ErrOrphaned
		}
		chain = append(chain, fn.Name)
		walked = append(walked, cur)

		parentIdx := fn.ParentDirectory.RecordIndex()
		if parentIdx == cur {
			return "", ErrOrphaned
		}
		cur = parentIdx
	}
	return "", ErrOrphaned
}

func joinPath(base string, reverseChain []string) string {
	var b strings.Builder
	b.WriteString(base)
	for i := len(reverseChain) - 1; i >= 0; i-- {
		if b.Len() > 0 {
			b.WriteByte('/')
		}
		b.WriteString(reverseChain[i])
	}
	return b.String()
}

// Invalidate drops a cached path, for use when resurrection or a later
// scan pass discovers a record's parent link has changed.
func (p *PathResolver) Invalidate(index uint64) {
	delete(p.cache, index)
}
