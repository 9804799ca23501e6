package sample

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Candidate is one file (or directory entry) the sample engine is asked
// to evaluate, carrying just enough cheap metadata to run the
// fail-fast matchers plus a lazy opener for the matchers that need
// content (header-bytes, yara, hash-list), per spec.md 4.8's evaluation
// order.
type Candidate struct {
	FullPath string
	Name     string
	Size     int64

	// Open returns the candidate's data stream. Matchers that need
	// content call it through reader, which opens and caches a
	// single reader per Candidate so a rule with several content
	// matchers (header-bytes AND hash-list, say) only opens the stream
	// once.
	Open func() (io.ReadCloser, error)

	cached     io.ReadCloser
	cachedBuf  *bufio.Reader
	openErr    error
	openedOnce bool
}

func (c *Candidate) reader() (*bufio.Reader, error) {
	if !c.openedOnce {
		c.openedOnce = true
		if c.Open == nil {
			c.openErr = fmt.Errorf("sample: candidate %s has no content opener", c.FullPath)
		} else {
			rc, err := c.Open()
			if err != nil {
				c.openErr = fmt.Errorf("sample: open %s: %w", c.FullPath, err)
			} else {
				c.cached = rc
				c.cachedBuf = bufio.NewReader(rc)
			}
		}
	}
	return c.cachedBuf, c.openErr
}

// Close releases any content reader this candidate opened while
// matching. Safe to call even if no matcher needed content.
func (c *Candidate) Close() error {
	if c.cached != nil {
		return c.cached.Close()
	}
	return nil
}

// Matcher is one clause of a Rule (spec.md 4.8: "a rule = AND of
// matchers"). Cheap matchers never touch Candidate.Open; content
// matchers do, through Candidate's own reader cache.
type Matcher interface {
	// RequiresContent reports whether Match needs the data stream -
	// the engine runs every matcher with RequiresContent() == false
	// first, failing fast before paying for a single content open.
	RequiresContent() bool
	Match(c *Candidate) (bool, error)
}

// PathGlobMatcher matches a candidate's full path against a
// filepath.Match-style glob.
type PathGlobMatcher struct{ Pattern string }

func (m PathGlobMatcher) RequiresContent() bool { return false }
func (m PathGlobMatcher) Match(c *Candidate) (bool, error) {
	ok, err := filepath.Match(m.Pattern, filepath.ToSlash(c.FullPath))
	if err != nil {
		return false, fmt.Errorf("sample: path-glob %q: %w", m.Pattern, err)
	}
	return ok, nil
}

// NameGlobMatcher matches only the base name, independent of directory.
type NameGlobMatcher struct{ Pattern string }

func (m NameGlobMatcher) RequiresContent() bool { return false }
func (m NameGlobMatcher) Match(c *Candidate) (bool, error) {
	ok, err := filepath.Match(m.Pattern, c.Name)
	if err != nil {
		return false, fmt.Errorf("sample: name-glob %q: %w", m.Pattern, err)
	}
	return ok, nil
}

// SizeBandMatcher matches candidates whose size falls in [Min, Max]
// inclusive; Max <= 0 means unbounded above.
type SizeBandMatcher struct {
	Min int64
	Max int64
}

func (m SizeBandMatcher) RequiresContent() bool { return false }
func (m SizeBandMatcher) Match(c *Candidate) (bool, error) {
	if c.Size < m.Min {
		return false, nil
	}
	if m.Max > 0 && c.Size > m.Max {
		return false, nil
	}
	return true, nil
}

// ExtensionSetMatcher matches when the candidate's extension (without
// leading dot, case-insensitive) is one of Extensions.
type ExtensionSetMatcher struct{ Extensions []string }

func (m ExtensionSetMatcher) RequiresContent() bool { return false }
func (m ExtensionSetMatcher) Match(c *Candidate) (bool, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(c.Name)), ".")
	for _, want := range m.Extensions {
		if strings.EqualFold(ext, strings.TrimPrefix(want, ".")) {
			return true, nil
		}
	}
	return false, nil
}

// HeaderBytesMatcher matches when the candidate's content, at Offset,
// begins with Pattern - a classic file-magic check, one of spec.md
// 4.8's content-requiring matchers.
type HeaderBytesMatcher struct {
	Offset  int64
	Pattern []byte
}

func (m HeaderBytesMatcher) RequiresContent() bool { return true }
func (m HeaderBytesMatcher) Match(c *Candidate) (bool, error) {
	r, err := c.reader()
	if err != nil {
		return false, err
	}
	if m.Offset > 0 {
		if _, err := io.CopyN(io.Discard, r, m.Offset); err != nil {
			if err == io.EOF {
				return false, nil
			}
			return false, err
		}
	}
	buf := make([]byte, len(m.Pattern))
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(buf[:n], m.Pattern), nil
}

// HashListMatcher matches when the candidate's digest (under Algorithm)
// is a member of Hashes - spec.md 4.8's "hash-list-membership" matcher.
// Evaluating it necessarily reads the whole stream.
type HashListMatcher struct {
	Algorithm string
	Hashes    map[string]bool
}

func (m HashListMatcher) RequiresContent() bool { return true }
func (m HashListMatcher) Match(c *Candidate) (bool, error) {
	r, err := c.reader()
	if err != nil {
		return false, err
	}
	h, err := NewHasher(m.Algorithm)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(h, r); err != nil && err != io.EOF {
		return false, fmt.Errorf("sample: hash-list matcher: %w", err)
	}
	return m.Hashes[strings.ToLower(h.SumHex())], nil
}

// YaraRuleMatcher is a documented stand-in for a real YARA engine: no
// YARA binding exists anywhere in this pack, so this matcher does a
// literal-substring scan of the rule source file's `$string = "..."`
// lines against the candidate's content - enough to exercise the
// content-requiring matcher path end to end, not a YARA-compatible
// implementation. TODO: replace with a real YARA binding if one
// becomes available.
type YaraRuleMatcher struct {
	// Strings are the literal byte patterns pulled from the referenced
	// rule's $string definitions; RuleName is carried through for
	// diagnostics/CSV RuleId only.
	RuleName string
	Strings  [][]byte
}

func (m YaraRuleMatcher) RequiresContent() bool { return true }
func (m YaraRuleMatcher) Match(c *Candidate) (bool, error) {
	r, err := c.reader()
	if err != nil {
		return false, err
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return false, fmt.Errorf("sample: yara-rule matcher %s: %w", m.RuleName, err)
	}
	for _, s := range m.Strings {
		if bytes.Contains(content, s) {
			return true, nil
		}
	}
	return false, nil
}

var (
	_ Matcher = PathGlobMatcher{}
	_ Matcher = NameGlobMatcher{}
	_ Matcher = SizeBandMatcher{}
	_ Matcher = ExtensionSetMatcher{}
	_ Matcher = HeaderBytesMatcher{}
	_ Matcher = HashListMatcher{}
	_ Matcher = YaraRuleMatcher{}
)
