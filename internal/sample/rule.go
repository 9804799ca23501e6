package sample

// ContentAction decides what a matching Rule actually collects, per
// spec.md 4.8's "content action" field.
type ContentAction int

const (
	// ActionCollectDataStream collects only the unnamed $DATA stream.
	ActionCollectDataStream ContentAction = iota
	// ActionCollectAllStreams collects every named data stream on the
	// matched file (NTFS alternate data streams included).
	ActionCollectAllStreams
	// ActionMetadataOnly records the match without reading any content.
	ActionMetadataOnly
)

func (a ContentAction) String() string {
	switch a {
	case ActionCollectDataStream:
		return "collect-data-stream"
	case ActionCollectAllStreams:
		return "collect-all-streams"
	case ActionMetadataOnly:
		return "metadata-only"
	default:
		return "unknown"
	}
}

// Rule is one AND-of-matchers clause (spec.md 4.8: "rule = AND of
// matchers"). Matchers are evaluated cheap-first: Evaluate runs every
// Matcher with RequiresContent() == false before opening content for
// the rest, so a rule with a cheap size-band and an expensive yara scan
// never pays for the scan on a size mismatch.
type Rule struct {
	ID                string
	Matchers          []Matcher
	HashAlgorithms    []string
	Action            ContentAction
	MaxPerSampleBytes int64
}

// matches reports whether every one of r's matchers accepts c, running
// cheap matchers first and returning on the first failure.
func (r *Rule) matches(c *Candidate) (bool, error) {
	var contentMatchers []Matcher
	for _, m := range r.Matchers {
		if m.RequiresContent() {
			contentMatchers = append(contentMatchers, m)
			continue
		}
		ok, err := m.Match(c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	for _, m := range contentMatchers {
		ok, err := m.Match(c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// RuleSet is an OR of Rules (spec.md 4.8: "rule-set = OR of rules"):
// the first rule that fully matches wins.
type RuleSet struct {
	Rules []Rule
}

// firstMatch returns the first rule in the set that matches c, or nil
// if none do.
func (rs *RuleSet) firstMatch(c *Candidate) (*Rule, error) {
	for i := range rs.Rules {
		ok, err := rs.Rules[i].matches(c)
		if err != nil {
			return nil, err
		}
		if ok {
			return &rs.Rules[i], nil
		}
	}
	return nil, nil
}
