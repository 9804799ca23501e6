package sample

import (
	"fmt"
	"log"
)

// Match is what Engine.Evaluate produces once a rule accepts a
// candidate: enough for a caller (cmd/orc) to build an archive.Item
// without this package importing internal/archive, keeping the sample
// engine a pure matching+quota component per spec.md 4.8.
type Match struct {
	RuleID         string
	Candidate      *Candidate
	Action         ContentAction
	HashAlgorithms []string

	// AllowedBytes is how much of the candidate's content the global
	// quota permits reading; it may be less than Candidate.Size.
	AllowedBytes int64

	// QuotaExhausted is true when the match is recorded for the record
	// but no content should be read (spec.md 4.8).
	QuotaExhausted bool
}

// Engine ties a RuleSet to a Quota, implementing spec.md 4.8's match
// evaluation end to end: cheap-first rule matching, then a quota
// reservation against whichever rule matched.
type Engine struct {
	Rules  RuleSet
	Quota  *Quota
	Logger *log.Logger
}

// NewEngine builds an Engine. A nil quota means no global limits.
func NewEngine(rules RuleSet, quota *Quota, logger *log.Logger) *Engine {
	if quota == nil {
		quota = &Quota{}
	}
	return &Engine{Rules: rules, Quota: quota, Logger: logger}
}

// Evaluate runs c against the engine's rule set and, on a match,
// reserves its share of the global quota. The second return value
// reports whether any rule matched at all; false means the candidate
// is simply not of interest and no Match is returned.
func (e *Engine) Evaluate(c *Candidate) (*Match, bool, error) {
	rule, err := e.Rules.firstMatch(c)
	if err != nil {
		return nil, false, fmt.Errorf("sample: evaluating %s: %w", c.FullPath, err)
	}
	if rule == nil {
		return nil, false, nil
	}

	want := c.Size
	if rule.Action == ActionMetadataOnly {
		want = 0
	} else if rule.MaxPerSampleBytes > 0 && want > rule.MaxPerSampleBytes {
		want = rule.MaxPerSampleBytes
	}

	granted, exhausted := e.Quota.Reserve(want)
	if e.Logger != nil {
		e.Logger.Printf("sample: %s matched rule %s (want=%d granted=%d exhausted=%v)",
			c.FullPath, rule.ID, want, granted, exhausted)
	}

	return &Match{
		RuleID:         rule.ID,
		Candidate:      c,
		Action:         rule.Action,
		HashAlgorithms: rule.HashAlgorithms,
		AllowedBytes:   granted,
		QuotaExhausted: exhausted,
	}, true, nil
}
