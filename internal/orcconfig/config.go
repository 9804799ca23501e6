// Package orcconfig defines the flat configuration shape the CLI
// collaborator feeds into a collection run, per spec.md 6's
// "Configuration consumed from the CLI collaborator" schema.
package orcconfig

import "time"

// Resurrect selects how aggressively deleted-but-still-recoverable
// MFT records are resurrected during a traversal.
type Resurrect string

const (
	ResurrectNo       Resurrect = "no"
	ResurrectResident Resurrect = "resident"
	ResurrectAll      Resurrect = "all"
)

// ShadowSpec configures which volume shadow copies a location's
// snapshot policy should expand to, mirroring internal/location's
// ShadowPolicy.
type ShadowSpec struct {
	Policy string
	GUIDs  []string
}

// RuleSpec is one sample-engine rule as the CLI collaborator describes
// it, before internal/sample compiles it into concrete Matchers.
type RuleSpec struct {
	ID                string
	PathGlobs         []string
	NameGlobs         []string
	SizeMin, SizeMax  int64
	HeaderOffset      int64
	HeaderHex         string
	Extensions        []string
	YaraSource        string
	HashListAlgorithm string
	HashList          []string
	Hashes            []string
	Action            string
	MaxPerSampleBytes int64
}

// ArchiveSpec configures the output archive container.
type ArchiveSpec struct {
	Format           string
	CompressionLevel int
	Password         string
	Concurrency      int
}

// OutputSpec names where results land: a CSV path, a staging
// directory, and/or the final archive path.
type OutputSpec struct {
	CSVPath     string
	Directory   string
	ArchivePath string
}

// Limits bounds the sample engine's global quota.
type Limits struct {
	MaxTotalBytes     int64
	MaxPerSampleBytes int64
	MaxSampleCount    int64
}

// USNSpec configures optional USN journal (re)configuration before a
// traversal begins.
type USNSpec struct {
	Configure bool
	MinSize   uint64
	MaxSize   uint64
	Delta     uint64
}

// Config is the whole of a run's configuration, built by the CLI
// collaborator and handed to cmd/orc.
type Config struct {
	Locations   []string
	Shadows     ShadowSpec
	Excludes    []string
	Rules       []RuleSpec
	Hashes      []string
	Resurrect   Resurrect
	YaraSources []string
	Archive     ArchiveSpec
	Output      OutputSpec
	Limits      Limits
	USN         USNSpec

	RetryConfig RetryConfig
}

// RetryConfig governs retry/backoff for transient failures (archive
// sink writes, network shares), mirroring the teacher's
// internal/agent.RetryConfig exactly in shape and behavior.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns the same backoff schedule the teacher's
// agent uses: 3 attempts, 1s initial delay doubling up to a 30s cap.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Delay returns how long to wait before retry attempt.
func (rc RetryConfig) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return rc.InitialDelay
	}
	delay := float64(rc.InitialDelay)
	for range attempt {
		delay *= rc.Multiplier
	}
	if time.Duration(delay) > rc.MaxDelay {
		return rc.MaxDelay
	}
	return time.Duration(delay)
}

// Default returns a Config with conservative defaults: no locations
// (the caller must set them), SHA256 hashing, no resurrection,
// a zip archive, and the teacher's default retry schedule.
func Default() Config {
	return Config{
		Resurrect: ResurrectNo,
		Hashes:    []string{"SHA256"},
		Archive: ArchiveSpec{
			Format:           "zip",
			CompressionLevel: 6,
			Concurrency:      0, // no explicit count; cmd/orc does not read this field
		},
		RetryConfig: DefaultRetryConfig(),
	}
}
