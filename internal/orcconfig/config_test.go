package orcconfig

import "testing"

func TestDefaultRetryConfigDelaySchedule(t *testing.T) {
	rc := DefaultRetryConfig()
	if rc.Delay(0) != rc.InitialDelay {
		t.Fatalf("expected attempt 0 to use InitialDelay, got %v", rc.Delay(0))
	}
	d1 := rc.Delay(1)
	if d1 <= rc.InitialDelay {
		t.Fatalf("expected attempt 1 delay to grow past InitialDelay, got %v", d1)
	}
	if rc.Delay(20) != rc.MaxDelay {
		t.Fatalf("expected large attempt counts to cap at MaxDelay, got %v", rc.Delay(20))
	}
}

func TestDefaultConfigHasSaneBaseline(t *testing.T) {
	cfg := Default()
	if cfg.Resurrect != ResurrectNo {
		t.Fatalf("expected default Resurrect=no, got %v", cfg.Resurrect)
	}
	if cfg.Archive.Format != "zip" {
		t.Fatalf("expected default archive format zip, got %q", cfg.Archive.Format)
	}
	if len(cfg.Hashes) == 0 {
		t.Fatal("expected at least one default hash algorithm")
	}
}

func TestIsInteractiveDoesNotPanic(t *testing.T) {
	// Exercises both terminal detectors against whatever stdout happens
	// to be under `go test` (almost never a real terminal); the only
	// contract under test is that calling it is safe.
	_ = IsInteractive()
}
