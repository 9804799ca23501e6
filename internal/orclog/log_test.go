package orclog

import (
	"strings"
	"testing"
)

func TestNewLoggerPrefixesComponent(t *testing.T) {
	logger := New("testcomp")
	if !strings.Contains(logger.Prefix(), "testcomp") {
		t.Fatalf("expected prefix to contain component name, got %q", logger.Prefix())
	}
}

func TestDiscardLoggerDoesNotPanic(t *testing.T) {
	logger := Discard()
	logger.Printf("hello %d", 1)
}
