// Package orclog provides the per-component logging used throughout
// this module: a prefixed *log.Logger, tee'd to the console and
// optionally to a bytestream.LazyFileStream-backed file sink so log
// lines produced before the output directory is known (location
// discovery, early config validation) are never lost.
package orclog

import (
	"io"
	"log"
	"os"
	"sync"

	"github.com/orcforensics/dfir-orc-go/internal/bytestream"
)

// fileSink is the process-wide lazy file stream every component
// logger tees into once a log file destination is known. It starts
// buffering in memory from process start, matching spec.md 5's "no
// suspension points for logging" expectation: nothing blocks on the
// eventual file.
var fileSink = bytestream.NewLazyFileStream(1 << 20) // 1 MiB of pre-open buffering

var openOnce sync.Once

// OpenFile routes every logger's file-sink output to path, flushing
// whatever was buffered before this call. Safe to call at most once;
// later calls are no-ops, matching LazyFileStream's own single-open
// contract.
func OpenFile(path string) error {
	var err error
	openOnce.Do(func() {
		err = fileSink.Open(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	})
	return err
}

// New returns a *log.Logger prefixed with component, writing to stderr
// and to the shared lazy file sink, mirroring the teacher's plain
// fmt.Printf-to-stdout logging but upgraded to the standard library's
// Logger so every component gets consistent timestamps and prefixes.
func New(component string) *log.Logger {
	w := io.MultiWriter(os.Stderr, fileSink)
	return log.New(w, "["+component+"] ", log.LstdFlags|log.Lmicroseconds)
}

// Discard returns a logger that writes nowhere, for tests and for
// components that were not given a logger explicitly.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}
