package inventory

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"time"
)

// Collect builds the system inventory Document (spec.md 4.11): the
// fields every platform can answer from the standard library are
// filled in here; collectPlatform (collect_windows.go on Windows,
// collect_other.go elsewhere) fills in the OS-specific rest.
func Collect(logger *log.Logger) (*Document, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "inventory: ", log.LstdFlags)
	}

	doc := &Document{
		Architecture: runtime.GOARCH,
		CommandLine:  strings.Join(os.Args, " "),
		Environment:  environMap(),
	}

	if host, err := os.Hostname(); err == nil {
		doc.Hostname = host
		doc.FullHostname = host
	} else {
		logger.Printf("inventory: os.Hostname failed: %v", err)
	}

	if zone, offset := time.Now().Zone(); zone != "" {
		doc.Timezone = fmt.Sprintf("%s%+03d:00", zone, offset/3600)
	}

	if err := collectPlatform(doc, logger); err != nil {
		logger.Printf("inventory: platform collection incomplete: %v", err)
	}

	return doc, nil
}

func environMap() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			out[kv[:i]] = kv[i+1:]
		}
	}
	return out
}
