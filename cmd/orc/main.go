// Command orc is the collection pipeline's entry point: it resolves a
// set of storage locations, walks each NTFS volume's MFT, evaluates
// every file against the configured sample rules, and archives
// whatever matches alongside a CSV index and a system-inventory
// preamble document.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orcforensics/dfir-orc-go/internal/archive"
	"github.com/orcforensics/dfir-orc-go/internal/extload"
	"github.com/orcforensics/dfir-orc-go/internal/inventory"
	"github.com/orcforensics/dfir-orc-go/internal/location"
	"github.com/orcforensics/dfir-orc-go/internal/ntfs"
	"github.com/orcforensics/dfir-orc-go/internal/orcconfig"
	"github.com/orcforensics/dfir-orc-go/internal/orclog"
	"github.com/orcforensics/dfir-orc-go/internal/sample"
	"github.com/orcforensics/dfir-orc-go/internal/volume"
)

// Exit codes per spec.md 6.
const (
	exitOK            = 0
	exitInvalidConfig = 1
	exitIOError       = 2
	exitUnsupportedFS = 3
	exitCancelled     = 4
	exitPartial       = 5
)

func main() {
	os.Exit(run())
}

func run() int {
	locationsFlag := flag.String("locations", "", "comma-separated device paths, drive letters, or '*' for every local volume")
	nameGlobsFlag := flag.String("name-glob", "", "comma-separated name globs to collect (e.g. *.evtx)")
	extensionsFlag := flag.String("ext", "", "comma-separated extensions to collect")
	hashesFlag := flag.String("hashes", "SHA256", "comma-separated hash algorithms (MD5,SHA1,SHA256,SSDeep,TLSH)")
	archivePath := flag.String("archive", "orc-output.zip", "path to the output archive")
	csvPath := flag.String("csv", "orc-output.csv", "path to the archive index CSV")
	logFile := flag.String("log-file", "", "optional path to mirror log output to")
	maxTotalBytes := flag.Int64("max-total-bytes", 0, "global byte quota (0 = unbounded)")
	maxSampleBytes := flag.Int64("max-per-sample-bytes", 0, "per-sample byte quota (0 = unbounded)")
	maxSampleCount := flag.Int64("max-sample-count", 0, "global sample count quota (0 = unbounded)")
	resurrect := flag.String("resurrect", "no", "resurrection mode: no, resident, all")
	flag.Parse()

	logger := orclog.New("orc")
	if *logFile != "" {
		if err := orclog.OpenFile(*logFile); err != nil {
			logger.Printf("warning: could not open log file %s: %v", *logFile, err)
		}
	}

	if *locationsFlag == "" {
		logger.Printf("no --locations given; nothing to collect")
		return exitInvalidConfig
	}

	cfg := orcconfig.Default()
	cfg.Locations = splitNonEmpty(*locationsFlag)
	cfg.Hashes = splitNonEmpty(*hashesFlag)
	cfg.Resurrect = orcconfig.Resurrect(*resurrect)
	cfg.Output.ArchivePath = *archivePath
	cfg.Output.CSVPath = *csvPath
	cfg.Limits = orcconfig.Limits{
		MaxTotalBytes:     *maxTotalBytes,
		MaxPerSampleBytes: *maxSampleBytes,
		MaxSampleCount:    *maxSampleCount,
	}

	if err := extload.WarmCodecs(); err != nil {
		logger.Printf("warning: codec warm-up incomplete: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel, logger)

	set := location.NewSet(location.AltitudeHighest, location.ShadowNone, nil, cfg.Excludes, orclog.New("location"))
	for _, raw := range cfg.Locations {
		if err := set.Add(raw); err != nil {
			logger.Printf("add location %q: %v", raw, err)
		}
	}
	if err := set.Consolidate(nil); err != nil {
		logger.Printf("consolidate locations: %v", err)
	}
	volumes := set.Enumerate()
	if len(volumes) == 0 {
		logger.Printf("no volumes resolved from %v", cfg.Locations)
		return exitUnsupportedFS
	}

	archiveFile, err := os.Create(cfg.Output.ArchivePath)
	if err != nil {
		logger.Printf("create archive %s: %v", cfg.Output.ArchivePath, err)
		return exitIOError
	}
	codec := archive.NewZipCodec(archiveFile)

	csvFile, err := os.Create(cfg.Output.CSVPath)
	if err != nil {
		logger.Printf("create csv index %s: %v", cfg.Output.CSVPath, err)
		return exitIOError
	}
	defer csvFile.Close()
	csvIndex, err := archive.NewCSVIndex(csvFile)
	if err != nil {
		logger.Printf("initialize csv index: %v", err)
		return exitIOError
	}

	agentLogger := orclog.New("archive")
	agent := archive.NewAgent(codec, agentLogger, archive.DefaultChannelCapacity, csvIndex)

	agentErr := make(chan error, 1)
	go func() { agentErr <- agent.Run(ctx) }()

	engine := buildEngine(cfg, *nameGlobsFlag, *extensionsFlag, orclog.New("sample"))

	enqueueInventory(ctx, agent, logger)

	partial := traverseVolumes(ctx, volumes, engine, cfg, agent, logger)

	agent.Shutdown()
	runErr := <-agentErr

	if runErr != nil {
		logger.Printf("archive agent aborted: %v", runErr)
		if errors.Is(runErr, context.Canceled) {
			return exitCancelled
		}
		return exitIOError
	}
	if err := codec.Close(); err != nil {
		logger.Printf("close archive: %v", err)
		return exitIOError
	}
	if err := csvIndex.Close(); err != nil {
		logger.Printf("close csv index: %v", err)
		return exitIOError
	}

	if partial {
		return exitPartial
	}
	return exitOK
}

func setupSignalHandler(cancel context.CancelFunc, logger *log.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Printf("received termination signal, shutting down")
		cancel()
	}()
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func buildEngine(cfg orcconfig.Config, nameGlobs, extensions string, logger *log.Logger) *sample.Engine {
	var matchers []sample.Matcher
	for _, g := range splitNonEmpty(nameGlobs) {
		matchers = append(matchers, sample.NameGlobMatcher{Pattern: g})
	}
	exts := splitNonEmpty(extensions)
	if len(exts) > 0 {
		matchers = append(matchers, sample.ExtensionSetMatcher{Extensions: exts})
	}
	if len(matchers) == 0 {
		// No filter configured: a bare --locations invocation means
		// "collect everything", so fall back to a matcher that always
		// accepts.
		matchers = []sample.Matcher{sample.SizeBandMatcher{Min: 0}}
	}

	rs := sample.RuleSet{Rules: []sample.Rule{{
		ID:                "default",
		Matchers:          matchers,
		HashAlgorithms:    cfg.Hashes,
		Action:            sample.ActionCollectDataStream,
		MaxPerSampleBytes: cfg.Limits.MaxPerSampleBytes,
	}}}

	quota := &sample.Quota{
		MaxTotalBytes:  cfg.Limits.MaxTotalBytes,
		MaxSampleCount: cfg.Limits.MaxSampleCount,
	}

	return sample.NewEngine(rs, quota, logger)
}

// enqueueInventory collects the running host's system-identity
// document and archives it as the very first entry, ahead of any file
// content.
func enqueueInventory(ctx context.Context, agent *archive.Agent, logger *log.Logger) {
	doc, err := inventory.Collect(logger)
	if err != nil {
		logger.Printf("inventory collection failed: %v", err)
		return
	}
	body, err := doc.ToXML()
	if err != nil {
		logger.Printf("inventory serialization failed: %v", err)
		return
	}

	done := make(chan archive.Result, 1)
	item := &archive.Item{
		FullPath:     "SystemIdentity.xml",
		ArchiveName:  "SystemIdentity.xml",
		Size:         int64(len(body)),
		CreationTime: time.Now(),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		},
		Done: func(r archive.Result) { done <- r },
	}
	if err := agent.Enqueue(ctx, item); err != nil {
		logger.Printf("enqueue inventory document: %v", err)
		return
	}
	<-done
}

// traverseVolumes walks every NTFS volume concurrently, one worker per
// volume, evaluating each record against engine and enqueuing matches
// onto agent. It returns true if any volume's traversal failed
// outright, so the caller can choose exitPartial over exitOK.
func traverseVolumes(ctx context.Context, volumes []*location.Volume, engine *sample.Engine, cfg orcconfig.Config, agent *archive.Agent, logger *log.Logger) bool {
	g, gctx := errgroup.WithContext(ctx)
	var anyFailed atomic.Bool

	for _, v := range volumes {
		v := v
		if v.FSType != volume.FSNTFS {
			logger.Printf("skipping volume %s: unsupported filesystem %s (only NTFS traversal is implemented)", v.PathID, v.FSType)
			continue
		}
		g.Go(func() error {
			if err := traverseVolume(gctx, v, engine, cfg, agent, logger); err != nil {
				anyFailed.Store(true)
				logger.Printf("traversal of volume %s failed: %v", v.PathID, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return anyFailed.Load()
}

func traverseVolume(ctx context.Context, v *location.Volume, engine *sample.Engine, cfg orcconfig.Config, agent *archive.Agent, logger *log.Logger) error {
	runList, err := ntfs.BootstrapMFTRunList(v.Reader)
	if err != nil {
		return fmt.Errorf("bootstrap $MFT run list: %w", err)
	}
	walker := ntfs.NewWalker(v.Reader, runList, orclog.New(fmt.Sprintf("ntfs:%s", v.PathID)))
	walker.Resurrect = cfg.Resurrect != orcconfig.ResurrectNo
	resolver := ntfs.NewPathResolver(walker)

	recordSize := v.Reader.Geometry().MFTRecordSize
	if recordSize == 0 {
		recordSize = ntfs.DefaultRecordSize
	}
	total := ntfs.TotalClusters(runList) * uint64(v.ClusterSize) / uint64(recordSize)
	if total == 0 {
		total = 1 << 20
	}

	err = walker.Walk(0, total, func(rec ntfs.Record) (bool, error) {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}
		handleRecord(ctx, v, rec, resolver, engine, agent, logger)
		return true, nil
	})
	// Walk stops naturally once it steps past the run list's last
	// covered cluster, which surfaces as a ResolveVCN range error
	// rather than a sentinel - that is the expected, non-fatal end of
	// a traversal, not a failure to report.
	if err != nil && strings.Contains(err.Error(), "out of range") {
		return nil
	}
	return err
}

func handleRecord(ctx context.Context, v *location.Volume, rec ntfs.Record, resolver *ntfs.PathResolver, engine *sample.Engine, agent *archive.Agent, logger *log.Logger) {
	if rec.Header.IsDirectory() {
		return
	}
	fn, ok := ntfs.BestFileName(rec.Attributes)
	if !ok {
		return
	}
	dataAttr, ok := ntfs.First(rec.Attributes, ntfs.AttrData)
	if !ok {
		return
	}

	dirPath, err := resolver.Resolve(fn.ParentDirectory.RecordIndex())
	if err != nil {
		logger.Printf("resolve parent of %s: %v", fn.Name, err)
		return
	}
	fullPath := dirPath + "/" + fn.Name

	open := func() (io.ReadCloser, error) {
		return ntfs.NewDataStreamReader(v.Reader, dataAttr)
	}

	candidate := &sample.Candidate{
		FullPath: fullPath,
		Name:     fn.Name,
		Size:     int64(fn.RealSize),
		Open:     open,
	}
	match, matched, err := engine.Evaluate(candidate)
	candidate.Close()
	if err != nil {
		logger.Printf("evaluate %s: %v", fullPath, err)
		return
	}
	if !matched {
		return
	}

	done := make(chan archive.Result, 1)
	item := &archive.Item{
		VolumeSerial:   v.Serial,
		ParentFRN:      fn.ParentDirectory.String(),
		FRN:            rec.FRN().String(),
		FullPath:       fullPath,
		Size:           match.AllowedBytes,
		RuleID:         match.RuleID,
		ArchiveName:    archiveEntryName(v, rec),
		HashAlgorithms: match.HashAlgorithms,
		Open:           open,
		Done:           func(r archive.Result) { done <- r },
	}
	if match.Action == sample.ActionMetadataOnly || match.QuotaExhausted {
		item.Open = nil
	}
	if v.ShadowGUID != nil {
		item.SnapshotGUID = v.ShadowGUID
	}
	if err := agent.Enqueue(ctx, item); err != nil {
		logger.Printf("enqueue %s: %v", fullPath, err)
		return
	}
	<-done
}

func archiveEntryName(v *location.Volume, rec ntfs.Record) string {
	return fmt.Sprintf("%d/%s", v.Serial, rec.FRN().String())
}
