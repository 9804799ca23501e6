package fat

import (
	"fmt"
	"log"

	"github.com/orcforensics/dfir-orc-go/internal/volume"
)

// Walker reads directory trees off a volume.Reader through a Table,
// dispatching root-directory reads to the fixed-region form FAT12/16 use
// and the cluster-chain form FAT32/exFAT use.
type Walker struct {
	vol    volume.Reader
	params BootParams
	table  *Table
	logger *log.Logger
}

// NewWalker builds a Walker over an already-LoadBootSector'd volume whose
// boot sector has been separately parsed into params.
func NewWalker(vol volume.Reader, params BootParams, logger *log.Logger) *Walker {
	if logger == nil {
		logger = log.New(log.Writer(), "fat: ", log.LstdFlags)
	}
	return &Walker{vol: vol, params: params, table: NewTable(vol, params), logger: logger}
}

// Table exposes the underlying FAT table reader, e.g. for a caller that
// wants to resolve a single file's cluster chain without a full walk.
func (w *Walker) Table() *Table { return w.table }

// ReadRootDirectory returns the root directory's entries.
func (w *Walker) ReadRootDirectory() ([]DirEntry, error) {
	if w.params.Variant == VariantFAT12 || w.params.Variant == VariantFAT16 {
		return w.readFixedRoot()
	}
	return w.ReadDirectory(w.params.RootCluster)
}

func (w *Walker) readFixedRoot() ([]DirEntry, error) {
	sectorsPerCluster := uint32(w.params.SectorsPerCluster)
	startLCN := uint64(w.params.FirstRootSector) / uint64(sectorsPerCluster)
	remainingSectors := w.params.RootDirSectors

	var all []DirEntry
	for remainingSectors > 0 {
		toRead := sectorsPerCluster
		if remainingSectors < toRead {
			toRead = remainingSectors
		}
		buf, err := w.vol.ReadAt(startLCN, toRead)
		if err != nil {
			return all, fmt.Errorf("fat: read root directory: %w", err)
		}
		entries, done := ParseDirectorySector(buf)
		all = append(all, entries...)
		if done {
			break
		}
		remainingSectors -= toRead
		startLCN++
	}
	return all, nil
}

// ReadDirectory returns every entry in the directory whose first cluster
// is startCluster, following the cluster chain and tolerating a
// cross-linked chain by returning whatever was read before the fault,
// logged rather than propagated, per spec.md 4.4.
func (w *Walker) ReadDirectory(startCluster uint32) ([]DirEntry, error) {
	clusters, chainErr := w.table.Chain(startCluster)
	if chainErr == ErrCrossLinkedChain {
		w.logger.Printf("directory at cluster %d: %v, using partial chain", startCluster, chainErr)
	} else if chainErr != nil {
		return nil, chainErr
	}

	sectorsPerCluster := uint32(w.params.SectorsPerCluster)
	var all []DirEntry
	for _, cluster := range clusters {
		sector, err := w.params.ClusterToSector(cluster)
		if err != nil {
			w.logger.Printf("directory cluster %d: %v, skipping", cluster, err)
			continue
		}
		lcn := uint64(sector) / uint64(sectorsPerCluster)
		buf, err := w.vol.ReadAt(lcn, sectorsPerCluster)
		if err != nil {
			w.logger.Printf("directory cluster %d: read failed: %v, skipping", cluster, err)
			continue
		}
		entries, done := ParseDirectorySector(buf)
		all = append(all, entries...)
		if done {
			break
		}
	}
	return all, nil
}

// ReadFileClusters returns the cluster chain backing a file (or returns a
// partial chain with ErrCrossLinkedChain for a corrupted one).
func (w *Walker) ReadFileClusters(entry DirEntry) ([]uint32, error) {
	return w.table.Chain(entry.FirstCluster)
}

// Walk recursively visits every entry starting from the root, calling fn
// with the entry and its full forward-slash path. Returning false from fn
// stops the walk early (without error). "." and ".." pseudo-entries are
// skipped, per the universal FAT convention.
func (w *Walker) Walk(fn func(path string, entry DirEntry) (bool, error)) error {
	root, err := w.ReadRootDirectory()
	if err != nil {
		return err
	}
	if err := w.walkEntries("", root, fn); err != nil && err != errStopWalk {
		return err
	}
	return nil
}

// errStopWalk unwinds every nesting level of walkEntries once fn asks to
// stop; Walk turns it back into a nil error.
var errStopWalk = fmt.Errorf("fat: walk stopped")

func (w *Walker) walkEntries(prefix string, entries []DirEntry, fn func(string, DirEntry) (bool, error)) error {
	for _, e := range entries {
		if e.Deleted || e.IsVolumeID() || e.IsLongNamePart() {
			continue
		}
		name := e.Name()
		if name == "." || name == ".." {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "/" + name
		}

		cont, err := fn(path, e)
		if err != nil {
			return err
		}
		if !cont {
			return errStopWalk
		}

		if e.IsDirectory() && e.FirstCluster != 0 {
			children, err := w.ReadDirectory(e.FirstCluster)
			if err != nil {
				w.logger.Printf("directory %q: %v, skipping subtree", path, err)
				continue
			}
			if err := w.walkEntries(path, children, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
