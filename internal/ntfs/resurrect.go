package ntfs

// ResurrectedFile is what the resurrection pass can recover from a deleted
// MFT record: a best-effort name/size/run-list, annotated with how much
// confidence that recovery deserves, per spec.md 4.3's resurrection step.
type ResurrectedFile struct {
	Record   Record
	Name     string
	HasName  bool
	DataRuns []Run
	RealSize uint64

	// PartialAttributeList is true whenever the deleted record carries an
	// ATTRIBUTE_LIST, whether or not every extension record was read
	// (they are commonly reallocated), meaning DataRuns may understate
	// the file's true extent.
	PartialAttributeList bool
}

// ScanDeleted walks the $MFT with resurrection enabled and calls fn for
// every record whose in-use flag is clear, reconstructing whatever name
// and data-run information survives.
func ScanDeleted(w *Walker, startIndex, count uint64, fn func(ResurrectedFile) (bool, error)) error {
	prevResurrect := w.Resurrect
	w.Resurrect = true
	defer func() { w.Resurrect = prevResurrect }()

	return w.Walk(startIndex, count, func(rec Record) (bool, error) {
		if !rec.Deleted {
			return true, nil
		}
		rf := ResurrectedFile{Record: rec}

		if fn2, ok := BestFileName(rec.Attributes); ok {
			rf.Name = fn2.Name
			rf.HasName = true
			rf.RealSize = fn2.RealSize
		}

		if _, hasList := First(rec.Attributes, AttrAttributeList); hasList {
			// spliceAttributeList already ran during ReadRecord and logged
			// any extension-record failures; we cannot distinguish a full
			// success from a partial one here without re-deriving it, so
			// conservatively flag partial whenever an attribute list was
			// present at all on a deleted record.
			rf.PartialAttributeList = true
		}

		for _, a := range All(rec.Attributes, AttrData) {
			if a.Name == "" {
				rf.DataRuns = append(rf.DataRuns, a.RunList...)
				if a.RealSize > rf.RealSize {
					rf.RealSize = a.RealSize
				}
			}
		}

		return fn(rf)
	})
}
