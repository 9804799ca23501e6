package sample

import "sync"

// Quota tracks the global limits spec.md 4.8 applies across every
// match in a run: a total byte budget and a total sample count, both
// optional (<= 0 means unbounded). Safe for concurrent use by however
// many volume-traversal workers are evaluating candidates at once.
type Quota struct {
	mu sync.Mutex

	MaxTotalBytes  int64
	MaxSampleCount int64

	usedBytes int64
	usedCount int64
}

// Reserve asks for want bytes against the remaining total-byte budget
// and one slot against the remaining sample count. It returns the
// number of bytes actually granted (0 <= granted <= want) and whether
// the reservation was truncated by a quota (granted < want, or the
// sample-count budget was already exhausted). A granted count of 0
// with exhausted true means the rule's match must be recorded as
// quota-exhausted with no content read, per spec.md 4.8's "recording
// quota-exhausted hits without further content reads".
func (q *Quota) Reserve(want int64) (granted int64, exhausted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.MaxSampleCount > 0 && q.usedCount >= q.MaxSampleCount {
		return 0, true
	}

	granted = want
	if q.MaxTotalBytes > 0 {
		remaining := q.MaxTotalBytes - q.usedBytes
		if remaining <= 0 {
			return 0, true
		}
		if granted > remaining {
			granted = remaining
			exhausted = true
		}
	}

	q.usedBytes += granted
	q.usedCount++
	return granted, exhausted
}

// Stats returns the quota's current usage, mostly for diagnostics and
// tests.
func (q *Quota) Stats() (usedBytes, usedCount int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.usedBytes, q.usedCount
}
