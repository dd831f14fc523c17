package callevents

import (
	"sync"
	"time"
)

type dedupKey struct {
	installationID  string
	number          string
	timestampMillis int64
}

type dedupEntry struct {
	key    dedupKey
	seenAt time.Time
}

// DedupWindow suppresses reprocessing of call events a device has already
// reported. Membership is an exact (installation, number, timestamp) match;
// scoping by installation keeps one device's redeliveries from swallowing
// another device's distinct events. Entries older than the retention window
// are pruned on insert, so memory stays bounded by the event rate within one
// window rather than process lifetime.
type DedupWindow struct {
	mu        sync.Mutex
	retention time.Duration
	entries   []dedupEntry
	seen      map[dedupKey]struct{}
	now       func() time.Time
}

// NewDedupWindow creates a window with the given retention. A zero or
// negative retention keeps entries for seven days.
func NewDedupWindow(retention time.Duration) *DedupWindow {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &DedupWindow{
		retention: retention,
		seen:      make(map[dedupKey]struct{}),
		now:       time.Now,
	}
}

// Observe reports whether the installation-scoped (number, timestamp) pair is
// new and records it. The first caller for a distinct pair gets true; every
// later caller false.
func (w *DedupWindow) Observe(installationID, number string, timestampMillis int64) bool {
	key := dedupKey{installationID: installationID, number: number, timestampMillis: timestampMillis}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune()
	if _, dup := w.seen[key]; dup {
		return false
	}
	w.seen[key] = struct{}{}
	w.entries = append(w.entries, dedupEntry{key: key, seenAt: w.now()})
	return true
}

// Len returns the number of retained entries.
func (w *DedupWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune()
	return len(w.entries)
}

// prune drops entries older than the retention window. Entries are ordered by
// insertion time, so the scan stops at the first live entry.
func (w *DedupWindow) prune() {
	cutoff := w.now().Add(-w.retention)
	idx := 0
	for idx < len(w.entries) && w.entries[idx].seenAt.Before(cutoff) {
		delete(w.seen, w.entries[idx].key)
		idx++
	}
	if idx > 0 {
		w.entries = append([]dedupEntry(nil), w.entries[idx:]...)
	}
}
