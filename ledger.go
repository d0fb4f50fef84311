package pickplace

import (
	"sync"

	"github.com/golang/geo/r3"
)

// PlacedObjectRecord is one completed placement attempt: where the object
// ended up and whether the placement detector accepted it.
type PlacedObjectRecord struct {
	ObjectID string
	Position r3.Vector
	Success  bool
}

// PlacementLedger is the append-only record of every placement attempt in the
// process. The placement search consults it so later episodes avoid spots
// already occupied. It is dependency-injected rather than global so tests can
// supply synthetic ledgers. Entries are never removed.
type PlacementLedger struct {
	mu      sync.Mutex
	records []PlacedObjectRecord
}

func NewPlacementLedger() *PlacementLedger {
	return &PlacementLedger{}
}

// Append records a placement attempt. Appends are serialized; the control
// loop is single-threaded but observers may read concurrently.
func (l *PlacementLedger) Append(rec PlacedObjectRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
}

// Records returns a snapshot copy of all entries.
func (l *PlacementLedger) Records() []PlacedObjectRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]PlacedObjectRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of entries.
func (l *PlacementLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
