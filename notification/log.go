package notification

import (
	"sync"

	"github.com/xraph/token/id"
)

// Log is an append-only, in-memory notification log. Readers pull by offset
// and always receive copies.
type Log struct {
	mu       sync.RWMutex
	ledgerID id.LedgerID
	entries  []Notification
}

// NewLog creates an empty log whose records are stamped with ledgerID.
func NewLog(ledgerID id.LedgerID) *Log {
	return &Log{
		ledgerID: ledgerID,
		entries:  make([]Notification, 0, 64),
	}
}

// Append sequences and stores ns in order, as one unit. It returns the
// stored records.
func (l *Log) Append(ns ...Notification) []Notification {
	if len(ns) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := uint64(len(l.entries)) + 1
	out := make([]Notification, len(ns))
	for i, n := range ns {
		n.LedgerID = l.ledgerID
		n.Seq = next + uint64(i)
		out[i] = n
	}
	l.entries = append(l.entries, out...)
	return out
}

// Len returns the number of records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Since returns every record after offset (offset 0 returns the whole log).
func (l *Log) Since(offset int) []Notification {
	return l.Range(offset, 0)
}

// Range returns at most limit records after offset. A limit of 0 means no limit.
func (l *Log) Range(offset, limit int) []Notification {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= len(l.entries) {
		return []Notification{}
	}
	end := len(l.entries)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]Notification, end-offset)
	copy(out, l.entries[offset:end])
	return out
}

// SinceKind returns the records of the given kind after offset. The offset
// counts records of that kind only.
func (l *Log) SinceKind(kind Kind, offset int) []Notification {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Notification, 0)
	seen := 0
	for _, n := range l.entries {
		if n.Kind != kind {
			continue
		}
		if seen >= offset {
			out = append(out, n)
		}
		seen++
	}
	return out
}
