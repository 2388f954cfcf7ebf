// Package memory provides an in-memory journal store, suitable for tests and
// single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/token"
	"github.com/xraph/token/id"
	"github.com/xraph/token/notification"
	tokenstore "github.com/xraph/token/store"
)

// compile-time interface check
var _ tokenstore.Store = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	closed bool

	// Journal per ledger, ordered by seq
	journals map[string][]notification.Notification
}

func New() *Store {
	return &Store{
		journals: make(map[string][]notification.Notification),
	}
}

// AppendNotifications stores ns. Records whose seq is not past the ledger's
// last stored seq are skipped, so retried batches are idempotent.
func (s *Store) AppendNotifications(_ context.Context, ns []*notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return token.ErrStoreClosed
	}

	for _, n := range ns {
		key := n.LedgerID.String()
		journal := s.journals[key]
		if len(journal) > 0 && n.Seq <= journal[len(journal)-1].Seq {
			continue
		}
		s.journals[key] = append(journal, *n)
	}
	return nil
}

func (s *Store) ListNotifications(_ context.Context, opts notification.ListOpts) ([]*notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, token.ErrStoreClosed
	}

	var sources [][]notification.Notification
	if !opts.LedgerID.IsNil() {
		sources = append(sources, s.journals[opts.LedgerID.String()])
	} else {
		for _, journal := range s.journals {
			sources = append(sources, journal)
		}
	}

	result := make([]*notification.Notification, 0)
	for _, journal := range sources {
		for i := range journal {
			if !opts.Match(&journal[i]) {
				continue
			}
			n := journal[i]
			result = append(result, &n)
		}
	}

	// Single-ledger listings are already in seq order.
	if len(sources) > 1 {
		sortBySeq(result)
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (s *Store) LastSequence(_ context.Context, ledgerID id.LedgerID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, token.ErrStoreClosed
	}

	journal := s.journals[ledgerID.String()]
	if len(journal) == 0 {
		return 0, nil
	}
	return journal[len(journal)-1].Seq, nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return token.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Helper functions
func sortBySeq(ns []*notification.Notification) {
	sort.SliceStable(ns, func(i, j int) bool {
		return ns[i].Seq < ns[j].Seq
	})
}
