package data

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// MemoryStore is an in-process Store. It follows the same rules as
// BeerModel, including staging removals until Flush, and hands out copies so
// callers never share a record with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	beers   map[int64]Beer
	removed []int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{beers: make(map[int64]Beer)}
}

func (s *MemoryStore) Insert(_ context.Context, beer *Beer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	ts := now()
	beer.ID = s.nextID
	beer.Version = 1
	beer.CreatedAt = ts
	beer.UpdatedAt = ts
	s.beers[beer.ID] = *beer
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*Beer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	beer, ok := s.beers[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &beer, nil
}

func (s *MemoryStore) Update(_ context.Context, beer *Beer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.beers[beer.ID]
	if !ok {
		return ErrRecordNotFound
	}
	if stored.Version != beer.Version {
		return ErrEditConflict
	}

	stored.Name = beer.Name
	stored.Taste = beer.Taste
	stored.Score = beer.Score
	stored.Version++
	stored.UpdatedAt = now()
	s.beers[beer.ID] = stored

	beer.Version = stored.Version
	beer.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, beer *Beer) error {
	if beer == nil {
		return ErrRecordNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.beers[beer.ID]; !ok {
		return ErrRecordNotFound
	}
	s.removed = append(s.removed, beer.ID)
	return nil
}

func (s *MemoryStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.removed {
		delete(s.beers, id)
	}
	s.removed = nil
	return nil
}

func (s *MemoryStore) Count(_ context.Context, preds []Predicate) (int, error) {
	if err := validatePredicates(preds); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, beer := range s.beers {
		if matchesAll(preds, &beer) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) List(_ context.Context, preds []Predicate, offset, limit int) ([]*Beer, error) {
	if err := validatePredicates(preds); err != nil {
		return nil, err
	}
	offset = max(offset, 0)

	matched := s.sorted(preds)
	if offset >= len(matched) {
		return []*Beer{}, nil
	}
	end := min(offset+max(limit, 0), len(matched))
	return matched[offset:end], nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]*Beer, error) {
	return s.sorted(nil), nil
}

// sorted returns copies of the matching beers ordered by id.
func (s *MemoryStore) sorted(preds []Predicate) []*Beer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	beers := make([]*Beer, 0, len(s.beers))
	for _, beer := range s.beers {
		if matchesAll(preds, &beer) {
			beers = append(beers, &beer)
		}
	}
	slices.SortFunc(beers, func(a, b *Beer) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return beers
}
