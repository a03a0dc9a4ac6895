// internal/data/models.go
package data

import (
	"context"
	"database/sql"
	"errors"
	"math"
)

var (
	// ErrRecordNotFound is returned when no beer has the requested id.
	ErrRecordNotFound = errors.New("record not found")
	// ErrEditConflict is returned when an update carries a stale version.
	ErrEditConflict = errors.New("edit conflict: the record was changed by someone else")
)

// Store is the persistent store adapter the service layer talks to.
// Implementations must be safe for concurrent use.
type Store interface {
	// FindByID returns the beer with the given id or ErrRecordNotFound.
	FindByID(ctx context.Context, id int64) (*Beer, error)
	// Insert persists a new beer and writes the assigned id, version and
	// timestamps back into it.
	Insert(ctx context.Context, beer *Beer) error
	// Update merges beer into its stored row and bumps its version.
	Update(ctx context.Context, beer *Beer) error
	// Remove stages beer for deletion. It is not applied until Flush.
	Remove(ctx context.Context, beer *Beer) error
	// Flush blocks until every staged removal has been applied.
	Flush(ctx context.Context) error
	// Count returns how many beers satisfy every predicate.
	Count(ctx context.Context, preds []Predicate) (int, error)
	// List returns up to limit matching beers ordered by id, skipping offset.
	List(ctx context.Context, preds []Predicate, offset, limit int) ([]*Beer, error)
	// ListAll returns every beer ordered by id.
	ListAll(ctx context.Context) ([]*Beer, error)
}

// Models groups the stores used by the application so they can be passed
// around as one value.
type Models struct {
	Beers Store
}

// NewModels wires the SQL-backed stores to the given connection pool.
func NewModels(db *sql.DB, dialect Dialect) Models {
	return Models{
		Beers: NewBeerModel(db, dialect),
	}
}

// NewMemoryModels wires in-process stores that need no database.
func NewMemoryModels() Models {
	return Models{
		Beers: NewMemoryStore(),
	}
}

// Metadata describes the page returned alongside a search result.
// Pages are zero-based.
type Metadata struct {
	CurrentPage  int `json:"current_page"`
	PageSize     int `json:"page_size"`
	LastPage     int `json:"last_page"`
	PageCount    int `json:"page_count"`
	TotalRecords int `json:"total_records"`
}

// NewMetadata computes page metadata from a total record count.
func NewMetadata(totalRecords, page, pageSize int) Metadata {
	if totalRecords == 0 || pageSize < 1 {
		return Metadata{CurrentPage: page, PageSize: pageSize}
	}
	pages := int(math.Ceil(float64(totalRecords) / float64(pageSize)))
	return Metadata{
		CurrentPage:  page,
		PageSize:     pageSize,
		LastPage:     pages - 1,
		PageCount:    pages,
		TotalRecords: totalRecords,
	}
}
