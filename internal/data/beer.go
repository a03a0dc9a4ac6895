// Package data provides the beer record, the persistent store adapter
// used by the service layer, and its SQL and in-memory implementations.
package data

import (
	"time"

	"github.com/aoideee/beer-rating/internal/validator"
)

// Score bounds accepted from clients. Zero doubles as "no score filter".
const (
	MinScore = 0
	MaxScore = 10
)

// Beer represents a single beer record stored in the database.
// It maps directly to a row in the "beers" table.
type Beer struct {
	ID        int64     `json:"id"`         // Zero until the record is first inserted
	Name      string    `json:"name"`       // Display name, searched by substring
	Taste     string    `json:"taste"`      // Free-text tasting notes, searched by substring
	Score     int       `json:"score"`      // Rating from 0 to 10; 0 means unrated
	Version   int       `json:"version"`    // Optimistic-locking counter bumped on every update
	CreatedAt time.Time `json:"created_at"` // Set by the store on insert
	UpdatedAt time.Time `json:"updated_at"` // Set by the store on insert and update
}

// IsNew reports whether the beer has never been persisted.
func (b *Beer) IsNew() bool {
	return b.ID < 1
}

// BeerInput holds the editable fields a client may bind onto a beer.
// Every field is a pointer so "not provided" (nil) can be told apart from
// "set to the zero value". Only non-nil fields are applied.
type BeerInput struct {
	Name    *string `json:"name"`
	Taste   *string `json:"taste"`
	Score   *int    `json:"score"`
	Version *int    `json:"version"`
}

// Apply copies the provided fields onto beer.
func (in BeerInput) Apply(beer *Beer) {
	if in.Name != nil {
		beer.Name = *in.Name
	}
	if in.Taste != nil {
		beer.Taste = *in.Taste
	}
	if in.Score != nil {
		beer.Score = *in.Score
	}
	if in.Version != nil {
		beer.Version = *in.Version
	}
}

// ValidateBeer records every field-level problem with beer in v.
func ValidateBeer(v *validator.Validator, beer *Beer) {
	v.Check(beer.Name != "", "name", "must be provided")
	v.Check(len(beer.Name) <= 100, "name", "must not be more than 100 bytes long")
	v.Check(len(beer.Taste) <= 500, "taste", "must not be more than 500 bytes long")
	ValidateScore(v, beer.Score)
}

// ValidateScore checks that score falls inside the accepted rating range.
func ValidateScore(v *validator.Validator, score int) {
	v.Check(validator.Between(score, MinScore, MaxScore), "score", "must be between 0 and 10")
}
