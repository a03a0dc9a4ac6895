package data

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPredicate is returned when a predicate names an unknown field,
// an operator the field does not support, or a value of the wrong type.
var ErrInvalidPredicate = errors.New("invalid predicate")

// Field names a searchable beer column.
type Field string

const (
	FieldName  Field = "name"
	FieldTaste Field = "taste"
	FieldScore Field = "score"
)

// Operator is a comparison applied by a Predicate.
type Operator string

const (
	// OpContains matches a case-insensitive substring.
	OpContains Operator = "contains"
	// OpEqual matches an exact value.
	OpEqual Operator = "eq"
)

// Predicate is one filter constraint. A slice of predicates is a conjunction;
// an empty slice matches every record.
type Predicate struct {
	Field Field
	Op    Operator
	Value any
}

// Contains builds a case-insensitive substring predicate.
func Contains(field Field, substr string) Predicate {
	return Predicate{Field: field, Op: OpContains, Value: substr}
}

// Equal builds an exact-match predicate.
func Equal(field Field, value any) Predicate {
	return Predicate{Field: field, Op: OpEqual, Value: value}
}

// ExamplePredicates derives the search predicates for a sparse example beer.
// Empty text fields and a zero score place no constraint on the result.
func ExamplePredicates(example *Beer) []Predicate {
	if example == nil {
		return nil
	}

	var preds []Predicate
	if example.Name != "" {
		preds = append(preds, Contains(FieldName, example.Name))
	}
	if example.Taste != "" {
		preds = append(preds, Contains(FieldTaste, example.Taste))
	}
	if example.Score != 0 {
		preds = append(preds, Equal(FieldScore, example.Score))
	}
	return preds
}

func (p Predicate) validate() error {
	switch p.Field {
	case FieldName, FieldTaste:
		if _, ok := p.Value.(string); !ok {
			return fmt.Errorf("%w: %s expects a string, got %T", ErrInvalidPredicate, p.Field, p.Value)
		}
		if p.Op != OpContains && p.Op != OpEqual {
			return fmt.Errorf("%w: operator %q not supported on %s", ErrInvalidPredicate, p.Op, p.Field)
		}
	case FieldScore:
		if _, ok := p.Value.(int); !ok {
			return fmt.Errorf("%w: %s expects an int, got %T", ErrInvalidPredicate, p.Field, p.Value)
		}
		if p.Op != OpEqual {
			return fmt.Errorf("%w: operator %q not supported on %s", ErrInvalidPredicate, p.Op, p.Field)
		}
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidPredicate, p.Field)
	}
	return nil
}

func validatePredicates(preds []Predicate) error {
	for _, p := range preds {
		if err := p.validate(); err != nil {
			return err
		}
	}
	return nil
}

// matches evaluates p against beer. p must already be valid.
func (p Predicate) matches(beer *Beer) bool {
	switch p.Field {
	case FieldScore:
		return beer.Score == p.Value.(int)
	case FieldName, FieldTaste:
		got := beer.Name
		if p.Field == FieldTaste {
			got = beer.Taste
		}
		want := p.Value.(string)
		if p.Op == OpEqual {
			return got == want
		}
		return strings.Contains(strings.ToLower(got), strings.ToLower(want))
	}
	return false
}

func matchesAll(preds []Predicate, beer *Beer) bool {
	for _, p := range preds {
		if !p.matches(beer) {
			return false
		}
	}
	return true
}
