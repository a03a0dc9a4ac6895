// Package validator accumulates field-level validation errors so handlers can
// report every problem with a request in one response.
package validator

import "cmp"

// Validator maps field names to the first validation error seen for them.
// An empty Errors map means the input is valid.
type Validator struct {
	Errors map[string]string
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid reports whether no errors were recorded.
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records message for key unless key already failed; the first
// failure for a field is the one reported.
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

// Check records message for key only when ok is false:
//
//	v.Check(beer.Name != "", "name", "must be provided")
func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// Between reports whether value lies in the closed range [lo, hi].
func Between[T cmp.Ordered](value, lo, hi T) bool {
	return value >= lo && value <= hi
}
