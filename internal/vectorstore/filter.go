package vectorstore

import (
	"errors"
	"fmt"
)

// TenantKey is the reserved payload key carrying the tenant partition.
const TenantKey = "__tenant"

// ApplicationKey and SessionKey are the reserved payload keys carrying
// scope tags stamped by the data layer.
const (
	ApplicationKey = "application_id"
	SessionKey     = "session_id"
)

// reservedFilterKeys are keys that cannot appear in caller-supplied
// filters. Scope filters on these keys are derived by the data layer and
// must never be overridable.
var reservedFilterKeys = []string{TenantKey, ApplicationKey, SessionKey}

// ErrReservedFilterKey indicates a caller filter tried to set a scope key.
var ErrReservedFilterKey = errors.New("filter contains reserved scope key")

// Condition is a single equality test on a payload field.
type Condition struct {
	Field string `json:"field"`
	Equal any    `json:"equal"`
}

// Filter is a conjunction of equality conditions. An empty filter
// matches everything.
type Filter struct {
	Must []Condition `json:"must,omitempty"`
}

// Empty reports whether the filter has no conditions.
func (f Filter) Empty() bool {
	return len(f.Must) == 0
}

// And returns a new filter matching both f and the given conditions.
func (f Filter) And(conds ...Condition) Filter {
	merged := make([]Condition, 0, len(f.Must)+len(conds))
	merged = append(merged, f.Must...)
	merged = append(merged, conds...)
	return Filter{Must: merged}
}

// Eq builds a single-condition filter.
func Eq(field string, value any) Filter {
	return Filter{Must: []Condition{{Field: field, Equal: value}}}
}

// MergeScopeFilter conjoins a caller-supplied filter with the derived
// scope filter. The scope filter always applies; callers cannot override
// it, and caller conditions on reserved keys are rejected outright.
func MergeScopeFilter(user, scope Filter) (Filter, error) {
	for _, cond := range user.Must {
		for _, key := range reservedFilterKeys {
			if cond.Field == key {
				return Filter{}, fmt.Errorf("%w: %s", ErrReservedFilterKey, key)
			}
		}
	}
	if user.Empty() {
		return scope, nil
	}
	return scope.And(user.Must...), nil
}
