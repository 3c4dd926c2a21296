package docstore

import (
	"fmt"
	"reflect"
	"strings"
)

// Filter selects documents. The zero value matches everything.
// All set conditions must hold (AND); Search fields are OR-combined.
type Filter struct {
	// ID matches the store-assigned identifier.
	ID string
	// Equals requires exact equality on top-level fields.
	Equals map[string]any
	// Search is a case-insensitive literal substring match.
	Search *Search
}

// Search matches documents where at least one of Fields contains Term,
// ignoring case. A field holding an array matches when any string element
// contains Term.
type Search struct {
	Term   string
	Fields []string
}

func ByID(id string) Filter {
	return Filter{ID: id}
}

func ByField(field string, value any) Filter {
	return Filter{Equals: map[string]any{field: value}}
}

// Match evaluates the filter in process. Backends that cannot push a filter
// down to the engine use it directly.
func (f Filter) Match(doc Document) bool {
	if f.ID != "" && IDString(doc[IDField]) != f.ID {
		return false
	}

	for field, want := range f.Equals {
		got, ok := doc[field]
		if !ok || !equalValues(got, want) {
			return false
		}
	}

	if f.Search != nil && f.Search.Term != "" {
		term := strings.ToLower(f.Search.Term)
		matched := false
		for _, field := range f.Search.Fields {
			if containsFold(doc[field], term) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

func containsFold(v any, lowerTerm string) bool {
	switch val := v.(type) {
	case string:
		return strings.Contains(strings.ToLower(val), lowerTerm)
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok && strings.Contains(strings.ToLower(s), lowerTerm) {
				return true
			}
		}
	case []string:
		for _, s := range val {
			if strings.Contains(strings.ToLower(s), lowerTerm) {
				return true
			}
		}
	}
	return false
}

// equalValues compares values that went through JSON, where every number is
// a float64.
func equalValues(got, want any) bool {
	if reflect.DeepEqual(got, want) {
		return true
	}
	return isNumber(got) && isNumber(want) && fmt.Sprint(got) == fmt.Sprint(want)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}
