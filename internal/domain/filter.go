package domain

import (
	"fmt"
	"strings"
)

// Filter selects which notifications are rendered. It never narrows what is fetched.
type Filter string

const FilterAll Filter = "all"

func (f Filter) String() string { return string(f) }

func ParseFilterFromString(s string) (Filter, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" || normalized == string(FilterAll) {
		return FilterAll, nil
	}

	status, err := ParseStatusFromString(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: invalid filter %q", ErrValidation, s)
	}
	return Filter(status), nil
}

// Filters returns every selectable filter in display order.
func Filters() []Filter {
	return []Filter{
		FilterAll,
		Filter(StatusPending),
		Filter(StatusSent),
		Filter(StatusCancelled),
		Filter(StatusFailed),
	}
}

func (f Filter) Label() string {
	if f == FilterAll {
		return "All"
	}
	return Status(f).Label()
}

func (f Filter) Matches(n Notification) bool {
	return f == FilterAll || f == "" || Status(f) == n.Status
}

// Apply returns the subset of notifications matching f, preserving order.
func (f Filter) Apply(notifications []Notification) []Notification {
	if f == FilterAll || f == "" {
		out := make([]Notification, len(notifications))
		copy(out, notifications)
		return out
	}

	out := make([]Notification, 0, len(notifications))
	for _, n := range notifications {
		if f.Matches(n) {
			out = append(out, n)
		}
	}
	return out
}
