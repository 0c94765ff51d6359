// Package filter holds the branch + free-text filtering shared by every list screen.
package filter

import "strings"

// Searchable exposes the text fields matched by a free-text query.
type Searchable interface {
	SearchFields() []string
}

// Scoped is a Searchable row attached to a branch.
type Scoped interface {
	Searchable
	ScopeBranchID() string
}

// Apply keeps the items of branchID (all items when branchID is empty) whose search
// fields contain query, case-insensitively. Input order is preserved and the input
// slice is never modified or aliased.
func Apply[T Scoped](items []T, branchID, query string) []T {
	needle := strings.ToLower(query)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if branchID != "" && item.ScopeBranchID() != branchID {
			continue
		}
		if !Matches(item, needle) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// ByBranch is Apply without a query.
func ByBranch[T Scoped](items []T, branchID string) []T {
	return Apply(items, branchID, "")
}

// Search filters on text only. Used for collections that are not branch scoped.
func Search[T Searchable](items []T, query string) []T {
	needle := strings.ToLower(query)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if Matches(item, needle) {
			out = append(out, item)
		}
	}
	return out
}

// Matches expects needle to be lower-cased already. An empty needle matches everything.
func Matches(item Searchable, needle string) bool {
	if needle == "" {
		return true
	}
	for _, field := range item.SearchFields() {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Count returns how many items satisfy keep.
func Count[T any](items []T, keep func(T) bool) int {
	n := 0
	for _, item := range items {
		if keep(item) {
			n++
		}
	}
	return n
}
