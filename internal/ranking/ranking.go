// Package ranking orders per-user values into leaderboards.
package ranking

import "sort"

type Entry struct {
	UserID uint64
	Value  int64
}

// Rank sorts entries by value descending, ties broken by ascending user id,
// and truncates to limit. A limit of zero or less keeps every entry.
// The input slice is reordered in place.
func Rank(entries []Entry, limit int) []Entry {
	sort.Slice(entries, func(i, j int) bool {
		return Less(entries[i], entries[j])
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Less reports whether a ranks above b.
func Less(a, b Entry) bool {
	if a.Value != b.Value {
		return a.Value > b.Value
	}
	return a.UserID < b.UserID
}

// Position returns the 1-based place of userID among entries, or 0 when absent.
// Entries do not need to be sorted.
func Position(entries []Entry, userID uint64) int {
	var (
		target Entry
		found  bool
	)
	for _, entry := range entries {
		if entry.UserID == userID {
			target = entry
			found = true
			break
		}
	}
	if !found {
		return 0
	}

	position := 1
	for _, entry := range entries {
		if entry.UserID != userID && Less(entry, target) {
			position++
		}
	}
	return position
}
