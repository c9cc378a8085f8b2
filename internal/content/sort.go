package content

import "slices"

// SortNewestFirst orders items by PublishedAt descending. The sort is stable:
// items with equal timestamps keep their relative order.
func SortNewestFirst(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
}

// IsNewestFirst reports whether no adjacent pair of items is out of order.
func IsNewestFirst(items []Item) bool {
	for i := 1; i < len(items); i++ {
		if items[i].PublishedAt.After(items[i-1].PublishedAt) {
			return false
		}
	}
	return true
}
