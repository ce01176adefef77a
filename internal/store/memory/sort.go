package memory

import (
	"sort"

	"duit/internal/core"
)

func sortWishlist(items []core.WishlistItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func sortArchives(archives []core.MonthlyArchive) {
	// YYYY-MM ids sort chronologically as strings.
	sort.Slice(archives, func(i, j int) bool { return archives[i].ID < archives[j].ID })
}
