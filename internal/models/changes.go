package models

import "time"

// ItemChange pairs the previous and current version of an updated item.
type ItemChange struct {
	Old ShopItem
	New ShopItem
}

// ItemDiff is the comparison result between two catalogs.
type ItemDiff struct {
	Added   []ShopItem
	Removed []ShopItem
	Updated []ItemChange
}

// IsEmpty reports whether nothing was added, removed or updated.
func (d ItemDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Updated) == 0
}

// Snapshot is a persisted catalog.
type Snapshot struct {
	ID        int64
	CreatedAt time.Time
	Catalog   Catalog
}
