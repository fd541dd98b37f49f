package checker

import "github.com/Houeta/shopwatch/internal/models"

// Diff compares two catalogs by item id. Added and updated entries follow the order of
// newCatalog, removed entries follow the order of oldCatalog. Items present in both with
// equal content are omitted.
func Diff(oldCatalog, newCatalog models.Catalog) models.ItemDiff {
	oldMap := make(map[models.ItemID]models.ShopItem, len(oldCatalog))
	for _, item := range oldCatalog {
		oldMap[item.ID] = item
	}

	newIDs := make(map[models.ItemID]struct{}, len(newCatalog))

	var diff models.ItemDiff
	for _, newItem := range newCatalog {
		newIDs[newItem.ID] = struct{}{}

		oldItem, found := oldMap[newItem.ID]
		switch {
		case !found:
			diff.Added = append(diff.Added, newItem)
		case !oldItem.Equal(newItem):
			diff.Updated = append(diff.Updated, models.ItemChange{Old: oldItem, New: newItem})
		}
	}

	for _, oldItem := range oldCatalog {
		if _, found := newIDs[oldItem.ID]; !found {
			diff.Removed = append(diff.Removed, oldItem)
		}
	}

	return diff
}
