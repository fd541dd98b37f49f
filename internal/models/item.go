package models

import (
	"maps"
	"slices"
)

// ItemID identifies a shop item. It is stable across runs and regions.
type ItemID int64

// Prices maps each observed region to a price in shells.
type Prices map[Region]uint32

// Equal reports whether both maps hold the same regions with the same prices.
func (p Prices) Equal(other Prices) bool {
	return maps.Equal(p, other)
}

// Uniform returns the shared price when every known region is present and priced the same.
func (p Prices) Uniform() (uint32, bool) {
	if len(p) != len(Regions) {
		return 0, false
	}

	first, ok := p[Regions[0]]
	if !ok {
		return 0, false
	}
	for _, r := range Regions[1:] {
		if price, found := p[r]; !found || price != first {
			return 0, false
		}
	}

	return first, true
}

// Regions returns the priced regions in enumeration order.
func (p Prices) Regions() []Region {
	out := make([]Region, 0, len(p))
	for _, r := range Regions {
		if _, ok := p[r]; ok {
			out = append(out, r)
		}
	}

	return out
}

// Clone returns an independent copy.
func (p Prices) Clone() Prices {
	if p == nil {
		return nil
	}

	return maps.Clone(p)
}

// Accessory is an optional add-on offered with an item.
type Accessory struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Prices Prices `json:"prices"`
}

// Equal compares accessories structurally.
func (a Accessory) Equal(other Accessory) bool {
	return a.ID == other.ID && a.Name == other.Name && a.Prices.Equal(other.Prices)
}

// ShopItem is the merged, cross-region record of one storefront item.
type ShopItem struct {
	ID              ItemID      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	LongDescription string      `json:"long_description,omitempty"`
	ImageURL        string      `json:"image_url"`
	ImageID         int64       `json:"image_id"`
	BuyURL          string      `json:"buy_url"`
	Prices          Prices      `json:"prices"`
	Accessories     []Accessory `json:"accessories,omitempty"`
	// Stock is nil when the storefront shows no stock indicator.
	Stock *uint32 `json:"stock,omitempty"`
}

// Equal reports whether every field of both items matches.
func (i ShopItem) Equal(other ShopItem) bool {
	return i.ID == other.ID &&
		i.Title == other.Title &&
		i.Description == other.Description &&
		i.LongDescription == other.LongDescription &&
		i.ImageURL == other.ImageURL &&
		i.ImageID == other.ImageID &&
		i.BuyURL == other.BuyURL &&
		i.Prices.Equal(other.Prices) &&
		slices.EqualFunc(i.Accessories, other.Accessories, Accessory.Equal) &&
		equalStock(i.Stock, other.Stock)
}

func equalStock(a, b *uint32) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

// Catalog is the complete set of items from one crawl, sorted by ID ascending.
type Catalog []ShopItem

// SortCatalog orders the catalog by item ID in place and returns it.
func SortCatalog(c Catalog) Catalog {
	slices.SortFunc(c, func(a, b ShopItem) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})

	return c
}
