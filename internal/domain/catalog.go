package domain

// CatalogItem is the authoritative view of a menu item at the time it is read.
type CatalogItem struct {
	ID           string `json:"item_id"`
	RestaurantID int64  `json:"restaurant_id"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	Available    bool   `json:"available"`
}
