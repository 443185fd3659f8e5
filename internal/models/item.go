package models

// Item represents a marketplace item identified by its exact listing name.
// The name is the natural key: it is case-sensitive, globally unique and
// never changes once the item has been seen on any source.
type Item struct {
	ID   int64  `json:"item_id" db:"item_id"`
	Name string `json:"name" db:"name"`
}
