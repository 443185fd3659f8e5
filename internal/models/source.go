package models

import "github.com/shopspring/decimal"

// Source represents a marketplace price listings are fetched from.
// The name is the immutable natural key; the commission rate is the
// fraction the marketplace deducts from a sell price and may be updated
// by a configuration pass.
type Source struct {
	ID             int64           `json:"source_id" db:"source_id"`
	Name           string          `json:"name" db:"name"`
	CommissionRate decimal.Decimal `json:"commission_rate" db:"commission_rate"`
}
