package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing is one canonical row of a marketplace snapshot. Price is nil
// when the raw value was missing or non-finite; such rows are carried
// through so the ingestion engine can count them as skipped instead of
// coercing them to zero. PriceAfterSell is the price net of the source's
// sell commission and is nil when the commission is unknown.
type Listing struct {
	Name           string           `json:"name"`
	Price          *decimal.Decimal `json:"price"`
	PriceAfterSell *decimal.Decimal `json:"price_after_sell,omitempty"`
}

// Snapshot is one point-in-time set of listings from a single source.
type Snapshot struct {
	Source      string    `json:"source"`
	RetrievedAt time.Time `json:"retrieved_at"`
	Listings    []Listing `json:"listings"`
}

// Empty reports whether the snapshot carries no listings, which is how
// fetch failures surface to the rest of the pipeline.
func (s Snapshot) Empty() bool {
	return len(s.Listings) == 0
}
