package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is one observation of an item's price on a source.
// Records are append-only: one row per observation, never updated or
// deleted. PriceAfterSell is nil when the commission was unknown at
// ingestion time.
type PriceRecord struct {
	ID            int64            `json:"record_id" db:"record_id"`
	ItemID        int64            `json:"item_id" db:"item_id"`
	SourceID      int64            `json:"source_id" db:"source_id"`
	Price         decimal.Decimal  `json:"price" db:"price"`
	PriceAfterSell *decimal.Decimal `json:"price_after_sell,omitempty" db:"price_after_sell"`
	RetrievedAt   time.Time        `json:"retrieved_at" db:"retrieved_at"`
}
