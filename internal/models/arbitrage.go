package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArbitrageCandidate is a detected buy-on-X-sell-on-Y opportunity for a
// single item. Candidates are derived per run, not persisted to the
// relational store; the latest ranked set is cached for the API.
type ArbitrageCandidate struct {
	ID                 string           `json:"id"`
	ItemName           string           `json:"name"`
	BuySource          string           `json:"buy_source"`
	SellSource         string           `json:"sell_source"`
	BuyPrice           decimal.Decimal  `json:"price_x"`
	BuyPriceAfterSell  *decimal.Decimal `json:"price_after_sell_x,omitempty"`
	SellPrice          *decimal.Decimal `json:"price_y,omitempty"`
	SellPriceAfterSell decimal.Decimal  `json:"price_after_sell_y"`
	Profit             decimal.Decimal  `json:"profit"`
	ObservedAt         time.Time        `json:"observed_at"`
}

// Profit computes the gain of buying at buyPrice and selling for
// sellAfterSell net of commission, rounded to cents.
func Profit(sellAfterSell, buyPrice decimal.Decimal) decimal.Decimal {
	return sellAfterSell.Sub(buyPrice).Round(2)
}
