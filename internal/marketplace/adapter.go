package marketplace

import (
	"context"
	"math"

	"github.com/shopspring/decimal"

	"github.com/skinmarket/arbiter/internal/models"
)

// Adapter is implemented by one variant per marketplace. FetchSnapshot
// maps the marketplace's raw listing payload into canonical rows with
// the sell commission already applied. A fetch failure is returned as an
// error; the fetch phase converts it into an empty snapshot so one
// source's failure never aborts its siblings.
type Adapter interface {
	Name() string
	FetchSnapshot(ctx context.Context) (models.Snapshot, error)
}

// newListing builds a canonical row from a raw listing. Rows with an
// empty name or a missing/non-finite price are rejected here, at mapping
// time, never coerced to zero. price_after_sell = price * (1 - rate).
func newListing(name string, price float64, rate decimal.Decimal) (models.Listing, bool) {
	if name == "" || math.IsNaN(price) || math.IsInf(price, 0) {
		return models.Listing{}, false
	}

	p := decimal.NewFromFloat(price)
	after := p.Mul(decimal.NewFromInt(1).Sub(rate))
	return models.Listing{Name: name, Price: &p, PriceAfterSell: &after}, true
}
