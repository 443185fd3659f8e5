package marketplace

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/skinmarket/arbiter/internal/models"
)

const skinportURL = "https://api.skinport.com/v1/items"

type skinportItem struct {
	MarketHashName string   `json:"market_hash_name"`
	MinPrice       *float64 `json:"min_price"`
}

// Skinport fetches the public item list from Skinport. Items without a
// current listing carry a null min_price and are dropped at mapping time.
type Skinport struct {
	client  *Client
	baseURL string
	rate    decimal.Decimal
	log     *logrus.Logger
}

func NewSkinport(client *Client, rate decimal.Decimal, log *logrus.Logger) *Skinport {
	return &Skinport{client: client, baseURL: skinportURL, rate: rate, log: log}
}

func (a *Skinport) Name() string { return "skinport" }

func (a *Skinport) FetchSnapshot(ctx context.Context) (models.Snapshot, error) {
	var out []skinportItem
	params := map[string]string{
		"app_id":   "730",
		"currency": "EUR",
		"tradable": "0",
	}
	if err := a.client.GetJSON(ctx, a.baseURL, nil, params, &out); err != nil {
		return models.Snapshot{Source: a.Name()}, err
	}

	listings := make([]models.Listing, 0, len(out))
	dropped := 0
	for _, it := range out {
		if it.MinPrice == nil {
			dropped++
			continue
		}
		l, ok := newListing(it.MarketHashName, *it.MinPrice, a.rate)
		if !ok {
			dropped++
			continue
		}
		listings = append(listings, l)
	}

	if dropped > 0 {
		a.log.WithFields(logrus.Fields{"source": a.Name(), "dropped": dropped}).
			Debug("Dropped listings with invalid prices")
	}

	return models.Snapshot{
		Source:      a.Name(),
		RetrievedAt: time.Now().UTC(),
		Listings:    listings,
	}, nil
}
