package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/skinmarket/arbiter/internal/models"
)

const csdealsURL = "https://cs.deals/API/IPricing/GetLowestPrices/v1"

type csdealsResponse struct {
	Success  bool `json:"success"`
	Response struct {
		Items []csdealsItem `json:"items"`
	} `json:"response"`
}

type csdealsItem struct {
	MarketName  string      `json:"marketname"`
	LowestPrice json.Number `json:"lowest_price"`
}

// CsDeals fetches lowest listing prices from cs.deals.
type CsDeals struct {
	client  *Client
	baseURL string
	rate    decimal.Decimal
	log     *logrus.Logger
}

func NewCsDeals(client *Client, rate decimal.Decimal, log *logrus.Logger) *CsDeals {
	return &CsDeals{client: client, baseURL: csdealsURL, rate: rate, log: log}
}

func (a *CsDeals) Name() string { return "csdeals" }

func (a *CsDeals) FetchSnapshot(ctx context.Context) (models.Snapshot, error) {
	var out csdealsResponse
	body := map[string]int{"appid": 730}
	if err := a.client.PostJSON(ctx, a.baseURL, nil, body, &out); err != nil {
		return models.Snapshot{Source: a.Name()}, err
	}
	if !out.Success {
		return models.Snapshot{Source: a.Name()}, fmt.Errorf("csdeals: api reported failure")
	}

	listings := make([]models.Listing, 0, len(out.Response.Items))
	dropped := 0
	for _, it := range out.Response.Items {
		price, err := it.LowestPrice.Float64()
		if err != nil {
			dropped++
			continue
		}
		l, ok := newListing(it.MarketName, price, a.rate)
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
