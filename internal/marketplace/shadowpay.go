package marketplace

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/skinmarket/arbiter/internal/models"
)

const shadowpayURL = "https://api.shadowpay.com/api/v2/user/items/prices"

type shadowpayResponse struct {
	Status string          `json:"status"`
	Data   []shadowpayItem `json:"data"`
}

type shadowpayItem struct {
	SteamMarketHashName string      `json:"steam_market_hash_name"`
	Price               json.Number `json:"price"`
}

// ShadowPay fetches item prices from ShadowPay. The API requires an
// account token sent in the Token header.
type ShadowPay struct {
	client  *Client
	baseURL string
	rate    decimal.Decimal
	token   string
	log     *logrus.Logger
}

func NewShadowPay(client *Client, rate decimal.Decimal, token string, log *logrus.Logger) *ShadowPay {
	return &ShadowPay{client: client, baseURL: shadowpayURL, rate: rate, token: token, log: log}
}

func (a *ShadowPay) Name() string { return "shadowpay" }

func (a *ShadowPay) FetchSnapshot(ctx context.Context) (models.Snapshot, error) {
	var out shadowpayResponse
	headers := map[string]string{"Token": a.token}
	if err := a.client.GetJSON(ctx, a.baseURL, headers, nil, &out); err != nil {
		return models.Snapshot{Source: a.Name()}, err
	}

	listings := make([]models.Listing, 0, len(out.Data))
	dropped := 0
	for _, it := range out.Data {
		price, err := it.Price.Float64()
		if err != nil {
			dropped++
			continue
		}
		l, ok := newListing(it.SteamMarketHashName, price, a.rate)
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
