package marketplace

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/skinmarket/arbiter/internal/models"
)

const skinwalletURL = "https://www.skinwallet.com/api/v1/offers/overview"

type skinwalletResponse struct {
	Result []skinwalletOffer `json:"result"`
}

type skinwalletOffer struct {
	MarketHashName string `json:"marketHashName"`
	CheapestOffer  struct {
		Price struct {
			Amount   *float64 `json:"amount"`
			Currency string   `json:"currency"`
		} `json:"price"`
	} `json:"cheapestOffer"`
}

// Skinwallet fetches the offer overview from Skinwallet. The adapter is
// part of the registry but ships disabled in the default configuration.
type Skinwallet struct {
	client  *Client
	baseURL string
	rate    decimal.Decimal
	token   string
	log     *logrus.Logger
}

func NewSkinwallet(client *Client, rate decimal.Decimal, token string, log *logrus.Logger) *Skinwallet {
	return &Skinwallet{client: client, baseURL: skinwalletURL, rate: rate, token: token, log: log}
}

func (a *Skinwallet) Name() string { return "skinwallet" }

func (a *Skinwallet) FetchSnapshot(ctx context.Context) (models.Snapshot, error) {
	var out skinwalletResponse
	headers := map[string]string{"X-Auth-Token": a.token}
	params := map[string]string{"appId": "730"}
	if err := a.client.GetJSON(ctx, a.baseURL, headers, params, &out); err != nil {
		return models.Snapshot{Source: a.Name()}, err
	}

	listings := make([]models.Listing, 0, len(out.Result))
	dropped := 0
	for _, offer := range out.Result {
		if offer.CheapestOffer.Price.Amount == nil {
			dropped++
			continue
		}
		l, ok := newListing(offer.MarketHashName, *offer.CheapestOffer.Price.Amount, a.rate)
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
