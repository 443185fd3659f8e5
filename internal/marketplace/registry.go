package marketplace

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/skinmarket/arbiter/internal/config"
)

// BuildAdapters constructs the enabled adapter set from configuration.
// The adapter set and every commission rate come exclusively from the
// sources section; an unknown source name is a configuration error.
func BuildAdapters(cfg *config.Config, client *Client, log *logrus.Logger) ([]Adapter, error) {
	var adapters []Adapter
	for _, sc := range cfg.Sources {
		if !sc.Enabled {
			continue
		}

		rate := decimal.NewFromFloat(sc.Commission)
		switch sc.Name {
		case "csdeals":
			adapters = append(adapters, NewCsDeals(client, rate, log))
		case "shadowpay":
			adapters = append(adapters, NewShadowPay(client, rate, sc.Token, log))
		case "skinport":
			adapters = append(adapters, NewSkinport(client, rate, log))
		case "skinwallet":
			adapters = append(adapters, NewSkinwallet(client, rate, sc.Token, log))
		default:
			return nil, fmt.Errorf("unknown source %q in configuration", sc.Name)
		}
	}
	return adapters, nil
}
