// Package notify delivers run results to a Telegram chat. Delivery is
// best effort: the pipeline treats a failed send as a warning, never as
// a failed run.
package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/skinmarket/arbiter/internal/models"
)

// messageSender is the slice of the bot API the notifier needs,
// satisfied by *bot.Bot.
type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// TelegramNotifier formats the top opportunities of a run into one
// Telegram message.
type TelegramNotifier struct {
	sender messageSender
	chatID int64
	topN   int
	log    *logrus.Logger
}

// NewTelegramNotifier builds a notifier from a bot token. An empty
// token disables notifications and returns nil without error.
func NewTelegramNotifier(token string, chatID int64, topN int, log *logrus.Logger) (*TelegramNotifier, error) {
	if token == "" {
		return nil, nil
	}
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	return newTelegramNotifier(b, chatID, topN, log), nil
}

func newTelegramNotifier(sender messageSender, chatID int64, topN int, log *logrus.Logger) *TelegramNotifier {
	if topN <= 0 {
		topN = 3
	}
	return &TelegramNotifier{sender: sender, chatID: chatID, topN: topN, log: log}
}

// NotifyCandidates sends one alert summarizing the ranked candidates.
func (n *TelegramNotifier) NotifyCandidates(ctx context.Context, candidates []models.ArbitrageCandidate) error {
	if len(candidates) == 0 {
		return nil
	}

	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      n.formatMessage(candidates),
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	n.log.WithField("candidates", len(candidates)).Info("Telegram alert sent")
	return nil
}

func (n *TelegramNotifier) formatMessage(candidates []models.ArbitrageCandidate) string {
	top := candidates
	if len(top) > n.topN {
		top = top[:n.topN]
	}

	caser := cases.Title(language.English)

	message := "🚨 *Skin Arbitrage Alert!*\n\n"
	message += fmt.Sprintf("Found %d profitable trades:\n\n", len(candidates))

	for i, c := range top {
		message += fmt.Sprintf("*%d. %s*\n", i+1, c.ItemName)
		message += fmt.Sprintf("💰 Profit: *$%s*\n", c.Profit.StringFixed(2))
		message += fmt.Sprintf("📈 Buy: %s @ $%s\n", caser.String(c.BuySource), c.BuyPrice.StringFixed(2))
		message += fmt.Sprintf("📉 Sell: %s @ $%s after commission\n",
			caser.String(c.SellSource), c.SellPriceAfterSell.StringFixed(2))
		message += "\n"
	}

	if len(candidates) > n.topN {
		message += fmt.Sprintf("...and %d more trades\n\n", len(candidates)-n.topN)
	}

	message += "⚡ *Act fast!* Listings may disappear quickly."
	return message
}
