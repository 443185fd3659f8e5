package notify

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinmarket/arbiter/internal/models"
)

type fakeSender struct {
	calls  int
	params *bot.SendMessageParams
	err    error
}

func (s *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	s.calls++
	s.params = params
	return &tgmodels.Message{}, s.err
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func candidate(name, buy, sell, profit string) models.ArbitrageCandidate {
	return models.ArbitrageCandidate{
		ItemName:           name,
		BuySource:          buy,
		SellSource:         sell,
		BuyPrice:           decimal.RequireFromString("8.0"),
		SellPriceAfterSell: decimal.RequireFromString("9.5"),
		Profit:             decimal.RequireFromString(profit),
	}
}

func TestNewTelegramNotifier_EmptyTokenDisables(t *testing.T) {
	n, err := NewTelegramNotifier("", 123, 3, testLogger())
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestNotifyCandidates_FormatsTopTrades(t *testing.T) {
	sender := &fakeSender{}
	n := newTelegramNotifier(sender, 42, 2, testLogger())

	err := n.NotifyCandidates(context.Background(), []models.ArbitrageCandidate{
		candidate("AWP | Asiimov", "csdeals", "skinport", "1.50"),
		candidate("AK-47 | Redline", "shadowpay", "csdeals", "0.75"),
		candidate("P250 | Sand Dune", "csdeals", "shadowpay", "0.10"),
	})
	require.NoError(t, err)

	require.Equal(t, 1, sender.calls)
	assert.EqualValues(t, 42, sender.params.ChatID)

	text := sender.params.Text
	assert.Contains(t, text, "Found 3 profitable trades")
	assert.Contains(t, text, "AWP | Asiimov")
	assert.Contains(t, text, "Buy: Csdeals @ $8.00")
	assert.Contains(t, text, "Sell: Skinport @ $9.50")
	assert.Contains(t, text, "$1.50")
	// Only the top two appear in full.
	assert.NotContains(t, text, "P250 | Sand Dune")
	assert.Contains(t, text, "...and 1 more trades")
}

func TestNotifyCandidates_NothingToSend(t *testing.T) {
	sender := &fakeSender{}
	n := newTelegramNotifier(sender, 42, 3, testLogger())

	require.NoError(t, n.NotifyCandidates(context.Background(), nil))
	assert.Zero(t, sender.calls)
}

func TestNotifyCandidates_SendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("chat not found")}
	n := newTelegramNotifier(sender, 42, 3, testLogger())

	err := n.NotifyCandidates(context.Background(), []models.ArbitrageCandidate{
		candidate("Widget", "beta", "alpha", "1.50"),
	})
	assert.ErrorContains(t, err, "chat not found")
}
