package services

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinmarket/arbiter/internal/cache"
	"github.com/skinmarket/arbiter/internal/models"
)

func testCache(t *testing.T) *cache.SnapshotCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewSnapshotCache(client, time.Hour, testLogger())
}

func candidate(name, buy, sell, profit string) models.ArbitrageCandidate {
	return models.ArbitrageCandidate{
		ItemName:           name,
		BuySource:          buy,
		SellSource:         sell,
		BuyPrice:           decimal.RequireFromString("1.0"),
		SellPriceAfterSell: decimal.RequireFromString("2.0"),
		Profit:             decimal.RequireFromString(profit),
	}
}

func TestRank_IsDeterministicAcrossInputOrders(t *testing.T) {
	candidates := []models.ArbitrageCandidate{
		candidate("AWP | Asiimov", "csdeals", "skinport", "1.00"),
		candidate("AK-47 | Redline", "shadowpay", "csdeals", "0.50"),
		candidate("AWP | Asiimov", "shadowpay", "skinport", "0.75"),
		candidate("AWP | Asiimov", "csdeals", "shadowpay", "0.25"),
	}

	first := Rank(candidates)

	shuffled := make([]models.ArbitrageCandidate, len(candidates))
	copy(shuffled, candidates)
	rand.New(rand.NewSource(1)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	second := Rank(shuffled)

	assert.Equal(t, first, second)

	// Names descend, then buy sources, then sell sources.
	require.Len(t, first, 4)
	assert.Equal(t, "AWP | Asiimov", first[0].ItemName)
	assert.Equal(t, "shadowpay", first[0].BuySource)
	assert.Equal(t, "skinport", first[1].SellSource)
	assert.Equal(t, "shadowpay", first[2].SellSource)
	assert.Equal(t, "AK-47 | Redline", first[3].ItemName)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	candidates := []models.ArbitrageCandidate{
		candidate("B", "x", "y", "1.00"),
		candidate("A", "x", "y", "1.00"),
	}
	Rank(candidates)
	assert.Equal(t, "B", candidates[0].ItemName)
}

func TestFinalize_WritesRankedResultsAndCachesRun(t *testing.T) {
	store, _, resultsDir := testStore(t)
	c := testCache(t)
	agg := NewAggregator(store, c, testLogger())

	candidates := []models.ArbitrageCandidate{
		candidate("AK-47 | Redline", "shadowpay", "csdeals", "0.50"),
		candidate("AWP | Asiimov", "csdeals", "skinport", "1.00"),
	}

	ranked, err := agg.Finalize(context.Background(), "run-1", decimal.Zero, candidates)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "AWP | Asiimov", ranked[0].ItemName)

	assert.FileExists(t, filepath.Join(resultsDir, "RESULTS.csv"))

	entry, ok := c.GetResults(context.Background())
	require.True(t, ok)
	assert.Equal(t, "run-1", entry.RunID)
	assert.Len(t, entry.Candidates, 2)
}

func TestFinalize_EmptyRunWritesNoResultsFile(t *testing.T) {
	store, _, resultsDir := testStore(t)
	c := testCache(t)
	agg := NewAggregator(store, c, testLogger())

	ranked, err := agg.Finalize(context.Background(), "run-2", decimal.RequireFromString("0.5"), nil)
	require.NoError(t, err)
	assert.Empty(t, ranked)

	_, statErr := os.Stat(filepath.Join(resultsDir, "RESULTS.csv"))
	assert.True(t, os.IsNotExist(statErr))

	// The run itself is still recorded so callers can tell "no
	// opportunities" apart from "never ran".
	entry, ok := c.GetResults(context.Background())
	require.True(t, ok)
	assert.Equal(t, "run-2", entry.RunID)
	assert.Equal(t, "0.5", entry.MinProfit)
	assert.Empty(t, entry.Candidates)
}

func TestFinalize_WorksWithoutCache(t *testing.T) {
	store, _, _ := testStore(t)
	agg := NewAggregator(store, nil, testLogger())

	ranked, err := agg.Finalize(context.Background(), "run-3", decimal.Zero, []models.ArbitrageCandidate{
		candidate("Widget", "beta", "alpha", "1.50"),
	})
	require.NoError(t, err)
	assert.Len(t, ranked, 1)
}
