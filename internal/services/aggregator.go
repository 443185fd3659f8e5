package services

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/skinmarket/arbiter/internal/cache"
	"github.com/skinmarket/arbiter/internal/models"
	"github.com/skinmarket/arbiter/internal/snapshot"
)

// Aggregator merges the per-pair candidate tables into one ranked table
// and emits the final artifact. A run that found nothing reports "no
// opportunities" instead of silently writing an empty file.
type Aggregator struct {
	store *snapshot.Store
	cache *cache.SnapshotCache
	log   *logrus.Logger
}

// NewAggregator creates an aggregator. cacheClient may be nil.
func NewAggregator(store *snapshot.Store, cacheClient *cache.SnapshotCache, log *logrus.Logger) *Aggregator {
	return &Aggregator{store: store, cache: cacheClient, log: log}
}

// Finalize ranks the merged candidates, writes RESULTS.csv when any
// survive, and records the run in the cache either way.
func (a *Aggregator) Finalize(ctx context.Context, runID string, minProfit decimal.Decimal, candidates []models.ArbitrageCandidate) ([]models.ArbitrageCandidate, error) {
	ranked := Rank(candidates)

	if len(ranked) == 0 {
		a.log.WithField("run_id", runID).Info("No profitable trades found")
	} else {
		path, err := a.store.WriteResults(ranked)
		if err != nil {
			return nil, err
		}
		a.log.WithFields(logrus.Fields{
			"run_id":     runID,
			"file":       path,
			"candidates": len(ranked),
		}).Info("Final comparison result saved")
	}

	if a.cache != nil {
		entry := cache.ResultsEntry{
			RunID:      runID,
			MinProfit:  minProfit.String(),
			Candidates: ranked,
		}
		if err := a.cache.SetResults(ctx, entry); err != nil {
			a.log.WithError(err).Warn("Failed to cache run results")
		}
	}

	return ranked, nil
}

// Rank orders candidates by (item name, buy source) descending, with
// the sell source as a final tie-break so identical inputs always rank
// identically regardless of pair completion order.
func Rank(candidates []models.ArbitrageCandidate) []models.ArbitrageCandidate {
	ranked := make([]models.ArbitrageCandidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ItemName != ranked[j].ItemName {
			return ranked[i].ItemName > ranked[j].ItemName
		}
		if ranked[i].BuySource != ranked[j].BuySource {
			return ranked[i].BuySource > ranked[j].BuySource
		}
		return ranked[i].SellSource > ranked[j].SellSource
	})
	return ranked
}
