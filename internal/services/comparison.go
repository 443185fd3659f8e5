package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/skinmarket/arbiter/internal/models"
	"github.com/skinmarket/arbiter/internal/snapshot"
)

// Comparer computes directed arbitrage candidates across every ordered
// pair of stored snapshots. Pairs are independent and run in parallel;
// a pair missing a snapshot is skipped without affecting the rest.
type Comparer struct {
	store *snapshot.Store
	log   *logrus.Logger
}

func NewComparer(store *snapshot.Store, log *logrus.Logger) *Comparer {
	return &Comparer{store: store, log: log}
}

// CompareResult carries the merged candidates of all pairs plus counts
// that let callers distinguish "no data" from "no profitable trade".
type CompareResult struct {
	Candidates     []models.ArbitrageCandidate
	PairsAttempted int
	PairsCompared  int
}

type sourcePair struct {
	buy  string
	sell string
}

// CompareAll enumerates all N*(N-1) directed source pairs and keeps
// candidates whose profit strictly exceeds minProfit.
func (c *Comparer) CompareAll(ctx context.Context, minProfit decimal.Decimal) (CompareResult, error) {
	sources, err := c.store.List()
	if err != nil {
		return CompareResult{}, fmt.Errorf("failed to enumerate snapshots: %w", err)
	}

	pairs := directedPairs(sources)
	result := CompareResult{PairsAttempted: len(pairs)}
	if len(pairs) == 0 {
		c.log.Warn("Fewer than two snapshots available, nothing to compare")
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, pair := range pairs {
		pair := pair
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			candidates, compared, err := c.comparePair(pair.buy, pair.sell, minProfit)
			if err != nil {
				return err
			}
			if !compared {
				return nil
			}

			mu.Lock()
			result.PairsCompared++
			result.Candidates = append(result.Candidates, candidates...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CompareResult{}, err
	}

	c.log.WithFields(logrus.Fields{
		"pairs_attempted": result.PairsAttempted,
		"pairs_compared":  result.PairsCompared,
		"candidates":      len(result.Candidates),
	}).Info("Comparison finished")
	return result, nil
}

// comparePair joins the buy and sell snapshots on item name and filters
// by profit. The boolean result reports whether the pair could be
// compared at all; a missing snapshot skips the pair.
func (c *Comparer) comparePair(buy, sell string, minProfit decimal.Decimal) ([]models.ArbitrageCandidate, bool, error) {
	buySnap, err := c.store.Read(buy)
	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{"buy": buy, "sell": sell}).
			Error("Skipping pair, buy snapshot unreadable")
		return nil, false, nil
	}
	sellSnap, err := c.store.Read(sell)
	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{"buy": buy, "sell": sell}).
			Error("Skipping pair, sell snapshot unreadable")
		return nil, false, nil
	}

	// One row per name on each side before joining: duplicate listings
	// collapse to the lowest buy price and the highest sell proceeds
	// instead of producing a cross product.
	buyBest := bestBuys(buySnap)
	sellBest := bestSells(sellSnap)
	observedAt := laterOf(buySnap.RetrievedAt, sellSnap.RetrievedAt)

	var candidates []models.ArbitrageCandidate
	for name, b := range buyBest {
		s, ok := sellBest[name]
		if !ok {
			continue
		}

		profit := models.Profit(*s.PriceAfterSell, *b.Price)
		if !profit.GreaterThan(minProfit) {
			continue
		}

		candidates = append(candidates, models.ArbitrageCandidate{
			ID:                 uuid.New().String(),
			ItemName:           name,
			BuySource:          buy,
			SellSource:         sell,
			BuyPrice:           *b.Price,
			BuyPriceAfterSell:  b.PriceAfterSell,
			SellPrice:          s.Price,
			SellPriceAfterSell: *s.PriceAfterSell,
			Profit:             profit,
			ObservedAt:         observedAt,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ItemName > candidates[j].ItemName
	})

	if err := c.store.WritePairResult(buy, sell, candidates); err != nil {
		return nil, false, err
	}

	c.log.WithFields(logrus.Fields{
		"buy":        buy,
		"sell":       sell,
		"candidates": len(candidates),
	}).Info("Pair compared")
	return candidates, true, nil
}

// directedPairs returns all ordered permutations of length two. Buying
// and selling on the same source is never considered.
func directedPairs(sources []string) []sourcePair {
	var pairs []sourcePair
	for _, buy := range sources {
		for _, sell := range sources {
			if buy == sell {
				continue
			}
			pairs = append(pairs, sourcePair{buy: buy, sell: sell})
		}
	}
	return pairs
}

// bestBuys keeps the lowest-priced listing per name; rows without a
// price are excluded rather than coerced.
func bestBuys(snap models.Snapshot) map[string]models.Listing {
	best := make(map[string]models.Listing)
	for _, l := range snap.Listings {
		if l.Price == nil {
			continue
		}
		cur, ok := best[l.Name]
		if !ok || l.Price.LessThan(*cur.Price) {
			best[l.Name] = l
		}
	}
	return best
}

// bestSells keeps the listing with the highest sell proceeds per name;
// rows without a known price_after_sell are excluded.
func bestSells(snap models.Snapshot) map[string]models.Listing {
	best := make(map[string]models.Listing)
	for _, l := range snap.Listings {
		if l.PriceAfterSell == nil {
			continue
		}
		cur, ok := best[l.Name]
		if !ok || l.PriceAfterSell.GreaterThan(*cur.PriceAfterSell) {
			best[l.Name] = l
		}
	}
	return best
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
