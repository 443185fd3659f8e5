package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skinmarket/arbiter/internal/cache"
	"github.com/skinmarket/arbiter/internal/marketplace"
	"github.com/skinmarket/arbiter/internal/models"
	"github.com/skinmarket/arbiter/internal/snapshot"
)

// Fetcher runs the download phase: one concurrent fetch per enabled
// adapter, each bounded by its own timeout. A source's failure yields an
// empty snapshot and never cancels or delays its siblings.
type Fetcher struct {
	adapters []marketplace.Adapter
	store    *snapshot.Store
	cache    *cache.SnapshotCache
	timeout  time.Duration
	log      *logrus.Logger
}

// NewFetcher creates a fetcher. cacheClient may be nil; caching is
// advisory and never affects the pipeline outcome.
func NewFetcher(adapters []marketplace.Adapter, store *snapshot.Store, cacheClient *cache.SnapshotCache, timeout time.Duration, log *logrus.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		adapters: adapters,
		store:    store,
		cache:    cacheClient,
		timeout:  timeout,
		log:      log,
	}
}

// FetchAll downloads from every adapter in parallel and persists the
// successful snapshots. The returned slice has one entry per adapter;
// failed fetches appear as empty snapshots.
func (f *Fetcher) FetchAll(ctx context.Context) []models.Snapshot {
	snapshots := make([]models.Snapshot, len(f.adapters))

	var wg sync.WaitGroup
	for i, adapter := range f.adapters {
		wg.Add(1)
		go func(i int, adapter marketplace.Adapter) {
			defer wg.Done()
			snapshots[i] = f.fetchOne(ctx, adapter)
		}(i, adapter)
	}
	wg.Wait()

	return snapshots
}

func (f *Fetcher) fetchOne(ctx context.Context, adapter marketplace.Adapter) models.Snapshot {
	fctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	f.log.WithField("source", adapter.Name()).Info("Downloading data")

	snap, err := adapter.FetchSnapshot(fctx)
	if err != nil {
		// Fetch failures are isolated per source: log and continue
		// with an empty snapshot.
		f.log.WithError(err).WithField("source", adapter.Name()).Warn("Fetch failed")
		return models.Snapshot{Source: adapter.Name()}
	}

	if err := f.store.Write(snap); err != nil {
		f.log.WithError(err).WithField("source", adapter.Name()).Error("Failed to persist snapshot")
	}

	if f.cache != nil {
		if err := f.cache.SetSnapshot(ctx, snap); err != nil {
			f.log.WithError(err).WithField("source", adapter.Name()).Warn("Failed to cache snapshot")
		}
	}

	return snap
}
