package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/skinmarket/arbiter/internal/database"
	"github.com/skinmarket/arbiter/internal/models"
	"github.com/skinmarket/arbiter/internal/snapshot"
)

// IngestResult reports how one snapshot was normalized.
type IngestResult struct {
	Source   string
	Ingested int
	Skipped  int
}

// Ingestor consumes stored snapshots and appends them to the relational
// store, resolving Item and Source identity on the way. Row-level
// problems (missing or non-finite prices) are skipped and counted; only
// persistence failures abort a run.
type Ingestor struct {
	repo  *database.Repository
	store *snapshot.Store
	rates map[string]decimal.Decimal
	log   *logrus.Logger
}

// NewIngestor creates an ingestor. rates is the configured source name
// to commission rate mapping; sources absent from it are created with a
// zero commission.
func NewIngestor(repo *database.Repository, store *snapshot.Store, rates map[string]decimal.Decimal, log *logrus.Logger) *Ingestor {
	return &Ingestor{repo: repo, store: store, rates: rates, log: log}
}

// IngestFromStore loads every stored snapshot into the database. An
// unreadable snapshot skips that source and continues with the rest; a
// database error is fatal for the run.
func (i *Ingestor) IngestFromStore(ctx context.Context) ([]IngestResult, error) {
	sources, err := i.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate snapshots: %w", err)
	}
	if len(sources) == 0 {
		i.log.Warn("No snapshots found to ingest")
		return nil, nil
	}

	results := make([]IngestResult, 0, len(sources))
	for _, source := range sources {
		snap, err := i.store.Read(source)
		if err != nil {
			i.log.WithError(err).WithField("source", source).Error("Skipping unreadable snapshot")
			continue
		}

		res, err := i.Ingest(ctx, snap)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Ingest normalizes one snapshot into the relational store.
func (i *Ingestor) Ingest(ctx context.Context, snap models.Snapshot) (IngestResult, error) {
	res := IngestResult{Source: snap.Source}

	sourceID, err := i.repo.GetOrCreateSource(ctx, snap.Source, i.rates[snap.Source])
	if err != nil {
		return res, fmt.Errorf("failed to resolve source %q: %w", snap.Source, err)
	}

	for n, listing := range snap.Listings {
		if listing.Price == nil {
			res.Skipped++
			i.log.WithFields(logrus.Fields{
				"source": snap.Source,
				"row":    n,
				"name":   listing.Name,
			}).Debug("Skipping row with missing or non-finite price")
			continue
		}

		itemID, err := i.repo.GetOrCreateItem(ctx, listing.Name)
		if err != nil {
			return res, fmt.Errorf("failed to resolve item %q: %w", listing.Name, err)
		}

		_, err = i.repo.InsertPriceRecord(ctx, models.PriceRecord{
			ItemID:         itemID,
			SourceID:       sourceID,
			Price:          *listing.Price,
			PriceAfterSell: listing.PriceAfterSell,
			RetrievedAt:    snap.RetrievedAt,
		})
		if err != nil {
			return res, fmt.Errorf("failed to append price record for %q: %w", listing.Name, err)
		}
		res.Ingested++
	}

	i.log.WithFields(logrus.Fields{
		"source":   snap.Source,
		"ingested": res.Ingested,
		"skipped":  res.Skipped,
	}).Info("Snapshot ingested")
	return res, nil
}
