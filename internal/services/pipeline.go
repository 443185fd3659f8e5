package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/skinmarket/arbiter/internal/models"
)

// Notifier delivers the outcome of a run to an external channel.
type Notifier interface {
	NotifyCandidates(ctx context.Context, candidates []models.ArbitrageCandidate) error
}

// Pipeline wires the run phases together: fetch, ingest, compare,
// aggregate and notify. The handles it holds are opened by the caller
// before a run and closed after it.
type Pipeline struct {
	fetcher    *Fetcher
	ingestor   *Ingestor
	comparer   *Comparer
	aggregator *Aggregator
	notifier   Notifier
	log        *logrus.Logger
}

// NewPipeline assembles a pipeline. fetcher and ingestor may be nil for
// compare-only runs; notifier may be nil when notifications are off.
func NewPipeline(fetcher *Fetcher, ingestor *Ingestor, comparer *Comparer, aggregator *Aggregator, notifier Notifier, log *logrus.Logger) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		ingestor:   ingestor,
		comparer:   comparer,
		aggregator: aggregator,
		notifier:   notifier,
		log:        log,
	}
}

// RunSummary describes one completed pipeline run.
type RunSummary struct {
	RunID          string
	Fetched        int
	IngestResults  []IngestResult
	PairsAttempted int
	PairsCompared  int
	Candidates     []models.ArbitrageCandidate
}

// RunFull downloads fresh snapshots, ingests them into the relational
// store and runs the comparison.
func (p *Pipeline) RunFull(ctx context.Context, minProfit decimal.Decimal) (*RunSummary, error) {
	runID := uuid.New().String()
	log := p.log.WithField("run_id", runID)
	log.WithField("min_profit", minProfit).Info("Starting full run")

	snapshots := p.fetcher.FetchAll(ctx)
	fetched := 0
	for _, snap := range snapshots {
		if !snap.Empty() {
			fetched++
		}
	}
	log.WithFields(logrus.Fields{"sources": len(snapshots), "fetched": fetched}).
		Info("Fetch phase finished")

	ingestResults, err := p.ingestor.IngestFromStore(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := p.compare(ctx, runID, minProfit)
	if err != nil {
		return nil, err
	}
	summary.Fetched = fetched
	summary.IngestResults = ingestResults
	return summary, nil
}

// RunCompareOnly runs the comparison over previously stored snapshots
// without touching the network or the database.
func (p *Pipeline) RunCompareOnly(ctx context.Context, minProfit decimal.Decimal) (*RunSummary, error) {
	runID := uuid.New().String()
	p.log.WithFields(logrus.Fields{"run_id": runID, "min_profit": minProfit}).
		Info("Starting compare-only run")
	return p.compare(ctx, runID, minProfit)
}

func (p *Pipeline) compare(ctx context.Context, runID string, minProfit decimal.Decimal) (*RunSummary, error) {
	cmp, err := p.comparer.CompareAll(ctx, minProfit)
	if err != nil {
		return nil, err
	}

	ranked, err := p.aggregator.Finalize(ctx, runID, minProfit, cmp.Candidates)
	if err != nil {
		return nil, err
	}

	if p.notifier != nil && len(ranked) > 0 {
		if err := p.notifier.NotifyCandidates(ctx, ranked); err != nil {
			p.log.WithError(err).Warn("Failed to send notification")
		}
	}

	return &RunSummary{
		RunID:          runID,
		PairsAttempted: cmp.PairsAttempted,
		PairsCompared:  cmp.PairsCompared,
		Candidates:     ranked,
	}, nil
}
