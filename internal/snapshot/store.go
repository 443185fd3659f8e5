// Package snapshot persists per-source price snapshots and comparison
// results as '@'-delimited CSV files, one file per source.
package snapshot

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/skinmarket/arbiter/internal/models"
)

const (
	delimiter       = '@'
	snapshotExt     = ".csv"
	resultsFileName = "RESULTS.csv"
)

var snapshotHeader = []string{"name", "price", "price_after_sell"}

var resultsHeader = []string{
	"name",
	"price_x", "price_after_sell_x",
	"price_y", "price_after_sell_y",
	"BUY X", "SELL Y",
	"profit",
}

type Store struct {
	downloadDir string
	resultsDir  string
	log         *logrus.Logger
}

func NewStore(downloadDir, resultsDir string, log *logrus.Logger) *Store {
	return &Store{downloadDir: downloadDir, resultsDir: resultsDir, log: log}
}

// Write persists one source snapshot as <source>.csv in the download
// directory, replacing any previous snapshot of that source.
func (s *Store) Write(snap models.Snapshot) error {
	if err := os.MkdirAll(s.downloadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create download dir: %w", err)
	}

	path := filepath.Join(s.downloadDir, snap.Source+snapshotExt)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = delimiter

	if err := w.Write(snapshotHeader); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	}
	for _, l := range snap.Listings {
		row := []string{l.Name, priceField(l.Price), priceField(l.PriceAfterSell)}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write snapshot row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush snapshot %s: %w", path, err)
	}

	s.log.WithFields(logrus.Fields{"source": snap.Source, "file": path, "rows": len(snap.Listings)}).
		Info("Snapshot saved")
	return nil
}

// Read loads the stored snapshot of one source. Rows with a missing or
// non-finite price are kept with a nil price so the ingestion engine can
// count them as skipped. The file's modification time serves as the
// snapshot's capture timestamp.
func (s *Store) Read(source string) (models.Snapshot, error) {
	path := filepath.Join(s.downloadDir, source+snapshotExt)
	f, err := os.Open(path)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to stat snapshot %s: %w", path, err)
	}

	r := csv.NewReader(f)
	r.Comma = delimiter
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	if len(rows) == 0 {
		return models.Snapshot{Source: source, RetrievedAt: info.ModTime().UTC()}, nil
	}

	// First row is the header.
	listings := make([]models.Listing, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 2 || row[0] == "" {
			continue
		}
		l := models.Listing{Name: row[0], Price: parsePrice(row[1])}
		if len(row) > 2 {
			l.PriceAfterSell = parsePrice(row[2])
		}
		listings = append(listings, l)
	}

	return models.Snapshot{
		Source:      source,
		RetrievedAt: info.ModTime().UTC(),
		Listings:    listings,
	}, nil
}

// List returns the names of all sources with a stored snapshot, in
// lexical order. A missing download directory means no snapshots yet.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.downloadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	var sources []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), snapshotExt) {
			continue
		}
		sources = append(sources, strings.TrimSuffix(e.Name(), snapshotExt))
	}
	return sources, nil
}

// WritePairResult persists one directed pair's filtered candidate table
// as <buy>_TO_<sell>.csv in the results directory.
func (s *Store) WritePairResult(buy, sell string, candidates []models.ArbitrageCandidate) error {
	if err := os.MkdirAll(s.resultsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create results dir: %w", err)
	}
	path := filepath.Join(s.resultsDir, fmt.Sprintf("%s_TO_%s.csv", buy, sell))
	return s.writeCandidates(path, candidates)
}

// WriteResults persists the final ranked table and returns its path.
func (s *Store) WriteResults(candidates []models.ArbitrageCandidate) (string, error) {
	if err := os.MkdirAll(s.resultsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create results dir: %w", err)
	}
	path := filepath.Join(s.resultsDir, resultsFileName)
	if err := s.writeCandidates(path, candidates); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Store) writeCandidates(path string, candidates []models.ArbitrageCandidate) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = delimiter

	if err := w.Write(resultsHeader); err != nil {
		return fmt.Errorf("failed to write results header: %w", err)
	}
	for _, c := range candidates {
		row := []string{
			c.ItemName,
			c.BuyPrice.String(),
			priceField(c.BuyPriceAfterSell),
			priceField(c.SellPrice),
			c.SellPriceAfterSell.String(),
			c.BuySource,
			c.SellSource,
			c.Profit.String(),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write results row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush results %s: %w", path, err)
	}
	return nil
}

func priceField(p *decimal.Decimal) string {
	if p == nil {
		return ""
	}
	return p.String()
}

// parsePrice converts a CSV price field into a decimal, or nil for
// missing, unparseable or non-finite values. The finiteness check runs
// in float space since decimals cannot represent NaN or infinity.
func parsePrice(field string) *decimal.Decimal {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil
	}
	f, err := strconv.ParseFloat(field, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	d, err := decimal.NewFromString(field)
	if err != nil {
		return nil
	}
	return &d
}
