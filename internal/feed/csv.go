package feed

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	apperrors "consensus-trader/internal/errors"
	"consensus-trader/internal/models"
)

// bar mirrors one row of a recorded OHLCV file. Fields stay as text so a
// single bad cell drops only its own row, not the whole file.
type bar struct {
	Timestamp string `csv:"timestamp"`
	Open      string `csv:"open"`
	High      string `csv:"high"`
	Low       string `csv:"low"`
	Close     string `csv:"close"`
	Volume    string `csv:"volume"`
}

// Data exporters disagree on timestamp layouts.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// FilePath returns the data file for a symbol. Crypto pairs use "_" in
// place of "/" on disk.
func FilePath(dir, symbol string) string {
	return filepath.Join(dir, strings.ReplaceAll(symbol, "/", "_")+"_data.csv")
}

// CSVSource reads one symbol's recorded bars from disk.
type CSVSource struct {
	dir    string
	symbol string
	log    zerolog.Logger
}

// NewCSVSource creates a Source for one symbol's data file under dir.
func NewCSVSource(dir, symbol string, log zerolog.Logger) *CSVSource {
	return &CSVSource{
		dir:    dir,
		symbol: symbol,
		log:    log.With().Str("feed", "csv").Str("symbol", symbol).Logger(),
	}
}

func (s *CSVSource) Name() string {
	return "csv:" + s.symbol
}

// Load reads, cleans and orders the symbol's bars. Malformed rows are
// skipped with a warning and duplicate timestamps keep the first
// occurrence.
func (s *CSVSource) Load() ([]models.Tick, error) {
	path := FilePath(s.dir, s.symbol)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewFeedError("csv", s.symbol, "missing data file "+path, apperrors.ErrDataNotFound)
		}
		return nil, apperrors.NewFeedError("csv", s.symbol, "open "+path, err)
	}
	defer file.Close()

	var rows []*bar
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, apperrors.NewFeedError("csv", s.symbol, "parse "+path, err)
	}

	seen := make(map[time.Time]bool, len(rows))
	ticks := make([]models.Tick, 0, len(rows))
	for _, row := range rows {
		tick, err := s.parseRow(row)
		if err != nil {
			s.log.Warn().Err(err).Msg("Skipping malformed row")
			continue
		}
		if seen[tick.Timestamp] {
			continue
		}
		seen[tick.Timestamp] = true
		ticks = append(ticks, tick)
	}
	if len(ticks) == 0 {
		return nil, apperrors.NewFeedError("csv", s.symbol, "no usable rows in "+path, apperrors.ErrDataNotFound)
	}

	sort.SliceStable(ticks, func(i, j int) bool {
		return ticks[i].Timestamp.Before(ticks[j].Timestamp)
	})
	return ticks, nil
}

func (s *CSVSource) parseRow(row *bar) (models.Tick, error) {
	ts, err := parseTimestamp(row.Timestamp)
	if err != nil {
		return models.Tick{}, err
	}
	open, err := parsePrice("open", row.Open)
	if err != nil {
		return models.Tick{}, err
	}
	high, err := parsePrice("high", row.High)
	if err != nil {
		return models.Tick{}, err
	}
	low, err := parsePrice("low", row.Low)
	if err != nil {
		return models.Tick{}, err
	}
	closePrice, err := parsePrice("close", row.Close)
	if err != nil {
		return models.Tick{}, err
	}
	volume, err := strconv.ParseFloat(strings.TrimSpace(row.Volume), 64)
	if err != nil || volume < 0 {
		return models.Tick{}, fmt.Errorf("bad volume %q", row.Volume)
	}
	return models.Tick{
		Timestamp: ts,
		Symbol:    s.symbol,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    int64(volume),
	}, nil
}

func parsePrice(field, raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q", field, raw)
	}
	if value <= 0 {
		return 0, fmt.Errorf("non-positive %s %v", field, value)
	}
	return value, nil
}

// LoadUniverse loads every symbol's history and merges the results into a
// single chronological stream. Symbols with missing or unusable data are
// skipped with a warning.
func LoadUniverse(dir string, symbols []string, log zerolog.Logger) ([]models.Tick, error) {
	streams := make([][]models.Tick, 0, len(symbols))
	for _, symbol := range symbols {
		ticks, err := NewCSVSource(dir, symbol, log).Load()
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("Skipping symbol")
			continue
		}
		streams = append(streams, ticks)
	}
	if len(streams) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrDataNotFound, "no symbols loaded from "+dir)
	}
	return Merge(streams...), nil
}
