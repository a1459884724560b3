package report

import (
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	apperrors "consensus-trader/internal/errors"
	"consensus-trader/internal/models"
)

// OrderUpdatesFileName is the append-only order log written in live mode.
const OrderUpdatesFileName = "live_order_updates.csv"

// OrderLogger appends executed orders to a CSV file as they happen, so the
// log survives a crash mid-session. The header is written once when the file
// is created or empty.
type OrderLogger struct {
	file *os.File
}

// NewOrderLogger opens (or creates) the order log at path for appending.
func NewOrderLogger(path string) (*OrderLogger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.Wrap(err, "create order log dir")
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, apperrors.Wrap(err, "open order log")
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, apperrors.Wrap(err, "stat order log")
	}
	if info.Size() == 0 {
		empty := []models.Trade{}
		if err := gocsv.MarshalFile(&empty, file); err != nil {
			file.Close()
			return nil, apperrors.Wrap(err, "write order log header")
		}
	}
	return &OrderLogger{file: file}, nil
}

// Append writes one executed order to the log and flushes it to disk.
func (l *OrderLogger) Append(trade models.Trade) error {
	row := []models.Trade{trade}
	if err := gocsv.MarshalWithoutHeaders(&row, l.file); err != nil {
		return apperrors.Wrap(err, "append order")
	}
	return l.file.Sync()
}

// Close closes the underlying file.
func (l *OrderLogger) Close() error {
	return l.file.Close()
}
