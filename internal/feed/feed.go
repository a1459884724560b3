// Package feed loads recorded market data and replays it as an ordered
// tick stream.
package feed

import (
	"context"

	"consensus-trader/internal/models"
)

// Source yields the full tick history it covers, oldest first.
type Source interface {
	Name() string
	Load() ([]models.Tick, error)
}

// SliceSource serves a fixed, pre-built tick slice.
type SliceSource struct {
	name  string
	ticks []models.Tick
}

// NewSliceSource creates a Source backed by an in-memory tick slice.
func NewSliceSource(name string, ticks []models.Tick) *SliceSource {
	return &SliceSource{name: name, ticks: ticks}
}

func (s *SliceSource) Name() string {
	return s.name
}

func (s *SliceSource) Load() ([]models.Tick, error) {
	out := make([]models.Tick, len(s.ticks))
	copy(out, s.ticks)
	return out, nil
}

// Stream replays ticks over a channel, stopping early if ctx is cancelled.
// The channel is closed once the history is exhausted.
func Stream(ctx context.Context, ticks []models.Tick) <-chan models.Tick {
	out := make(chan models.Tick)
	go func() {
		defer close(out)
		for _, t := range ticks {
			select {
			case out <- t:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
