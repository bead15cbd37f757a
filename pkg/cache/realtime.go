// Package cache keeps the latest reading per physical location and mirrors it to
// the document the UI polls. It is not authoritative, the database is.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"sync"
	"time"
)

type LocationReading struct {
	Metrics      map[string]float64 `json:"metrics"`
	LastUpdateAt time.Time          `json:"last_update_at"`
}

type Snapshot map[string]LocationReading

// Writer persists the whole encoded snapshot, overwriting the previous one.
type Writer interface {
	Write(ctx context.Context, doc []byte) error
}

type Realtime struct {
	mu      sync.RWMutex
	data    Snapshot
	writers []Writer
}

func NewRealtime(writers ...Writer) *Realtime {
	return &Realtime{data: Snapshot{}, writers: writers}
}

// Update records one metric for location and rewrites every sink. The in-memory
// value is kept even when a sink fails.
func (r *Realtime) Update(ctx context.Context, location, metric string, value float64, at time.Time) error {
	r.mu.Lock()
	entry, ok := r.data[location]
	if !ok {
		entry = LocationReading{Metrics: map[string]float64{}}
	}
	entry.Metrics[metric] = value
	entry.LastUpdateAt = at
	r.data[location] = entry

	doc, err := json.Marshal(r.data)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	var errs []error
	for _, w := range r.writers {
		if err := w.Write(ctx, doc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Realtime) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(Snapshot, len(r.data))
	for loc, entry := range r.data {
		out[loc] = LocationReading{Metrics: maps.Clone(entry.Metrics), LastUpdateAt: entry.LastUpdateAt}
	}
	return out
}
