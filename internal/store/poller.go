package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Poller turns a fetch function into a feed by re-reading on an interval.
// Snapshots are delivered on subscribe and on every tick; failed fetches
// are logged and skipped.
type Poller[T any] struct {
	interval time.Duration
	fetch    func(ctx context.Context, userID string) ([]T, error)
	log      zerolog.Logger
}

// NewPoller creates a Poller.
func NewPoller[T any](interval time.Duration, fetch func(ctx context.Context, userID string) ([]T, error), log zerolog.Logger) *Poller[T] {
	return &Poller[T]{interval: interval, fetch: fetch, log: log}
}

// Subscribe starts polling for userID until the returned func is called.
func (p *Poller[T]) Subscribe(userID string, onData func([]T)) Unsubscribe {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			rows, err := p.fetch(ctx, userID)
			switch {
			case ctx.Err() != nil:
				return
			case err != nil:
				p.log.Warn().Err(err).Str("user_id", userID).Msg("poll failed")
			default:
				onData(rows)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}
