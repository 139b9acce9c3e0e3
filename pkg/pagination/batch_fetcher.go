// Package pagination provides parallel batch fetching and offset arithmetic for paginated catalog endpoints
package pagination

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel item fetches.
	// Zero means one worker per item.
	MaxConcurrency int
	// Timeout per item fetch
	Timeout time.Duration
}

// DefaultConfig returns default configuration: every item of a batch in flight at once
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 0,
		Timeout:        10 * time.Second,
	}
}

// FetchFunc fetches the item at position index of a batch
type FetchFunc[T any] func(ctx context.Context, index int) (T, error)

// ItemResult represents the result of fetching a single item
type ItemResult[T any] struct {
	Index int
	Value T
	Error error
}

// BatchFetcher handles parallel fetching of the items of one page
type BatchFetcher struct {
	config Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(config Config) *BatchFetcher {
	if config.MaxConcurrency < 0 {
		config.MaxConcurrency = 0
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &BatchFetcher{
		config: config,
	}
}

// FetchAll fetches count items in parallel using a worker pool.
// The returned slice has one result per index, in index order. A failed
// item carries its error and does not stop the others.
func FetchAll[T any](ctx context.Context, bf *BatchFetcher, count int, fetch FetchFunc[T]) []ItemResult[T] {
	if count <= 0 {
		return nil
	}
	start := time.Now()

	workers := bf.config.MaxConcurrency
	if workers == 0 || workers > count {
		workers = count
	}

	results := make([]ItemResult[T], count)
	resultsMutex := sync.Mutex{}

	itemQueue := make(chan int, count)
	for i := 0; i < count; i++ {
		itemQueue <- i
	}
	close(itemQueue)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			processed := 0

			for index := range itemQueue {
				var res ItemResult[T]
				res.Index = index

				if err := ctx.Err(); err != nil {
					res.Error = err
				} else {
					itemCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
					res.Value, res.Error = fetch(itemCtx, index)
					cancel()
				}

				if res.Error != nil {
					log.Debug().
						Err(res.Error).
						Int("worker_id", workerID).
						Int("index", index).
						Msg("Item fetch failed")
				}

				resultsMutex.Lock()
				results[index] = res
				resultsMutex.Unlock()
				processed++
			}

			log.Trace().
				Int("worker_id", workerID).
				Int("items_processed", processed).
				Msg("Worker completed")
		}(i)
	}

	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}

	log.Debug().
		Int("items", count).
		Int("failed", failed).
		Int("workers", workers).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results
}

// Values returns the successful values of results, preserving order.
func Values[T any](results []ItemResult[T]) []T {
	out := make([]T, 0, len(results))
	for _, r := range results {
		if r.Error == nil {
			out = append(out, r.Value)
		}
	}
	return out
}
