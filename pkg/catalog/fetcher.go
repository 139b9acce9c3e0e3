// Package catalog fetches pages of the PokeAPI creature catalog and resolves
// every reference into an Entry with an image.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/pokedex-browser/pkg/client"
	"github.com/Sternrassler/pokedex-browser/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	entriesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_entries_dropped_total",
		Help: "Catalog references dropped while resolving details, by reason",
	}, []string{"reason"})

	pageLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_page_loads_total",
		Help: "Catalog page loads by result",
	}, []string{"result"})
)

// DefaultPageSize is the number of references requested per page.
const DefaultPageSize = 20

// ErrNoImage is returned for a detail record without any usable sprite.
var ErrNoImage = errors.New("no image available")

// API is the subset of the HTTP client the fetcher needs.
type API interface {
	Resolve(path string) *url.URL
	GetJSON(ctx context.Context, rawURL string, out any) error
}

// Config holds fetcher configuration.
type Config struct {
	// PageSize is the list endpoint limit.
	PageSize int

	// DetailConcurrency caps parallel detail lookups; 0 means the whole page at once.
	DetailConcurrency int

	// DetailTimeout bounds each detail lookup.
	DetailTimeout time.Duration
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:      DefaultPageSize,
		DetailTimeout: 10 * time.Second,
	}
}

// Fetcher loads catalog pages.
type Fetcher struct {
	api    API
	batch  *pagination.BatchFetcher
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a fetcher on top of api.
func NewFetcher(api API, cfg Config) (*Fetcher, error) {
	if api == nil {
		return nil, fmt.Errorf("catalog api is required")
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be > 0 (got %d)", cfg.PageSize)
	}

	return &Fetcher{
		api: api,
		batch: pagination.NewBatchFetcher(pagination.Config{
			MaxConcurrency: cfg.DetailConcurrency,
			Timeout:        cfg.DetailTimeout,
		}),
		config: cfg,
		logger: log.With().Str("component", "catalog").Logger(),
	}, nil
}

// PageSize returns the configured page size.
func (f *Fetcher) PageSize() int {
	return f.config.PageSize
}

// FetchPage requests one page of references at offset and resolves their
// details in parallel. Entries whose detail lookup fails or has no image are
// dropped; the rest keep list order. A failure of the list call itself
// returns a *FetchError and no entries.
func (f *Fetcher) FetchPage(ctx context.Context, offset int) (Page, error) {
	if offset < 0 {
		offset = 0
	}

	listURL := f.api.Resolve("pokemon")
	listURL.RawQuery = url.Values{
		"limit":  []string{strconv.Itoa(f.config.PageSize)},
		"offset": []string{strconv.Itoa(offset)},
	}.Encode()

	var list listResponse
	if err := f.api.GetJSON(ctx, listURL.String(), &list); err != nil {
		fe := classify(err)
		pageLoads.WithLabelValues("error").Inc()
		f.logger.Error().
			Err(err).
			Int("offset", offset).
			Str("category", string(fe.Category)).
			Msg("Catalog page load failed")
		return Page{Offset: offset}, fe
	}

	refs := list.Results
	if len(refs) > f.config.PageSize {
		f.logger.Warn().
			Int("limit", f.config.PageSize).
			Int("references", len(refs)).
			Msg("List endpoint ignored the limit, truncating")
		refs = refs[:f.config.PageSize]
	}
	results := pagination.FetchAll(ctx, f.batch, len(refs), func(ctx context.Context, i int) (Entry, error) {
		return f.resolve(ctx, refs[i])
	})

	for _, r := range results {
		if r.Error == nil {
			continue
		}
		entriesDropped.WithLabelValues(dropReason(r.Error)).Inc()
		f.logger.Warn().
			Err(r.Error).
			Str("name", refs[r.Index].Name).
			Msg("Dropping catalog entry")
	}

	entries := pagination.Values(results)
	pageLoads.WithLabelValues("ok").Inc()

	f.logger.Debug().
		Int("offset", offset).
		Int("references", len(refs)).
		Int("entries", len(entries)).
		Int("total", list.Count).
		Msg("Catalog page loaded")

	return Page{
		Offset:    offset,
		Entries:   entries,
		Total:     list.Count,
		Requested: len(refs),
	}, nil
}

// resolve fetches one detail record and turns it into an Entry.
func (f *Fetcher) resolve(ctx context.Context, ref Reference) (Entry, error) {
	var detail detailResponse
	if err := f.api.GetJSON(ctx, ref.URL, &detail); err != nil {
		return Entry{}, fmt.Errorf("detail %s: %w", ref.Name, err)
	}

	image := detail.Sprites.image()
	if image == "" {
		return Entry{}, fmt.Errorf("detail %s: %w", ref.Name, ErrNoImage)
	}

	name := detail.Name
	if name == "" {
		name = ref.Name
	}

	return Entry{
		Name:  name,
		Image: image,
		ID:    detail.ID,
	}, nil
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrNoImage):
		return "no_image"
	case client.StatusCode(err) != 0:
		return "status"
	case client.Class(err) != "":
		return string(client.Class(err))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "decode"
	}
}
