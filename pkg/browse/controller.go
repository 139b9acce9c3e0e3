// Package browse implements the pagination and search state machine of the
// catalog page.
//
// Browse mode pages through the catalog API one offset window at a time and
// appends every loaded page to the session's accumulated corpus. Search mode
// filters that corpus by name and pages through the matches locally.
package browse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/pokedex-browser/pkg/catalog"
	"github.com/Sternrassler/pokedex-browser/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "browse_searches_total",
	Help: "Search input evaluations by outcome",
}, []string{"outcome"})

// ErrEmptyCorpus is returned when a search starts before anything was browsed.
var ErrEmptyCorpus = errors.New("search corpus is empty")

// EmptyCorpusMessage is shown when a search starts before anything was browsed.
const EmptyCorpusMessage = "Load some Pokémon first by browsing, or clear the search."

// Catalog is the page source used in browse mode.
type Catalog interface {
	FetchPage(ctx context.Context, offset int) (catalog.Page, error)
	PageSize() int
}

// Controller drives State through loads, page turns and searches.
// It holds no session data itself.
type Controller struct {
	catalog  Catalog
	pageSize int
	logger   zerolog.Logger
}

// NewController creates a controller over a catalog.
func NewController(c Catalog) (*Controller, error) {
	if c == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	size := c.PageSize()
	if size <= 0 {
		return nil, fmt.Errorf("page size must be > 0 (got %d)", size)
	}
	return &Controller{
		catalog:  c,
		pageSize: size,
		logger:   log.With().Str("component", "browse").Logger(),
	}, nil
}

// PageSize returns the page size shared by both modes.
func (c *Controller) PageSize() int {
	return c.pageSize
}

// Load shows page under the state's current mode. In browse mode it fetches
// the page and appends it to the corpus; in search mode it slices the
// filtered corpus. A fetch failure is recorded in the state and returned.
func (c *Controller) Load(ctx context.Context, st *State, page int) (View, error) {
	if page < 1 {
		page = 1
	}
	st.CurrentPage = page
	st.Notice = nil
	st.Failed = false

	if st.IsSearching {
		filtered := Filter(st.Accumulated, st.Query)
		st.CurrentItems = pagination.Window(filtered, page, c.pageSize)

		outcome := "results"
		if len(filtered) == 0 {
			outcome = "no_results"
		}
		searchesTotal.WithLabelValues(outcome).Inc()

		c.logger.Debug().
			Str("query", st.Query).
			Int("page", page).
			Int("matches", len(filtered)).
			Msg("Search page loaded")
		return c.View(st), nil
	}

	offset := pagination.Offset(page, c.pageSize)
	result, err := c.catalog.FetchPage(ctx, offset)
	if err != nil {
		st.CurrentItems = nil
		st.Failed = true
		st.Notice = &Notice{Kind: NoticeError, Text: userMessage(err)}
		return c.View(st), err
	}

	st.CurrentItems = result.Entries
	st.Accumulated = append(st.Accumulated, result.Entries...)

	if pagination.IsShortPage(len(result.Entries), c.pageSize) && result.Requested == c.pageSize {
		// A full list page lost entries to missing images; next still
		// reads it as the end of the data.
		c.logger.Debug().
			Int("page", page).
			Int("entries", len(result.Entries)).
			Msg("Short page from a full reference list")
	}

	c.logger.Debug().
		Int("page", page).
		Int("entries", len(result.Entries)).
		Int("corpus", len(st.Accumulated)).
		Msg("Browse page loaded")

	return c.View(st), nil
}

// Next loads the following page unless next is disabled.
func (c *Controller) Next(ctx context.Context, st *State) (View, error) {
	if v := c.View(st); v.NextDisabled {
		return v, nil
	}
	return c.Load(ctx, st, st.CurrentPage+1)
}

// Previous loads the preceding page unless previous is disabled. Browse mode
// fetches it again.
func (c *Controller) Previous(ctx context.Context, st *State) (View, error) {
	if v := c.View(st); v.PrevDisabled {
		return v, nil
	}
	return c.Load(ctx, st, st.CurrentPage-1)
}

// Search re-evaluates the mode for the search input text and reloads page 1.
// Non-empty text with an empty corpus shows an instruction instead.
func (c *Controller) Search(ctx context.Context, st *State, text string) (View, error) {
	// blank text means browse mode; the filter itself uses the text as typed
	st.IsSearching = strings.TrimSpace(text) != ""
	st.Query = text
	st.CurrentPage = 1

	if st.IsSearching && len(st.Accumulated) == 0 {
		st.CurrentItems = nil
		st.Failed = true
		st.Notice = &Notice{Kind: NoticeInstruction, Text: EmptyCorpusMessage}
		searchesTotal.WithLabelValues("empty_corpus").Inc()
		c.logger.Debug().Str("query", text).Msg("Search before any page was loaded")
		return c.View(st), ErrEmptyCorpus
	}

	return c.Load(ctx, st, 1)
}

// View computes what to show for st without any I/O.
func (c *Controller) View(st *State) View {
	page := st.CurrentPage
	if page < 1 {
		page = 1
	}

	v := View{
		Entries:      st.CurrentItems,
		Page:         page,
		Query:        st.Query,
		Searching:    st.IsSearching,
		Notice:       st.Notice,
		PrevDisabled: page == 1,
		Corpus:       len(st.Accumulated),
	}
	if v.Entries == nil {
		v.Entries = []catalog.Entry{}
	}

	if st.IsSearching {
		v.Matches = len(Filter(st.Accumulated, st.Query))
		v.NextDisabled = !pagination.HasMore(page, c.pageSize, v.Matches)
	} else {
		v.NextDisabled = pagination.IsShortPage(len(st.CurrentItems), c.pageSize)
	}

	if st.Failed {
		v.PrevDisabled = true
		v.NextDisabled = true
	}

	return v
}

// Filter returns the entries whose name contains text, case-insensitively,
// in corpus order. Empty text matches everything.
func Filter(entries []catalog.Entry, text string) []catalog.Entry {
	needle := strings.ToLower(text)
	out := make([]catalog.Entry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Name), needle) {
			out = append(out, e)
		}
	}
	return out
}

func userMessage(err error) string {
	var fe *catalog.FetchError
	if errors.As(err, &fe) {
		return fe.UserMessage()
	}
	return (&catalog.FetchError{Category: catalog.CategoryOther, Err: err}).UserMessage()
}
