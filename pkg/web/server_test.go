package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/Sternrassler/pokedex-browser/internal/testutil"
	"github.com/Sternrassler/pokedex-browser/pkg/browse"
	"github.com/Sternrassler/pokedex-browser/pkg/catalog"
	"github.com/Sternrassler/pokedex-browser/pkg/client"
	"github.com/Sternrassler/pokedex-browser/pkg/render"
	"github.com/Sternrassler/pokedex-browser/pkg/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiReply struct {
	browse.View
	Error string `json:"error"`
}

// newTestServer wires the full page stack against mock and returns the
// server plus a cookie-keeping client.
func newTestServer(t *testing.T, mock *testutil.MockPokeAPI) (*httptest.Server, *http.Client) {
	t.Helper()

	cfg := client.DefaultConfig("TestApp/1.0.0 (test@example.com)")
	cfg.BaseURL = mock.BaseURL()
	cfg.Timeout = 2 * time.Second
	apiClient, err := client.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { apiClient.Close() })

	fetcher, err := catalog.NewFetcher(apiClient, catalog.DefaultConfig())
	require.NoError(t, err)
	controller, err := browse.NewController(fetcher)
	require.NoError(t, err)
	renderer, err := render.New()
	require.NoError(t, err)

	srv, err := New(Config{
		Controller:  controller,
		Store:       session.NewMemoryStore(time.Minute),
		Renderer:    renderer,
		Logger:      zerolog.Nop(),
		LoadTimeout: 5 * time.Second,
		SessionTTL:  time.Minute,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return ts, &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

func getDoc(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

func getJSON(t *testing.T, resp *http.Response) apiReply {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var out apiReply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func cardNames(doc *goquery.Document) []string {
	var out []string
	doc.Find(".pokemon-card h3").Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out
}

// stubCatalog is an empty catalog for wiring checks.
type stubCatalog struct{}

func (stubCatalog) FetchPage(ctx context.Context, offset int) (catalog.Page, error) {
	return catalog.Page{Offset: offset}, nil
}

func (stubCatalog) PageSize() int { return catalog.DefaultPageSize }

func TestNew_Validation(t *testing.T) {
	renderer, err := render.New()
	require.NoError(t, err)
	controller, err := browse.NewController(stubCatalog{})
	require.NoError(t, err)
	store := session.NewMemoryStore(0)

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing controller", Config{Store: store, Renderer: renderer}, "controller is required"},
		{"missing store", Config{Controller: controller, Renderer: renderer}, "session store is required"},
		{"missing renderer", Config{Controller: controller, Store: store}, "renderer is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}

	srv, err := New(Config{Controller: controller, Store: store, Renderer: renderer})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, srv.loadTimeout)
	assert.Equal(t, session.DefaultTTL, srv.sessionTTL)
}

func TestPage_InitialLoad(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetPokemon(testutil.Generate(60))
	ts, c := newTestServer(t, mock)

	resp, err := c.Get(ts.URL + "/")
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	doc := getDoc(t, resp)

	assert.Equal(t, 20, doc.Find(".pokemon-card").Length())
	assert.Equal(t, "Page 1", doc.Find("#pageInfo").Text())
	_, prevDisabled := doc.Find("#prevBtn").Attr("disabled")
	_, nextDisabled := doc.Find("#nextBtn").Attr("disabled")
	assert.True(t, prevDisabled)
	assert.False(t, nextDisabled)

	u, _ := url.Parse(ts.URL)
	cookies := c.Jar.Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, session.ValidID(cookies[0].Value))

	// a known session is rendered from state, without fetching again
	resp, err = c.Get(ts.URL + "/")
	require.NoError(t, err)
	getDoc(t, resp)
	assert.Equal(t, 1, mock.GetListRequests())
}

func TestPage_NextAndPrevious(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetPokemon(testutil.Generate(30))
	ts, c := newTestServer(t, mock)

	resp, err := c.Get(ts.URL + "/")
	require.NoError(t, err)
	getDoc(t, resp)

	resp, err = c.Post(ts.URL+"/next", "", nil)
	require.NoError(t, err)
	doc := getDoc(t, resp)

	assert.Equal(t, "Page 2", doc.Find("#pageInfo").Text())
	assert.Equal(t, 10, doc.Find(".pokemon-card").Length())
	assert.Equal(t, "pokemon-21", cardNames(doc)[0])
	_, nextDisabled := doc.Find("#nextBtn").Attr("disabled")
	assert.True(t, nextDisabled, "short page ends the data")

	resp, err = c.Post(ts.URL+"/prev", "", nil)
	require.NoError(t, err)
	doc = getDoc(t, resp)

	assert.Equal(t, "Page 1", doc.Find("#pageInfo").Text())
	assert.Equal(t, "pokemon-1", cardNames(doc)[0])
	assert.Equal(t, 3, mock.GetListRequests(), "previous fetches again")
}

func TestPage_Search(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetPokemon(testutil.Named("charmander", "squirtle", "charizard"))
	ts, c := newTestServer(t, mock)

	resp, err := c.Get(ts.URL + "/")
	require.NoError(t, err)
	getDoc(t, resp)

	resp, err = c.Get(ts.URL + "/search?q=char")
	require.NoError(t, err)
	doc := getDoc(t, resp)

	assert.Equal(t, []string{"charmander", "charizard"}, cardNames(doc))
	value, _ := doc.Find("#searchInput").Attr("value")
	assert.Equal(t, "char", value)

	resp, err = c.Get(ts.URL + "/search?q=mew")
	require.NoError(t, err)
	doc = getDoc(t, resp)
	assert.Equal(t, render.NoResultsMessage, doc.Find(".no-results").Text())

	resp, err = c.Get(ts.URL + "/search?q=")
	require.NoError(t, err)
	doc = getDoc(t, resp)
	assert.Len(t, cardNames(doc), 3)
	assert.Equal(t, 2, mock.GetListRequests(), "clearing the search reloads page 1")
}

func TestPage_SearchBeforeBrowsing(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetPokemon(testutil.Generate(20))
	ts, c := newTestServer(t, mock)

	resp, err := c.Get(ts.URL + "/search?q=char")
	require.NoError(t, err)
	doc := getDoc(t, resp)

	notice := doc.Find("#pokemonContainer .error")
	require.Equal(t, 1, notice.Length())
	kind, _ := notice.Attr("data-kind")
	assert.Equal(t, string(browse.NoticeInstruction), kind)
	assert.Contains(t, notice.Text(), browse.EmptyCorpusMessage)
	assert.Equal(t, 0, mock.GetListRequests(), "no fetch performed")
}

func TestAPI_PageFlow(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetPokemon(testutil.Generate(45))
	ts, c := newTestServer(t, mock)

	resp, err := c.Get(ts.URL + "/api/page")
	require.NoError(t, err)
	reply := getJSON(t, resp)

	assert.Len(t, reply.Entries, 20)
	assert.Equal(t, 1, reply.Page)
	assert.True(t, reply.PrevDisabled)
	assert.False(t, reply.NextDisabled)
	assert.Equal(t, 20, reply.Corpus)
	assert.Empty(t, reply.Error)

	resp, err = c.Post(ts.URL+"/api/next", "", nil)
	require.NoError(t, err)
	reply = getJSON(t, resp)
	assert.Equal(t, 2, reply.Page)
	assert.Equal(t, 40, reply.Corpus)

	resp, err = c.Get(ts.URL + "/api/search?q=pokemon-4")
	require.NoError(t, err)
	reply = getJSON(t, resp)
	assert.True(t, reply.Searching)
	assert.Equal(t, 2, reply.Matches) // pokemon-4 and pokemon-40
	assert.Equal(t, 1, reply.Page)

	resp, err = c.Post(ts.URL+"/api/prev", "", nil)
	require.NoError(t, err)
	reply = getJSON(t, resp)
	assert.Equal(t, 1, reply.Page, "previous is disabled on page 1")
}

func TestAPI_SearchBeforeBrowsing(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	ts, c := newTestServer(t, mock)

	resp, err := c.Get(ts.URL + "/api/search?q=pika")
	require.NoError(t, err)
	reply := getJSON(t, resp)

	assert.Equal(t, browse.ErrEmptyCorpus.Error(), reply.Error)
	require.NotNil(t, reply.Notice)
	assert.Equal(t, browse.NoticeInstruction, reply.Notice.Kind)
	assert.True(t, reply.NextDisabled)
	assert.True(t, reply.PrevDisabled)
}

func TestAPI_ListFailure(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetPokemon(testutil.Generate(20))
	mock.SetListStatus(http.StatusServiceUnavailable)
	ts, c := newTestServer(t, mock)

	resp, err := c.Get(ts.URL + "/api/page")
	require.NoError(t, err)
	reply := getJSON(t, resp)

	require.NotNil(t, reply.Notice)
	assert.Equal(t, browse.NoticeError, reply.Notice.Kind)
	assert.Equal(t, "Error loading Pokémon. Details: HTTP 503", reply.Notice.Text)
	assert.Empty(t, reply.Entries)
	assert.True(t, reply.PrevDisabled)
	assert.True(t, reply.NextDisabled)

	// disabled controls do not fetch
	resp, err = c.Post(ts.URL+"/api/next", "", nil)
	require.NoError(t, err)
	getJSON(t, resp)
	assert.Equal(t, 1, mock.GetListRequests())
}

func TestSession_InvalidCookieStartsFresh(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetPokemon(testutil.Generate(20))
	ts, _ := newTestServer(t, mock)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/page", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var fresh *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == CookieName {
			fresh = ck
		}
	}
	require.NotNil(t, fresh)
	assert.NotEqual(t, "forged", fresh.Value)
	assert.True(t, fresh.HttpOnly)
	assert.Equal(t, int(time.Minute.Seconds()), fresh.MaxAge)
}

func TestOpen(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetPokemon(testutil.Generate(20))
	ts, c := newTestServer(t, mock)

	// load page 1 so the session has been shown its images
	resp, err := c.Get(ts.URL + "/")
	require.NoError(t, err)
	getDoc(t, resp)

	noRedirect := func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	withSession := &http.Client{Jar: c.Jar, CheckRedirect: noRedirect}
	withoutSession := &http.Client{CheckRedirect: noRedirect}

	tests := []struct {
		name     string
		client   *http.Client
		src      string
		status   int
		location string
	}{
		{"shown image", withSession, "https://img.example/sprites/1.png", http.StatusFound, "https://img.example/sprites/1.png"},
		{"image not on the page", withSession, "https://img.example/sprites/99.png", http.StatusNotFound, ""},
		{"foreign host", withSession, "https://evil.example/phish", http.StatusNotFound, ""},
		{"no session", withoutSession, "https://img.example/sprites/1.png", http.StatusNotFound, ""},
		{"placeholder", withSession, render.PlaceholderURL("pokemon-1"), http.StatusNotFound, ""},
		{"script", withSession, "javascript:alert(1)", http.StatusNotFound, ""},
		{"missing", withSession, "", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.client.Get(ts.URL + "/open?src=" + url.QueryEscape(tt.src))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.location, resp.Header.Get("Location"))
		})
	}
}

func TestPage_RefreshRetriesFailedLoad(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetPokemon(testutil.Generate(30))
	mock.SetListStatus(http.StatusServiceUnavailable)
	ts, c := newTestServer(t, mock)

	resp, err := c.Get(ts.URL + "/api/page")
	require.NoError(t, err)
	reply := getJSON(t, resp)
	require.NotNil(t, reply.Notice)
	assert.Equal(t, browse.NoticeError, reply.Notice.Kind)

	// the catalog recovers; a refresh loads the page again
	mock.SetListStatus(0)

	resp, err = c.Get(ts.URL + "/")
	require.NoError(t, err)
	doc := getDoc(t, resp)
	assert.Equal(t, 20, doc.Find(".pokemon-card").Length())
	assert.Equal(t, 0, doc.Find(".error").Length())
	_, nextDisabled := doc.Find("#nextBtn").Attr("disabled")
	assert.False(t, nextDisabled)
	assert.Equal(t, 2, mock.GetListRequests())

	// once loaded, refreshes render from the session again
	resp, err = c.Get(ts.URL + "/api/page")
	require.NoError(t, err)
	reply = getJSON(t, resp)
	assert.Len(t, reply.Entries, 20)
	assert.Nil(t, reply.Notice)
	assert.Equal(t, 2, mock.GetListRequests())

	resp, err = c.Post(ts.URL+"/api/next", "", nil)
	require.NoError(t, err)
	reply = getJSON(t, resp)
	assert.Equal(t, 2, reply.Page)
	assert.Len(t, reply.Entries, 10)
}

func TestPage_RefreshRetriesFailedPage(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetPokemon(testutil.Generate(30))
	ts, c := newTestServer(t, mock)

	resp, err := c.Get(ts.URL + "/api/page")
	require.NoError(t, err)
	getJSON(t, resp)

	mock.SetListStatus(http.StatusBadGateway)
	resp, err = c.Post(ts.URL+"/api/next", "", nil)
	require.NoError(t, err)
	reply := getJSON(t, resp)
	require.NotNil(t, reply.Notice)

	mock.SetListStatus(0)
	resp, err = c.Get(ts.URL + "/api/page")
	require.NoError(t, err)
	reply = getJSON(t, resp)

	assert.Equal(t, 2, reply.Page, "the failed page is retried, not page 1")
	assert.Equal(t, "pokemon-21", reply.Entries[0].Name)
	assert.Nil(t, reply.Notice)
}

func TestHealthAndReady(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	ts, c := newTestServer(t, mock)

	for _, path := range []string{"/health", "/ready"} {
		resp, err := c.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := c.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestMethodNotAllowed(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	ts, c := newTestServer(t, mock)

	resp, err := c.Get(ts.URL + "/next")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
