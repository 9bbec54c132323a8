package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directorstracker/tracker-server/internal/chart"
	"github.com/directorstracker/tracker-server/internal/config"
	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/errors"
	"github.com/directorstracker/tracker-server/internal/layout"
	"github.com/directorstracker/tracker-server/internal/ratelimit"
	"github.com/directorstracker/tracker-server/internal/search"
	"github.com/directorstracker/tracker-server/internal/session"
	"github.com/directorstracker/tracker-server/internal/sse"
)

// brokenGenre always fails to render in test servers.
const brokenGenre = "Broken"

func testDataset() *domain.Dataset {
	return &domain.Dataset{
		Source:      "test",
		Fingerprint: 7,
		HasTitle:    true,
		HasYear:     true,
		Records: []domain.MovieRecord{
			{Index: 0, Title: "Iron Man", Genre: "Action", Director: "A", Rating: 7.9, Profit: 4e8, Year: 2008},
			{Index: 1, Title: "Zathura", Genre: "Action", Director: "B", Rating: 6.1, Profit: -3.6e7, Year: 2005},
			{Index: 2, Title: "Elf", Genre: "Comedy", Director: "C", Rating: 6.9, Profit: 1.7e8, Year: 2003},
			{Index: 3, Title: "Iron Man 2", Genre: "Action", Director: "A", Rating: 7.0, Profit: 3e8, Year: 2010},
			{Index: 4, Title: "Glitch", Genre: brokenGenre, Director: "D", Rating: 5.0, Profit: 1e6, Year: 2001},
		},
	}
}

type testServer struct {
	server  *Server
	events  *sse.Manager
	cleanup func()
}

// setupTestServer creates a server over the test dataset. A nil limiter
// disables rate limiting.
func setupTestServer(t *testing.T, limiter *ratelimit.KeyedRateLimiter) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	ds := testDataset()

	facets, err := search.NewFacetIndex(logger)
	require.NoError(t, err)
	require.NoError(t, facets.Rebuild(ds))

	events := sse.NewManager(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go events.Start(ctx)

	renderer := chart.MustRenderer()
	fresh := chart.NewBuilder(renderer)
	builder := chart.BuilderFunc(func(ctx context.Context, ds *domain.Dataset, sel domain.Selection) (*domain.ChartDocument, error) {
		if sel.Genre == brokenGenre {
			return nil, errors.ChartRender("renderer crashed")
		}
		return fresh.Build(ctx, ds, sel)
	})

	sealer, err := session.NewSealer(nil, time.Hour)
	require.NoError(t, err)

	sessions := session.NewRegistry(session.Options{
		Dataset:   ds,
		Builder:   builder,
		Publisher: events,
		IdleTTL:   time.Hour,
		Logger:    logger,
	})

	page, err := layout.New(layout.Options{Genres: domain.FacetList{"Action", "Comedy", brokenGenre}})
	require.NoError(t, err)

	cfg := &config.Config{Chart: config.ChartConfig{DefaultGenre: "Action", PNGWidth: 640, PNGHeight: 400}}

	srv, err := NewServer(Deps{
		Config:   cfg,
		Dataset:  ds,
		Facets:   facets,
		Sessions: sessions,
		Sealer:   sealer,
		Layout:   page,
		Renderer: renderer,
		Events:   events,
		Limiter:  limiter,
		Logger:   logger,
	})
	require.NoError(t, err)

	return &testServer{
		server: srv,
		events: events,
		cleanup: func() {
			cancel()
			_ = events.Shutdown(context.Background())
			_ = facets.Close()
		},
	}
}

// testEnvelope mirrors Envelope with raw payloads.
type testEnvelope struct {
	V       int             `json:"v"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func decodeEnvelope(t *testing.T, body []byte) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	assert.Equal(t, envelopeVersion, env.V)
	return env
}

func decodeData[T any](t *testing.T, body []byte) T {
	t.Helper()
	env := decodeEnvelope(t, body)
	require.True(t, env.Success, string(body))
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// browser is an HTTP client that keeps the session cookie.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, ts *testServer) *browser {
	t.Helper()
	httpServer := httptest.NewServer(ts.server)
	t.Cleanup(httpServer.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: httpServer.URL, client: &http.Client{Jar: jar, Timeout: 10 * time.Second}}
}

func (b *browser) do(method, path string, body any) (int, []byte) {
	b.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(b.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, b.base+path, reader)
	require.NoError(b.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp.StatusCode, out
}

func (b *browser) selection() SelectionResponse {
	b.t.Helper()
	status, body := b.do(http.MethodGet, "/api/v1/selection", nil)
	require.Equal(b.t, http.StatusOK, status, string(body))
	return decodeData[SelectionResponse](b.t, body)
}

func TestSession_StartsOnDefaultGenre(t *testing.T) {
	ts := setupTestServer(t, nil)
	defer ts.cleanup()
	b := newBrowser(t, ts)

	sel := b.selection()
	assert.Equal(t, "Action", sel.Genre)
	assert.Empty(t, sel.Directors)
	assert.Equal(t, 3, sel.Movies)
	assert.False(t, sel.Empty)

	// The cookie keeps the visitor on the same session.
	status, body := b.do(http.MethodPut, "/api/v1/selection/directors", SelectDirectorsRequest{Directors: []string{"A"}})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, []string{"A"}, b.selection().Directors)
	assert.Equal(t, 1, ts.server.Sessions.Len())
}

func TestSession_SeparateVisitorsDoNotShareState(t *testing.T) {
	ts := setupTestServer(t, nil)
	defer ts.cleanup()
	alice, bob := newBrowser(t, ts), newBrowser(t, ts)

	status, _ := alice.do(http.MethodPut, "/api/v1/selection/genre", SelectGenreRequest{Genre: "Comedy"})
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "Comedy", alice.selection().Genre)
	assert.Equal(t, "Action", bob.selection().Genre)
	assert.Equal(t, 2, ts.server.Sessions.Len())
}

func TestSelection_Scenario(t *testing.T) {
	ts := setupTestServer(t, nil)
	defer ts.cleanup()
	b := newBrowser(t, ts)

	status, body := b.do(http.MethodPut, "/api/v1/selection/directors", SelectDirectorsRequest{Directors: []string{"A"}})
	require.Equal(t, http.StatusOK, status, string(body))
	resp := decodeData[SelectionResponse](t, body)
	assert.Equal(t, "Action", resp.Genre, "clicking directors keeps the genre")
	assert.Equal(t, []string{"A"}, resp.Directors)
	assert.Contains(t, resp.HTML, `data-director="A"`)

	status, body = b.do(http.MethodPut, "/api/v1/selection/genre", SelectGenreRequest{Genre: "Comedy"})
	require.Equal(t, http.StatusOK, status, string(body))
	resp = decodeData[SelectionResponse](t, body)
	assert.Equal(t, "Comedy", resp.Genre)
	assert.Empty(t, resp.Directors, "changing genre clears directors")
	assert.Equal(t, 1, resp.Movies)
	assert.Greater(t, resp.Generation, uint64(1))
}

func TestSelection_UnknownGenreIsEmptyChart(t *testing.T) {
	ts := setupTestServer(t, nil)
	defer ts.cleanup()
	b := newBrowser(t, ts)

	status, body := b.do(http.MethodPut, "/api/v1/selection/genre", SelectGenreRequest{Genre: "Western"})
	require.Equal(t, http.StatusOK, status, string(body))

	resp := decodeData[SelectionResponse](t, body)
	assert.True(t, resp.Empty)
	assert.Zero(t, resp.Movies)
	assert.Contains(t, resp.Notice, "Western")
}

func TestSelection_RenderFailureKeepsPreviousChart(t *testing.T) {
	ts := setupTestServer(t, nil)
	defer ts.cleanup()
	b := newBrowser(t, ts)

	status, _ := b.do(http.MethodPut, "/api/v1/selection/directors", SelectDirectorsRequest{Directors: []string{"A"}})
	require.Equal(t, http.StatusOK, status)

	status, body := b.do(http.MethodPut, "/api/v1/selection/genre", SelectGenreRequest{Genre: brokenGenre})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	env := decodeEnvelope(t, body)
	assert.False(t, env.Success)
	assert.Equal(t, string(errors.CodeChartRender), env.Code)

	var details SelectionResponse
	require.NoError(t, json.Unmarshal(env.Details, &details))
	assert.Equal(t, brokenGenre, details.Genre)
	assert.NotEmpty(t, details.Failure)
	assert.NotNil(t, details.Directors)
	assert.Empty(t, details.Directors, "the genre change reset the directors even though drawing failed")
	assert.Empty(t, details.HTML)

	status, body = b.do(http.MethodGet, "/api/v1/chart", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	chartResp := decodeData[ChartResponse](t, body)
	assert.Equal(t, "Action", chartResp.Genre, "previous chart is still shown")

	// The next good transition clears the failure.
	status, _ = b.do(http.MethodPut, "/api/v1/selection/genre", SelectGenreRequest{Genre: "Comedy"})
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, b.selection().Failure)
}

func TestSelection_Validation(t *testing.T) {
	ts := setupTestServer(t, nil)
	defer ts.cleanup()
	b := newBrowser(t, ts)

	status, body := b.do(http.MethodPut, "/api/v1/selection/genre", SelectGenreRequest{Genre: strings.Repeat("x", 201)})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, string(errors.CodeValidation), decodeEnvelope(t, body).Code)
}

func TestChart_Formats(t *testing.T) {
	ts := setupTestServer(t, nil)
	defer ts.cleanup()
	b := newBrowser(t, ts)

	status, body := b.do(http.MethodGet, "/api/v1/chart", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	htmlResp := decodeData[ChartResponse](t, body)
	assert.Equal(t, formatHTML, htmlResp.Format)
	assert.Contains(t, htmlResp.Content, "<svg")

	status, body = b.do(http.MethodGet, "/api/v1/chart?format=markdown", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	mdResp := decodeData[ChartResponse](t, body)
	assert.Equal(t, formatMarkdown, mdResp.Format)
	assert.Contains(t, mdResp.Content, "Number of Action movies per director")

	status, _ = b.do(http.MethodGet, "/api/v1/chart?format=pdf", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestPage(t *testing.T) {
	ts := setupTestServer(t, nil)
	defer ts.cleanup()
	b := newBrowser(t, ts)

	status, body := b.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, status)
	page := string(body)
	assert.Contains(t, page, "Welcome to the Directors Production Tracker App")
	assert.Contains(t, page, `id="chart"`)
	assert.Contains(t, page, `data-director="A"`)

	status, body = b.do(http.MethodPut, "/api/v1/selection/genre", SelectGenreRequest{Genre: "Comedy"})
	require.Equal(t, http.StatusOK, status, string(body))

	_, body = b.do(http.MethodGet, "/", nil)
	assert.Contains(t, string(body), `data-director="C"`, "page reflects the session")
}

func TestChartPNG(t *testing.T) {
	ts := setupTestServer(t, nil)
	defer ts.cleanup()
	b := newBrowser(t, ts)

	status, body := b.do(http.MethodGet, "/chart.png?width=320&height=240", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))

	status, body = b.do(http.MethodGet, "/chart.png?width=5", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(errors.CodeValidation), decodeEnvelope(t, body).Code)

	status, _ = b.do(http.MethodPut, "/api/v1/selection/genre", SelectGenreRequest{Genre: "Western"})
	require.Equal(t, http.StatusOK, status)
	status, _ = b.do(http.MethodGet, "/chart.png", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFacets(t *testing.T) {
	ts := setupTestServer(t, nil)
	defer ts.cleanup()
	api := humatest.Wrap(t, ts.server.API())

	resp := api.Get("/api/v1/facets/genres")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	genres := decodeData[FacetListResponse](t, resp.Body.Bytes())
	require.Equal(t, 3, genres.Total)
	assert.Equal(t, FacetItem{Name: "Action", Slug: "action", Movies: 3}, genres.Items[0])
	assert.Equal(t, "Comedy", genres.Items[1].Name)

	resp = api.Get("/api/v1/facets/directors?genre=Action")
	require.Equal(t, http.StatusOK, resp.Code)
	directors := decodeData[FacetListResponse](t, resp.Body.Bytes())
	assert.Equal(t, 2, directors.Total)
	assert.Equal(t, "A", directors.Items[0].Name)
	assert.Equal(t, 2, directors.Items[0].Movies)

	resp = api.Get("/api/v1/facets/search?q=comdy&kind=genre")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	hits := decodeData[SearchFacetsResponse](t, resp.Body.Bytes())
	require.NotEmpty(t, hits.Hits)
	assert.Equal(t, "Comedy", hits.Hits[0].Name)

	resp = api.Get("/api/v1/facets/search?q=a&kind=studio")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t, nil)
	defer ts.cleanup()
	api := humatest.Wrap(t, ts.server.API())

	resp := api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	health := decodeData[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "healthy", health.Status)
	for _, name := range []string{"dataset", "search", "sse", "sessions", "cache"} {
		assert.Contains(t, health.Components, name)
	}
	assert.Contains(t, health.Components["dataset"].Message, "5 movies")
	assert.Zero(t, health.Process.ActiveSessions, "health checks do not start sessions")
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.New(0.001, 2, time.Minute)
	defer limiter.Stop()
	ts := setupTestServer(t, limiter)
	defer ts.cleanup()
	b := newBrowser(t, ts)

	for range 2 {
		status, _ := b.do(http.MethodGet, "/api/v1/facets/genres", nil)
		require.Equal(t, http.StatusOK, status)
	}

	status, body := b.do(http.MethodGet, "/api/v1/facets/genres", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", decodeEnvelope(t, body).Code)

	status, _ = b.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status, "health is exempt")
}

func TestEvents_RequireSessionAndStream(t *testing.T) {
	ts := setupTestServer(t, nil)
	defer ts.cleanup()
	b := newBrowser(t, ts)

	// Establish the session before opening the stream.
	b.selection()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.base+"/api/v1/events", nil)
	require.NoError(t, err)
	resp, err := b.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return ts.events.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	status, _ := b.do(http.MethodPut, "/api/v1/selection/genre", SelectGenreRequest{Genre: "Comedy"})
	require.Equal(t, http.StatusOK, status)

	buf := make([]byte, 64<<10)
	var seen strings.Builder
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !strings.Contains(seen.String(), string(sse.EventChartUpdated)) {
		n, err := resp.Body.Read(buf)
		seen.Write(buf[:n])
		if err != nil {
			break
		}
	}
	assert.Contains(t, seen.String(), string(sse.EventChartUpdated))
	assert.Contains(t, seen.String(), "Comedy")
}

func TestEnvelopeTransformer(t *testing.T) {
	out, err := EnvelopeTransformer(nil, "200", map[string]string{"id": "x"})
	require.NoError(t, err)
	env, ok := out.(Envelope)
	require.True(t, ok)
	assert.True(t, env.Success)
	assert.Equal(t, envelopeVersion, env.V)

	out, err = EnvelopeTransformer(nil, "409", &APIError{status: http.StatusConflict, Code: "SUPERSEDED", Message: "newer"})
	require.NoError(t, err)
	env = out.(Envelope)
	assert.False(t, env.Success)
	assert.Equal(t, "SUPERSEDED", env.Code)
	assert.Equal(t, "newer", env.Error)

	raw := []byte("passthrough")
	out, err = EnvelopeTransformer(nil, "200", raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestNeedsSession(t *testing.T) {
	for path, want := range map[string]bool{
		"/":                       true,
		"/chart.png":              true,
		"/api/v1/selection":       true,
		"/api/v1/selection/genre": true,
		"/api/v1/events":          true,
		"/api/v1/chart":           true,
		"/api/v1/charts":          false,
		"/api/v1/facets/genres":   false,
		"/health":                 false,
		"/openapi.json":           false,
	} {
		assert.Equal(t, want, needsSession(path), path)
	}
}
