package layout

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directorstracker/tracker-server/internal/domain"
)

func render(t *testing.T, a *Assembler, state State) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, a.Render(&buf, state))
	return buf.String()
}

func TestAssembler_StaticCopy(t *testing.T) {
	a, err := New(Options{Genres: domain.FacetList{"Action", "Comedy"}})
	require.NoError(t, err)

	page := render(t, a, State{Selection: domain.NewSelection("Action")})

	assert.Contains(t, page, "Welcome to the Directors Production Tracker App")
	assert.Contains(t, page, "find your director for your next movie.")
	assert.Contains(t, page, "Hover over a point for more details.")
	assert.Contains(t, page, "Hold &#34;shift&#34; and click on one or more bars")
	assert.Contains(t, page, "DSCI 532 class in 2019/20!")
	assert.Contains(t, page, `data-api="/api/v1"`)
}

func TestAssembler_GenreOptions(t *testing.T) {
	a, err := New(Options{Genres: domain.FacetList{"Action", "Comedy"}})
	require.NoError(t, err)

	page := render(t, a, State{Selection: domain.NewSelection("Comedy")})
	assert.Contains(t, page, `<option value="Action">Action</option>`)
	assert.Contains(t, page, `<option value="Comedy" selected>Comedy</option>`)
	assert.Less(t, strings.Index(page, `value="Action"`), strings.Index(page, `value="Comedy"`), "facet order is kept")

	page = render(t, a, State{Selection: domain.NewSelection("Western")})
	assert.Contains(t, page, `<option value="Western" selected>Western</option>`, "unknown genre stays selectable")
}

func TestAssembler_EmbedsChartAndState(t *testing.T) {
	a, err := New(Options{Genres: domain.FacetList{"Action"}})
	require.NoError(t, err)

	sel := domain.NewSelection("Action").WithDirectors([]string{"B", "A"})
	doc := &domain.ChartDocument{Genre: "Action", HTML: `<div class="chart-document">bars</div>`}

	page := render(t, a, State{Selection: sel, Document: doc})
	assert.Contains(t, page, `<div class="chart-document">bars</div>`)
	assert.Contains(t, page, `data-directors="[&#34;A&#34;,&#34;B&#34;]"`)
	assert.Contains(t, page, `id="notice" class="notice" role="alert" hidden`)
}

func TestAssembler_ShowsFailure(t *testing.T) {
	a, err := New(Options{})
	require.NoError(t, err)

	page := render(t, a, State{Selection: domain.NewSelection("Action"), Failure: "could not draw <the> chart"})
	assert.Contains(t, page, "could not draw &lt;the&gt; chart")
	assert.NotContains(t, page, `role="alert" hidden`)
}

func TestAssembler_ScriptFollowsServerSelectionOnRenderFailure(t *testing.T) {
	a, err := New(Options{})
	require.NoError(t, err)

	page := render(t, a, State{Selection: domain.NewSelection("Action")})
	assert.Contains(t, page, `res.status === 422 && body && body.code === "CHART_RENDER" && body.details`)
	assert.Contains(t, page, "return body.details;")
	assert.Contains(t, page, "directors = state.directors || [];")
}

func TestAssembler_CustomCopy(t *testing.T) {
	a, err := New(Options{Copy: Copy{Title: "Studio board"}, APIBase: "/v2"})
	require.NoError(t, err)

	page := render(t, a, State{})
	assert.Contains(t, page, "<h1>Studio board</h1>")
	assert.Contains(t, page, `data-api="/v2"`)
}
