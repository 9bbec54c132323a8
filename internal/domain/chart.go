package domain

// Bar is one director's movie count in the primary view.
type Bar struct {
	Director string `json:"director"`
	Slug     string `json:"slug"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected"`
	Color    string `json:"color"`
}

// Point is one movie plotted in the ratings and profits panels.
type Point struct {
	Index    int     `json:"index"`
	Title    string  `json:"title,omitempty"`
	Director string  `json:"director"`
	Year     int     `json:"year,omitempty"`
	Rating   float64 `json:"rating"`
	Profit   float64 `json:"profit"`
	Color    string  `json:"color"`
}

// DirectorSummary aggregates the secondary view per director.
type DirectorSummary struct {
	Director    string  `json:"director"`
	Movies      int     `json:"movies"`
	MeanRating  float64 `json:"mean_rating"`
	TotalProfit float64 `json:"total_profit"`
}

// ChartDocument is the renderable chart for one selection.
// It depends only on the dataset and the selection it was built from.
type ChartDocument struct {
	Genre     string            `json:"genre"`
	Directors []string          `json:"directors"`
	Bars      []Bar             `json:"bars"`
	Points    []Point           `json:"points"`
	Summaries []DirectorSummary `json:"summaries"`
	Empty     bool              `json:"empty"`
	Notice    string            `json:"notice,omitempty"`
	HTML      string            `json:"html"`
}

// Selection returns the selection this document was built for.
func (d *ChartDocument) Selection() Selection {
	return Selection{Genre: d.Genre, Directors: d.Directors}
}

// TotalMovies returns the number of movies in the genre across all bars.
func (d *ChartDocument) TotalMovies() int {
	n := 0
	for _, b := range d.Bars {
		n += b.Count
	}
	return n
}
