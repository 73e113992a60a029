package listings

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/theatre-alerts/internal/production"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	require.NoError(t, err, "failed to load test fixture")
	return string(data)
}

const minimalSearchPage = `
<div id="search-results-container">
  <article class="col-12">
    <a class="text-body-tertiary">SHOW</a>
    <h3 class="fw-bold"><a>The Frogs</a></h3>
    <a class="buy-tickets-link" href="/show/the-frogs-info"><span>More Info</span></a>
  </article>
</div>`

func TestExtractInfoLinks(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		show    string
		want    []string
		wantLog string
	}{
		{
			name:    "minimal card",
			html:    minimalSearchPage,
			show:    "The Frogs",
			want:    []string{"/show/the-frogs-info"},
			wantLog: `found 1 show info link(s) for "The Frogs"`,
		},
		{
			name: "fixture filters type, title and label",
			html: loadFixture(t, "search_results.html"),
			show: "the frogs",
			want: []string{
				"/show/the-frogs-info",
				"/show/the-frogs-southwark",
			},
			wantLog: `found 2 show info link(s) for "the frogs"`,
		},
		{
			name:    "no exact title match",
			html:    minimalSearchPage,
			show:    "Frogs",
			want:    []string{},
			wantLog: `no show info links for "Frogs"`,
		},
		{
			name:    "container absent",
			html:    "<html><body><p>Nothing here</p></body></html>",
			show:    "Anything",
			want:    []string{},
			wantLog: ContainerNotFound,
		},
		{
			name:    "empty page",
			html:    "",
			show:    "Anything",
			want:    []string{},
			wantLog: "container not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, log := ExtractInfoLinks(tt.html, tt.show)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantLog, log)
		})
	}
}

func TestExtractDetails(t *testing.T) {
	d, err := ExtractDetails("The Frogs", loadFixture(t, "info_page.html"))
	require.NoError(t, err)

	rec := d.Record
	assert.Equal(t, "The Frogs", rec.Title)
	assert.Equal(t, "https://www.whatsonstage.com/show/the-frogs-info", rec.InfoURL)
	assert.Equal(t, "2025-07-01", rec.FirstPreview)
	assert.Equal(t, "2025-07-05", rec.OpeningNight)
	assert.Equal(t, "2025-08-01", rec.ClosingNight)
	assert.Equal(t, "Frogs Theatre", rec.VenueName)
	assert.Equal(t, "https://venue.example.com", rec.VenueURL)
	assert.Equal(t, "London", rec.Location)
	assert.Equal(t, production.SourceListingsSite, rec.Source)

	assert.Contains(t, d.HTML, "First Preview")
	assert.Contains(t, d.HTML, "Frogs Theatre")
	assert.Contains(t, d.Text, "The Frogs")

	for field, outcome := range d.Fields {
		assert.True(t, outcome.OK(), "field %s: %s", field, outcome.Reason)
	}
}

func TestExtractDetails_MissingDatesSection(t *testing.T) {
	d, err := ExtractDetails("Passion", loadFixture(t, "info_page_no_dates.html"))
	require.NoError(t, err)

	rec := d.Record
	assert.Equal(t, production.NotAvailable, rec.FirstPreview)
	assert.Equal(t, production.NotAvailable, rec.OpeningNight)
	assert.Equal(t, production.NotAvailable, rec.ClosingNight)
	assert.Equal(t, "Hampstead Theatre", rec.VenueName)
	assert.Equal(t, "https://hampstead.example.com", rec.VenueURL)
	assert.Equal(t, "https://www.whatsonstage.com/show/passion", rec.InfoURL, "og:url fallback")
	assert.Equal(t, production.UnknownLocation, rec.Location)

	assert.Equal(t, ReasonMissing, d.Fields[FieldFirstPreview].Reason)
	assert.Equal(t, ReasonMissing, d.Fields[FieldClosingNight].Reason)
	assert.Equal(t, ReasonOK, d.Fields[FieldVenueName].Reason)
}

func TestExtractDetails_FieldIsolation(t *testing.T) {
	html := `<html><body>
		<div class="dates-section"><dl><dt>Opening Night</dt><dd>Tue 9 Sep 2025</dd></dl></div>
		<div class="location-section"><a href="http://[::1">Broken Link Theatre</a></div>
	</body></html>`

	d, err := ExtractDetails("Company", html)
	require.NoError(t, err)

	assert.Equal(t, ReasonParseFailure, d.Fields[FieldVenueURL].Reason)
	assert.Error(t, d.Fields[FieldVenueURL].Err)
	assert.Equal(t, "Broken Link Theatre", d.Record.VenueName)
	assert.Empty(t, d.Record.VenueURL)
	assert.Equal(t, "Tue 9 Sep 2025", d.Record.OpeningNight)
	assert.Equal(t, production.NotAvailable, d.Record.InfoURL)
}

func TestExtractDetails_LabelsShareOneElement(t *testing.T) {
	html := `<html><body>
		<div class="site-updates">Latest updates</div>
		<div class="relocation-notice"><a href="/moved">Moved venue</a></div>
		<div class="dates-section">
			<p>First Preview: 1 Aug 2025<br>Opening Night: 5 Aug 2025<br>Closing Night: 1 Sep 2025</p>
		</div>
		<div class="location-section">
			<a href="https://donmar.example.com">Donmar Warehouse</a>
			<span class="address">London</span>
		</div>
	</body></html>`

	d, err := ExtractDetails("Assassins", html)
	require.NoError(t, err)

	assert.Equal(t, "1 Aug 2025", d.Fields[FieldFirstPreview].Value)
	assert.Equal(t, "5 Aug 2025", d.Fields[FieldOpeningNight].Value)
	assert.Equal(t, "1 Sep 2025", d.Fields[FieldClosingNight].Value)
	assert.Equal(t, "Donmar Warehouse", d.Record.VenueName)
	assert.Equal(t, "https://donmar.example.com", d.Record.VenueURL)
	assert.Equal(t, "London", d.Record.Location)
}

func TestExtractField_RecoversPanic(t *testing.T) {
	out := extractField("venue_name", func() (string, error) {
		var sel map[string]string
		sel["boom"] = "x"
		return "", nil
	})

	assert.Equal(t, ReasonParseFailure, out.Reason)
	assert.Contains(t, out.Err.Error(), "venue_name")
}
