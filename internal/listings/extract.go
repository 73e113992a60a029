package listings

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/theatre-alerts/internal/errs"
	"github.com/pfrederiksen/theatre-alerts/internal/logger"
	"github.com/pfrederiksen/theatre-alerts/internal/production"
	"github.com/pfrederiksen/theatre-alerts/internal/report"
)

// ContainerNotFound is the log returned when a search page has no results block
const ContainerNotFound = "container not found"

// Date labels searched for inside the dates block
const (
	LabelFirstPreview = "First Preview"
	LabelOpeningNight = "Opening Night"
	LabelClosingNight = "Closing Night"
)

var dateLabels = []struct {
	field string
	re    *regexp.Regexp
}{
	{FieldFirstPreview, labelPattern(LabelFirstPreview)},
	{FieldOpeningNight, labelPattern(LabelOpeningNight)},
	{FieldClosingNight, labelPattern(LabelClosingNight)},
}

// anyDateLabel marks where the next label's text starts when several
// labels share one element
var anyDateLabel = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(LabelFirstPreview) + `|` +
	regexp.QuoteMeta(LabelOpeningNight) + `|` + regexp.QuoteMeta(LabelClosingNight))

// Sections of the detail page, matched by class word or prefix
const (
	datesSelector    = ".dates-section, [class^='dates-']"
	locationSelector = ".location-section, [class^='location-']"
)

func labelPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `\s*[:\-]?`)
}

// Detail is everything extracted from one production's info page
type Detail struct {
	Record *production.Record
	HTML   string // report fragment for this production
	Text   string // one-line summary
	Fields map[string]FieldOutcome
}

// ExtractInfoLinks returns the "More Info" hrefs of every search result card
// that is typed as a show and whose title equals show, ignoring case. Cards
// missing a type label or title are skipped. The second value is a short
// human-readable log of what was found.
func ExtractInfoLinks(html, show string) ([]string, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return []string{}, fmt.Sprintf("unparseable search page for %q: %v", show, err)
	}

	container := doc.Find("div#search-results-container").First()
	if container.Length() == 0 {
		return []string{}, ContainerNotFound
	}

	links := []string{}
	container.Find("article.col-12").Each(func(_ int, card *goquery.Selection) {
		kind := strings.TrimSpace(card.Find("a.text-body-tertiary").First().Text())
		if !strings.EqualFold(kind, "show") {
			return
		}

		title := card.Find("h3.fw-bold a").First()
		if title.Length() == 0 {
			return
		}
		if !strings.EqualFold(strings.TrimSpace(title.Text()), strings.TrimSpace(show)) {
			return
		}

		card.Find("a.buy-tickets-link").Each(func(_ int, link *goquery.Selection) {
			label := strings.TrimSpace(link.Find("span").First().Text())
			if !strings.EqualFold(label, "more info") {
				return
			}
			if href, ok := link.Attr("href"); ok && strings.TrimSpace(href) != "" {
				links = append(links, strings.TrimSpace(href))
			}
		})
	})

	if len(links) == 0 {
		return links, fmt.Sprintf("no show info links for %q", show)
	}
	return links, fmt.Sprintf("found %d show info link(s) for %q", len(links), show)
}

// ExtractDetails builds a production record from an info page. Each field is
// extracted independently; anything that cannot be found falls back to its
// sentinel. An error is returned only when no record can be built at all.
func ExtractDetails(show, html string) (*Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &errs.ParseError{Source: source, Err: err}
	}

	fields := make(map[string]FieldOutcome, 7)

	fields[FieldInfoURL] = extractField(FieldInfoURL, func() (string, error) {
		if href, ok := doc.Find("link[rel='canonical']").First().Attr("href"); ok && strings.TrimSpace(href) != "" {
			return strings.TrimSpace(href), nil
		}
		content, _ := doc.Find("meta[property='og:url']").First().Attr("content")
		return strings.TrimSpace(content), nil
	})

	dates := doc.Find(datesSelector).First()
	for _, dl := range dateLabels {
		re := dl.re
		fields[dl.field] = extractField(dl.field, func() (string, error) {
			return labelledValue(dates, re), nil
		})
	}

	venue := doc.Find(locationSelector).First().Find("a").First()
	fields[FieldVenueName] = extractField(FieldVenueName, func() (string, error) {
		return collapseSpace(venue.Text()), nil
	})
	fields[FieldVenueURL] = extractField(FieldVenueURL, func() (string, error) {
		href := strings.TrimSpace(venue.AttrOr("href", ""))
		if href == "" {
			return "", nil
		}
		if _, err := url.Parse(href); err != nil {
			return "", err
		}
		return href, nil
	})
	fields[FieldLocation] = extractField(FieldLocation, func() (string, error) {
		return collapseSpace(doc.Find(locationSelector).First().Find(".address").First().Text()), nil
	})

	for field, outcome := range fields {
		if outcome.OK() {
			continue
		}
		logger.Debug("Detail field unavailable", logger.Fields{
			"source": source,
			"show":   show,
			"field":  field,
			"reason": string(outcome.Reason),
			"error":  errString(outcome.Err),
		})
	}

	rec, err := production.Normalize(production.Draft{
		Title:        show,
		VenueName:    fields[FieldVenueName].Value,
		VenueURL:     fields[FieldVenueURL].Value,
		Location:     fields[FieldLocation].Value,
		FirstPreview: fields[FieldFirstPreview].Value,
		OpeningNight: fields[FieldOpeningNight].Value,
		ClosingNight: fields[FieldClosingNight].Value,
		InfoURL:      fields[FieldInfoURL].Value,
		Source:       production.SourceListingsSite,
	})
	if err != nil {
		return nil, err
	}

	return &Detail{
		Record: rec,
		HTML:   report.Fragment(rec),
		Text:   report.Line(rec),
		Fields: fields,
	}, nil
}

// labelledValue finds the innermost element in section whose text carries
// the label and returns the text after it, up to the next date label. When
// the label stands alone, the value is taken from the next sibling element.
func labelledValue(section *goquery.Selection, re *regexp.Regexp) string {
	var value string
	section.Find("*").AddSelection(section).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !re.MatchString(sel.Text()) {
			return true
		}
		inner := sel.Children().FilterFunction(func(_ int, child *goquery.Selection) bool {
			return re.MatchString(child.Text())
		})
		if inner.Length() > 0 {
			return true
		}

		text := sel.Text()
		rest := text[re.FindStringIndex(text)[1]:]
		if next := anyDateLabel.FindStringIndex(rest); next != nil {
			rest = rest[:next[0]]
		}
		value = collapseSpace(rest)
		if value == "" {
			value = collapseSpace(sel.Next().Text())
		}
		return false
	})
	return value
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
