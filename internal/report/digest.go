package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pfrederiksen/theatre-alerts/internal/production"
)

// Digest is a ready-to-send venue email
type Digest struct {
	Subject string
	HTML    string
	Text    string
}

const generatedLayout = "January 02, 2006 at 03:04 PM"

var digestFuncs = template.FuncMap{
	"inc":      func(i int) int { return i + 1 },
	"distance": distanceSuffix,
	"dates":    dateRange,
	"infoLink": func(r *production.Record) bool { return r.InfoURL != "" && r.InfoURL != production.NotAvailable },
}

// VenueDigest builds the subject and both bodies of the productions-near-you
// email. records are expected in final (filtered and sorted) order.
func VenueDigest(author, location string, records []*production.Record, generated time.Time) (*Digest, error) {
	data := struct {
		Author    string
		Location  string
		Records   []*production.Record
		Generated string
	}{author, location, records, generated.Format(generatedLayout)}

	var buf bytes.Buffer
	if err := digestHTML.Execute(&buf, data); err != nil {
		return nil, eris.Wrap(err, "rendering venue digest")
	}

	return &Digest{
		Subject: fmt.Sprintf("🎭 %s Productions Near %s", author, location),
		HTML:    buf.String(),
		Text:    digestText(author, location, records, data.Generated),
	}, nil
}

func digestText(author, location string, records []*production.Record, generated string) string {
	var msg strings.Builder

	if len(records) == 0 {
		msg.WriteString(fmt.Sprintf("%s Productions Alert\n\n", author))
		msg.WriteString(fmt.Sprintf("No %s productions found near %s at this time.\n", author, location))
		msg.WriteString("We'll keep looking and notify you when something becomes available!\n")
	} else {
		msg.WriteString(fmt.Sprintf("%s Productions Near You\n\n", author))
		msg.WriteString(fmt.Sprintf("Found %d %s production(s) near %s:\n\n", len(records), author, location))
		for i, rec := range records {
			msg.WriteString(fmt.Sprintf("%d. %s\n", i+1, rec.Title))
			msg.WriteString(fmt.Sprintf("   Venue: %s\n", rec.VenueName))
			msg.WriteString(fmt.Sprintf("   Location: %s%s\n", rec.Location, distanceSuffix(rec)))
			msg.WriteString(fmt.Sprintf("   Dates: %s\n", dateRange(rec)))
			if rec.InfoURL != "" && rec.InfoURL != production.NotAvailable {
				msg.WriteString(fmt.Sprintf("   More Info: %s\n", rec.InfoURL))
			}
			msg.WriteString("\n")
		}
	}

	msg.WriteString(fmt.Sprintf("\n---\nGenerated on %s\n%s Alert Service\n", generated, author))
	return msg.String()
}

func distanceSuffix(r *production.Record) string {
	if r.DistanceMiles == nil {
		return ""
	}
	return fmt.Sprintf(" (%.1f miles away)", *r.DistanceMiles)
}

func dateRange(r *production.Record) string {
	if r.StartDate != nil || r.EndDate != nil {
		return fmt.Sprintf("%s to %s", formatDate(r.StartDate), formatDate(r.EndDate))
	}
	if r.FirstPreview != production.NotAvailable || r.ClosingNight != production.NotAvailable {
		return fmt.Sprintf("%s to %s", r.FirstPreview, r.ClosingNight)
	}
	return "Dates TBA"
}
