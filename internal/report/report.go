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

// DefaultPageTitle is the title of the weekly listings page
const DefaultPageTitle = "Sondheim Shows Weekly Report"

const dateLayout = "2006-01-02"

type productionView struct {
	*production.Record
	HasInfo bool
}

// Fragment renders the HTML block for one production
func Fragment(rec *production.Record) string {
	var buf bytes.Buffer
	view := productionView{Record: rec, HasInfo: rec.InfoURL != "" && rec.InfoURL != production.NotAvailable}
	if err := productionTemplate.Execute(&buf, view); err != nil {
		// Only reachable with a template bug; fall back to plain text.
		return template.HTMLEscapeString(Line(rec))
	}
	return buf.String()
}

// Line renders the one-line plain-text summary of a production
func Line(rec *production.Record) string {
	return fmt.Sprintf("%s | First Preview: %s | Opening Night: %s | Closing Night: %s | Venue: %s | More Info: %s",
		rec.Title, rec.FirstPreview, rec.OpeningNight, rec.ClosingNight, rec.VenueName, rec.InfoURL)
}

// NoticeFragment renders an inline error notice for a show that failed
func NoticeFragment(show, message string) string {
	var buf bytes.Buffer
	data := struct{ Show, Message string }{show, message}
	if err := noticeTemplate.Execute(&buf, data); err != nil {
		return template.HTMLEscapeString(NoticeLine(show, message))
	}
	return buf.String()
}

// NoticeLine renders the plain-text form of an inline error notice
func NoticeLine(show, message string) string {
	return fmt.Sprintf("[%s] %s", show, message)
}

// Page wraps already-rendered fragments in the report page template
func Page(title string, fragments []string) (string, error) {
	safe := make([]template.HTML, len(fragments))
	for i, f := range fragments {
		safe[i] = template.HTML(f) // #nosec G203 -- fragments come from Fragment/NoticeFragment
	}

	var buf bytes.Buffer
	data := struct {
		Title     string
		Fragments []template.HTML
	}{title, safe}
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", eris.Wrap(err, "rendering report page")
	}
	return buf.String(), nil
}

// WeeklySubject is the email subject for the listings-site report
func WeeklySubject(author string, now time.Time) string {
	return fmt.Sprintf("%s UK Report For %s", author, now.Format("January 02, 2006"))
}

// CalendarDigest renders the current/upcoming text summary for the
// calendar-widget path.
func CalendarDigest(author string, current, upcoming []*production.Record) string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("🎭 *Current %s Productions in the UK:*\n", author))
	if len(current) == 0 {
		msg.WriteString("(None currently running.)\n")
	}
	for _, rec := range current {
		msg.WriteString(calendarLine(rec))
	}

	msg.WriteString(fmt.Sprintf("\n📅 *Upcoming %s Productions:*\n", author))
	if len(upcoming) == 0 {
		msg.WriteString("(None announced.)\n")
	}
	for _, rec := range upcoming {
		msg.WriteString(calendarLine(rec))
	}

	return strings.TrimSpace(msg.String())
}

func calendarLine(rec *production.Record) string {
	return fmt.Sprintf("- %s @ %s (%s to %s)\n", rec.Title, rec.VenueName, formatDate(rec.StartDate), formatDate(rec.EndDate))
}

func formatDate(t *time.Time) string {
	if t == nil {
		return production.NotAvailable
	}
	return t.Format(dateLayout)
}
