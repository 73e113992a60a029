package aggregate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"

	"github.com/pfrederiksen/theatre-alerts/internal/calendar"
	"github.com/pfrederiksen/theatre-alerts/internal/logger"
	"github.com/pfrederiksen/theatre-alerts/internal/metrics"
	"github.com/pfrederiksen/theatre-alerts/internal/production"
	"github.com/pfrederiksen/theatre-alerts/internal/report"
)

// CalendarOptions tunes RunCalendar
type CalendarOptions struct {
	Author    string
	Reference production.Coordinates // current productions sort by distance from here
	Clock     clockwork.Clock
	Metrics   *metrics.Metrics
}

// CalendarReport is the outcome of one calendar run
type CalendarReport struct {
	RunID       string
	GeneratedAt time.Time
	Current     []*production.Record
	Upcoming    []*production.Record
	Ended       int
	Skipped     int
	Text        string
}

// RunCalendar fetches the calendar once and splits it into current and
// upcoming productions. The whole run depends on that one fetch, so a fetch
// or payload parse failure is returned as an error.
func RunCalendar(ctx context.Context, src calendar.Source, opts CalendarOptions) (*CalendarReport, error) {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	now := opts.Clock.Now()
	runID := uuid.NewString()
	name := string(production.SourceCalendarWidget)

	events, err := src.Events(ctx)
	if err != nil {
		logger.Error("Calendar run failed", logger.Fields{"run_id": runID, "source": name}, err)
		return nil, eris.Wrap(err, "loading calendar events")
	}

	split := calendar.Categorize(events, now, opts.Reference)
	opts.Metrics.AddRecords(name, metrics.StageNormalized, len(split.Current)+len(split.Upcoming))
	opts.Metrics.AddRecords(name, metrics.StageSkipped, split.Skipped)
	opts.Metrics.ObserveRun(name, opts.Clock.Since(now))

	logger.Info("Calendar run complete", logger.Fields{
		"run_id":   runID,
		"source":   name,
		"events":   len(events),
		"current":  len(split.Current),
		"upcoming": len(split.Upcoming),
		"ended":    split.Ended,
		"skipped":  split.Skipped,
	})

	return &CalendarReport{
		RunID:       runID,
		GeneratedAt: now,
		Current:     split.Current,
		Upcoming:    split.Upcoming,
		Ended:       split.Ended,
		Skipped:     split.Skipped,
		Text:        report.CalendarDigest(opts.Author, split.Current, split.Upcoming),
	}, nil
}
