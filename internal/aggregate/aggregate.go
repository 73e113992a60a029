package aggregate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/theatre-alerts/internal/geo"
	"github.com/pfrederiksen/theatre-alerts/internal/logger"
	"github.com/pfrederiksen/theatre-alerts/internal/metrics"
	"github.com/pfrederiksen/theatre-alerts/internal/production"
	"github.com/pfrederiksen/theatre-alerts/internal/report"
)

// DefaultConcurrency is how many titles are searched at once
const DefaultConcurrency = 4

// Options tunes an Aggregator. The zero value uses DefaultConcurrency and
// skips the geo stage.
type Options struct {
	Concurrency int

	// Geo stage; skipped when Geocoder is nil or UserLocation is empty
	Geocoder     geo.Geocoder
	UserLocation string
	RadiusMiles  float64

	MaxVenues int // 0 keeps everything
	PageTitle string

	Clock   clockwork.Clock
	Metrics *metrics.Metrics
}

// ShowError records a title whose search failed
type ShowError struct {
	Show string
	Err  error
}

// Report is the outcome of one run over a list of titles
type Report struct {
	RunID       string
	Source      production.Source
	GeneratedAt time.Time
	Text        string
	HTML        string
	Log         string
	Records     []*production.Record // deduplicated, filtered and ordered
	Errors      []ShowError
}

// Aggregator runs one ShowSource over many titles
type Aggregator struct {
	source ShowSource
	opts   Options
}

// New creates an Aggregator
func New(source ShowSource, opts Options) *Aggregator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.PageTitle == "" {
		opts.PageTitle = report.DefaultPageTitle
	}
	return &Aggregator{source: source, opts: opts}
}

type showOutcome struct {
	findings *Findings
	err      error
}

// SearchShows searches every title and assembles the report. Per-title
// failures are reported inline; the only error returned is a failure to
// render the page.
func (a *Aggregator) SearchShows(ctx context.Context, shows []string) (*Report, error) {
	started := a.opts.Clock.Now()
	runID := uuid.NewString()
	src := a.source.Name()

	logger.Info("Starting search run", logger.Fields{
		"run_id":      runID,
		"source":      string(src),
		"shows":       len(shows),
		"concurrency": a.opts.Concurrency,
	})

	outcomes := make([]showOutcome, len(shows))

	var g errgroup.Group
	g.SetLimit(a.opts.Concurrency)
	for i, show := range shows {
		g.Go(func() error {
			outcomes[i] = a.searchOne(ctx, show)
			return nil // don't abort the run on one title
		})
	}
	_ = g.Wait()

	rep := &Report{
		RunID:       runID,
		Source:      src,
		GeneratedAt: started,
	}

	var collected []*production.Record
	for i, show := range shows {
		out := outcomes[i]
		if out.err != nil {
			rep.Errors = append(rep.Errors, ShowError{Show: show, Err: out.err})
			logger.Error("Show search failed", logger.Fields{"run_id": runID, "source": string(src), "show": show}, out.err)
			continue
		}
		collected = append(collected, out.findings.Records...)
	}

	final := a.pipeline(ctx, src, collected)
	rep.Records = final

	text, fragments, log := assemble(shows, outcomes, final)
	rep.Text = text
	rep.Log = log

	html, err := report.Page(a.opts.PageTitle, fragments)
	if err != nil {
		return nil, eris.Wrap(err, "assembling report")
	}
	rep.HTML = html

	elapsed := a.opts.Clock.Since(started)
	a.opts.Metrics.ObserveRun(string(src), elapsed)
	logger.Info("Search run complete", logger.Fields{
		"run_id":   runID,
		"source":   string(src),
		"records":  len(final),
		"failures": len(rep.Errors),
		"duration": elapsed.String(),
	})
	return rep, nil
}

// searchOne isolates one title, turning a panic into an error
func (a *Aggregator) searchOne(ctx context.Context, show string) (out showOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = showOutcome{err: eris.Errorf("panic searching %q: %v", show, r)}
		}
	}()

	f, err := a.source.Search(ctx, show)
	if err != nil {
		return showOutcome{err: err}
	}
	if f == nil {
		f = &Findings{}
	}
	return showOutcome{findings: f}
}

// pipeline applies dedup, the optional geo stage and the venue cap
func (a *Aggregator) pipeline(ctx context.Context, src production.Source, records []*production.Record) []*production.Record {
	out := production.Deduplicate(records)
	a.opts.Metrics.AddRecords(string(src), metrics.StageDeduped, len(out))

	if a.opts.Geocoder != nil && a.opts.UserLocation != "" {
		out = geo.FilterAndSort(ctx, a.opts.Geocoder, out, a.opts.UserLocation, a.opts.RadiusMiles)
		a.opts.Metrics.AddRecords(string(src), metrics.StageFiltered, len(out))
	}

	if a.opts.MaxVenues > 0 && len(out) > a.opts.MaxVenues {
		out = out[:a.opts.MaxVenues]
	}
	return out
}

// assemble renders text and HTML in title order. Each title contributes its
// notices followed by the fragments of its records that made it through the
// pipeline; a record shared by two titles is rendered once.
func assemble(shows []string, outcomes []showOutcome, final []*production.Record) (string, []string, string) {
	kept := make(map[string]bool, len(final))
	for _, rec := range final {
		kept[rec.ID] = true
	}
	rendered := make(map[string]bool, len(final))

	var (
		lines     []string
		fragments []string
		log       []string
	)

	for i, show := range shows {
		out := outcomes[i]
		if out.err != nil {
			msg := fmt.Sprintf("error fetching %s: %v", show, out.err)
			lines = append(lines, report.NoticeLine(show, msg))
			fragments = append(fragments, report.NoticeFragment(show, msg))
			log = append(log, msg)
			continue
		}

		f := out.findings
		if f.Log != "" {
			log = append(log, f.Log)
		}
		for _, notice := range f.Notices {
			lines = append(lines, report.NoticeLine(show, notice))
			fragments = append(fragments, report.NoticeFragment(show, notice))
			log = append(log, notice)
		}
		for j, rec := range f.Records {
			if !kept[rec.ID] || rendered[rec.ID] {
				continue
			}
			rendered[rec.ID] = true
			lines = append(lines, lineAt(f, j, rec))
			fragments = append(fragments, fragmentAt(f, j, rec))
		}
	}

	return strings.Join(lines, "\n"), fragments, strings.Join(log, "\n")
}

func lineAt(f *Findings, i int, rec *production.Record) string {
	if i < len(f.Lines) {
		return f.Lines[i]
	}
	return report.Line(rec)
}

func fragmentAt(f *Findings, i int, rec *production.Record) string {
	if i < len(f.Fragments) {
		return f.Fragments[i]
	}
	return report.Fragment(rec)
}
