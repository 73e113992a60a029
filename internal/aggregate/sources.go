package aggregate

import (
	"context"

	"github.com/pfrederiksen/theatre-alerts/internal/listings"
	"github.com/pfrederiksen/theatre-alerts/internal/production"
	"github.com/pfrederiksen/theatre-alerts/internal/report"
	"github.com/pfrederiksen/theatre-alerts/internal/ticketing"
)

// Findings is what one source produced for one show title. Fragments and
// Lines are aligned with Records.
type Findings struct {
	Records   []*production.Record
	Fragments []string
	Lines     []string
	Notices   []string
	Log       string
}

// ShowSource searches one upstream for a show title
type ShowSource interface {
	Name() production.Source
	Search(ctx context.Context, show string) (*Findings, error)
}

// Listings adapts the listings-site client
type Listings struct {
	Client *listings.Client
}

// Name implements ShowSource
func (Listings) Name() production.Source { return production.SourceListingsSite }

// Search implements ShowSource
func (l Listings) Search(ctx context.Context, show string) (*Findings, error) {
	res, err := l.Client.SearchShow(ctx, show)
	if err != nil {
		return nil, err
	}

	f := &Findings{Notices: res.Notices, Log: res.Log}
	for _, d := range res.Details {
		f.Records = append(f.Records, d.Record)
		f.Fragments = append(f.Fragments, d.HTML)
		f.Lines = append(f.Lines, d.Text)
	}
	return f, nil
}

// Ticketing adapts the ticketing API client
type Ticketing struct {
	Client *ticketing.Client
}

// Name implements ShowSource
func (Ticketing) Name() production.Source { return production.SourceTicketing }

// Search implements ShowSource
func (t Ticketing) Search(ctx context.Context, show string) (*Findings, error) {
	records, err := t.Client.SearchShow(ctx, show)
	if err != nil {
		return nil, err
	}
	return FromRecords(records), nil
}

// FromRecords renders plain records into Findings
func FromRecords(records []*production.Record) *Findings {
	f := &Findings{Records: records}
	for _, rec := range records {
		f.Fragments = append(f.Fragments, report.Fragment(rec))
		f.Lines = append(f.Lines, report.Line(rec))
	}
	return f
}
