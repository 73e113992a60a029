package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/pfrederiksen/theatre-alerts/internal/aggregate"
	"github.com/pfrederiksen/theatre-alerts/internal/errs"
	"github.com/pfrederiksen/theatre-alerts/internal/logger"
	"github.com/pfrederiksen/theatre-alerts/internal/notifier"
	"github.com/pfrederiksen/theatre-alerts/internal/production"
	"github.com/pfrederiksen/theatre-alerts/internal/report"
)

// Response is a protocol-neutral reply, mapped onto net/http or an API
// Gateway proxy response by the caller
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// AlertRequest holds the per-invocation overrides; absent fields keep the
// configured value
type AlertRequest struct {
	UserLocation      *string  `json:"user_location"`
	SearchRadiusMiles *float64 `json:"search_radius_miles"`
	MaxVenues         *int     `json:"max_venues"`
	AuthorName        *string  `json:"author_name"`
}

// AlertResponse is the success body of a venue alert run
type AlertResponse struct {
	Success        bool                 `json:"success"`
	RunID          string               `json:"run_id"`
	VenuesFound    int                  `json:"venues_found"`
	EmailSent      bool                 `json:"email_sent"`
	Venues         []*production.Record `json:"venues"`
	SearchLocation string               `json:"search_location"`
	SearchRadius   float64              `json:"search_radius"`
}

// ErrorResponse is the failure body
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handler runs the alert pipelines for one request at a time
type Handler struct {
	svc *Services
}

// New creates a Handler
func New(svc *Services) *Handler {
	return &Handler{svc: svc}
}

// venueParams are the effective settings for one alert run
type venueParams struct {
	location  string
	radius    float64
	maxVenues int
	author    string
}

func (h *Handler) params(body []byte) venueParams {
	cfg := h.svc.Config
	p := venueParams{
		location:  cfg.UserLocation,
		radius:    cfg.SearchRadiusMiles,
		maxVenues: cfg.MaxVenues,
		author:    cfg.AuthorName,
	}
	if len(body) == 0 {
		return p
	}

	var req AlertRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.Warn("Ignoring malformed request body", logger.Fields{"error": err.Error()})
		return p
	}
	if req.UserLocation != nil && *req.UserLocation != "" {
		p.location = *req.UserLocation
	}
	if req.SearchRadiusMiles != nil {
		p.radius = *req.SearchRadiusMiles
	}
	if req.MaxVenues != nil {
		p.maxVenues = *req.MaxVenues
	}
	if req.AuthorName != nil && *req.AuthorName != "" {
		p.author = *req.AuthorName
	}
	return p
}

// Alerts searches the configured shows near a location, emails the venue
// digest and reports what was found. A missing setting yields 400 before
// any network call.
func (h *Handler) Alerts(ctx context.Context, body []byte) Response {
	if !h.svc.DryRun {
		if err := h.svc.Config.Validate(); err != nil {
			return failure(err)
		}
	}
	if h.svc.Notifier == nil {
		return failure(eris.New("notifier not configured"))
	}

	p := h.params(body)
	logger.Info("Searching for productions", logger.Fields{
		"author":   p.author,
		"location": p.location,
		"radius":   p.radius,
	})

	agg := aggregate.New(h.svc.VenueSource(), aggregate.Options{
		Concurrency:  h.svc.Config.Concurrency,
		Geocoder:     h.svc.Geocoder,
		UserLocation: p.location,
		RadiusMiles:  p.radius,
		MaxVenues:    p.maxVenues,
		Clock:        h.svc.Clock,
		Metrics:      h.svc.Metrics,
	})
	rep, err := agg.SearchShows(ctx, h.svc.Config.Shows)
	if err != nil {
		return failure(err)
	}

	digest, err := report.VenueDigest(p.author, p.location, rep.Records, rep.GeneratedAt)
	if err != nil {
		return failure(err)
	}

	// email_sent tracks the primary channel only
	delivery, err := h.svc.Notifier.Send(ctx, notifier.Message{
		Subject: digest.Subject,
		HTML:    digest.HTML,
		Text:    digest.Text,
		Count:   len(rep.Records),
	})
	if err != nil {
		logger.Error("Failed to send alert", logger.Fields{"run_id": rep.RunID}, err)
	}
	sent := delivery != nil

	venues := rep.Records
	if venues == nil {
		venues = []*production.Record{}
	}
	logger.Info("Alert run complete", logger.Fields{
		"run_id":     rep.RunID,
		"venues":     len(venues),
		"email_sent": sent,
	})

	return jsonResponse(http.StatusOK, AlertResponse{
		Success:        true,
		RunID:          rep.RunID,
		VenuesFound:    len(venues),
		EmailSent:      sent,
		Venues:         venues,
		SearchLocation: p.location,
		SearchRadius:   p.radius,
	}, map[string]string{"Access-Control-Allow-Origin": "*"})
}

// Calendar builds the current/upcoming digest from the calendar widget.
// The body is the plain-text digest, or the error on failure.
func (h *Handler) Calendar(ctx context.Context) Response {
	rep, err := aggregate.RunCalendar(ctx, h.svc.Calendar, aggregate.CalendarOptions{
		Author:    h.svc.Config.AuthorName,
		Reference: h.svc.Config.ReferencePoint(),
		Clock:     h.svc.Clock,
		Metrics:   h.svc.Metrics,
	})
	if err != nil {
		return Response{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
			Body:       fmt.Sprintf("Error: %v", err),
		}
	}
	return Response{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       rep.Text,
	}
}

// failure maps a run error onto 400 for configuration problems and 500
// for everything else
func failure(err error) Response {
	var cfgErr *errs.ConfigError
	if errors.As(err, &cfgErr) {
		logger.Error("Configuration error", logger.Fields{"setting": cfgErr.Setting}, err)
		return jsonResponse(http.StatusBadRequest, ErrorResponse{
			Error:   "Configuration error",
			Message: cfgErr.Error(),
		}, nil)
	}

	logger.Error("Unexpected error", nil, err)
	return jsonResponse(http.StatusInternalServerError, ErrorResponse{
		Error:   "Internal server error",
		Message: err.Error(),
	}, nil)
}

func jsonResponse(status int, v any, extra map[string]string) Response {
	headers := map[string]string{"Content-Type": "application/json"}
	for k, val := range extra {
		headers[k] = val
	}

	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"success":false,"error":"Internal server error"}`)
	}
	return Response{StatusCode: status, Headers: headers, Body: string(body)}
}
