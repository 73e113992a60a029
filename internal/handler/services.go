package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/pfrederiksen/theatre-alerts/internal/aggregate"
	"github.com/pfrederiksen/theatre-alerts/internal/calendar"
	"github.com/pfrederiksen/theatre-alerts/internal/config"
	"github.com/pfrederiksen/theatre-alerts/internal/errs"
	"github.com/pfrederiksen/theatre-alerts/internal/geo"
	"github.com/pfrederiksen/theatre-alerts/internal/listings"
	"github.com/pfrederiksen/theatre-alerts/internal/logger"
	"github.com/pfrederiksen/theatre-alerts/internal/metrics"
	"github.com/pfrederiksen/theatre-alerts/internal/notifier"
	"github.com/pfrederiksen/theatre-alerts/internal/ticketing"
)

// Services are the collaborators built from one Config
type Services struct {
	Config    *config.Config
	Metrics   *metrics.Metrics
	Listings  *listings.Client
	Ticketing *ticketing.Client
	Calendar  calendar.Source
	Geocoder  geo.Geocoder
	Notifier  notifier.Notifier // nil until the email settings validate
	Clock     clockwork.Clock
	DryRun    bool // alerts are printed, so email settings are not required
}

// ServiceOptions tunes NewServices
type ServiceOptions struct {
	DryRun bool      // print alerts instead of sending them
	Out    io.Writer // dry-run destination, stdout when nil
}

// NewServices wires every client from cfg. A notifier that cannot be built
// for lack of settings is left nil; Validate reports that to the caller.
func NewServices(cfg *config.Config, m *metrics.Metrics, opts ServiceOptions) (*Services, error) {
	hc := &http.Client{Timeout: cfg.HTTPTimeout}

	listingOpts := []listings.Option{
		listings.WithBaseURL(cfg.Listings.BaseURL),
		listings.WithHTTPClient(hc),
		listings.WithMetrics(m),
	}
	if cfg.Listings.Rate > 0 {
		listingOpts = append(listingOpts, listings.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Listings.Rate), 1)))
	}

	svc := &Services{
		Config:   cfg,
		Metrics:  m,
		Listings: listings.New(listingOpts...),
		Ticketing: ticketing.NewClient(cfg.Ticketmaster.APIKey,
			ticketing.WithBaseURL(cfg.Ticketmaster.BaseURL),
			ticketing.WithCountryCode(cfg.Ticketmaster.CountryCode),
			ticketing.WithHTTPClient(hc),
			ticketing.WithMetrics(m),
		),
		Calendar: calendar.WidgetSource{
			Client: calendar.NewClient(cfg.Calendar.Endpoint, &http.Client{Timeout: cfg.Calendar.Timeout}, m),
		},
		Geocoder: geo.NewCache(geo.NewNominatim(cfg.Geocoder.URL, cfg.Geocoder.Rate, nil, m), m),
		Clock:    clockwork.NewRealClock(),
		DryRun:   opts.DryRun,
	}

	n, err := NewNotifier(cfg, opts)
	var cfgErr *errs.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		logger.Warn("Alerts cannot be sent", logger.Fields{"setting": cfgErr.Setting})
	case err != nil:
		return nil, err
	default:
		svc.Notifier = n
	}
	return svc, nil
}

// NewNotifier builds the alert notifier: a dry-run printer, or Mailjet
// email plus Twitter and Telegram when their credentials are present.
func NewNotifier(cfg *config.Config, opts ServiceOptions) (notifier.Notifier, error) {
	if opts.DryRun {
		return notifier.NewDryRunNotifier(opts.Out), nil
	}

	mail, err := notifier.NewMailjetNotifier(notifier.MailjetConfig{
		APIKey:     cfg.Mailjet.APIKey,
		SecretKey:  cfg.Mailjet.SecretKey,
		Sender:     cfg.Email.Sender,
		Recipients: cfg.Recipients(),
		BaseURL:    cfg.Mailjet.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	channels := notifier.Multi{mail}

	if cfg.HasTwitter() {
		tw, err := notifier.NewTwitterNotifier(notifier.TwitterCredentials{
			APIKey:       cfg.Twitter.APIKey,
			APISecret:    cfg.Twitter.APISecret,
			AccessToken:  cfg.Twitter.AccessToken,
			AccessSecret: cfg.Twitter.AccessSecret,
		}, cfg.Twitter.Link)
		if err != nil {
			return nil, err
		}
		channels = append(channels, tw)
	}

	if cfg.HasTelegram() {
		tg, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, "", nil)
		if err != nil {
			return nil, err
		}
		channels = append(channels, tg)
	}

	if len(channels) == 1 {
		return mail, nil
	}
	return channels, nil
}

// VenueSource picks the upstream for venue alerts: the ticketing API when a
// key is configured, the listings site otherwise.
func (s *Services) VenueSource() aggregate.ShowSource {
	if s.Config.Ticketmaster.APIKey != "" {
		return aggregate.Ticketing{Client: s.Ticketing}
	}
	return aggregate.Listings{Client: s.Listings}
}
