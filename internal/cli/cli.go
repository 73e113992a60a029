package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/theatre-alerts/internal/aggregate"
	"github.com/pfrederiksen/theatre-alerts/internal/config"
	"github.com/pfrederiksen/theatre-alerts/internal/handler"
	"github.com/pfrederiksen/theatre-alerts/internal/logger"
	"github.com/pfrederiksen/theatre-alerts/internal/metrics"
	"github.com/pfrederiksen/theatre-alerts/internal/notifier"
	"github.com/pfrederiksen/theatre-alerts/internal/report"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagDryRun  bool
	flagFormat  string
	flagSort    string
	flagShows   []string
	flagVerbose bool
	flagNoEmail bool
)

// app is what every subcommand gets after the root's pre-run
type app struct {
	cfg      *config.Config
	svc      *handler.Services
	registry *prometheus.Registry
	out      io.Writer
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "theatre-alerts",
		Short: "Find and report theatre productions of a composer's shows",
		Long: `A CLI tool that searches listings sites, a ticketing API and a production
calendar for shows by one author, and emails a report of what is on.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Default().Sync()
		},
	}

	cmd.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "Print alerts instead of sending them")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().StringVar(&flagSort, "sort", "", "Sort productions: title, venue or date (default: pipeline order)")
	cmd.PersistentFlags().StringSliceVar(&flagShows, "show", nil, "Show title to search (repeatable, overrides SHOWS)")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(
		newRunCmd(a),
		newVenuesCmd(a),
		newCalendarCmd(a),
		newTicketingCmd(a),
		newServeCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	levelName := cfg.Log.Level
	if flagVerbose {
		levelName = string(logger.LevelDebug)
	}
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logger.SetDefault(logger.NewWithFormat(level, logger.Format(cfg.Log.Format), os.Stderr))

	if len(flagShows) > 0 {
		cfg.Shows = flagShows
	}

	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}
	if _, err := ParseSortOrder(flagSort); err != nil {
		return err
	}

	a.registry = prometheus.NewRegistry()
	svc, err := handler.NewServices(cfg, metrics.New(a.registry), handler.ServiceOptions{
		DryRun: flagDryRun,
		Out:    cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.svc = svc
	a.out = cmd.OutOrStdout()
	return nil
}

// notifier returns the alert notifier, failing with the missing setting
// when email is not configured
func (a *app) notifier() (notifier.Notifier, error) {
	if !flagDryRun {
		if err := a.cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if a.svc.Notifier == nil {
		return nil, eris.New("notifier not configured")
	}
	return a.svc.Notifier, nil
}

func (a *app) search(ctx context.Context, src aggregate.ShowSource, pageTitle string) (*aggregate.Report, error) {
	return aggregate.New(src, aggregate.Options{
		Concurrency: a.cfg.Concurrency,
		PageTitle:   pageTitle,
		Clock:       a.svc.Clock,
		Metrics:     a.svc.Metrics,
	}).SearchShows(ctx, a.cfg.Shows)
}

func (a *app) write(rep *aggregate.Report) error {
	order, _ := ParseSortOrder(flagSort)
	records := append(rep.Records[:0:0], rep.Records...)
	sortRecords(records, order)

	result := &OutputResult{
		GeneratedAt: rep.GeneratedAt,
		RunID:       rep.RunID,
		Source:      string(rep.Source),
		Records:     records,
		RecordCount: len(records),
	}
	for _, e := range rep.Errors {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", e.Show, e.Err))
	}
	return WriteOutput(a.out, result, OutputFormat(strings.ToLower(flagFormat)), flagVerbose)
}

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search the listings site and email the weekly report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var n notifier.Notifier
			if !flagNoEmail {
				var err error
				if n, err = a.notifier(); err != nil {
					return err
				}
			}

			rep, err := a.search(cmd.Context(), aggregate.Listings{Client: a.svc.Listings}, report.DefaultPageTitle)
			if err != nil {
				return err
			}
			if err := a.write(rep); err != nil {
				return eris.Wrap(err, "writing output")
			}
			if n == nil {
				return nil
			}

			_, err = n.Send(cmd.Context(), notifier.Message{
				Subject: report.WeeklySubject(a.cfg.AuthorName, rep.GeneratedAt),
				HTML:    rep.HTML,
				Text:    rep.Text,
				Count:   len(rep.Records),
			})
			return err
		},
	}
	cmd.Flags().BoolVar(&flagNoEmail, "no-email", false, "Only print the report")
	return cmd
}

func newVenuesCmd(a *app) *cobra.Command {
	var (
		location  string
		radius    float64
		maxVenues int
		author    string
	)

	cmd := &cobra.Command{
		Use:   "venues",
		Short: "Email productions near a location and print the JSON summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides := handler.AlertRequest{}
			if cmd.Flags().Changed("location") {
				overrides.UserLocation = &location
			}
			if cmd.Flags().Changed("radius") {
				overrides.SearchRadiusMiles = &radius
			}
			if cmd.Flags().Changed("max-venues") {
				overrides.MaxVenues = &maxVenues
			}
			if cmd.Flags().Changed("author") {
				overrides.AuthorName = &author
			}
			body, err := json.Marshal(overrides)
			if err != nil {
				return err
			}

			resp := handler.New(a.svc).Alerts(cmd.Context(), body)
			fmt.Fprintln(a.out, resp.Body)
			if resp.StatusCode >= 300 {
				return fmt.Errorf("venue alert failed with status %d", resp.StatusCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "Search around this location (default USER_LOCATION)")
	cmd.Flags().Float64Var(&radius, "radius", 0, "Search radius in miles (default SEARCH_RADIUS_MILES)")
	cmd.Flags().IntVar(&maxVenues, "max-venues", 0, "Cap on reported venues (default MAX_VENUES)")
	cmd.Flags().StringVar(&author, "author", "", "Author named in the email (default AUTHOR_NAME)")
	return cmd
}

func newCalendarCmd(a *app) *cobra.Command {
	var email bool

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print current and upcoming productions from the society calendar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := aggregate.RunCalendar(cmd.Context(), a.svc.Calendar, aggregate.CalendarOptions{
				Author:    a.cfg.AuthorName,
				Reference: a.cfg.ReferencePoint(),
				Clock:     a.svc.Clock,
				Metrics:   a.svc.Metrics,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, rep.Text)
			if !email {
				return nil
			}

			n, err := a.notifier()
			if err != nil {
				return err
			}
			_, err = n.Send(cmd.Context(), notifier.Message{
				Subject: report.WeeklySubject(a.cfg.AuthorName, rep.GeneratedAt),
				HTML:    "<pre>" + html.EscapeString(rep.Text) + "</pre>",
				Text:    rep.Text,
				Count:   len(rep.Current) + len(rep.Upcoming),
			})
			return err
		},
	}
	cmd.Flags().BoolVar(&email, "email", false, "Also email the digest")
	return cmd
}

func newTicketingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ticketing",
		Short: "Search the ticketing API for the configured shows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Ticketmaster.APIKey == "" {
				return fmt.Errorf("TICKETMASTER_API_KEY is required")
			}
			rep, err := a.search(cmd.Context(), aggregate.Ticketing{Client: a.svc.Ticketing}, report.DefaultPageTitle)
			if err != nil {
				return err
			}
			return a.write(rep)
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the alert endpoints, health and metrics over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("port") {
				port = a.cfg.Server.Port
			}
			router := handler.NewRouter(handler.New(a.svc), a.registry)
			return handler.NewServer(port, router).Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "Listen port (default SERVER_PORT)")
	return cmd
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(ExitError)
	}
}
