package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"

	"github.com/pfrederiksen/theatre-alerts/internal/errs"
	"github.com/pfrederiksen/theatre-alerts/internal/production"
)

// DefaultShows are the titles searched when SHOWS is unset
var DefaultShows = []string{
	"Saturday Night",
	"Candide",
	"West Side Story",
	"Gypsy",
	"A Funny Thing Happened on the Way to the Forum",
	"Anyone Can Whistle",
	"Do I Hear a Waltz?",
	"The Mad Show",
	"Evening Primrose",
	"Company",
	"Follies",
	"A Little Night Music",
	"The Frogs",
	"Pacific Overtures",
	"Side by Side by Sondheim",
	"Sweeney Todd",
	"Marry Me a Little",
	"Merrily We Roll Along",
	"Sunday in the Park with George",
	"Into the Woods",
	"Assassins",
	"Putting It Together",
	"Passion",
	"Road Show",
	"Here We Are",
	"Hot Spot",
}

// showSeparator splits SHOWS; titles contain commas
const showSeparator = ";"

// Config holds the full application configuration.
type Config struct {
	Email        EmailConfig        `yaml:"email" mapstructure:"email"`
	Mailjet      MailjetConfig      `yaml:"mailjet" mapstructure:"mailjet"`
	Ticketmaster TicketmasterConfig `yaml:"ticketmaster" mapstructure:"ticketmaster"`
	Twitter      TwitterConfig      `yaml:"twitter" mapstructure:"twitter"`
	Telegram     TelegramConfig     `yaml:"telegram" mapstructure:"telegram"`
	Listings     ListingsConfig     `yaml:"listings" mapstructure:"listings"`
	Calendar     CalendarConfig     `yaml:"calendar" mapstructure:"calendar"`
	Geocoder     GeocoderConfig     `yaml:"geocoder" mapstructure:"geocoder"`
	Reference    ReferenceConfig    `yaml:"reference" mapstructure:"reference"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`

	AuthorName        string        `yaml:"author_name" mapstructure:"author_name"`
	UserLocation      string        `yaml:"user_location" mapstructure:"user_location"`
	SearchRadiusMiles float64       `yaml:"search_radius_miles" mapstructure:"search_radius_miles"`
	MaxVenues         int           `yaml:"max_venues" mapstructure:"max_venues"`
	Concurrency       int           `yaml:"concurrency" mapstructure:"concurrency"`
	HTTPTimeout       time.Duration `yaml:"http_timeout" mapstructure:"http_timeout"`

	// Shows is filled from the ";"-separated shows setting
	Shows []string `yaml:"-" mapstructure:"-"`
}

// EmailConfig holds the alert addresses.
type EmailConfig struct {
	Recipient  string `yaml:"recipient" mapstructure:"recipient"`
	Recipient2 string `yaml:"recipient_2" mapstructure:"recipient_2"`
	Sender     string `yaml:"sender" mapstructure:"sender"`
}

// MailjetConfig holds Mailjet API credentials.
type MailjetConfig struct {
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
}

// TicketmasterConfig holds Discovery API settings.
type TicketmasterConfig struct {
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	CountryCode string `yaml:"country_code" mapstructure:"country_code"`
}

// TwitterConfig holds optional OAuth1 credentials.
type TwitterConfig struct {
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
	APISecret    string `yaml:"api_secret" mapstructure:"api_secret"`
	AccessToken  string `yaml:"access_token" mapstructure:"access_token"`
	AccessSecret string `yaml:"access_secret" mapstructure:"access_secret"`
	Link         string `yaml:"link" mapstructure:"link"`
}

// TelegramConfig holds optional Bot API settings.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token" mapstructure:"bot_token"`
	ChatID   string `yaml:"chat_id" mapstructure:"chat_id"`
}

// ListingsConfig configures the listings-site scraper.
type ListingsConfig struct {
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	Rate    float64 `yaml:"rate" mapstructure:"rate"` // requests per second, 0 is unlimited
}

// CalendarConfig configures the calendar widget fetch.
type CalendarConfig struct {
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// GeocoderConfig configures Nominatim.
type GeocoderConfig struct {
	URL  string  `yaml:"url" mapstructure:"url"`
	Rate float64 `yaml:"rate" mapstructure:"rate"`
}

// ReferenceConfig is the point current calendar productions are sorted from.
type ReferenceConfig struct {
	Lat float64 `yaml:"lat" mapstructure:"lat"`
	Lon float64 `yaml:"lon" mapstructure:"lon"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from an optional config.yaml and the
// environment. Nested keys map to environment names with "_", so
// email.recipient is EMAIL_RECIPIENT.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.Shows = SplitShows(v.GetString("shows"))

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// AutomaticEnv only reaches keys viper already knows, so every
	// env-settable key gets a default, empty or not.
	for _, key := range []string{
		"email.recipient", "email.recipient_2", "email.sender",
		"mailjet.api_key", "mailjet.secret_key",
		"ticketmaster.api_key",
		"twitter.api_key", "twitter.api_secret", "twitter.access_token", "twitter.access_secret", "twitter.link",
		"telegram.bot_token", "telegram.chat_id",
	} {
		v.SetDefault(key, "")
	}

	v.SetDefault("author_name", "Sondheim")
	v.SetDefault("user_location", "London, UK")
	v.SetDefault("search_radius_miles", 50)
	v.SetDefault("max_venues", 0)
	v.SetDefault("concurrency", 4)
	v.SetDefault("http_timeout", "30s")
	v.SetDefault("shows", strings.Join(DefaultShows, showSeparator))
	v.SetDefault("mailjet.base_url", "https://api.mailjet.com/")
	v.SetDefault("ticketmaster.base_url", "https://app.ticketmaster.com/discovery/v2/")
	v.SetDefault("ticketmaster.country_code", "GB")
	v.SetDefault("listings.base_url", "https://www.whatsonstage.com")
	v.SetDefault("listings.rate", 2)
	v.SetDefault("calendar.endpoint", "https://inffuse.eventscalendar.co/js/v0.1/calendar/data")
	v.SetDefault("calendar.timeout", "15s")
	v.SetDefault("geocoder.url", "https://nominatim.openstreetmap.org/")
	v.SetDefault("geocoder.rate", 1)
	v.SetDefault("reference.lat", 51.53166)
	v.SetDefault("reference.lon", -0.09592)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// SplitShows parses a ";"-separated title list, dropping blanks.
func SplitShows(s string) []string {
	var shows []string
	for _, part := range strings.Split(s, showSeparator) {
		if title := strings.TrimSpace(part); title != "" {
			shows = append(shows, title)
		}
	}
	return shows
}

// Validate reports the first missing setting needed to send alerts.
func (c *Config) Validate() error {
	required := []struct {
		setting string
		value   string
	}{
		{"EMAIL_RECIPIENT", c.Email.Recipient},
		{"EMAIL_SENDER", c.Email.Sender},
		{"MAILJET_API_KEY", c.Mailjet.APIKey},
		{"MAILJET_SECRET_KEY", c.Mailjet.SecretKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &errs.ConfigError{Setting: r.setting}
		}
	}
	return nil
}

// Recipients lists every configured recipient address.
func (c *Config) Recipients() []string {
	out := []string{c.Email.Recipient}
	if c.Email.Recipient2 != "" {
		out = append(out, c.Email.Recipient2)
	}
	return out
}

// ReferencePoint returns the calendar sort reference.
func (c *Config) ReferencePoint() production.Coordinates {
	return production.Coordinates{Lat: c.Reference.Lat, Lon: c.Reference.Lon}
}

// HasTwitter reports whether every Twitter credential is set.
func (c *Config) HasTwitter() bool {
	t := c.Twitter
	return t.APIKey != "" && t.APISecret != "" && t.AccessToken != "" && t.AccessSecret != ""
}

// HasTelegram reports whether a bot token and chat are set.
func (c *Config) HasTelegram() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
