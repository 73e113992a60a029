package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dghubble/sling"
	"github.com/rotisserie/eris"

	"github.com/pfrederiksen/theatre-alerts/internal/errs"
	"github.com/pfrederiksen/theatre-alerts/internal/logger"
)

const (
	MailjetBaseURL = "https://api.mailjet.com/"
	MailjetTimeout = 30 * time.Second

	mailjetSource = "mailjet"
)

// MailjetConfig holds the credentials and addresses for transactional email
type MailjetConfig struct {
	APIKey     string
	SecretKey  string
	Sender     string
	Recipients []string // empty entries are skipped
	BaseURL    string   // defaults to MailjetBaseURL
	HTTPClient *http.Client
}

// MailjetNotifier sends alerts through the Mailjet v3.1 send API
type MailjetNotifier struct {
	cfg MailjetConfig
}

// NewMailjetNotifier creates a Mailjet notifier. Missing credentials or
// addresses are reported as a ConfigError.
func NewMailjetNotifier(cfg MailjetConfig) (*MailjetNotifier, error) {
	switch {
	case cfg.APIKey == "":
		return nil, &errs.ConfigError{Setting: "MAILJET_API_KEY"}
	case cfg.SecretKey == "":
		return nil, &errs.ConfigError{Setting: "MAILJET_SECRET_KEY"}
	case cfg.Sender == "":
		return nil, &errs.ConfigError{Setting: "EMAIL_SENDER"}
	}

	var recipients []string
	for _, r := range cfg.Recipients {
		if r != "" {
			recipients = append(recipients, r)
		}
	}
	if len(recipients) == 0 {
		return nil, &errs.ConfigError{Setting: "EMAIL_RECIPIENT"}
	}
	cfg.Recipients = recipients

	if cfg.BaseURL == "" {
		cfg.BaseURL = MailjetBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: MailjetTimeout}
	}
	return &MailjetNotifier{cfg: cfg}, nil
}

type mailjetAddress struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

type mailjetMessage struct {
	From     mailjetAddress   `json:"From"`
	To       []mailjetAddress `json:"To"`
	Subject  string           `json:"Subject"`
	TextPart string           `json:"TextPart,omitempty"`
	HTMLPart string           `json:"HTMLPart"`
}

type mailjetRequest struct {
	Messages []mailjetMessage `json:"Messages"`
}

type mailjetFault struct {
	ErrorMessage string `json:"ErrorMessage"`
	StatusCode   int    `json:"StatusCode"`
}

// Send implements Notifier
func (n *MailjetNotifier) Send(ctx context.Context, msg Message) (*Delivery, error) {
	to := make([]mailjetAddress, 0, len(n.cfg.Recipients))
	for _, r := range n.cfg.Recipients {
		to = append(to, mailjetAddress{Email: r})
	}
	body := mailjetRequest{Messages: []mailjetMessage{{
		From:     mailjetAddress{Email: n.cfg.Sender},
		To:       to,
		Subject:  msg.Subject,
		TextPart: msg.Text,
		HTMLPart: msg.HTML,
	}}}

	s := sling.New().Client(n.cfg.HTTPClient).Base(n.cfg.BaseURL).
		SetBasicAuth(n.cfg.APIKey, n.cfg.SecretKey).
		Post("v3.1/send").BodyJSON(body)

	req, err := s.Request()
	if err != nil {
		return nil, &errs.FetchError{Source: mailjetSource, URL: n.cfg.BaseURL, Err: eris.Wrap(err, "building request")}
	}
	url := req.URL.String()

	var (
		raw   json.RawMessage
		fault mailjetFault
	)
	resp, err := s.Do(req.WithContext(ctx), &raw, &fault)
	if err != nil {
		return nil, &errs.FetchError{Source: mailjetSource, URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var cause error
		if fault.ErrorMessage != "" {
			cause = eris.New(fault.ErrorMessage)
		}
		return nil, &errs.FetchError{Source: mailjetSource, URL: url, StatusCode: resp.StatusCode, Err: cause}
	}

	logger.Info("Email sent", logger.Fields{
		"subject":    msg.Subject,
		"recipients": len(to),
		"status":     resp.StatusCode,
	})
	return &Delivery{StatusCode: resp.StatusCode, Response: raw}, nil
}
