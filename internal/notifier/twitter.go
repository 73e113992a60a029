package notifier

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"
	"github.com/rotisserie/eris"

	"github.com/pfrederiksen/theatre-alerts/internal/errs"
	"github.com/pfrederiksen/theatre-alerts/internal/logger"
)

// MaxTweetLength is the status length limit, counted in characters
const MaxTweetLength = 280

// TwitterCredentials are the OAuth1 user-context keys
type TwitterCredentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// statusUpdater is the slice of the statuses service we use
type statusUpdater interface {
	Update(status string, params *twitter.StatusUpdateParams) (*twitter.Tweet, *http.Response, error)
}

// TwitterNotifier posts a one-line summary of each alert
type TwitterNotifier struct {
	statuses statusUpdater
	link     string
}

// NewTwitterNotifier creates a Twitter notifier. link, when set, is appended
// to every status.
func NewTwitterNotifier(creds TwitterCredentials, link string) (*TwitterNotifier, error) {
	switch {
	case creds.APIKey == "":
		return nil, &errs.ConfigError{Setting: "TWITTER_API_KEY"}
	case creds.APISecret == "":
		return nil, &errs.ConfigError{Setting: "TWITTER_API_SECRET"}
	case creds.AccessToken == "":
		return nil, &errs.ConfigError{Setting: "TWITTER_ACCESS_TOKEN"}
	case creds.AccessSecret == "":
		return nil, &errs.ConfigError{Setting: "TWITTER_ACCESS_SECRET"}
	}

	config := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	httpClient := config.Client(oauth1.NoContext, token)
	client := twitter.NewClient(httpClient)

	return &TwitterNotifier{statuses: client.Statuses, link: link}, nil
}

// Send implements Notifier
func (n *TwitterNotifier) Send(ctx context.Context, msg Message) (*Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	status := formatTweet(msg, n.link)
	tweet, resp, err := n.statuses.Update(status, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "posting status %q", msg.Subject)
	}

	d := &Delivery{}
	if resp != nil {
		d.StatusCode = resp.StatusCode
	}
	if tweet != nil {
		d.Response = []byte(fmt.Sprintf(`{"id":%q}`, tweet.IDStr))
	}
	logger.Info("Status posted", logger.Fields{"subject": msg.Subject, "length": len([]rune(status))})
	return d, nil
}

// formatTweet summarizes an alert as a status of at most MaxTweetLength
// characters
func formatTweet(msg Message, link string) string {
	tweet := msg.Subject
	switch msg.Count {
	case 0:
	case 1:
		tweet += "\n\n1 production listed"
	default:
		tweet += fmt.Sprintf("\n\n%d productions listed", msg.Count)
	}
	if link != "" {
		tweet += "\n" + link
	}

	runes := []rune(tweet)
	if len(runes) > MaxTweetLength {
		tweet = string(runes[:MaxTweetLength-3]) + "..."
	}
	return tweet
}
