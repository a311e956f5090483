package notifier

import (
	"context"
	"fmt"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"
)

// maxTweetRunes is the Twitter post length limit.
const maxTweetRunes = 280

// TwitterCredentials are the OAuth1 user-context keys for posting.
type TwitterCredentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// Complete reports whether every credential is set.
func (c TwitterCredentials) Complete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

// TwitterNotifier posts alerts as tweets
type TwitterNotifier struct {
	client *twitter.Client
}

// NewTwitterNotifier creates a Twitter notifier from OAuth1 credentials.
func NewTwitterNotifier(creds TwitterCredentials) (*TwitterNotifier, error) {
	if !creds.Complete() {
		return nil, fmt.Errorf("missing required Twitter credentials")
	}

	config := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	httpClient := config.Client(oauth1.NoContext, token)
	client := twitter.NewClient(httpClient)

	return &TwitterNotifier{client: client}, nil
}

// Name implements Named.
func (n *TwitterNotifier) Name() string { return "twitter" }

// Notify posts one tweet for the alert. The go-twitter client takes no
// context, so ctx only guards against posting after cancellation.
func (n *TwitterNotifier) Notify(ctx context.Context, alert Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := n.client.Statuses.Update(formatTweet(alert), nil); err != nil {
		return fmt.Errorf("failed to post tweet: %w", err)
	}
	return nil
}

// formatTweet formats an alert as a tweet
func formatTweet(alert Alert) string {
	tweet := "🏏 " + alert.Title + "\n\n"
	tweet += alert.Message + "\n"
	tweet += "\n#Cricket #LiveScore"

	// Twitter limit is 280 characters
	runes := []rune(tweet)
	if len(runes) > maxTweetRunes {
		// Truncate and add ellipsis
		tweet = string(runes[:maxTweetRunes-3]) + "..."
	}

	return tweet
}
