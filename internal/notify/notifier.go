// Package notify carries filtered alerts to their transports. Delivery is
// best effort: a failed send is logged by the caller and never retried.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notifier delivers one alert to one transport.
type Notifier interface {
	Send(ctx context.Context, title string, details []string) error
}

// Config selects and parameterises the notifier set. Channels is a closed
// set of tags; unknown tags fail at startup rather than being loaded
// dynamically.
type Config struct {
	Channels []string       `mapstructure:"channels"`
	Slack    SlackConfig    `mapstructure:"slack"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// SlackConfig holds incoming-webhook settings.
type SlackConfig struct {
	WebhookURL     string        `mapstructure:"webhook_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// TelegramConfig holds bot API settings.
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	APIBase        string        `mapstructure:"api_base"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// FromConfig builds the configured notifier set.
func FromConfig(cfg Config, logger zerolog.Logger) ([]Notifier, error) {
	var notifiers []Notifier
	for _, channel := range cfg.Channels {
		switch strings.ToLower(strings.TrimSpace(channel)) {
		case "slack":
			if cfg.Slack.WebhookURL == "" {
				return nil, fmt.Errorf("notifications.slack.webhook_url is required for the slack channel")
			}
			notifiers = append(notifiers, NewSlackNotifier(cfg.Slack, logger))
		case "telegram":
			if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
				return nil, fmt.Errorf("notifications.telegram.bot_token and chat_id are required for the telegram channel")
			}
			notifiers = append(notifiers, NewTelegramNotifier(cfg.Telegram, logger))
		case "log":
			notifiers = append(notifiers, NewLogNotifier(logger))
		case "":
		default:
			return nil, fmt.Errorf("unknown notification channel %q", channel)
		}
	}
	return notifiers, nil
}

// LogNotifier writes alerts to the process log. Useful on its own for dry
// runs and as a second channel alongside a webhook.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier constructs a log sink.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Send logs the alert at warning level.
func (n *LogNotifier) Send(ctx context.Context, title string, details []string) error {
	n.logger.Warn().Strs("details", details).Msg(title)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
