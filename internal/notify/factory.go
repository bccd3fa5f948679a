package notify

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dshills/orderdesk/internal/config"
)

// New creates the notifier selected by cfg.Provider
func New(cfg config.NotifyConfig, logger *slog.Logger) (Notifier, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", config.ProviderLog:
		return NewLogNotifier(logger), nil
	case config.ProviderWebhook:
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("webhook provider requires a url")
		}
		return NewWebhookNotifier(cfg.WebhookURL, cfg.Timeout), nil
	case config.ProviderSMTP:
		if cfg.SMTPAddr == "" || cfg.From == "" {
			return nil, fmt.Errorf("smtp provider requires an address and a sender")
		}
		return NewSMTPNotifier(cfg.SMTPAddr, cfg.SMTPUsername, cfg.SMTPPassword, cfg.From), nil
	default:
		return nil, fmt.Errorf("unknown notify provider %s", cfg.Provider)
	}
}

// NewDispatcherFromConfig builds the configured notifier and starts its dispatcher
func NewDispatcherFromConfig(cfg config.NotifyConfig, logger *slog.Logger) (*Dispatcher, error) {
	notifier, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	retry := DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxRetries = cfg.MaxRetries
	}
	return NewDispatcher(notifier, DispatcherConfig{
		QueueSize: cfg.QueueSize,
		Workers:   cfg.Workers,
		Timeout:   cfg.Timeout,
		Retry:     retry,
	}, logger), nil
}
