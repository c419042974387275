package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/habitpact/habitpact/internal/domain/shared"
	"github.com/habitpact/habitpact/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// INVITE NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

// NotifierConfig holds webhook delivery configuration.
type NotifierConfig struct {
	// WebhookURL receives invite notification payloads. Empty disables
	// delivery entirely.
	WebhookURL string

	// AuthToken, when set, is sent as a bearer token.
	AuthToken string

	// Timeout bounds a single delivery attempt.
	Timeout time.Duration
}

// WebhookNotifier delivers partnership invites to an email webhook (a mail
// relay such as a Supabase edge function or a Resend bridge). It implements
// command.InviteNotifier. Delivery is retried with backoff; the caller treats
// a final failure as non-fatal.
type WebhookNotifier struct {
	config  NotifierConfig
	client  *http.Client
	retrier *retry.Retrier
	logger  *slog.Logger
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(cfg NotifierConfig, logger *slog.Logger) *WebhookNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	retrier := retry.New(
		retry.WithMaxAttempts(3),
		retry.WithInitialDelay(200*time.Millisecond),
		retry.WithMaxDelay(2*time.Second),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Warn("invite delivery retry", "attempt", attempt, "delay", delay, "error", err)
		}),
	)

	return &WebhookNotifier{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		retrier: retrier,
		logger:  logger,
	}
}

type invitePayload struct {
	Email     string `json:"email"`
	Code      string `json:"code"`
	InviteURL string `json:"invite_url"`
}

// NotifyInvite posts the invite code and redeem link to the webhook.
func (n *WebhookNotifier) NotifyInvite(ctx context.Context, email, code, inviteURL string) error {
	if n.config.WebhookURL == "" {
		n.logger.Debug("invite notifier disabled, skipping delivery", "email", email)
		return nil
	}

	body, err := json.Marshal(invitePayload{Email: email, Code: code, InviteURL: inviteURL})
	if err != nil {
		return shared.WrapError("partnership", "NotifyInvite", shared.ErrInvalidInput, "failed to encode invite payload", err)
	}

	err = n.retrier.Do(ctx, func(ctx context.Context) error {
		return n.deliver(ctx, body)
	})
	if err != nil {
		return shared.WrapError("partnership", "NotifyInvite", shared.ErrExternalService, "invite delivery failed", err)
	}

	return nil
}

func (n *WebhookNotifier) deliver(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+n.config.AuthToken)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Client errors will not heal on retry.
		return retry.Permanent(fmt.Errorf("webhook rejected invite: status %d", resp.StatusCode))
	default:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
}
