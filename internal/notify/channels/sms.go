package channels

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tribelabs/tribe/internal/database/types"
	"github.com/tribelabs/tribe/internal/setup/config"
	"go.uber.org/zap"
)

// SMSSender delivers messages through an HTTP SMS gateway.
type SMSSender struct {
	cfg    *config.SMS
	client *http.Client
	logger *zap.Logger
}

// NewSMSSender creates an SMS gateway sender.
func NewSMSSender(cfg *config.SMS, logger *zap.Logger) *SMSSender {
	return &SMSSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.Named("sms_sender"),
	}
}

// Send delivers the message's subject line to the recipient's phone number.
// SMS is a short-form channel; only the subject is carried.
func (s *SMSSender) Send(ctx context.Context, recipient *types.Recipient, msg Message) error {
	if recipient.Phone == "" {
		return fmt.Errorf("%w: recipient %s", types.ErrChannelWithoutEndpoint, recipient.ID)
	}

	payload := map[string]string{
		"to":      recipient.Phone,
		"from":    s.cfg.Sender,
		"message": msg.Subject,
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms to %s: %w", recipient.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d for recipient %s", resp.StatusCode, recipient.ID)
	}

	s.logger.Debug("Sent SMS",
		zap.String("recipientID", recipient.ID))

	return nil
}
