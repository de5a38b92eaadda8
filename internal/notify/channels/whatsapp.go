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

// WhatsAppSender delivers messages through a WhatsApp Business API endpoint.
type WhatsAppSender struct {
	cfg    *config.WhatsApp
	client *http.Client
	logger *zap.Logger
}

// NewWhatsAppSender creates a WhatsApp sender.
func NewWhatsAppSender(cfg *config.WhatsApp, logger *zap.Logger) *WhatsAppSender {
	return &WhatsAppSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.Named("whatsapp_sender"),
	}
}

// Send delivers the message's text body to the recipient's phone number.
// WhatsApp carries plain text only; the HTML rendering is ignored.
func (s *WhatsAppSender) Send(ctx context.Context, recipient *types.Recipient, msg Message) error {
	if recipient.Phone == "" {
		return fmt.Errorf("%w: recipient %s", types.ErrChannelWithoutEndpoint, recipient.ID)
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                recipient.Phone,
		"type":              "text",
		"text": map[string]string{
			"body": msg.Subject + "\n\n" + msg.Text,
		},
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal whatsapp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build whatsapp request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.AccessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send whatsapp message to %s: %w", recipient.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp API returned status %d for recipient %s", resp.StatusCode, recipient.ID)
	}

	s.logger.Debug("Sent WhatsApp message",
		zap.String("recipientID", recipient.ID),
		zap.String("subject", msg.Subject))

	return nil
}
