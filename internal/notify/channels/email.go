package channels

import (
	"context"
	"fmt"

	"github.com/tribelabs/tribe/internal/database/types"
	"github.com/tribelabs/tribe/internal/setup/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// EmailSender delivers messages over SMTP.
type EmailSender struct {
	cfg    *config.SMTP
	logger *zap.Logger
}

// NewEmailSender creates an SMTP email sender.
func NewEmailSender(cfg *config.SMTP, logger *zap.Logger) *EmailSender {
	return &EmailSender{
		cfg:    cfg,
		logger: logger.Named("email_sender"),
	}
}

// Send delivers the message to the recipient's email address.
func (s *EmailSender) Send(_ context.Context, recipient *types.Recipient, msg Message) error {
	if recipient.Email == "" {
		return fmt.Errorf("%w: recipient %s", types.ErrChannelWithoutEndpoint, recipient.ID)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail))
	m.SetHeader("To", recipient.Email)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)

	dialer := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", recipient.ID, err)
	}

	s.logger.Debug("Sent email",
		zap.String("recipientID", recipient.ID),
		zap.String("subject", msg.Subject))

	return nil
}
