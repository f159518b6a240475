package mailer

import (
	"context"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/prospectline/leadgen/internal/config"
)

// SMTPSender delivers mail over SMTP with STARTTLS.
type SMTPSender struct {
	cfg config.SMTPConfig
	// dial is swapped in tests.
	dial func(m *gomail.Message) error
}

// NewSMTPSender creates an SMTPSender from config. An unconfigured sender
// reports every send as an auth failure rather than erroring at startup.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	s := &SMTPSender{cfg: cfg}
	s.dial = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		return d.DialAndSend(m)
	}
	return s
}

func (s *SMTPSender) Configured() bool {
	return s.cfg.Configured()
}

// Send delivers one message. Failures are classified, never panicked or
// propagated as raw transport errors.
func (s *SMTPSender) Send(ctx context.Context, msg Message) SendResult {
	if msg.To == "" {
		return SendResult{Sent: false, Reason: FailureRecipient, Message: "no recipient address"}
	}
	if !s.Configured() {
		return SendResult{Sent: false, Reason: FailureAuth, Message: "SMTP credentials not configured"}
	}
	if err := ctx.Err(); err != nil {
		return SendResult{Sent: false, Reason: FailureConnect, Message: err.Error()}
	}

	from := s.cfg.From
	if from == "" {
		from = s.cfg.Username
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.dial(m); err != nil {
		reason, detail := classifyError(err)
		zap.L().Warn("email send failed",
			zap.String("to", msg.To),
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
		return SendResult{Sent: false, Reason: reason, Message: detail}
	}

	zap.L().Info("email sent", zap.String("to", msg.To))
	return SendResult{Sent: true}
}
