package provider

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
)

// SMTPConfig holds the settings for the email channel.
type SMTPConfig struct {
	Addr     string
	User     string
	Password string
	From     string
	To       string
}

// Enabled reports whether enough is set to attempt delivery.
func (c SMTPConfig) Enabled() bool {
	return c.Addr != "" && c.From != "" && c.To != ""
}

// EmailSender delivers plain-text notifications over SMTP.
type EmailSender struct {
	addr string
	auth smtp.Auth
	from string
	to   string

	// sendMail is swapped in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	log      *zap.Logger
}

func NewEmailSender(cfg SMTPConfig, logger *zap.Logger) *EmailSender {
	var auth smtp.Auth
	if cfg.User != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, smtpHost(cfg.Addr))
	}
	return &EmailSender{
		addr:     cfg.Addr,
		auth:     auth,
		from:     cfg.From,
		to:       cfg.To,
		sendMail: smtp.SendMail,
		log:      logger.With(zap.String("component", "provider.email")),
	}
}

func (s *EmailSender) Channel() domain.Channel { return domain.ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, n *domain.Notification) error {
	msg := buildMessage(s.from, s.to, n)

	start := time.Now()
	log := s.log.With(
		zap.String("smtp_addr", s.addr),
		zap.Int64("id", n.ID),
		zap.String("to", s.to),
	)

	// smtp.SendMail has no context; run it aside so cancellation is honoured.
	done := make(chan error, 1)
	go func() { done <- s.sendMail(s.addr, s.auth, s.from, []string{s.to}, msg) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			log.Error("sendmail failed", zap.Error(err))
			return fmt.Errorf("send email: %w", err)
		}
	}
	log.Info("email sent", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func buildMessage(from, to string, n *domain.Notification) []byte {
	subject := fmt.Sprintf("[%s] Notification from %s", n.Priority, n.Source)
	return []byte(
		"From: " + from + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" + n.Message + "\r\n")
}

func smtpHost(addr string) string {
	if h, _, err := net.SplitHostPort(addr); err == nil {
		return h
	}
	if i := strings.Index(addr, ":"); i >= 0 {
		return addr[:i]
	}
	return addr
}

var _ Sender = (*EmailSender)(nil)
