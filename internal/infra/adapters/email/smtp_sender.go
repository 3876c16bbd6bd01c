package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"coach-storefront/internal/config"
	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/adapter"
	"coach-storefront/internal/infra/i18n"
	"coach-storefront/internal/infra/logging"
)

var _ adapter.EmailSender = (*SMTPSender)(nil)

// SMTPSender delivers confirmation mail through an authenticated SMTP relay (STARTTLS when offered).
type SMTPSender struct {
	cfg        config.SMTPConfig
	tr         *i18n.Translator
	coachName  string
	supportURL string
	logger     *zerolog.Logger
	// deliver is swapped in tests.
	deliver func(ctx context.Context, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg config.SMTPConfig, tr *i18n.Translator, coachName, supportURL string, logger *zerolog.Logger) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("smtp host and from address are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	l := logger.With().Str("component", "SMTPSender").Logger()
	s := &SMTPSender{cfg: cfg, tr: tr, coachName: coachName, supportURL: supportURL, logger: &l}
	s.deliver = s.dial
	return s, nil
}

func (s *SMTPSender) SendOrderConfirmation(ctx context.Context, o *model.Order) error {
	if o == nil || o.Buyer.Email == "" {
		return errors.New("order has no buyer email")
	}
	subject, body := Compose(s.tr, s.coachName, s.supportURL, o)
	msg := buildMessage(s.cfg.From, o.Buyer.Email, subject, body, time.Now())

	if err := s.deliver(ctx, s.cfg.From, []string{o.Buyer.Email}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	s.logger.Info().Str("order_ref", o.OrderRef).Str("to", logging.Mask(o.Buyer.Email)).Msg("confirmation email sent")
	return nil
}

func buildMessage(from, to, subject, body string, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func (s *SMTPSender) dial(ctx context.Context, from string, to []string, msg []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	d := net.Dialer{Timeout: 10 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if s.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
