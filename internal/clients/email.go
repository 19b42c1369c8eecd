package clients

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
	"github.com/stockscout/stockscout/internal/interfaces"
)

const mixedBoundary = "stockscout-mixed-42"

// SMTPSender sends emails via SMTP. An empty host means email delivery
// is disabled and Send returns an error.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   *common.Logger

	// sendMail is swapped out in tests
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a sender from config.
func NewSMTPSender(logger *common.Logger, cfg *config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUser,
		password: cfg.SMTPPass,
		from:     cfg.Sender,
		logger:   logger,
		sendMail: smtp.SendMail,
	}
}

var _ interfaces.EmailSender = (*SMTPSender)(nil)

// Send builds a MIME message with the HTML body and any attachments and
// delivers it over SMTP.
func (s *SMTPSender) Send(_ context.Context, msg interfaces.EmailMessage) error {
	if s.host == "" {
		return fmt.Errorf("smtp not configured")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients")
	}

	body := buildMIME(s.from, msg)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if err := s.sendMail(addr, auth, s.from, msg.To, body); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info().
		Str("subject", msg.Subject).
		Int("recipients", len(msg.To)).
		Int("attachments", len(msg.Attachments)).
		Msg("email sent")
	return nil
}

// buildMIME assembles a multipart/mixed message: HTML body first, then
// base64-encoded attachments.
func buildMIME(from string, msg interfaces.EmailMessage) []byte {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n", mixedBoundary))
	b.WriteString("\r\n")

	b.WriteString(fmt.Sprintf("--%s\r\n", mixedBoundary))
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTMLBody)
	b.WriteString("\r\n")

	for _, att := range msg.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		b.WriteString(fmt.Sprintf("--%s\r\n", mixedBoundary))
		b.WriteString(fmt.Sprintf("Content-Type: %s; name=\"%s\"\r\n", contentType, att.Filename))
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		b.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n", att.Filename))
		b.WriteString("\r\n")

		encoded := base64.StdEncoding.EncodeToString(att.Data)
		// RFC 2045 line length
		for len(encoded) > 76 {
			b.WriteString(encoded[:76])
			b.WriteString("\r\n")
			encoded = encoded[76:]
		}
		b.WriteString(encoded)
		b.WriteString("\r\n")
	}

	b.WriteString(fmt.Sprintf("--%s--\r\n", mixedBoundary))
	return []byte(b.String())
}
