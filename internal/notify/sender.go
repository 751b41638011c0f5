package notify

import (
	"fmt"
	"log"
	"net/smtp"

	"eventchat/internal/config"
)

// Sender delivers one reminder notification. The dispatcher only needs this
// surface; tests substitute a recorder.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender delivers mail over plain SMTP with optional auth.
type SMTPSender struct {
	cfg config.MailConfig
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.cfg.From, to, subject, body))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// LogSender writes notifications to the application log. Used when mail is
// disabled so reminders still fire visibly.
type LogSender struct{}

func (LogSender) Send(to, subject, body string) error {
	log.Printf("[Notify] to=%s subject=%q %s", to, subject, body)
	return nil
}
