// Package alert delivers operator notifications, for example when a
// generation backend's circuit breaker opens.
package alert

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/soundprediction/skls/pkg/config"
)

// Alerter defines an interface for sending alerts
type Alerter interface {
	Alert(subject, message string) error
}

// New returns the alerter matching cfg: SMTP when enabled, otherwise one that
// only logs.
func New(cfg config.AlertConfig, log *slog.Logger) Alerter {
	if cfg.Enabled && cfg.SMTPHost != "" {
		return NewEmailAlerter(cfg)
	}
	return NewLogAlerter(log)
}

// EmailAlerter implements Alerter using SMTP
type EmailAlerter struct {
	cfg  config.AlertConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailAlerter creates a new email alerter
func NewEmailAlerter(cfg config.AlertConfig) *EmailAlerter {
	return &EmailAlerter{
		cfg:  cfg,
		send: smtp.SendMail,
	}
}

// Alert sends an email with the given subject and message
func (a *EmailAlerter) Alert(subject, message string) error {
	if !a.cfg.Enabled {
		return nil
	}

	auth := smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.SMTPHost)
	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", strings.Join(a.cfg.To, ","), subject, message))

	addr := fmt.Sprintf("%s:%d", a.cfg.SMTPHost, a.cfg.SMTPPort)
	if err := a.send(addr, auth, a.cfg.From, a.cfg.To, msg); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}

// LogAlerter writes alerts to a logger at error level.
type LogAlerter struct {
	log *slog.Logger
}

// NewLogAlerter creates an alerter that logs. A nil logger uses slog.Default.
func NewLogAlerter(log *slog.Logger) *LogAlerter {
	if log == nil {
		log = slog.Default()
	}
	return &LogAlerter{log: log}
}

// Alert implements Alerter
func (a *LogAlerter) Alert(subject, message string) error {
	a.log.Error(subject, "message", message)
	return nil
}

// NoOpAlerter discards alerts.
type NoOpAlerter struct{}

// Alert implements Alerter
func (NoOpAlerter) Alert(subject, message string) error {
	return nil
}
