package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type SMTPConfig struct {
	Host     string `yaml:"host" envconfig:"SMTP_HOST"`
	Port     string `yaml:"port" envconfig:"SMTP_PORT" default:"587"`
	Username string `yaml:"username" envconfig:"SMTP_USER"`
	Password string `yaml:"password" envconfig:"SMTP_PASS"`
	From     string `yaml:"from" envconfig:"SMTP_FROM"`
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// SMTP sends reminders over plain SMTP with AUTH PLAIN.
type SMTP struct {
	cfg SMTPConfig
	log *zap.Logger
}

func NewSMTP(cfg SMTPConfig, log *zap.Logger) *SMTP {
	return &SMTP{
		cfg: cfg,
		log: log.Named("smtp"),
	}
}

func (s *SMTP) Send(_ context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.cfg.From, to, subject, body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return errors.Wrap(err, "smtp send")
	}

	s.log.Debug("mail sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
