package mail

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"gatekeeper/config"
	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/domain/service"
)

// logMailer writes mail events to the structured log instead of sending.
// Used in development and tests where no SMTP relay is available.
type logMailer struct {
	logger *slog.Logger
}

// NewLogMailer is the constructor for logMailer.
func NewLogMailer(logger *slog.Logger) service.Mailer {
	return &logMailer{logger: logger}
}

func (m *logMailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	m.logger.InfoContext(ctx, "verification email",
		slog.String("to", to),
		slog.String("token", token))

	return nil
}

func (m *logMailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	m.logger.InfoContext(ctx, "password reset email",
		slog.String("to", to),
		slog.String("token", token))

	return nil
}

func (m *logMailer) SendWelcomeEmail(ctx context.Context, to, name string) error {
	m.logger.InfoContext(ctx, "welcome email",
		slog.String("to", to),
		slog.String("name", name))

	return nil
}

func (m *logMailer) SendLoginNotification(ctx context.Context, to string, client entity.ClientInfo) error {
	m.logger.InfoContext(ctx, "login notification email",
		slog.String("to", to),
		slog.String("ip", client.IPAddress),
		slog.String("userAgent", client.UserAgent),
		slog.String("location", client.Location))

	return nil
}

// NewMailer selects the Mailer implementation by the configured driver.
func NewMailer(cfg *config.Config, logger *slog.Logger) (service.Mailer, error) {
	if cfg.Mail == nil {
		return NewLogMailer(logger), nil
	}

	switch cfg.Mail.Driver {
	case config.MailSMTP:
		return NewSMTPMailer(cfg.Mail)
	case config.MailLog, "":
		return NewLogMailer(logger), nil
	default:
		return nil, errors.Errorf("unknown mail driver: %s", cfg.Mail.Driver)
	}
}
