// Package mail provides Mailer implementations for transactional email.
package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	gomail "github.com/wneessen/go-mail"

	"gatekeeper/config"
	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/domain/service"
)

// smtpMailer delivers email over SMTP using go-mail.
type smtpMailer struct {
	client     *gomail.Client
	from       string
	appBaseURL string
}

// NewSMTPMailer is the constructor for smtpMailer. The transport is built
// once from configuration; there is no lazily-initialized global.
func NewSMTPMailer(cfg *config.MailConfig) (service.Mailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("smtp host and from address must be provided")
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(10 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create smtp client")
	}

	return &smtpMailer{
		client:     client,
		from:       cfg.From,
		appBaseURL: cfg.AppBaseURL,
	}, nil
}

// SendVerificationEmail delivers the email-verification link for the token.
func (m *smtpMailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	verificationURL := fmt.Sprintf("%s/verify-email?token=%s", m.appBaseURL, token)
	body := fmt.Sprintf(`<h2>Verify Your Email Address</h2>
<p>Thank you for registering. Please verify your email address by opening the link below:</p>
<p><a href="%s">%s</a></p>
<p>This link will expire in 24 hours.</p>
<p>If you didn't create an account, you can safely ignore this email.</p>`,
		verificationURL, verificationURL)

	return m.send(ctx, to, "Verify Your Email Address", body)
}

// SendPasswordResetEmail delivers the password-reset link for the token.
func (m *smtpMailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", m.appBaseURL, token)
	body := fmt.Sprintf(`<h2>Reset Your Password</h2>
<p>We received a request to reset your password. Open the link below to create a new password:</p>
<p><a href="%s">%s</a></p>
<p>This link will expire in 1 hour.</p>
<p>If you didn't request a password reset, you can safely ignore this email.</p>`,
		resetURL, resetURL)

	return m.send(ctx, to, "Reset Your Password", body)
}

// SendWelcomeEmail greets a freshly verified or social-signup user.
func (m *smtpMailer) SendWelcomeEmail(ctx context.Context, to, name string) error {
	body := fmt.Sprintf(`<h2>Welcome, %s!</h2>
<p>Thank you for joining. You can now log in and start using your account:</p>
<p><a href="%s/login">Get Started</a></p>`,
		name, m.appBaseURL)

	return m.send(ctx, to, "Welcome!", body)
}

// SendLoginNotification informs the user of a new login with client metadata.
func (m *smtpMailer) SendLoginNotification(ctx context.Context, to string, client entity.ClientInfo) error {
	body := fmt.Sprintf(`<h2>New Login Detected</h2>
<p>We detected a new login to your account with the following details:</p>
<ul>
<li><strong>Date &amp; Time:</strong> %s</li>
<li><strong>Location:</strong> %s</li>
<li><strong>IP Address:</strong> %s</li>
<li><strong>Device:</strong> %s</li>
</ul>
<p>If this was you, you can ignore this email.</p>
<p>If you didn't log in recently, please change your password immediately.</p>`,
		time.Now().Format(time.RFC1123), orUnknown(client.Location), orUnknown(client.IPAddress), orUnknown(client.UserAgent))

	return m.send(ctx, to, "New Login to Your Account", body)
}

func (m *smtpMailer) send(ctx context.Context, to, subject, htmlBody string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return errors.Wrap(err, "invalid from address")
	}
	if err := msg.To(to); err != nil {
		return errors.Wrap(err, "invalid recipient address")
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.Wrap(err, "failed to send email")
	}

	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}

	return s
}
