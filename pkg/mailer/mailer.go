package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Config holds SMTP configuration
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	Encryption string // tls, starttls, ssl or none
	From       string
	FromName   string
}

// Mailer handles sending emails
type Mailer struct {
	config Config
	client *mail.Client
	logger *zap.Logger
}

// New creates a new Mailer instance
func New(cfg Config, logger *zap.Logger) (*Mailer, error) {
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP_FROM is required")
	}

	opts := []mail.Option{mail.WithPort(cfg.Port)}
	switch cfg.Encryption {
	case "ssl":
		opts = append(opts, mail.WithSSL())
	case "none":
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &Mailer{config: cfg, client: client, logger: logger}, nil
}

// SendOTP sends a login OTP email
func (m *Mailer) SendOTP(ctx context.Context, toEmail, code string, expiryMinutes int) error {
	body, err := RenderOTP(code, expiryMinutes)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return m.send(ctx, toEmail, "", "Your Login OTP", body)
}

// SendContact forwards a contact form submission to recipient
func (m *Mailer) SendContact(ctx context.Context, recipient string, form ContactForm) error {
	body, err := RenderContact(form)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return m.send(ctx, recipient, form.Email, "New contact form submission from "+form.Name, body)
}

// send delivers an HTML email via SMTP
func (m *Mailer) send(ctx context.Context, to, replyTo, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.config.FromName, m.config.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	if replyTo != "" {
		if err := msg.ReplyTo(replyTo); err != nil {
			return fmt.Errorf("invalid reply-to %q: %w", replyTo, err)
		}
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	start := time.Now()
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		m.logger.Error("failed to send email",
			zap.String("to", to),
			zap.Error(err),
			zap.Duration("attempt_duration", time.Since(start)))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("email sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Duration("send_duration", time.Since(start)))
	return nil
}

// ContactForm is a message left through the public contact form
type ContactForm struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

var otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background-color:#f4f4f5;font-family:Arial,sans-serif;">
    <div style="max-width:600px;margin:0 auto;padding:20px;border:1px solid #e0e0e0;border-radius:5px;background:#fff;">
        <h2 style="color:#333;">Your Login OTP</h2>
        <p>Your OTP for login is:</p>
        <h1 style="font-size:32px;background-color:#f5f5f5;padding:10px 15px;display:inline-block;border-radius:4px;letter-spacing:6px;">{{.Code}}</h1>
        <p>This OTP will expire in {{.ExpiryMinutes}} minutes.</p>
        <p>If you did not request this OTP, please ignore this email.</p>
    </div>
</body>
</html>`))

var contactTemplate = template.Must(template.New("contact").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family:Arial,sans-serif;">
    <h2>New contact form submission</h2>
    <p><strong>Name:</strong> {{.Name}}</p>
    <p><strong>Email:</strong> {{.Email}}</p>
    {{if .Phone}}<p><strong>Phone:</strong> {{.Phone}}</p>{{end}}
    <p><strong>Message:</strong></p>
    <p style="white-space:pre-wrap;">{{.Message}}</p>
</body>
</html>`))

// RenderOTP returns the HTML body for the login OTP email
func RenderOTP(code string, expiryMinutes int) (string, error) {
	var buf bytes.Buffer
	err := otpTemplate.Execute(&buf, map[string]interface{}{
		"Code":          code,
		"ExpiryMinutes": expiryMinutes,
	})
	return buf.String(), err
}

// RenderContact returns the HTML body for a contact form email
func RenderContact(form ContactForm) (string, error) {
	var buf bytes.Buffer
	err := contactTemplate.Execute(&buf, form)
	return buf.String(), err
}
