package notifier

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/semmidev/replguard/internal/config"
	"github.com/semmidev/replguard/internal/domain"
)

// Sender delivers mail messages; *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Email sends every report to the fixed recipient list.
type Email struct {
	sender     Sender
	from       string
	recipients []string
}

var _ domain.Notifier = (*Email)(nil)

func NewEmail(cfg config.EmailConfig, recipients []string) (*Email, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("notify.email.smtp_host is required")
	}

	policy, err := tlsPolicy(cfg.TLSPolicy)
	if err != nil {
		return nil, err
	}

	opts := []mail.Option{mail.WithPort(cfg.SMTPPort), mail.WithTLSPolicy(policy)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return newEmail(client, cfg.From, recipients), nil
}

func newEmail(sender Sender, from string, recipients []string) *Email {
	if from == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "localhost"
		}
		from = "replguard@" + host
	}
	return &Email{sender: sender, from: from, recipients: recipients}
}

func tlsPolicy(name string) (mail.TLSPolicy, error) {
	switch strings.ToLower(name) {
	case "", "opportunistic":
		return mail.TLSOpportunistic, nil
	case "mandatory":
		return mail.TLSMandatory, nil
	case "none":
		return mail.NoTLS, nil
	default:
		return mail.NoTLS, fmt.Errorf("unknown tls_policy %q", name)
	}
}

func (e *Email) NotifyBackup(ctx context.Context, report domain.BackupReport) error {
	msg, err := RenderBackup(report)
	if err != nil {
		return err
	}
	return e.send(ctx, msg)
}

func (e *Email) NotifyHealth(ctx context.Context, report domain.HealthReport) error {
	return e.send(ctx, RenderHealth(report))
}

func (e *Email) send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(e.from); err != nil {
		return fmt.Errorf("invalid sender %q: %w", e.from, err)
	}
	if err := m.To(e.recipients...); err != nil {
		return fmt.Errorf("invalid recipients: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	if err := e.sender.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
