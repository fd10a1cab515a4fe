// Package notify sends the payout alert an operator needs to pay a
// redemption by hand.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"github.com/linkloot/affiliate-api/internal/core/domain"
	"github.com/linkloot/affiliate-api/internal/core/ports"
)

const placeholderSender = "your-email@gmail.com"

// Config holds the SMTP relay settings. Port 465 with implicit TLS is what
// the payout inbox expects.
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	AdminEmail string
	Timeout    time.Duration
}

// configured reports whether the relay credentials look real.
func (c Config) configured() bool {
	return c.Username != "" && c.Password != "" && c.AdminEmail != "" &&
		!strings.EqualFold(c.Username, placeholderSender)
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer implements ports.Notifier over SMTP.
type Mailer struct {
	cfg    Config
	client sender
}

// NewMailer builds a Mailer. When the credentials are missing or still the
// placeholder the mailer is returned unconfigured and reports every notice
// as skipped.
func NewMailer(cfg Config) (*Mailer, error) {
	if !cfg.configured() {
		return &Mailer{cfg: cfg}, nil
	}
	if cfg.Port == 0 {
		cfg.Port = 465
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &Mailer{cfg: cfg, client: client}, nil
}

// Configured reports whether notices will actually be sent.
func (m *Mailer) Configured() bool {
	return m.client != nil
}

func (m *Mailer) NotifyRedemption(ctx context.Context, n ports.RedemptionNotice) ports.DeliveryResult {
	if m.client == nil {
		return ports.Skipped("email credentials not configured")
	}

	msg, err := m.buildMessage(n)
	if err != nil {
		return ports.Failed(fmt.Errorf("%w: build payout email: %v", domain.ErrUpstreamUnavailable, err))
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return ports.Failed(fmt.Errorf("%w: send payout email: %v", domain.ErrUpstreamUnavailable, err))
	}
	return ports.Sent()
}

func (m *Mailer) buildMessage(n ports.RedemptionNotice) (*mail.Msg, error) {
	body, err := renderPayoutBody(n)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.Username); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := msg.To(m.cfg.AdminEmail); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	msg.Subject(payoutSubject(n))
	msg.SetGenHeader(mail.Header("X-Notice-ID"), uuid.NewString())
	msg.SetGenHeader(mail.Header("X-Transaction-ID"), n.TransactionID)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func payoutSubject(n ports.RedemptionNotice) string {
	return fmt.Sprintf("Payout Request: ₹%d for %s", n.Points, n.UserEmail)
}

var payoutTmpl = template.Must(template.New("payout").Parse(`A new payout request has been submitted. Please process it manually.

Details:
- Influencer Email: {{.UserEmail}}
- Amount: ₹{{.Points}}
- UPI ID: {{.PayoutID}}
- Transaction: {{.TransactionID}}
- Requested at: {{.RequestedAt.Format "2006-01-02 15:04:05 MST"}}

After sending the payment, mark the transaction completed:

    POST /admin/transactions/{{.TransactionID}}/complete

This moves the status to completed and releases the user's pending points.
`))

func renderPayoutBody(n ports.RedemptionNotice) (string, error) {
	var buf bytes.Buffer
	if err := payoutTmpl.Execute(&buf, n); err != nil {
		return "", fmt.Errorf("render payout email: %w", err)
	}
	return buf.String(), nil
}
