package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/smtp"
	"strings"
	"text/template"
	"time"

	"github.com/dshills/orderdesk/pkg/types"
)

// Common errors
var (
	ErrQueueFull       = errors.New("notification queue full")
	ErrDispatcherClose = errors.New("notification dispatcher closed")
	ErrNoRecipient     = errors.New("order has no customer email")
)

// Notifier delivers an order confirmation to the customer
type Notifier interface {
	// SendOrderConfirmation sends the confirmation for a committed order
	SendOrderConfirmation(ctx context.Context, order *types.Order) error

	// Name returns the provider name
	Name() string
}

// LogNotifier writes confirmations to the log instead of sending them
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOrderConfirmation(ctx context.Context, order *types.Order) error {
	n.logger.InfoContext(ctx, "order confirmation",
		"order_number", order.OrderNumber,
		"email", order.CustomerInfo.Email,
		"total", order.TotalAmount.StringFixed(2),
		"items", len(order.Items))
	return nil
}

func (n *LogNotifier) Name() string { return "log" }

// WebhookNotifier posts the confirmation as JSON to an HTTP endpoint,
// typically a transactional mail relay.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// webhookPayload is the body sent to the webhook
type webhookPayload struct {
	Event string       `json:"event"`
	Order *types.Order `json:"order"`
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) SendOrderConfirmation(ctx context.Context, order *types.Order) error {
	body, err := json.Marshal(webhookPayload{Event: "order.confirmed", Order: order})
	if err != nil {
		return fmt.Errorf("failed to marshal confirmation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", order.ID)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (n *WebhookNotifier) Name() string { return "webhook" }

// SendMailFunc is smtp.SendMail with a context bounding the whole exchange
type SendMailFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends a plain text confirmation mail
type SMTPNotifier struct {
	addr     string
	from     string
	auth     smtp.Auth
	sendMail SendMailFunc
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(
	`From: {{.From}}
To: {{.Order.CustomerInfo.Email}}
Subject: Order {{.Order.OrderNumber}} confirmed
Content-Type: text/plain; charset=UTF-8

Hi {{.Order.CustomerInfo.FullName}},

Thank you for your order {{.Order.OrderNumber}}.
{{range .Order.Items}}
  {{.Quantity}} x {{.Snapshot.Name}} @ {{.UnitPrice.StringFixed 2}}{{end}}

Total: {{.Order.TotalAmount.StringFixed 2}}
Payment method: {{.Order.PaymentMethod}}
Shipping to: {{.Order.CustomerInfo.Address}}
`))

// NewSMTPNotifier creates an SMTP sender. Username may be empty for relays without auth.
func NewSMTPNotifier(addr, username, password, from string) *SMTPNotifier {
	var auth smtp.Auth
	if username != "" {
		host := addr
		if i := strings.LastIndex(addr, ":"); i > 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPNotifier{addr: addr, from: from, auth: auth, sendMail: sendMailContext}
}

func (n *SMTPNotifier) SendOrderConfirmation(ctx context.Context, order *types.Order) error {
	if order.CustomerInfo.Email == "" {
		return ErrNoRecipient
	}
	msg, err := renderConfirmation(n.from, order)
	if err != nil {
		return err
	}

	if err := n.sendMail(ctx, n.addr, n.auth, n.from, []string{order.CustomerInfo.Email}, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

func (n *SMTPNotifier) Name() string { return "smtp" }

// sendMailContext follows smtp.SendMail but dials with ctx and expires the
// connection deadline when ctx is done, so a stalled server never outlives it.
func sendMailContext(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return ctxErr(ctx, err)
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return ctxErr(ctx, err)
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp: server doesn't support AUTH")
		}
		if err := c.Auth(a); err != nil {
			return ctxErr(ctx, err)
		}
	}
	if err := c.Mail(from); err != nil {
		return ctxErr(ctx, err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return ctxErr(ctx, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return ctxErr(ctx, err)
	}
	if _, err := w.Write(msg); err != nil {
		return ctxErr(ctx, err)
	}
	if err := w.Close(); err != nil {
		return ctxErr(ctx, err)
	}
	return ctxErr(ctx, c.Quit())
}

// ctxErr prefers the context error when an I/O failure was caused by it
func ctxErr(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return err
}

func renderConfirmation(from string, order *types.Order) ([]byte, error) {
	var buf bytes.Buffer
	err := confirmationTemplate.Execute(&buf, struct {
		From  string
		Order *types.Order
	}{From: from, Order: order})
	if err != nil {
		return nil, fmt.Errorf("failed to render confirmation: %w", err)
	}
	return bytes.ReplaceAll(buf.Bytes(), []byte("\n"), []byte("\r\n")), nil
}
