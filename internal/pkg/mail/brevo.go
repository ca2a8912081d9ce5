package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	netmail "net/mail"
	"time"
)

// DefaultBrevoEndpoint is the Brevo transactional email endpoint.
const DefaultBrevoEndpoint = "https://api.brevo.com/v3/smtp/email"

var (
	// ErrBrevoAPIKeyRequired is returned when the API key is missing.
	ErrBrevoAPIKeyRequired = errors.New("brevo api key is required")
	// ErrBrevoUnexpectedStatus is returned when Brevo answers with a non-2xx status.
	ErrBrevoUnexpectedStatus = errors.New("brevo unexpected status")
)

// BrevoConfig configures the Brevo provider.
type BrevoConfig struct {
	// APIKey is sent in the api-key header.
	APIKey string
	// Endpoint overrides DefaultBrevoEndpoint.
	Endpoint string
	// From is the default sender, either "addr" or "Name <addr>".
	From string
	// Timeout bounds a single API call.
	Timeout time.Duration
}

// Brevo is a Mail implementation backed by the Brevo HTTP API.
type Brevo struct {
	client      *http.Client
	endpoint    string
	apiKey      string
	defaultFrom string
}

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoRequest struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Cc          []brevoAddress `json:"cc,omitempty"`
	Bcc         []brevoAddress `json:"bcc,omitempty"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent,omitempty"`
	TextContent string         `json:"textContent,omitempty"`
}

type brevoResponse struct {
	MessageID string `json:"messageId"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// NewBrevo constructs a Brevo mail sender.
func NewBrevo(cfg BrevoConfig) (*Brevo, error) {
	if cfg.APIKey == "" {
		return nil, ErrBrevoAPIKeyRequired
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultBrevoEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Brevo{
		client:      &http.Client{Timeout: cfg.Timeout},
		endpoint:    cfg.Endpoint,
		apiKey:      cfg.APIKey,
		defaultFrom: cfg.From,
	}, nil
}

// Send posts msg to Brevo and returns the messageId it assigned.
func (b *Brevo) Send(ctx context.Context, msg Message) (string, error) {
	if msg.recipients() == 0 {
		return "", ErrNoRecipients
	}

	from := msg.From
	if from == "" {
		from = b.defaultFrom
	}
	if from == "" {
		return "", ErrNoSender
	}

	payload := brevoRequest{
		Sender:      toBrevoAddress(from),
		To:          toBrevoAddresses(msg.To),
		Cc:          toBrevoAddresses(msg.Cc),
		Bcc:         toBrevoAddresses(msg.Bcc),
		Subject:     msg.Subject,
		HTMLContent: msg.HTMLBody,
		TextContent: msg.TextBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var out brevoResponse
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode < 300 {
			return "", err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %d %s %s", ErrBrevoUnexpectedStatus, resp.StatusCode, out.Code, out.Message)
	}

	return out.MessageID, nil
}

// Close releases idle connections.
func (b *Brevo) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

func toBrevoAddress(s string) brevoAddress {
	addr, err := netmail.ParseAddress(s)
	if err != nil {
		return brevoAddress{Email: s}
	}
	return brevoAddress{Name: addr.Name, Email: addr.Address}
}

func toBrevoAddresses(list []string) []brevoAddress {
	if len(list) == 0 {
		return nil
	}
	out := make([]brevoAddress, 0, len(list))
	for _, s := range list {
		out = append(out, toBrevoAddress(s))
	}
	return out
}
