package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shutupnraveee/backend/pkg/config"
	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
	"github.com/shutupnraveee/backend/pkg/logger"
)

var (
	errAPIKeyRequired = errors.New("mailer api key is required")
	errFromRequired   = errors.New("mailer from address is required")
	errLoggerRequired = errors.New("mailer logger is required")
)

// Message is one outbound email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Client sends transactional email through the Resend HTTP API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	from       string
	logger     *logger.Logger
}

// NewClient validates the credentials and builds the mail client.
func NewClient(ctx context.Context, cfg config.ResendConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	from := strings.TrimSpace(cfg.FromEmail)
	if from == "" {
		return nil, errFromRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		from:       from,
		logger:     logg,
	}

	logg.Info(ctx, "mailer client initialized")
	return c, nil
}

// Send delivers one email and returns the provider message id.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if len(msg.To) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email recipient is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email subject is required")
	}

	c.log(ctx, "request", "send_email", map[string]any{
		"subject":    msg.Subject,
		"recipients": len(msg.To),
	})

	body := map[string]any{
		"from":    c.from,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding email request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(encoded))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building email request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling email provider")
		c.log(ctx, "error", "send_email", map[string]any{"error": wrapped.Error()})
		return "", wrapped
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading email provider response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		mapped := c.mapHTTPError(resp.StatusCode, raw)
		c.log(ctx, "error", "send_email", map[string]any{"error": mapped.Error()})
		return "", mapped
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding email provider response")
	}

	c.log(ctx, "response", "send_email", map[string]any{"message_id": payload.ID})
	return payload.ID, nil
}

func (c *Client) mapHTTPError(status int, raw []byte) error {
	message := "email send failed"
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		message = payload.Message
	}

	code := pkgerrors.CodeDependency
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = pkgerrors.CodeUnauthorized
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		code = pkgerrors.CodeValidation
	}
	return pkgerrors.New(code, fmt.Sprintf("%s (http %d)", message, status))
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("mailer %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("mailer %s", phase))
	}
}
