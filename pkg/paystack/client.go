package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shutupnraveee/backend/pkg/config"
	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
	"github.com/shutupnraveee/backend/pkg/logger"
)

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errLoggerRequired    = errors.New("paystack logger is required")
)

// Client exposes Paystack transaction primitives with centralized auth,
// logging, and error mapping.
type Client struct {
	httpClient *http.Client
	secretKey  string
	baseURL    string
	currency   string
	logger     *logger.Logger
}

// InitializeParams carries the inputs for creating a hosted payment session.
type InitializeParams struct {
	Reference   string
	Email       string
	AmountMinor int64
	CallbackURL string
	Metadata    map[string]any
}

// Authorization is the hosted checkout session handed back to the storefront.
type Authorization struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyResult reports the settled state of one transaction. Succeeded is
// false for declined or abandoned payments; those are outcomes, not errors.
type VerifyResult struct {
	Reference   string
	Succeeded   bool
	Status      string
	AmountMinor int64
	GatewayRef  string
	PaidAt      *time.Time
}

// NewClient initializes the Paystack wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretKeyRequired
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		secretKey:  secret,
		baseURL:    baseURL,
		currency:   cfg.Currency,
		logger:     logg,
	}

	logg.Info(ctx, "paystack client initialized")
	return c, nil
}

// Initialize creates a hosted payment session for the provided reference.
// Amounts are passed through in minor units unchanged.
func (c *Client) Initialize(ctx context.Context, params InitializeParams) (*Authorization, error) {
	if strings.TrimSpace(params.Reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	if strings.TrimSpace(params.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer email is required")
	}
	if params.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	c.log(ctx, "request", "initialize_transaction", map[string]any{
		"reference":    params.Reference,
		"amount_minor": params.AmountMinor,
		"email":        params.Email,
	})

	body := map[string]any{
		"email":     params.Email,
		"amount":    params.AmountMinor,
		"reference": params.Reference,
		"currency":  c.currency,
	}
	if params.CallbackURL != "" {
		body["callback_url"] = params.CallbackURL
	}
	if len(params.Metadata) > 0 {
		body["metadata"] = params.Metadata
	}

	var payload struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &payload); err != nil {
		c.log(ctx, "error", "initialize_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}
	if !payload.Status {
		err := pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paystack initialize rejected: %s", payload.Message))
		c.log(ctx, "error", "initialize_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "initialize_transaction", map[string]any{
		"reference":   payload.Data.Reference,
		"access_code": payload.Data.AccessCode,
	})
	return &Authorization{
		AuthorizationURL: payload.Data.AuthorizationURL,
		AccessCode:       payload.Data.AccessCode,
		Reference:        payload.Data.Reference,
	}, nil
}

// Verify fetches the settled state of the transaction behind reference.
// A declined or abandoned payment returns Succeeded=false with a nil error;
// errors are reserved for cases where the true outcome is unknown.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	c.log(ctx, "request", "verify_transaction", map[string]any{"reference": reference})

	var payload struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Status    string     `json:"status"`
			Reference string     `json:"reference"`
			Amount    int64      `json:"amount"`
			ID        json.Number `json:"id"`
			PaidAt    *time.Time `json:"paid_at"`
		} `json:"data"`
	}
	path := "/transaction/verify/" + url.PathEscape(reference)
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		c.log(ctx, "error", "verify_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}
	if !payload.Status {
		err := pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paystack verify rejected: %s", payload.Message))
		c.log(ctx, "error", "verify_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}

	result := &VerifyResult{
		Reference:   payload.Data.Reference,
		Succeeded:   payload.Data.Status == "success",
		Status:      payload.Data.Status,
		AmountMinor: payload.Data.Amount,
		GatewayRef:  payload.Data.ID.String(),
		PaidAt:      payload.Data.PaidAt,
	}

	c.log(ctx, "response", "verify_transaction", map[string]any{
		"reference": result.Reference,
		"status":    result.Status,
		"succeeded": result.Succeeded,
	})
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding paystack request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building paystack request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling paystack")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading paystack response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return c.mapHTTPError(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paystack response")
		}
	}
	return nil
}

func (c *Client) mapHTTPError(status int, raw []byte) error {
	message := "paystack request failed"
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
	case http.StatusNotFound:
		code = pkgerrors.CodeNotFound
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
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("paystack %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("paystack %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "token", "secret", "email", "phone", "authorization"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
