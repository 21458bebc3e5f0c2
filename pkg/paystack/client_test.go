package paystack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shutupnraveee/backend/pkg/config"
	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
	"github.com/shutupnraveee/backend/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logg := logger.New(logger.Options{ServiceName: "test"})

	client, err := NewClient(context.Background(), config.PaystackConfig{
		SecretKey: "sk_test_secret",
		BaseURL:   server.URL,
		Currency:  "NGN",
	}, logg)
	require.NoError(t, err)
	return client, server
}

func TestInitializeReturnsAuthorization(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": true,
			"message": "Authorization URL created",
			"data": {
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code": "abc123",
				"reference": "ORD-2026-A1B2C3"
			}
		}`))
	}))

	auth, err := client.Initialize(context.Background(), InitializeParams{
		Reference:   "ORD-2026-A1B2C3",
		Email:       "raver@example.com",
		AmountMinor: 500000,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc123", auth.AuthorizationURL)
	assert.Equal(t, "ORD-2026-A1B2C3", auth.Reference)
}

func TestInitializeRejectsInvalidParams(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := client.Initialize(context.Background(), InitializeParams{Email: "a@b.c", AmountMinor: 100})
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())

	_, err = client.Initialize(context.Background(), InitializeParams{Reference: "ORD-2026-A1B2C3", Email: "a@b.c"})
	require.Error(t, err)
}

func TestVerifySuccessfulPayment(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/ORD-2026-A1B2C3", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {
				"id": 4099260516,
				"status": "success",
				"reference": "ORD-2026-A1B2C3",
				"amount": 525000
			}
		}`))
	}))

	result, err := client.Verify(context.Background(), "ORD-2026-A1B2C3")
	require.NoError(t, err)
	assert.True(t, result.Succeeded)
	assert.Equal(t, int64(525000), result.AmountMinor)
	assert.Equal(t, "4099260516", result.GatewayRef)
}

func TestVerifyDeclinedPaymentIsNotAnError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {
				"id": 4099260517,
				"status": "failed",
				"reference": "ORD-2026-D4E5F6",
				"amount": 525000
			}
		}`))
	}))

	result, err := client.Verify(context.Background(), "ORD-2026-D4E5F6")
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
	assert.Equal(t, "failed", result.Status)
}

func TestVerifyGatewayFailureMapsToDependencyError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.Verify(context.Background(), "ORD-2026-A1B2C3")
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeDependency, domainErr.Code())
}

func TestVerifyUnknownReferenceMapsToNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status": false, "message": "Transaction reference not found"}`))
	}))

	_, err := client.Verify(context.Background(), "ORD-2026-ZZZZZZ")
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeNotFound, domainErr.Code())
}

func TestRedactHidesSensitiveKeys(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "[REDACTED]", c.redact("email", "raver@example.com"))
	assert.Equal(t, "[REDACTED]", c.redact("secret_key", "sk_live"))
	assert.Equal(t, "ok", c.redact("status", "ok"))
}
