package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key_id", user)
		assert.Equal(t, "secret", pass)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 31000, body["amount"])
		assert.Equal(t, "INR", body["currency"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"order_abc","entity":"order","amount":31000,"currency":"INR","receipt":"r1","status":"created"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "key_id", "secret", time.Second, zerolog.Nop())
	intent, err := c.CreateIntent(context.Background(), 31000, "INR", "r1")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", intent.ID)
	assert.EqualValues(t, 31000, intent.Amount)
	assert.Equal(t, "key_id", c.KeyID())
}

func TestCreateIntentAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "s", time.Second, zerolog.Nop())
	_, err := c.CreateIntent(context.Background(), 1, "INR", "r")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "BAD_REQUEST_ERROR", apiErr.Code)
	assert.False(t, apiErr.Temporary())
	assert.Contains(t, err.Error(), "amount too small")
}

func TestCreateIntentTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "s", 50*time.Millisecond, zerolog.Nop())
	_, err := c.CreateIntent(context.Background(), 100, "INR", "r")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to reach gateway"))
}

func TestVerifySignature(t *testing.T) {
	c := New("http://unused", "k", "shh", time.Second, zerolog.Nop())
	sig := Sign("shh", "order_1", "pay_1")

	assert.Len(t, sig, 64)
	assert.True(t, c.VerifySignature("order_1", "pay_1", sig))
	assert.True(t, c.VerifySignature("order_1", "pay_1", strings.ToUpper(sig)))
	assert.False(t, c.VerifySignature("order_1", "pay_2", sig))
	assert.False(t, c.VerifySignature("order_1", "pay_1", Sign("other", "order_1", "pay_1")))
	assert.False(t, c.VerifySignature("order_1", "pay_1", ""))
}
