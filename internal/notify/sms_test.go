package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMSClient_Send(t *testing.T) {
	var got smsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewSMSClient(srv.URL, "key-1", "DUKA")
	err := c.Send(context.Background(), "+254700000001", "your order is in")

	require.NoError(t, err)
	assert.Equal(t, "+254700000001", got.To)
	assert.Equal(t, "your order is in", got.Message)
	assert.Equal(t, "DUKA", got.Sender)
}

func TestSMSClient_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewSMSClient(srv.URL, "key-1", "")
	err := c.Send(context.Background(), "+254700000001", "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
