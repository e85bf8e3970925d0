package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfarm/internal/config"
)

func TestSendTextMessage(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v20.0/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{AccessToken: "tok", PhoneNumberID: "12345", BaseURL: srv.URL + "/", APIVersion: "v20.0"})
	resp, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "254700000001", Body: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "wamid.1", resp.MessageID())
	assert.Equal(t, "254700000001", body["to"])
	assert.Equal(t, "text", body["type"])
	assert.Equal(t, "hello", body["text"].(map[string]any)["body"])
}

func TestSendTextMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter","type":"OAuthException","code":100}}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{AccessToken: "tok", PhoneNumberID: "1", BaseURL: srv.URL, APIVersion: "v20.0"})
	_, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "1", Body: "x"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, 100, apiErr.Code)
	assert.Equal(t, "Invalid parameter", apiErr.Message)
}

func TestMessageIDOnEmptyResponse(t *testing.T) {
	var r *SendTextMessageResponse
	assert.Empty(t, r.MessageID())
	assert.Empty(t, (&SendTextMessageResponse{}).MessageID())
}
