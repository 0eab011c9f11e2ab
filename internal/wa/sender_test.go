package wa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSend(t *testing.T) {
	logger := zerolog.Nop()

	var gotPath, gotAuth string
	var gotEnvelope sendEnvelope

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotEnvelope))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.test"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "1234567890", "test-token", &logger)
	err := client.Send(context.Background(), "15550001111", NewText("hello"))
	require.NoError(t, err)

	assert.Equal(t, "/1234567890/messages", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "whatsapp", gotEnvelope.MessagingProduct)
	assert.Equal(t, "individual", gotEnvelope.RecipientType)
	assert.Equal(t, "15550001111", gotEnvelope.To)
	assert.Equal(t, "text", gotEnvelope.Type)
	require.NotNil(t, gotEnvelope.Text)
	assert.Equal(t, "hello", gotEnvelope.Text.Body)
}

func TestClientSendAPIError(t *testing.T) {
	logger := zerolog.Nop()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter","type":"OAuthException","code":100}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "1234567890", "test-token", &logger)
	err := client.Send(context.Background(), "15550001111", NewText("hello"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid parameter")
	assert.Contains(t, err.Error(), "400")
}

func TestClientSendInteractivePayload(t *testing.T) {
	logger := zerolog.Nop()

	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	msg, err := testBuilder().BuildSlotSelection(makeSlots(2), "en")
	require.NoError(t, err)

	client := NewClient(srv.URL, "1234567890", "test-token", &logger)
	require.NoError(t, client.Send(context.Background(), "15550001111", msg))

	_, hasInteractive := raw["interactive"]
	assert.True(t, hasInteractive)
	_, hasText := raw["text"]
	assert.False(t, hasText, "interactive messages must not carry a text field")
}
