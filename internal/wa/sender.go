package wa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client talks to the WhatsApp Cloud API messages endpoint.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	phoneNumberID string
	accessToken   string
	logger        *zerolog.Logger
}

func NewClient(baseURL, phoneNumberID, accessToken string, logger *zerolog.Logger) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       baseURL,
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		logger:        logger,
	}
}

type sendEnvelope struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *Text        `json:"text,omitempty"`
	Interactive      *Interactive `json:"interactive,omitempty"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Send posts one outbound message to a customer phone number.
func (c *Client) Send(ctx context.Context, to string, msg *OutboundMessage) error {
	envelope := sendEnvelope{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             msg.Type,
		Text:             msg.Text,
		Interactive:      msg.Interactive,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal outbound message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if c.logger != nil {
			c.logger.Debug().Str("to", to).Str("type", msg.Type).Msg("outbound message sent")
		}
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("whatsapp api %d: %s (%s)", resp.StatusCode, apiErr.Error.Message, apiErr.Error.Type)
	}
	return fmt.Errorf("whatsapp api %d: %s", resp.StatusCode, string(body))
}
