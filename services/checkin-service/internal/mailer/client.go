package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Client sends mail through the Gmail REST API. It builds the raw RFC 822
// message itself; replies carry In-Reply-To/References headers plus the
// Gmail threadId so they land in the original conversation.
type Client struct {
	baseURL string
	token   string
	from    string
	client  *http.Client
}

var _ Sender = (*Client)(nil)

// New creates a Gmail client.
func New(baseURL, token, from string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		from:    from,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewFromConfig creates a Gmail client from viper configuration.
func NewFromConfig() *Client {
	baseURL := viper.GetString("gmail.api_url")
	if baseURL == "" {
		baseURL = "https://gmail.googleapis.com"
	}
	return New(baseURL, viper.GetString("gmail.token"), viper.GetString("gmail.from"))
}

type sendRequest struct {
	Raw      string `json:"raw"`
	ThreadID string `json:"threadId,omitempty"`
}

// Send implements Sender.Send.
func (c *Client) Send(ctx context.Context, msg Message) (*SendResult, error) {
	payload := sendRequest{
		Raw:      base64.URLEncoding.EncodeToString(rawMessage(c.from, msg)),
		ThreadID: msg.ThreadID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode send request: %w", err)
	}

	endpoint := c.baseURL + "/gmail/v1/users/me/messages/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gmail returned status %d: %s", resp.StatusCode, string(raw))
	}

	var result SendResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode send response: %w", err)
	}
	return &result, nil
}

// rawMessage renders the RFC 822 text/plain message.
func rawMessage(from string, msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	if msg.InReplyTo != "" {
		fmt.Fprintf(&b, "In-Reply-To: %s\r\n", msg.InReplyTo)
		fmt.Fprintf(&b, "References: %s\r\n", msg.InReplyTo)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.Bytes()
}
