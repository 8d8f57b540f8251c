package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"example.com/dairydesk/services/billing/config"

	"github.com/pkg/errors"
)

// Credentials identify one WhatsApp gateway instance. They live in the
// settings row, not in deployment config, so the operator can rotate them
// from the UI.
type Credentials struct {
	InstanceID string
	APIToken   string
}

// Document is an outbound file message.
type Document struct {
	ChatID   string
	FileName string
	Caption  string
	Data     []byte
}

// Sender delivers a document to a chat and returns the gateway's message
// id. The core persists the id and timestamp; retries and delivery
// confirmation beyond this one call are the gateway's problem.
type Sender interface {
	SendDocument(ctx context.Context, creds Credentials, doc Document) (string, error)
}

// GreenAPIClient implements Sender against a Green API style gateway:
// POST {base}/waInstance{id}/sendFileByUpload/{token} with multipart form.
type GreenAPIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGreenAPIClient creates a new WhatsApp gateway client
func NewGreenAPIClient(cfg config.WhatsAppConfig) *GreenAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &GreenAPIClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SendDocument uploads a file message and returns the gateway message id
func (c *GreenAPIClient) SendDocument(ctx context.Context, creds Credentials, doc Document) (string, error) {
	if creds.InstanceID == "" || creds.APIToken == "" {
		return "", errors.New("whatsapp gateway is not configured")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("chatId", doc.ChatID); err != nil {
		return "", errors.Wrap(err, "failed to write chatId field")
	}
	if err := writer.WriteField("fileName", doc.FileName); err != nil {
		return "", errors.Wrap(err, "failed to write fileName field")
	}
	if err := writer.WriteField("caption", doc.Caption); err != nil {
		return "", errors.Wrap(err, "failed to write caption field")
	}
	part, err := writer.CreateFormFile("file", doc.FileName)
	if err != nil {
		return "", errors.Wrap(err, "failed to create file part")
	}
	if _, err := part.Write(doc.Data); err != nil {
		return "", errors.Wrap(err, "failed to write file data")
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, "failed to finalize multipart body")
	}

	url := fmt.Sprintf("%s/waInstance%s/sendFileByUpload/%s", c.baseURL, creds.InstanceID, creds.APIToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", errors.Wrap(err, "failed to build gateway request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "gateway request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.Errorf("gateway returned status %d: %s", resp.StatusCode, string(payload))
	}

	var result struct {
		IDMessage string `json:"idMessage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.Wrap(err, "failed to decode gateway response")
	}
	if result.IDMessage == "" {
		return "", errors.New("gateway response missing message id")
	}
	return result.IDMessage, nil
}
