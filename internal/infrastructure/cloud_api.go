package infrastructure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"zapdesk/internal/interfaces"
)

// CloudAPIClient sends messages through the WhatsApp Cloud API. Tenants that
// configure a Cloud API token use it instead of a paired device instance.
type CloudAPIClient struct {
	accessToken   string
	phoneNumberID string
	httpClient    *http.Client
}

func NewCloudAPIClient(accessToken, phoneNumberID string) interfaces.Messenger {
	return &CloudAPIClient{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *CloudAPIClient) SendMessage(to, content string) error {
	url := fmt.Sprintf("https://graph.facebook.com/v18.0/%s/messages", w.phoneNumberID)
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text": map[string]string{
			"body": content,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("cloud api status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
