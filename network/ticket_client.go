package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// NotificationClient is the ticketing/notification sink. The pipeline
// posts a subject and body; delivery mechanics (email, chat relay,
// ticket updates) are the receiving system's business.
type NotificationClient interface {
	Post(subject, body string) error
}

// TicketClient implements NotificationClient against the ticketing
// system's REST endpoint.
type TicketClient struct {
	URL        string
	httpClient *http.Client
}

func NewTicketClient(url string) *TicketClient {
	return &TicketClient{
		URL: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type ticketPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (client *TicketClient) Post(subject, body string) error {
	payload, err := json.Marshal(ticketPayload{Subject: subject, Body: body})
	if err != nil {
		return err
	}
	resp, err := client.httpClient.Post(client.URL, "application/json",
		bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("cannot reach ticket service at '%s': %v",
			client.URL, err)
	}
	defer resp.Body.Close()
	// Read the body so the connection can be reused.
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ticket service returned status %d: %s",
			resp.StatusCode, string(respBody))
	}
	return nil
}
