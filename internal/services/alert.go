package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

// Alert is one operational event worth a human's attention, e.g. a payment
// that was captured at the gateway but could not be booked into a ledger.
type Alert struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
	SentAt  time.Time              `json:"sent_at"`
}

// AlertService posts alerts to an ops webhook endpoint. Delivery is
// best-effort: an unreachable webhook degrades to a log line, it never
// blocks or fails the calling operation.
type AlertService struct {
	webhookURL string
	apiKey     string
	client     *http.Client
}

func NewAlertService(webhookURL, apiKey string) *AlertService {
	return &AlertService{
		webhookURL: webhookURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *AlertService) Send(ctx context.Context, alert Alert) {
	alert.SentAt = time.Now()

	if s.webhookURL == "" {
		log.Printf("alert (no webhook configured) %s: %s", alert.Code, alert.Message)
		return
	}

	data, err := json.Marshal(alert)
	if err != nil {
		log.Printf("failed to marshal alert %s: %v", alert.Code, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(data))
	if err != nil {
		log.Printf("failed to build alert request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("failed to deliver alert %s: %v", alert.Code, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("alert webhook returned %d: %s", resp.StatusCode, string(body))
	}
}
