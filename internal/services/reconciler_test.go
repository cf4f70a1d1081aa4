package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"coursepay_echo/internal/models"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "test-webhook-secret"
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"order_id":"course-order-1"}}}}`)

	if err := VerifyWebhookSignature(secret, body, signBody(secret, body)); err != nil {
		t.Errorf("valid signature rejected: %v", err)
	}

	tests := []struct {
		name      string
		body      []byte
		signature string
	}{
		{
			name:      "tampered body",
			body:      []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"order_id":"course-order-2"}}}}`),
			signature: signBody(secret, body),
		},
		{
			name:      "wrong secret",
			body:      body,
			signature: signBody("other-secret", body),
		},
		{
			name:      "empty signature",
			body:      body,
			signature: "",
		},
		{
			name:      "garbage signature",
			body:      body,
			signature: "deadbeef",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifyWebhookSignature(secret, tt.body, tt.signature); !errors.Is(err, ErrInvalidSignature) {
				t.Errorf("VerifyWebhookSignature() error = %v; want ErrInvalidSignature", err)
			}
		})
	}
}

func TestParseWebhook(t *testing.T) {
	body := []byte(`{
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {
					"order_id": "course-order-abc",
					"id": "pay_123",
					"amount": 1500.50,
					"status": "captured"
				}
			}
		}
	}`)

	envelope, err := ParseWebhook(body)
	if err != nil {
		t.Fatalf("ParseWebhook() error = %v", err)
	}
	if envelope.Event != EventPaymentCaptured {
		t.Errorf("event = %q; want %q", envelope.Event, EventPaymentCaptured)
	}
	entity := envelope.Payload.Payment.Entity
	if entity.OrderID != "course-order-abc" {
		t.Errorf("order id = %q; want course-order-abc", entity.OrderID)
	}
	if entity.ID != "pay_123" {
		t.Errorf("gateway payment id = %q; want pay_123", entity.ID)
	}
	if !amountsClose(entity.Amount, 1500.50) {
		t.Errorf("amount = %v; want 1500.50", entity.Amount)
	}
	if entity.Status != "captured" {
		t.Errorf("status = %q; want captured", entity.Status)
	}
}

func TestParseWebhookMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "invalid json",
			body: `{"event": "payment.captured",`,
		},
		{
			name: "missing event",
			body: `{"payload":{"payment":{"entity":{"order_id":"course-order-1"}}}}`,
		},
		{
			name: "missing payload",
			body: `{"event":"payment.captured"}`,
		},
		{
			name: "missing payment entity",
			body: `{"event":"payment.captured","payload":{"payment":{}}}`,
		},
		{
			name: "missing order id",
			body: `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_123"}}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseWebhook([]byte(tt.body)); !errors.Is(err, ErrMalformedWebhook) {
				t.Errorf("ParseWebhook() error = %v; want ErrMalformedWebhook", err)
			}
		})
	}
}

type receiptRecorder struct {
	calls  int
	to     string
	course string
	total  float64
}

func (r *receiptRecorder) SendPaidInFullReceipt(to, courseTitle string, total float64) error {
	r.calls++
	r.to = to
	r.course = courseTitle
	r.total = total
	return nil
}

func TestSendCompletionReceipt(t *testing.T) {
	user := &models.User{Email: "student@example.com"}
	course := &models.Course{Title: "Intro to Algebra"}

	completed := newTestLedger(1000, 1000)
	completed.Status = models.LedgerStatusCompleted

	recorder := &receiptRecorder{}
	sendCompletionReceipt(recorder, user, course, completed)
	if recorder.calls != 1 {
		t.Fatalf("got %d sends; want 1", recorder.calls)
	}
	if recorder.to != "student@example.com" || recorder.course != "Intro to Algebra" {
		t.Errorf("receipt sent to %q for %q; want student@example.com / Intro to Algebra", recorder.to, recorder.course)
	}
	if !amountsClose(recorder.total, 2000) {
		t.Errorf("receipt total = %v; want 2000", recorder.total)
	}
}

func TestSendCompletionReceiptSkips(t *testing.T) {
	user := &models.User{Email: "student@example.com"}
	course := &models.Course{Title: "Intro to Algebra"}

	completed := newTestLedger(1000, 1000)
	completed.Status = models.LedgerStatusCompleted

	pending := newTestLedger(1000, 1000)

	tests := []struct {
		name   string
		user   *models.User
		ledger *models.UserLedger
	}{
		{name: "ledger not completed", user: user, ledger: pending},
		{name: "user has no email", user: &models.User{}, ledger: completed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &receiptRecorder{}
			sendCompletionReceipt(recorder, tt.user, course, tt.ledger)
			if recorder.calls != 0 {
				t.Errorf("got %d sends; want 0", recorder.calls)
			}
		})
	}

	// A nil sender is a no-op, not a panic.
	sendCompletionReceipt(nil, user, course, completed)
}
