package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"coursepay_echo/internal/models"
)

// Gateway webhook events the reconciler acts on.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// webhookEntity is the payment entity inside a gateway webhook.
type webhookEntity struct {
	OrderID string  `json:"order_id"`
	ID      string  `json:"id"`
	Amount  float64 `json:"amount"`
	Status  string  `json:"status"`
}

type webhookPayment struct {
	Entity *webhookEntity `json:"entity"`
}

type webhookPayload struct {
	Payment *webhookPayment `json:"payment"`
}

// WebhookEnvelope is the signed JSON body the gateway posts:
// {event, payload: {payment: {entity: {order_id, id, amount, status}}}}.
type WebhookEnvelope struct {
	Event   string          `json:"event"`
	Payload *webhookPayload `json:"payload"`
}

// VerifyWebhookSignature checks the hex HMAC-SHA256 of the raw body against
// the shared secret. Mandatory and fail-closed: nothing is processed on a
// mismatch.
func VerifyWebhookSignature(secret string, body []byte, signature string) error {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// ParseWebhook decodes and structurally validates a webhook body.
func ParseWebhook(body []byte) (*WebhookEnvelope, error) {
	var envelope WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if envelope.Event == "" {
		return nil, fmt.Errorf("%w: missing event", ErrMalformedWebhook)
	}
	if envelope.Payload == nil {
		return nil, fmt.Errorf("%w: missing payload", ErrMalformedWebhook)
	}
	if envelope.Payload.Payment == nil || envelope.Payload.Payment.Entity == nil {
		return nil, fmt.Errorf("%w: missing payment entity", ErrMalformedWebhook)
	}
	if envelope.Payload.Payment.Entity.OrderID == "" {
		return nil, fmt.Errorf("%w: missing order id", ErrMalformedWebhook)
	}
	return &envelope, nil
}

// ReceiptSender delivers the paid-in-full receipt once a ledger settles.
// *EmailService satisfies it.
type ReceiptSender interface {
	SendPaidInFullReceipt(to, courseTitle string, total float64) error
}

// WebhookResult reports what a webhook delivery actually changed.
type WebhookResult struct {
	Applied       bool `json:"applied"`
	LedgerUpdated bool `json:"ledger_updated"`
}

// Reconciler bridges gateway webhook events to PaymentOrder and UserLedger
// mutations, idempotently under at-least-once delivery.
type Reconciler struct {
	db            *gorm.DB
	ledgers       *LedgerService
	granter       AccessGranter
	alerts        *AlertService
	receipts      ReceiptSender
	cache         *RedisCache
	webhookSecret string
}

func NewReconciler(db *gorm.DB, ledgers *LedgerService, granter AccessGranter, alerts *AlertService, receipts ReceiptSender, cache *RedisCache, webhookSecret string) *Reconciler {
	return &Reconciler{
		db:            db,
		ledgers:       ledgers,
		granter:       granter,
		alerts:        alerts,
		receipts:      receipts,
		cache:         cache,
		webhookSecret: webhookSecret,
	}
}

// HandleWebhook processes one signed gateway delivery end to end.
//
// Two layers protect against replays: the order status transition is a
// conditional UPDATE that only fires from "created", and the ledger append
// skips installment indexes that already have a paid entry. A delivery for
// an already-terminal order is acknowledged without touching anything.
func (r *Reconciler) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if err := VerifyWebhookSignature(r.webhookSecret, body, signature); err != nil {
		return nil, err
	}

	envelope, err := ParseWebhook(body)
	if err != nil {
		return nil, err
	}
	entity := envelope.Payload.Payment.Entity

	// Best-effort dedup of concurrent deliveries; correctness does not
	// depend on it, the conditional update below does the real work.
	if r.cache != nil {
		lockKey := fmt.Sprintf("webhook:order:%s", entity.OrderID)
		if ok, err := r.cache.SetNX(ctx, lockKey, envelope.Event, 30*time.Second); err == nil && ok {
			defer func() { _ = r.cache.Delete(ctx, lockKey) }()
		}
	}

	var order models.PaymentOrder
	if err := r.db.WithContext(ctx).Where("order_id = ?", entity.OrderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, entity.OrderID)
		}
		return nil, err
	}

	r.recordCallback(ctx, envelope, body)

	if order.Terminal() {
		return &WebhookResult{Applied: false}, nil
	}

	switch envelope.Event {
	case EventPaymentCaptured:
		return r.applyCapture(ctx, &order, entity)
	case EventPaymentFailed:
		res := r.db.WithContext(ctx).Model(&models.PaymentOrder{}).
			Where("order_id = ? AND status = ?", order.OrderID, models.OrderStatusCreated).
			Updates(map[string]interface{}{
				"status":             models.OrderStatusFailed,
				"gateway_payment_id": entity.ID,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		return &WebhookResult{Applied: res.RowsAffected > 0}, nil
	default:
		// Unknown events are acknowledged so the gateway stops retrying.
		return &WebhookResult{Applied: false}, nil
	}
}

// applyCapture performs the created -> paid transition and the downstream
// ledger bookkeeping.
func (r *Reconciler) applyCapture(ctx context.Context, order *models.PaymentOrder, entity *webhookEntity) (*WebhookResult, error) {
	now := time.Now()

	updates := map[string]interface{}{
		"status":             models.OrderStatusPaid,
		"paid_at":            &now,
		"gateway_payment_id": entity.ID,
	}
	if order.InstallmentDetails != nil {
		details := *order.InstallmentDetails
		details.IsPaid = true
		updates["installment_details"] = details
	}

	res := r.db.WithContext(ctx).Model(&models.PaymentOrder{}).
		Where("order_id = ? AND status = ?", order.OrderID, models.OrderStatusCreated).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the race against a concurrent delivery; the payment is
		// recorded, acknowledge without re-applying.
		return &WebhookResult{Applied: false}, nil
	}

	result := &WebhookResult{Applied: true}

	// Payment capture is committed from here on. Ledger bookkeeping errors
	// are alerted, never allowed to "un-record" the payment.
	if order.PaymentMode == models.PaymentModeInstallment && order.InstallmentDetails != nil {
		ledger, _, err := r.ledgers.RecordPayment(ctx, order.UserID, order.CourseID,
			order.InstallmentDetails.InstallmentIndex, entity.Amount, order.OrderID)
		if err != nil {
			r.alertReconcileFailed(ctx, order, err)
			return result, nil
		}
		result.LedgerUpdated = true

		if ledger.Status == models.LedgerStatusCompleted {
			if err := r.granter.GrantCourseAccess(ctx, order.UserID, order.CourseID); err != nil {
				r.alertReconcileFailed(ctx, order, fmt.Errorf("grant course access: %w", err))
			}
			r.notifyCompletion(ctx, order, ledger)
		}
	}

	return result, nil
}

// notifyCompletion loads the recipient and course for the paid-in-full
// receipt. Best-effort, like all post-capture notifications.
func (r *Reconciler) notifyCompletion(ctx context.Context, order *models.PaymentOrder, ledger *models.UserLedger) {
	if r.receipts == nil {
		return
	}
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, order.UserID).Error; err != nil {
		log.Printf("failed to load user %d for receipt: %v", order.UserID, err)
		return
	}
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, order.CourseID).Error; err != nil {
		log.Printf("failed to load course %d for receipt: %v", order.CourseID, err)
		return
	}
	sendCompletionReceipt(r.receipts, &user, &course, ledger)
}

// sendCompletionReceipt emails the paid-in-full receipt for a fully settled
// ledger. A failed send is logged, never propagated.
func sendCompletionReceipt(receipts ReceiptSender, user *models.User, course *models.Course, ledger *models.UserLedger) {
	if receipts == nil || user.Email == "" || ledger.Status != models.LedgerStatusCompleted {
		return
	}
	if err := receipts.SendPaidInFullReceipt(user.Email, course.Title, ledger.PlanSnapshot.TotalAmount); err != nil {
		log.Printf("failed to send paid-in-full receipt to %s: %v", user.Email, err)
	}
}

func (r *Reconciler) recordCallback(ctx context.Context, envelope *WebhookEnvelope, body []byte) {
	history := models.PaymentCallbackHistory{
		PaymentGateway: models.PaymentGatewayMidtrans,
		OrderID:        envelope.Payload.Payment.Entity.OrderID,
		Event:          envelope.Event,
		Metadata:       json.RawMessage(body),
	}
	if err := r.db.WithContext(ctx).Create(&history).Error; err != nil {
		log.Printf("failed to record callback history for order %s: %v", history.OrderID, err)
	}
}

func (r *Reconciler) alertReconcileFailed(ctx context.Context, order *models.PaymentOrder, cause error) {
	log.Printf("RECONCILE_FAILED order=%s user=%d course=%d: %v", order.OrderID, order.UserID, order.CourseID, cause)
	if r.alerts == nil {
		return
	}
	r.alerts.Send(ctx, Alert{
		Code:    "RECONCILE_FAILED",
		Message: cause.Error(),
		Fields: map[string]interface{}{
			"order_id":  order.OrderID,
			"user_id":   order.UserID,
			"course_id": order.CourseID,
		},
	})
}

// ListPaidOrders returns a user's paid orders, self-healing the historical
// status/isPaid desync on the way out: a paid order whose installment
// details still say unpaid gets the flag flipped and persisted. The repair
// writes a constant value, so concurrent repairs cannot conflict.
func (r *Reconciler) ListPaidOrders(ctx context.Context, userID uint) ([]models.PaymentOrder, error) {
	var orders []models.PaymentOrder
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.OrderStatusPaid).
		Order("created_at desc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	for i := range orders {
		order := &orders[i]
		if order.InstallmentDetails == nil || order.InstallmentDetails.IsPaid {
			continue
		}
		order.InstallmentDetails.IsPaid = true
		res := r.db.WithContext(ctx).Model(order).
			Update("installment_details", *order.InstallmentDetails)
		if res.Error != nil {
			log.Printf("failed to repair installment details on order %s: %v", order.OrderID, res.Error)
		}
	}
	return orders, nil
}
