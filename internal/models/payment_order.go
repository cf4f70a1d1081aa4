package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type PaymentGateway string

const (
	PaymentGatewayMidtrans PaymentGateway = "midtrans"
	PaymentGatewayManual   PaymentGateway = "manual"
)

// OrderStatus is the gateway-facing order lifecycle:
// created -> paid (terminal) or created -> failed (terminal).
type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "created"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusPartial OrderStatus = "partial"
	OrderStatusFailed  OrderStatus = "failed"
)

// PaymentMode distinguishes a one-shot full purchase from an installment one.
type PaymentMode string

const (
	PaymentModeFull        PaymentMode = "full"
	PaymentModeInstallment PaymentMode = "installment"
)

// OrderInstallmentDetails ties an order to the installment it pays for.
// IsPaid mirrors Status==paid; historically the two could desync, so read
// paths repair it (see Reconciler.ListPaidOrders).
type OrderInstallmentDetails struct {
	InstallmentIndex  int     `json:"installment_index"`
	TotalInstallments int     `json:"total_installments"`
	InstallmentAmount float64 `json:"installment_amount"`
	IsPaid            bool    `json:"is_paid"`
}

// PaymentOrder is one gateway order, created when a payment attempt starts
// and flipped to a terminal status by the reconciler on webhook confirmation.
type PaymentOrder struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	OrderID          string         `gorm:"type:varchar(100);uniqueIndex" json:"order_id"`
	Amount           float64        `gorm:"type:decimal(15,2)" json:"amount"`
	Currency         string         `gorm:"type:varchar(10);default:'IDR'" json:"currency"`
	Status           OrderStatus    `gorm:"type:varchar(20);default:'created'" json:"status"`
	UserID           uint           `gorm:"index" json:"user_id"`
	CourseID         uint           `gorm:"index" json:"course_id"`
	PaymentMode      PaymentMode    `gorm:"type:varchar(20)" json:"payment_mode"`
	PaymentGateway   PaymentGateway `gorm:"type:varchar(50);default:'midtrans'" json:"payment_gateway"`
	GatewayPaymentID string         `gorm:"type:varchar(100)" json:"gateway_payment_id"`
	PaidAt           *time.Time     `json:"paid_at"`

	InstallmentDetails *OrderInstallmentDetails `gorm:"serializer:json;type:jsonb" json:"installment_details"`

	// Raw gateway request/response, kept for session resume and debugging.
	RequestMetadata  json.RawMessage `gorm:"type:jsonb" json:"request_metadata"`
	ResponseMetadata json.RawMessage `gorm:"type:jsonb" json:"response_metadata"`

	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Course Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

// Terminal reports whether the order reached a final state; a webhook for a
// terminal order is a no-op.
func (o *PaymentOrder) Terminal() bool {
	return o.Status == OrderStatusPaid || o.Status == OrderStatusFailed
}
