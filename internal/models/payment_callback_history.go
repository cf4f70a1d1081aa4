package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PaymentCallbackHistory stores every accepted gateway webhook body verbatim,
// keyed by the gateway order it referenced. Audit only; the UserLedger is the
// source of truth.
type PaymentCallbackHistory struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	PaymentGateway PaymentGateway  `gorm:"type:varchar(50);not null" json:"payment_gateway"`
	OrderID        string          `gorm:"type:varchar(100);index" json:"order_id"`
	Event          string          `gorm:"type:varchar(100)" json:"event"`
	Metadata       json.RawMessage `gorm:"type:jsonb" json:"metadata"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}
