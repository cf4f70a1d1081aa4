package models

import (
	"time"

	"gorm.io/gorm"
)

// LegacyInstallment is the pre-ledger embedded representation of one
// installment: a flag and a date, with no order-level audit trail.
type LegacyInstallment struct {
	Amount            float64    `json:"amount"`
	IsPaid            bool       `json:"is_paid"`
	PaidDate          *time.Time `json:"paid_date"`
	InstallmentNumber int        `json:"installment_number"`
}

// CoursePurchase is the old course-purchase record with installments embedded
// directly on it. Read-only: new enrollments always create a UserLedger, and
// this record is only consulted when no ledger exists (see LegacyBridge).
type CoursePurchase struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID      uint        `gorm:"index:idx_course_purchases_user_course" json:"user_id"`
	CourseID    uint        `gorm:"index:idx_course_purchases_user_course" json:"course_id"`
	PaymentMode PaymentMode `gorm:"type:varchar(20)" json:"payment_mode"`
	TotalAmount float64     `gorm:"type:decimal(15,2)" json:"total_amount"`

	LegacyInstallments []LegacyInstallment `gorm:"serializer:json;type:jsonb" json:"legacy_installments"`

	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Course Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}
