package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// LedgerStatus is the derived lifecycle of an enrollment ledger.
type LedgerStatus string

const (
	LedgerStatusPending   LedgerStatus = "pending"
	LedgerStatusCompleted LedgerStatus = "completed"
	LedgerStatusDefaulted LedgerStatus = "defaulted"
)

// LedgerPaymentStatus marks a single payment entry. Entries are only ever
// appended as completed facts, so "paid" is the normal value.
type LedgerPaymentStatus string

const (
	LedgerPaymentStatusPaid LedgerPaymentStatus = "paid"
)

// LedgerPayment is one completed-payment fact, tagged with the installment
// index it settles and the gateway order that produced it.
type LedgerPayment struct {
	InstallmentIndex int                 `json:"installment_index"`
	Amount           float64             `json:"amount"`
	PaidAt           time.Time           `json:"paid_at"`
	OrderID          string              `json:"order_id"`
	Status           LedgerPaymentStatus `json:"status"`
}

// PlanSnapshot is the frozen copy of the plan taken at enrollment time.
// It is written exactly once, by Enroll, and never mutated afterwards.
type PlanSnapshot struct {
	PlanType             string            `json:"plan_type"`
	TotalAmount          float64           `json:"total_amount"`
	NumberOfInstallments int               `json:"number_of_installments"`
	Installments         []PlanInstallment `json:"installments"`
}

// UserLedger is the per-user, per-course installment record: what was
// promised (PlanSnapshot) and what was actually paid (Payments, append-only).
type UserLedger struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID            uint            `gorm:"uniqueIndex:idx_user_ledgers_user_course" json:"user_id"`
	CourseID          uint            `gorm:"uniqueIndex:idx_user_ledgers_user_course" json:"course_id"`
	InstallmentPlanID uint            `gorm:"index" json:"installment_plan_id"`
	PlanSnapshot      PlanSnapshot    `gorm:"serializer:json;type:jsonb" json:"plan_snapshot"`
	Payments          []LedgerPayment `gorm:"serializer:json;type:jsonb" json:"payments"`
	RemainingAmount   float64         `gorm:"type:decimal(15,2)" json:"remaining_amount"`
	Status            LedgerStatus    `gorm:"type:varchar(20);default:'pending'" json:"status"`
	NextDueDate       *time.Time      `json:"next_due_date"` // advisory cache

	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Course Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

// PaymentFor returns the paid entry for an installment index, or nil.
func (l *UserLedger) PaymentFor(index int) *LedgerPayment {
	for i := range l.Payments {
		p := &l.Payments[i]
		if p.InstallmentIndex == index && p.Status == LedgerPaymentStatusPaid {
			return p
		}
	}
	return nil
}

// HasPaid reports whether an installment index has a paid entry.
func (l *UserLedger) HasPaid(index int) bool {
	return l.PaymentFor(index) != nil
}

// PaidAmount sums all paid entries.
func (l *UserLedger) PaidAmount() float64 {
	var total float64
	for _, p := range l.Payments {
		if p.Status == LedgerPaymentStatusPaid {
			total += p.Amount
		}
	}
	return total
}

// AnchorDate is the date all due-date offsets are measured from: the actual
// payment time of installment 0 when available, the ledger creation time
// otherwise.
func (l *UserLedger) AnchorDate() time.Time {
	if p := l.PaymentFor(0); p != nil && !p.PaidAt.IsZero() {
		return p.PaidAt
	}
	return l.CreatedAt
}

// Recompute re-derives RemainingAmount and Status from the payment facts.
// RemainingAmount is never mutated independently of this.
func (l *UserLedger) Recompute() {
	remaining := l.PlanSnapshot.TotalAmount - l.PaidAmount()
	// Clamp float noise around zero to an exact zero.
	if math.Abs(remaining) < 0.005 {
		remaining = 0
	}
	l.RemainingAmount = remaining

	if remaining <= 0 {
		l.Status = LedgerStatusCompleted
	} else {
		// A fresh payment fact clears a defaulted flag; the overdue sweep
		// will re-flag the ledger if unpaid installments are still past due.
		l.Status = LedgerStatusPending
	}
}
