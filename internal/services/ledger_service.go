package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coursepay_echo/internal/models"
)

// BalanceInstallment is one installment row in a balance view, its paid flag
// derived from the payments list, never from a stored boolean.
type BalanceInstallment struct {
	Index  int     `json:"index"`
	Amount float64 `json:"amount"`
	IsPaid bool    `json:"is_paid"`
}

// Balance is the outstanding-balance view of an enrollment.
type Balance struct {
	Installments    []BalanceInstallment `json:"installments"`
	TotalAmount     float64              `json:"total_amount"`
	PaidAmount      float64              `json:"paid_amount"`
	RemainingAmount float64              `json:"remaining_amount"`
}

// TimelineEntry is one installment with its concrete due date.
type TimelineEntry struct {
	Index   int        `json:"index"`
	DueDate time.Time  `json:"due_date"`
	Amount  float64    `json:"amount"`
	IsPaid  bool       `json:"is_paid"`
	PaidOn  *time.Time `json:"paid_on"`
}

// Timeline is the dated view of an enrollment.
type Timeline struct {
	Entries         []TimelineEntry `json:"timeline"`
	TotalAmount     float64         `json:"total_amount"`
	PaidAmount      float64         `json:"paid_amount"`
	RemainingAmount float64         `json:"remaining_amount"`
}

// ApplyLedgerPayment appends a completed-payment fact to a ledger, skipping
// the append when the installment index already has a paid entry. Replays
// return applied=false with the ledger untouched; that is a success, not an
// error. Pure: callers persist the mutated ledger themselves.
func ApplyLedgerPayment(l *models.UserLedger, index int, amount float64, orderID string, paidAt time.Time) (bool, error) {
	if index < 0 || index >= len(l.PlanSnapshot.Installments) {
		return false, fmt.Errorf("%w: index %d, plan has %d installments",
			ErrIndexOutOfRange, index, len(l.PlanSnapshot.Installments))
	}
	if l.HasPaid(index) {
		return false, nil
	}

	l.Payments = append(l.Payments, models.LedgerPayment{
		InstallmentIndex: index,
		Amount:           amount,
		PaidAt:           paidAt,
		OrderID:          orderID,
		Status:           models.LedgerPaymentStatusPaid,
	})
	l.Recompute()
	refreshNextDue(l)
	return true, nil
}

// remainingAmount clamps float noise around zero the same way
// UserLedger.Recompute does, so views and stored state agree.
func remainingAmount(total, paid float64) float64 {
	remaining := total - paid
	if math.Abs(remaining) < 0.005 {
		return 0
	}
	return remaining
}

// refreshNextDue recomputes the advisory NextDueDate cache: the due date of
// the lowest unpaid installment, nil once everything is paid.
func refreshNextDue(l *models.UserLedger) {
	anchor := l.AnchorDate()
	for i := range l.PlanSnapshot.Installments {
		if !l.HasPaid(i) {
			due := DueDateAt(anchor, i)
			l.NextDueDate = &due
			return
		}
	}
	l.NextDueDate = nil
}

// LedgerBalance derives the balance view from ledger facts.
func LedgerBalance(l *models.UserLedger) Balance {
	installments := make([]BalanceInstallment, len(l.PlanSnapshot.Installments))
	for i, inst := range l.PlanSnapshot.Installments {
		installments[i] = BalanceInstallment{
			Index:  i,
			Amount: inst.Amount,
			IsPaid: l.HasPaid(i),
		}
	}
	paid := l.PaidAmount()
	return Balance{
		Installments:    installments,
		TotalAmount:     l.PlanSnapshot.TotalAmount,
		PaidAmount:      paid,
		RemainingAmount: remainingAmount(l.PlanSnapshot.TotalAmount, paid),
	}
}

// LedgerTimeline derives the dated view from ledger facts. Due dates are
// measured from the anchor date (installment-0 payment time, or creation
// time until that exists).
func LedgerTimeline(l *models.UserLedger) Timeline {
	anchor := l.AnchorDate()
	dueDates := DueDates(anchor, len(l.PlanSnapshot.Installments))

	entries := make([]TimelineEntry, len(l.PlanSnapshot.Installments))
	for i, inst := range l.PlanSnapshot.Installments {
		entry := TimelineEntry{
			Index:   i,
			DueDate: dueDates[i],
			Amount:  inst.Amount,
		}
		if p := l.PaymentFor(i); p != nil {
			entry.IsPaid = true
			paidOn := p.PaidAt
			entry.PaidOn = &paidOn
		}
		entries[i] = entry
	}

	paid := l.PaidAmount()
	return Timeline{
		Entries:         entries,
		TotalAmount:     l.PlanSnapshot.TotalAmount,
		PaidAmount:      paid,
		RemainingAmount: remainingAmount(l.PlanSnapshot.TotalAmount, paid),
	}
}

// LedgerService owns all reads and writes of UserLedger rows.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Enroll creates the ledger for (userID, courseID) with a frozen snapshot of
// the plan as it stands right now. This is the only place the snapshot is
// ever written.
func (s *LedgerService) Enroll(ctx context.Context, userID, courseID uint, plan *models.InstallmentPlan) (*models.UserLedger, error) {
	snapshot := models.PlanSnapshot{
		PlanType:             plan.PlanType,
		TotalAmount:          plan.TotalAmount,
		NumberOfInstallments: plan.NumberOfInstallments,
		Installments:         make([]models.PlanInstallment, len(plan.Installments)),
	}
	copy(snapshot.Installments, plan.Installments)

	ledger := models.UserLedger{
		UserID:            userID,
		CourseID:          courseID,
		InstallmentPlanID: plan.ID,
		PlanSnapshot:      snapshot,
		Payments:          []models.LedgerPayment{},
		RemainingAmount:   plan.TotalAmount,
		Status:            models.LedgerStatusPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.UserLedger
		err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).First(&existing).Error
		if err == nil {
			return fmt.Errorf("%w: user %d course %d", ErrAlreadyEnrolled, userID, courseID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&ledger).Error
	})
	if err != nil {
		return nil, err
	}

	refreshNextDue(&ledger)
	if err := s.db.WithContext(ctx).Model(&ledger).Update("next_due_date", ledger.NextDueDate).Error; err != nil {
		// Advisory cache only; the reminder task filters on it, reads derive
		// their own dates.
		log.Printf("failed to cache next due date for ledger %d: %v", ledger.ID, err)
	}
	return &ledger, nil
}

// Get fetches the ledger for (userID, courseID).
func (s *LedgerService) Get(ctx context.Context, userID, courseID uint) (*models.UserLedger, error) {
	var ledger models.UserLedger
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&ledger).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d course %d", ErrLedgerNotFound, userID, courseID)
		}
		return nil, err
	}
	return &ledger, nil
}

// RecordPayment appends a payment fact under a row lock, so two concurrent
// webhook deliveries for the same installment cannot both pass the
// already-paid check. Returns applied=false on a replay.
func (s *LedgerService) RecordPayment(ctx context.Context, userID, courseID uint, index int, amount float64, orderID string) (*models.UserLedger, bool, error) {
	var ledger models.UserLedger
	applied := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND course_id = ?", userID, courseID).
			First(&ledger).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user %d course %d", ErrLedgerNotFound, userID, courseID)
			}
			return err
		}

		applied, err = ApplyLedgerPayment(&ledger, index, amount, orderID, time.Now())
		if err != nil || !applied {
			return err
		}
		return tx.Save(&ledger).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &ledger, applied, nil
}

// OutstandingBalance derives the balance view for an enrollment.
func (s *LedgerService) OutstandingBalance(ctx context.Context, userID, courseID uint) (*Balance, error) {
	ledger, err := s.Get(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	balance := LedgerBalance(ledger)
	return &balance, nil
}

// GetTimeline derives the dated installment view for an enrollment.
func (s *LedgerService) GetTimeline(ctx context.Context, userID, courseID uint) (*Timeline, error) {
	ledger, err := s.Get(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	timeline := LedgerTimeline(ledger)
	return &timeline, nil
}
