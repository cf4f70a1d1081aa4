package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"coursepay_echo/internal/models"
)

// LegacyBridge serves balance and timeline reads from the pre-ledger
// embedded installment array. Strictly read-only migration tolerance: it is
// never consulted when a UserLedger exists, and new enrollments never write
// this representation.
type LegacyBridge struct {
	db *gorm.DB
}

func NewLegacyBridge(db *gorm.DB) *LegacyBridge {
	return &LegacyBridge{db: db}
}

// lookup finds an installment-mode legacy purchase for (userID, courseID).
// Reuses ErrLedgerNotFound so callers fall through the same way whichever
// representation is missing.
func (b *LegacyBridge) lookup(ctx context.Context, userID, courseID uint) (*models.CoursePurchase, error) {
	var purchase models.CoursePurchase
	err := b.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND payment_mode = ?", userID, courseID, models.PaymentModeInstallment).
		First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no legacy record for user %d course %d", ErrLedgerNotFound, userID, courseID)
		}
		return nil, err
	}
	if len(purchase.LegacyInstallments) == 0 {
		return nil, fmt.Errorf("%w: legacy record for user %d course %d has no installments", ErrLedgerNotFound, userID, courseID)
	}
	return &purchase, nil
}

// legacyEntries normalizes the embedded array into dated timeline entries,
// ordered by installment number.
func legacyEntries(purchase *models.CoursePurchase) []TimelineEntry {
	installments := make([]models.LegacyInstallment, len(purchase.LegacyInstallments))
	copy(installments, purchase.LegacyInstallments)
	sort.Slice(installments, func(i, j int) bool {
		return installments[i].InstallmentNumber < installments[j].InstallmentNumber
	})

	anchor := purchase.CreatedAt
	for _, inst := range installments {
		if inst.InstallmentNumber == 0 && inst.IsPaid && inst.PaidDate != nil {
			anchor = *inst.PaidDate
			break
		}
	}
	dueDates := DueDates(anchor, len(installments))

	entries := make([]TimelineEntry, len(installments))
	for i, inst := range installments {
		entries[i] = TimelineEntry{
			Index:   inst.InstallmentNumber,
			DueDate: dueDates[i],
			Amount:  inst.Amount,
			IsPaid:  inst.IsPaid,
			PaidOn:  inst.PaidDate,
		}
	}
	return entries
}

// GetOutstandingBalance mirrors LedgerService.OutstandingBalance over the
// legacy representation.
func (b *LegacyBridge) GetOutstandingBalance(ctx context.Context, userID, courseID uint) (*Balance, error) {
	purchase, err := b.lookup(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	var total, paid float64
	installments := make([]BalanceInstallment, 0, len(purchase.LegacyInstallments))
	for _, entry := range legacyEntries(purchase) {
		total += entry.Amount
		if entry.IsPaid {
			paid += entry.Amount
		}
		installments = append(installments, BalanceInstallment{
			Index:  entry.Index,
			Amount: entry.Amount,
			IsPaid: entry.IsPaid,
		})
	}
	if purchase.TotalAmount > 0 {
		total = purchase.TotalAmount
	}

	return &Balance{
		Installments:    installments,
		TotalAmount:     total,
		PaidAmount:      paid,
		RemainingAmount: total - paid,
	}, nil
}

// GetTimeline mirrors LedgerService.GetTimeline over the legacy
// representation.
func (b *LegacyBridge) GetTimeline(ctx context.Context, userID, courseID uint) (*Timeline, error) {
	purchase, err := b.lookup(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	entries := legacyEntries(purchase)
	var total, paid float64
	for _, entry := range entries {
		total += entry.Amount
		if entry.IsPaid {
			paid += entry.Amount
		}
	}
	if purchase.TotalAmount > 0 {
		total = purchase.TotalAmount
	}

	return &Timeline{
		Entries:         entries,
		TotalAmount:     total,
		PaidAmount:      paid,
		RemainingAmount: total - paid,
	}, nil
}
