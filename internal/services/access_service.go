package services

import (
	"context"
	"errors"
	"time"
)

// AccessReason explains an access decision.
type AccessReason string

const (
	ReasonFullPayment            AccessReason = "FULL_PAYMENT"
	ReasonFirstInstallmentUnpaid AccessReason = "FIRST_INSTALLMENT_UNPAID"
	ReasonInstallmentsOverdue    AccessReason = "INSTALLMENTS_OVERDUE"
	ReasonPaymentsCurrent        AccessReason = "PAYMENTS_CURRENT"
)

// OverdueInstallment describes one unpaid installment past its due date.
type OverdueInstallment struct {
	Index       int       `json:"index"`
	Amount      float64   `json:"amount"`
	DueDate     time.Time `json:"due_date"`
	DaysPastDue int       `json:"days_past_due"`
}

// AccessDecision is the grant/deny outcome for one (user, course) pair.
// Never persisted: always recomputed from ledger facts, so it cannot go
// stale independently of payment state.
type AccessDecision struct {
	HasAccess           bool                 `json:"has_access"`
	Reason              AccessReason         `json:"reason"`
	OverdueInstallments []OverdueInstallment `json:"overdue_installments,omitempty"`
	OverdueTotal        float64              `json:"overdue_total,omitempty"`
	NextDueInstallment  *TimelineEntry       `json:"next_due_installment,omitempty"`
}

// EvaluateAccess computes the access decision from a dated installment view
// and the current time. Pure.
//
// Overdue is a strict comparison: a payment made on the exact due date is
// on time.
func EvaluateAccess(entries []TimelineEntry, now time.Time) AccessDecision {
	if len(entries) == 0 {
		return AccessDecision{HasAccess: true, Reason: ReasonFullPayment}
	}

	// Enrollment gate: nothing is accessible until installment 0 is paid.
	if !entries[0].IsPaid {
		return AccessDecision{HasAccess: false, Reason: ReasonFirstInstallmentUnpaid}
	}

	var overdue []OverdueInstallment
	var overdueTotal float64
	var next *TimelineEntry

	for i := 1; i < len(entries); i++ {
		entry := entries[i]
		if entry.IsPaid {
			continue
		}
		if now.After(entry.DueDate) {
			overdue = append(overdue, OverdueInstallment{
				Index:       entry.Index,
				Amount:      entry.Amount,
				DueDate:     entry.DueDate,
				DaysPastDue: int(now.Sub(entry.DueDate).Hours() / 24),
			})
			overdueTotal += entry.Amount
		} else if next == nil {
			e := entry
			next = &e
		}
	}

	if len(overdue) > 0 {
		return AccessDecision{
			HasAccess:           false,
			Reason:              ReasonInstallmentsOverdue,
			OverdueInstallments: overdue,
			OverdueTotal:        overdueTotal,
		}
	}

	return AccessDecision{
		HasAccess:          true,
		Reason:             ReasonPaymentsCurrent,
		NextDueInstallment: next,
	}
}

// AccessService answers content-access checks. The UserLedger is the
// preferred source of truth; the legacy bridge is consulted only when no
// ledger row exists, and a user with no installment record at all is
// governed elsewhere (full-payment purchases).
type AccessService struct {
	ledgers *LedgerService
	bridge  *LegacyBridge
}

func NewAccessService(ledgers *LedgerService, bridge *LegacyBridge) *AccessService {
	return &AccessService{ledgers: ledgers, bridge: bridge}
}

func (s *AccessService) CheckAccess(ctx context.Context, userID, courseID uint) (*AccessDecision, error) {
	ledger, err := s.ledgers.Get(ctx, userID, courseID)
	if err == nil {
		decision := EvaluateAccess(LedgerTimeline(ledger).Entries, time.Now())
		return &decision, nil
	}
	if !errors.Is(err, ErrLedgerNotFound) {
		return nil, err
	}

	timeline, err := s.bridge.GetTimeline(ctx, userID, courseID)
	if err == nil {
		decision := EvaluateAccess(timeline.Entries, time.Now())
		return &decision, nil
	}
	if !errors.Is(err, ErrLedgerNotFound) {
		return nil, err
	}

	return &AccessDecision{HasAccess: true, Reason: ReasonFullPayment}, nil
}
