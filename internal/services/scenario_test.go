package services

import (
	"testing"
	"time"

	"coursepay_echo/internal/models"
)

// Walks one enrollment from plan construction through a partially paid
// schedule, checking the balance, timeline, and access views agree at every
// step.
func TestInstallmentLifecycle(t *testing.T) {
	entries, total, err := BuildSchedule(ScheduleInput{
		Price:                3000,
		NumberOfInstallments: 3,
		PlanDurationMonths:   3,
	}, DefaultMinimumInstallment)
	if err != nil {
		t.Fatalf("BuildSchedule() error = %v", err)
	}
	if !amountsClose(total, 3000) {
		t.Fatalf("total = %v; want 3000", total)
	}

	ledger := &models.UserLedger{
		CreatedAt: time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC),
		UserID:    7,
		CourseID:  42,
		PlanSnapshot: models.PlanSnapshot{
			PlanType:             "3_months",
			TotalAmount:          total,
			NumberOfInstallments: len(entries),
			Installments:         entries,
		},
		Payments:        []models.LedgerPayment{},
		RemainingAmount: total,
		Status:          models.LedgerStatusPending,
	}

	// Before any payment the enrollment gate holds.
	decision := EvaluateAccess(LedgerTimeline(ledger).Entries, ledger.CreatedAt)
	if decision.HasAccess || decision.Reason != ReasonFirstInstallmentUnpaid {
		t.Fatalf("pre-payment decision = %+v; want denied on installment 0", decision)
	}

	// Installment 0 settles two days after enrollment and becomes the anchor.
	paidAt := ledger.CreatedAt.AddDate(0, 0, 2)
	applied, err := ApplyLedgerPayment(ledger, 0, 1000, "course-order-1", paidAt)
	if err != nil || !applied {
		t.Fatalf("ApplyLedgerPayment() = (%v, %v); want applied", applied, err)
	}

	balance := LedgerBalance(ledger)
	if !amountsClose(balance.PaidAmount, 1000) || !amountsClose(balance.RemainingAmount, 2000) {
		t.Errorf("balance = paid %v remaining %v; want 1000 and 2000", balance.PaidAmount, balance.RemainingAmount)
	}

	timeline := LedgerTimeline(ledger)
	for i, entry := range timeline.Entries {
		if want := DueDateAt(paidAt, i); !entry.DueDate.Equal(want) {
			t.Errorf("entry %d due date = %v; want %v", i, entry.DueDate, want)
		}
	}

	// Fifteen days in, nothing is due yet.
	decision = EvaluateAccess(timeline.Entries, paidAt.AddDate(0, 0, 15))
	if !decision.HasAccess || decision.Reason != ReasonPaymentsCurrent {
		t.Errorf("decision at day 15 = %+v; want access granted", decision)
	}
	if decision.NextDueInstallment == nil || decision.NextDueInstallment.Index != 1 {
		t.Errorf("next due = %+v; want installment 1", decision.NextDueInstallment)
	}

	// At installment 2's exact due date, only installment 1 is overdue.
	decision = EvaluateAccess(timeline.Entries, timeline.Entries[2].DueDate)
	if decision.HasAccess {
		t.Error("access should be denied with installment 1 overdue")
	}
	if len(decision.OverdueInstallments) != 1 {
		t.Fatalf("got %d overdue installments; want 1", len(decision.OverdueInstallments))
	}
	if overdue := decision.OverdueInstallments[0]; overdue.Index != 1 || !amountsClose(overdue.Amount, 1000) {
		t.Errorf("overdue = %+v; want installment 1 for 1000", overdue)
	}
	if !amountsClose(decision.OverdueTotal, 1000) {
		t.Errorf("overdue total = %v; want 1000", decision.OverdueTotal)
	}

	// Settling the remaining installments completes the ledger and restores
	// access permanently.
	for _, index := range []int{1, 2} {
		if _, err := ApplyLedgerPayment(ledger, index, 1000, "course-order-x", paidAt.AddDate(0, index, 0)); err != nil {
			t.Fatalf("ApplyLedgerPayment(%d) error = %v", index, err)
		}
	}
	if ledger.Status != models.LedgerStatusCompleted {
		t.Errorf("status = %q; want completed", ledger.Status)
	}

	decision = EvaluateAccess(LedgerTimeline(ledger).Entries, paidAt.AddDate(2, 0, 0))
	if !decision.HasAccess {
		t.Errorf("decision after completion = %+v; want access granted", decision)
	}
}
