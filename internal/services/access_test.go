package services

import (
	"testing"
	"time"
)

func paidEntry(index int, amount float64, due time.Time) TimelineEntry {
	paidOn := due
	return TimelineEntry{Index: index, DueDate: due, Amount: amount, IsPaid: true, PaidOn: &paidOn}
}

func unpaidEntry(index int, amount float64, due time.Time) TimelineEntry {
	return TimelineEntry{Index: index, DueDate: due, Amount: amount}
}

func TestEvaluateAccessNoEntries(t *testing.T) {
	decision := EvaluateAccess(nil, time.Now())
	if !decision.HasAccess {
		t.Error("no installment record should grant access")
	}
	if decision.Reason != ReasonFullPayment {
		t.Errorf("reason = %q; want %q", decision.Reason, ReasonFullPayment)
	}
}

func TestEvaluateAccessFirstInstallmentGate(t *testing.T) {
	now := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	entries := []TimelineEntry{
		unpaidEntry(0, 1000, now),
		unpaidEntry(1, 1000, now.AddDate(0, 1, 0)),
	}

	decision := EvaluateAccess(entries, now)
	if decision.HasAccess {
		t.Error("access should be denied before installment 0 is paid")
	}
	if decision.Reason != ReasonFirstInstallmentUnpaid {
		t.Errorf("reason = %q; want %q", decision.Reason, ReasonFirstInstallmentUnpaid)
	}
}

func TestEvaluateAccessPaymentsCurrent(t *testing.T) {
	anchor := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	entries := []TimelineEntry{
		paidEntry(0, 1000, anchor),
		unpaidEntry(1, 1000, anchor.AddDate(0, 1, 0)),
		unpaidEntry(2, 1000, anchor.AddDate(0, 2, 0)),
	}

	decision := EvaluateAccess(entries, anchor.AddDate(0, 0, 15))
	if !decision.HasAccess {
		t.Error("access should be granted while nothing is overdue")
	}
	if decision.Reason != ReasonPaymentsCurrent {
		t.Errorf("reason = %q; want %q", decision.Reason, ReasonPaymentsCurrent)
	}
	if decision.NextDueInstallment == nil || decision.NextDueInstallment.Index != 1 {
		t.Errorf("next due = %+v; want installment 1", decision.NextDueInstallment)
	}
}

func TestEvaluateAccessDueDateBoundary(t *testing.T) {
	anchor := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	due := anchor.AddDate(0, 1, 0)
	entries := []TimelineEntry{
		paidEntry(0, 1000, anchor),
		unpaidEntry(1, 1000, due),
	}

	// Exactly at the due date is still on time.
	decision := EvaluateAccess(entries, due)
	if !decision.HasAccess || decision.Reason != ReasonPaymentsCurrent {
		t.Errorf("at the due date: decision = %+v; want access granted", decision)
	}

	decision = EvaluateAccess(entries, due.AddDate(0, 0, 1))
	if decision.HasAccess {
		t.Error("one day past due should deny access")
	}
	if decision.Reason != ReasonInstallmentsOverdue {
		t.Errorf("reason = %q; want %q", decision.Reason, ReasonInstallmentsOverdue)
	}
	if len(decision.OverdueInstallments) != 1 || decision.OverdueInstallments[0].DaysPastDue != 1 {
		t.Errorf("overdue = %+v; want installment 1 one day past due", decision.OverdueInstallments)
	}
}

func TestEvaluateAccessCollectsAllOverdue(t *testing.T) {
	anchor := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	entries := []TimelineEntry{
		paidEntry(0, 1000, anchor),
		unpaidEntry(1, 800, anchor.AddDate(0, 1, 0)),
		unpaidEntry(2, 800, anchor.AddDate(0, 2, 0)),
		unpaidEntry(3, 800, anchor.AddDate(0, 3, 0)),
	}

	now := anchor.AddDate(0, 2, 3)
	decision := EvaluateAccess(entries, now)
	if decision.HasAccess {
		t.Error("access should be denied with overdue installments")
	}
	if len(decision.OverdueInstallments) != 2 {
		t.Fatalf("got %d overdue installments; want 2", len(decision.OverdueInstallments))
	}
	if !amountsClose(decision.OverdueTotal, 1600) {
		t.Errorf("overdue total = %v; want 1600", decision.OverdueTotal)
	}
	wantDays := []int{33, 3}
	for i, overdue := range decision.OverdueInstallments {
		if overdue.DaysPastDue != wantDays[i] {
			t.Errorf("overdue[%d] days past due = %d; want %d", i, overdue.DaysPastDue, wantDays[i])
		}
	}
}

func TestEvaluateAccessFullyPaid(t *testing.T) {
	anchor := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	entries := []TimelineEntry{
		paidEntry(0, 1000, anchor),
		paidEntry(1, 1000, anchor.AddDate(0, 1, 0)),
	}

	decision := EvaluateAccess(entries, anchor.AddDate(1, 0, 0))
	if !decision.HasAccess {
		t.Error("fully paid schedule should grant access")
	}
	if decision.Reason != ReasonPaymentsCurrent {
		t.Errorf("reason = %q; want %q", decision.Reason, ReasonPaymentsCurrent)
	}
	if decision.NextDueInstallment != nil {
		t.Errorf("next due = %+v; want nil", decision.NextDueInstallment)
	}
}
