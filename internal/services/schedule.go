package services

import (
	"fmt"
	"math"
	"time"

	"github.com/teambition/rrule-go"

	"coursepay_echo/internal/models"
)

// DefaultMinimumInstallment is the floor for a single installment, in
// currency units. Overridable per builder for markets with other floors.
const DefaultMinimumInstallment = 50.0

// ScheduleInput is the pricing configuration an amortized schedule is
// computed from.
type ScheduleInput struct {
	Price                float64
	DiscountPercent      float64
	TaxPercent           float64
	HandlingFeePercent   float64
	NumberOfInstallments int
	PlanDurationMonths   int
}

// floorCents truncates to 2 decimal places.
func floorCents(v float64) float64 {
	return math.Floor(v*100) / 100
}

// roundCents rounds half away from zero to 2 decimal places.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// BuildSchedule computes the ordered installment amounts for a pricing
// configuration. Amounts are floored to cents and the rounding remainder is
// absorbed by installment 0, so the entries always sum exactly to the
// discounted, taxed total. Entry i falls due i months after the anchor date.
func BuildSchedule(in ScheduleInput, minimumInstallment float64) ([]models.PlanInstallment, float64, error) {
	if in.Price <= 0 {
		return nil, 0, fmt.Errorf("%w: got %.2f", ErrInvalidPrice, in.Price)
	}
	for _, pct := range []float64{in.DiscountPercent, in.TaxPercent, in.HandlingFeePercent} {
		if pct < 0 || pct > 100 {
			return nil, 0, ErrInvalidDiscountRange
		}
	}
	if in.NumberOfInstallments < 1 {
		return nil, 0, fmt.Errorf("%w: need at least one installment", ErrInvalidInstallmentCount)
	}
	if in.NumberOfInstallments > in.PlanDurationMonths {
		return nil, 0, fmt.Errorf("%w: %d installments do not fit in a %d month plan",
			ErrInvalidInstallmentCount, in.NumberOfInstallments, in.PlanDurationMonths)
	}

	discounted := in.Price * (1 - in.DiscountPercent/100)
	total := roundCents(discounted * (1 + (in.TaxPercent+in.HandlingFeePercent)/100))

	n := in.NumberOfInstallments
	base := floorCents(total / float64(n))
	remainder := roundCents(total - base*float64(n))

	if base < minimumInstallment {
		return nil, 0, fmt.Errorf("%w: minimum installment amount is %.2f, got %.2f",
			ErrInstallmentTooSmall, minimumInstallment, base)
	}

	entries := make([]models.PlanInstallment, n)
	for i := range entries {
		amount := base
		if i == 0 {
			amount = roundCents(base + remainder)
		}
		entries[i] = models.PlanInstallment{
			Amount:        amount,
			DueDateOffset: i,
		}
	}
	return entries, total, nil
}

// DueDates expands an anchor date into n monthly due dates, entry 0 due at
// the anchor itself. Month arithmetic goes through an RFC 5545 monthly rule
// so end-of-month anchors clamp the way calendar billing expects.
func DueDates(anchor time.Time, n int) []time.Time {
	if n < 1 {
		return nil
	}
	opt := rrule.ROption{
		Freq:    rrule.MONTHLY,
		Count:   n,
		Dtstart: anchor,
	}
	// A plain monthly rule skips months that lack the anchor's day-of-month
	// (RFC 5545 semantics). Clamp day 29-31 anchors to the last day those
	// months have instead.
	if day := anchor.Day(); day > 28 {
		for d := 28; d <= day; d++ {
			opt.Bymonthday = append(opt.Bymonthday, d)
		}
		opt.Bysetpos = []int{-1}
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		dates := make([]time.Time, n)
		for i := range dates {
			dates[i] = anchor.AddDate(0, i, 0)
		}
		return dates
	}
	return rule.All()
}

// DueDateAt is the due date of a single installment index.
func DueDateAt(anchor time.Time, index int) time.Time {
	dates := DueDates(anchor, index+1)
	return dates[len(dates)-1]
}
