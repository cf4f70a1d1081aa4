package services

import (
	"errors"
	"math"
	"testing"
)

func amountsClose(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuildSchedule(t *testing.T) {
	tests := []struct {
		name        string
		input       ScheduleInput
		minimum     float64
		wantAmounts []float64
		wantTotal   float64
	}{
		{
			name: "even split without adjustments",
			input: ScheduleInput{
				Price:                6000,
				NumberOfInstallments: 2,
				PlanDurationMonths:   6,
			},
			minimum:     50,
			wantAmounts: []float64{3000, 3000},
			wantTotal:   6000,
		},
		{
			name: "discount applied before split",
			input: ScheduleInput{
				Price:                6000,
				DiscountPercent:      10,
				NumberOfInstallments: 3,
				PlanDurationMonths:   6,
			},
			minimum:     50,
			wantAmounts: []float64{1800, 1800, 1800},
			wantTotal:   5400,
		},
		{
			name: "tax and handling fee inflate the total",
			input: ScheduleInput{
				Price:                1000,
				TaxPercent:           10,
				HandlingFeePercent:   2,
				NumberOfInstallments: 2,
				PlanDurationMonths:   12,
			},
			minimum:     50,
			wantAmounts: []float64{560, 560},
			wantTotal:   1120,
		},
		{
			name: "rounding remainder lands on the first installment",
			input: ScheduleInput{
				Price:                100,
				NumberOfInstallments: 3,
				PlanDurationMonths:   3,
			},
			minimum:     10,
			wantAmounts: []float64{33.34, 33.33, 33.33},
			wantTotal:   100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, total, err := BuildSchedule(tt.input, tt.minimum)
			if err != nil {
				t.Fatalf("BuildSchedule() error = %v", err)
			}
			if !amountsClose(total, tt.wantTotal) {
				t.Errorf("total = %v; want %v", total, tt.wantTotal)
			}
			if len(entries) != len(tt.wantAmounts) {
				t.Fatalf("got %d installments; want %d", len(entries), len(tt.wantAmounts))
			}
			var sum float64
			for i, entry := range entries {
				if !amountsClose(entry.Amount, tt.wantAmounts[i]) {
					t.Errorf("installment %d amount = %v; want %v", i, entry.Amount, tt.wantAmounts[i])
				}
				if entry.DueDateOffset != i {
					t.Errorf("installment %d due date offset = %d; want %d", i, entry.DueDateOffset, i)
				}
				sum += entry.Amount
			}
			if !amountsClose(sum, total) {
				t.Errorf("installments sum to %v; want exactly the total %v", sum, total)
			}
		})
	}
}

func TestBuildScheduleErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   ScheduleInput
		minimum float64
		wantErr error
	}{
		{
			name: "zero installments",
			input: ScheduleInput{
				Price:                1000,
				NumberOfInstallments: 0,
				PlanDurationMonths:   6,
			},
			minimum: 50,
			wantErr: ErrInvalidInstallmentCount,
		},
		{
			name: "more installments than plan months",
			input: ScheduleInput{
				Price:                1000,
				NumberOfInstallments: 7,
				PlanDurationMonths:   6,
			},
			minimum: 50,
			wantErr: ErrInvalidInstallmentCount,
		},
		{
			name: "discount above 100 percent",
			input: ScheduleInput{
				Price:                1000,
				DiscountPercent:      150,
				NumberOfInstallments: 2,
				PlanDurationMonths:   6,
			},
			minimum: 50,
			wantErr: ErrInvalidDiscountRange,
		},
		{
			name: "negative tax percent",
			input: ScheduleInput{
				Price:                1000,
				TaxPercent:           -5,
				NumberOfInstallments: 2,
				PlanDurationMonths:   6,
			},
			minimum: 50,
			wantErr: ErrInvalidDiscountRange,
		},
		{
			name: "zero price",
			input: ScheduleInput{
				Price:                0,
				NumberOfInstallments: 2,
				PlanDurationMonths:   6,
			},
			minimum: 50,
			wantErr: ErrInvalidPrice,
		},
		{
			name: "negative price",
			input: ScheduleInput{
				Price:                -100,
				NumberOfInstallments: 2,
				PlanDurationMonths:   6,
			},
			minimum: 50,
			wantErr: ErrInvalidPrice,
		},
		{
			name: "installment below the minimum",
			input: ScheduleInput{
				Price:                60,
				NumberOfInstallments: 2,
				PlanDurationMonths:   6,
			},
			minimum: 50,
			wantErr: ErrInstallmentTooSmall,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := BuildSchedule(tt.input, tt.minimum)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("BuildSchedule() error = %v; want %v", err, tt.wantErr)
			}
		})
	}
}
