package services

import (
	"testing"
	"time"
)

func TestDueDatesMonthlyOffsets(t *testing.T) {
	anchor := time.Date(2025, time.January, 15, 10, 30, 0, 0, time.UTC)

	dates := DueDates(anchor, 3)
	want := []time.Time{
		anchor,
		time.Date(2025, time.February, 15, 10, 30, 0, 0, time.UTC),
		time.Date(2025, time.March, 15, 10, 30, 0, 0, time.UTC),
	}

	if len(dates) != len(want) {
		t.Fatalf("got %d dates; want %d", len(dates), len(want))
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Errorf("dates[%d] = %v; want %v", i, dates[i], want[i])
		}
	}
}

func TestDueDatesEndOfMonthClamp(t *testing.T) {
	tests := []struct {
		name   string
		anchor time.Time
		count  int
		want   []time.Time
	}{
		{
			name:   "january 31 clamps to february 28",
			anchor: time.Date(2025, time.January, 31, 9, 0, 0, 0, time.UTC),
			count:  3,
			want: []time.Time{
				time.Date(2025, time.January, 31, 9, 0, 0, 0, time.UTC),
				time.Date(2025, time.February, 28, 9, 0, 0, 0, time.UTC),
				time.Date(2025, time.March, 31, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name:   "day 30 clamps only in february",
			anchor: time.Date(2025, time.January, 30, 9, 0, 0, 0, time.UTC),
			count:  3,
			want: []time.Time{
				time.Date(2025, time.January, 30, 9, 0, 0, 0, time.UTC),
				time.Date(2025, time.February, 28, 9, 0, 0, 0, time.UTC),
				time.Date(2025, time.March, 30, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name:   "august 31 clamps to september 30",
			anchor: time.Date(2025, time.August, 31, 9, 0, 0, 0, time.UTC),
			count:  3,
			want: []time.Time{
				time.Date(2025, time.August, 31, 9, 0, 0, 0, time.UTC),
				time.Date(2025, time.September, 30, 9, 0, 0, 0, time.UTC),
				time.Date(2025, time.October, 31, 9, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dates := DueDates(tt.anchor, tt.count)
			if len(dates) != len(tt.want) {
				t.Fatalf("got %d dates; want %d", len(dates), len(tt.want))
			}
			for i := range tt.want {
				if !dates[i].Equal(tt.want[i]) {
					t.Errorf("dates[%d] = %v; want %v", i, dates[i], tt.want[i])
				}
			}
		})
	}
}

func TestDueDateAt(t *testing.T) {
	anchor := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)

	if got, want := DueDateAt(anchor, 0), anchor; !got.Equal(want) {
		t.Errorf("DueDateAt(anchor, 0) = %v; want %v", got, want)
	}
	if got, want := DueDateAt(anchor, 4), time.Date(2025, time.October, 10, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("DueDateAt(anchor, 4) = %v; want %v", got, want)
	}
}

func TestDueDatesEmpty(t *testing.T) {
	if dates := DueDates(time.Now(), 0); dates != nil {
		t.Errorf("DueDates(_, 0) = %v; want nil", dates)
	}
}
