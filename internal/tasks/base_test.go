package tasks

import (
	"testing"
	"time"

	"coursepay_echo/internal/models"
)

func TestBuildScheduledTask(t *testing.T) {
	due := time.Date(2025, time.September, 1, 6, 0, 0, 0, time.UTC)
	interval := "FREQ=DAILY"

	task, err := BuildScheduledTask("send_due_reminders",
		map[string]interface{}{"window_days": 3},
		due, &interval, models.ScheduledTaskTypeRecurring, 5)
	if err != nil {
		t.Fatalf("BuildScheduledTask() error = %v", err)
	}

	if task.TaskName != "send_due_reminders" {
		t.Errorf("task name = %q; want send_due_reminders", task.TaskName)
	}
	if !task.Due.Equal(due) {
		t.Errorf("due = %v; want %v", task.Due, due)
	}
	if task.RecurringInterval == nil || *task.RecurringInterval != interval {
		t.Errorf("recurring interval = %v; want %q", task.RecurringInterval, interval)
	}
	if task.Status != models.ScheduledTaskStatusActive {
		t.Errorf("status = %q; want active", task.Status)
	}
	if task.TaskType != models.ScheduledTaskTypeRecurring {
		t.Errorf("task type = %q; want recurring", task.TaskType)
	}
	if task.MaxAttempt != 5 {
		t.Errorf("max attempt = %d; want 5", task.MaxAttempt)
	}
	// Arguments go through a JSON round trip, so numbers come back as float64.
	if v, ok := task.Arguments["window_days"].(float64); !ok || v != 3 {
		t.Errorf("arguments[window_days] = %v; want 3", task.Arguments["window_days"])
	}
}

func TestBuildScheduledTaskStructArgs(t *testing.T) {
	args := struct {
		WindowDays int `json:"window_days"`
	}{WindowDays: 7}

	task, err := BuildScheduledTask("send_due_reminders", args,
		time.Now(), nil, models.ScheduledTaskTypeOneTime, 3)
	if err != nil {
		t.Fatalf("BuildScheduledTask() error = %v", err)
	}
	if v, ok := task.Arguments["window_days"].(float64); !ok || v != 7 {
		t.Errorf("arguments[window_days] = %v; want 7", task.Arguments["window_days"])
	}
	if task.RecurringInterval != nil {
		t.Errorf("recurring interval = %v; want nil", task.RecurringInterval)
	}
}

func TestBuildScheduledTaskRejectsNonObjectArgs(t *testing.T) {
	if _, err := BuildScheduledTask("sweep_defaulted_ledgers", []int{1, 2},
		time.Now(), nil, models.ScheduledTaskTypeOneTime, 1); err == nil {
		t.Error("expected an error for non-object arguments")
	}
}
