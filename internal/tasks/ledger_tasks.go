package tasks

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"coursepay_echo/internal/models"
	"coursepay_echo/internal/services"
)

// SweepDefaultedLedgersDef re-derives the defaulted flag on pending ledgers.
// The flag is advisory reporting state only; access decisions never read it,
// they are recomputed from payment facts on every request.
type SweepDefaultedLedgersDef struct{}

// TaskID returns the unique identifier for this task
func (t *SweepDefaultedLedgersDef) TaskID() string {
	return "sweep_defaulted_ledgers"
}

// HandleExecution flags every pending ledger that has an unpaid installment
// past its due date.
func (t *SweepDefaultedLedgersDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	var ledgers []models.UserLedger
	if err := db.WithContext(ctx).Where("status = ?", models.LedgerStatusPending).Find(&ledgers).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	flagged := 0
	for i := range ledgers {
		ledger := &ledgers[i]
		decision := services.EvaluateAccess(services.LedgerTimeline(ledger).Entries, now)
		if decision.Reason != services.ReasonInstallmentsOverdue {
			continue
		}
		err := db.WithContext(ctx).Model(ledger).
			Where("status = ?", models.LedgerStatusPending).
			Update("status", models.LedgerStatusDefaulted).Error
		if err != nil {
			log.Printf("failed to flag ledger %d as defaulted: %v", ledger.ID, err)
			continue
		}
		flagged++
	}

	return map[string]interface{}{
		"status":  "success",
		"scanned": len(ledgers),
		"flagged": flagged,
	}, nil
}

// SweepDefaultedLedgersTask is the singleton instance of SweepDefaultedLedgersDef
var SweepDefaultedLedgersTask = &SweepDefaultedLedgersDef{}

// SendDueRemindersDef emails students whose next installment falls due
// within the reminder window.
type SendDueRemindersDef struct {
	Email *services.EmailService
}

// TaskID returns the unique identifier for this task
func (t *SendDueRemindersDef) TaskID() string {
	return "send_due_reminders"
}

// HandleExecution sends one reminder per ledger with an installment due in
// the next `window_days` (default 3) days.
func (t *SendDueRemindersDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	windowDays := 3
	if v, ok := task.Arguments["window_days"].(float64); ok && v > 0 {
		windowDays = int(v)
	}

	now := time.Now()
	horizon := now.AddDate(0, 0, windowDays)

	var ledgers []models.UserLedger
	err := db.WithContext(ctx).
		Preload("User").Preload("Course").
		Where("status = ? AND next_due_date IS NOT NULL AND next_due_date BETWEEN ? AND ?",
			models.LedgerStatusPending, now, horizon).
		Find(&ledgers).Error
	if err != nil {
		return nil, err
	}

	sent := 0
	for i := range ledgers {
		ledger := &ledgers[i]

		// Re-derive the due installment rather than trusting the cache.
		timeline := services.LedgerTimeline(ledger)
		var due *services.TimelineEntry
		for j := range timeline.Entries {
			entry := timeline.Entries[j]
			if !entry.IsPaid && entry.DueDate.After(now) && entry.DueDate.Before(horizon) {
				due = &entry
				break
			}
		}
		if due == nil || ledger.User.Email == "" {
			continue
		}

		if err := t.Email.SendDueReminder(ledger.User.Email, ledger.Course.Title, due.Index, due.Amount, due.DueDate); err != nil {
			log.Printf("failed to send reminder for ledger %d: %v", ledger.ID, err)
			continue
		}
		sent++
	}

	return map[string]interface{}{
		"status": "success",
		"sent":   sent,
	}, nil
}

// SendDueRemindersTask is the singleton instance of SendDueRemindersDef
var SendDueRemindersTask = &SendDueRemindersDef{}

// DefineTasks registers all available tasks
func DefineTasks(email *services.EmailService) {
	SendDueRemindersTask.Email = email

	RegisterHandler(SweepDefaultedLedgersTask.TaskID(), SweepDefaultedLedgersTask.HandleExecution)
	RegisterHandler(SendDueRemindersTask.TaskID(), SendDueRemindersTask.HandleExecution)
}
