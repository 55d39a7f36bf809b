// Package reminder implements the reminder evaluation rules and the
// cross-user scanner. Policy evaluation is pure: given a task and an
// instant, it decides whether a notification fires and what the task's
// reminder bookkeeping becomes afterwards. The scanner drives it across
// every user and collects notifications and dirty state for the caller
// to persist and deliver.
package reminder

import (
	"fmt"
	"time"

	"github.com/sivanlab/mazkir/pkg/types"
)

// Decision is the outcome of evaluating one task's reminder.
// When Fire is true, Message holds the notification text and the task's
// reminder config has already been updated so the same reminder cannot
// fire again for the same instant.
type Decision struct {
	Fire    bool
	Message string
}

const dateLayout = "2006-01-02"

// Evaluate applies the per-type firing rule to a task's reminder config
// at the given instant, mutating the config's bookkeeping fields when it
// fires. Only pending tasks with a reminder are eligible; everything
// else is a silent NoFire. A malformed config is an error so the caller
// can isolate it without aborting the scan.
func Evaluate(task *types.Task, now time.Time) (Decision, error) {
	if task.Status != types.StatusPending || task.Reminder == nil {
		return Decision{}, nil
	}
	now = now.UTC()
	cfg := task.Reminder

	switch cfg.Type {
	case types.ReminderSpecificTime:
		if cfg.SpecificTimeTriggered {
			return Decision{}, nil
		}
		if cfg.Time == nil {
			return Decision{}, fmt.Errorf("specific_time reminder on task %d has no time", task.ID)
		}
		if now.Before(*cfg.Time) {
			return Decision{}, nil
		}
		cfg.SpecificTimeTriggered = true
		return Decision{
			Fire:    true,
			Message: fmt.Sprintf("Reminder: Your task %q was due at %s.", task.Description, cfg.Time.Format(time.RFC3339)),
		}, nil

	case types.ReminderDaily:
		target, err := time.Parse("15:04", cfg.TimeOfDay)
		if err != nil {
			return Decision{}, fmt.Errorf("daily reminder on task %d has bad time_of_day %q: %w", task.ID, cfg.TimeOfDay, err)
		}
		today := now.Format(dateLayout)
		if cfg.LastRemindedDailyAt == today {
			return Decision{}, nil
		}
		targetMinutes := target.Hour()*60 + target.Minute()
		nowMinutes := now.Hour()*60 + now.Minute()
		if nowMinutes < targetMinutes {
			return Decision{}, nil
		}
		// A task created today at or after the target time waits until
		// tomorrow for its first reminder.
		if cfg.LastRemindedDailyAt == "" && !task.CreatedAt.IsZero() {
			created := task.CreatedAt.UTC()
			createdMinutes := created.Hour()*60 + created.Minute()
			if created.Format(dateLayout) == today && createdMinutes >= targetMinutes {
				return Decision{}, nil
			}
		}
		cfg.LastRemindedDailyAt = today
		return Decision{
			Fire:    true,
			Message: fmt.Sprintf("Daily Reminder: You have a pending task %q.", task.Description),
		}, nil

	case types.ReminderInterval:
		if cfg.Hours <= 0 {
			return Decision{}, fmt.Errorf("interval reminder on task %d has non-positive hours %v", task.ID, cfg.Hours)
		}
		if cfg.LastRemindedAt == nil {
			return Decision{}, fmt.Errorf("interval reminder on task %d has no last_reminded_at anchor", task.ID)
		}
		next := cfg.LastRemindedAt.Add(time.Duration(cfg.Hours * float64(time.Hour)))
		if now.Before(next) {
			return Decision{}, nil
		}
		// Re-anchor to wall-clock now rather than to next. Under slow
		// polling the interval stretches, which is the intended behavior.
		anchor := now
		cfg.LastRemindedAt = &anchor
		return Decision{
			Fire:    true,
			Message: fmt.Sprintf("Reminder: Your task %q is still pending (repeats every %g hours).", task.Description, cfg.Hours),
		}, nil

	default:
		return Decision{}, fmt.Errorf("task %d has unknown reminder type %q", task.ID, cfg.Type)
	}
}
