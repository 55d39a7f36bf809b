package reminder

import (
	"strings"
	"testing"
	"time"

	"github.com/sivanlab/mazkir/pkg/types"
)

func pendingTask(id int, desc string, created time.Time, cfg *types.ReminderConfig) *types.Task {
	return &types.Task{
		ID:          id,
		Description: desc,
		Status:      types.StatusPending,
		CreatedAt:   created,
		UpdatedAt:   created,
		Reminder:    cfg,
	}
}

func TestEvaluateSpecificTimeNoDoubleFire(t *testing.T) {
	due := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	task := pendingTask(1, "submit taxes", due.Add(-24*time.Hour), &types.ReminderConfig{
		Type: types.ReminderSpecificTime,
		Time: &due,
	})

	before, err := Evaluate(task, due.Add(-time.Minute))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if before.Fire {
		t.Fatalf("must not fire before the due instant")
	}

	first, err := Evaluate(task, due.Add(time.Minute))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !first.Fire {
		t.Fatalf("must fire at/after the due instant")
	}
	if !strings.Contains(first.Message, "submit taxes") {
		t.Errorf("message should mention the task: %q", first.Message)
	}
	if !task.Reminder.SpecificTimeTriggered {
		t.Errorf("firing must set the triggered flag")
	}

	second, err := Evaluate(task, due.Add(time.Hour))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if second.Fire {
		t.Errorf("specific_time reminder fired twice")
	}
}

func TestEvaluateDailyOncePerDay(t *testing.T) {
	created := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	task := pendingTask(1, "morning run", created, &types.ReminderConfig{
		Type:      types.ReminderDaily,
		TimeOfDay: "09:00",
	})

	day1 := time.Date(2026, 3, 15, 9, 5, 0, 0, time.UTC)
	fires := 0
	for _, now := range []time.Time{day1, day1.Add(time.Hour), day1.Add(5 * time.Hour)} {
		d, err := Evaluate(task, now)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if d.Fire {
			fires++
		}
	}
	if fires != 1 {
		t.Fatalf("expected exactly one fire on day 1, got %d", fires)
	}
	if task.Reminder.LastRemindedDailyAt != "2026-03-15" {
		t.Errorf("last_reminded_daily_at not stamped: %q", task.Reminder.LastRemindedDailyAt)
	}

	day2 := day1.Add(24 * time.Hour)
	d, err := Evaluate(task, day2)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !d.Fire {
		t.Errorf("expected one more fire the next day")
	}
}

func TestEvaluateDailyBeforeTimeOfDay(t *testing.T) {
	created := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	task := pendingTask(1, "lunch walk", created, &types.ReminderConfig{
		Type:      types.ReminderDaily,
		TimeOfDay: "13:00",
	})

	d, err := Evaluate(task, time.Date(2026, 3, 15, 12, 59, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if d.Fire {
		t.Errorf("must not fire before time_of_day")
	}
}

func TestEvaluateDailyCreationDayGuard(t *testing.T) {
	// Created today at 10:30, reminder set for 09:00: no fire today.
	created := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	task := pendingTask(1, "new today", created, &types.ReminderConfig{
		Type:      types.ReminderDaily,
		TimeOfDay: "09:00",
	})

	d, err := Evaluate(task, time.Date(2026, 3, 15, 11, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if d.Fire {
		t.Errorf("task created after time_of_day must wait until the next day")
	}

	d, err = Evaluate(task, time.Date(2026, 3, 16, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !d.Fire {
		t.Errorf("task must fire the day after creation")
	}
}

func TestEvaluateDailyCreatedEarlierToday(t *testing.T) {
	// Created today at 08:00, reminder at 09:00: fires today.
	created := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	task := pendingTask(1, "same day", created, &types.ReminderConfig{
		Type:      types.ReminderDaily,
		TimeOfDay: "09:00",
	})

	d, err := Evaluate(task, time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !d.Fire {
		t.Errorf("task created before time_of_day should fire the same day")
	}
}

func TestEvaluateIntervalAnchor(t *testing.T) {
	t0 := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	anchor := t0
	task := pendingTask(1, "Buy milk", t0, &types.ReminderConfig{
		Type:           types.ReminderInterval,
		Hours:          1,
		LastRemindedAt: &anchor,
	})

	d, err := Evaluate(task, t0.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if d.Fire {
		t.Fatalf("must not fire 30 minutes into a 1 hour interval")
	}

	fireAt := t0.Add(61 * time.Minute)
	d, err = Evaluate(task, fireAt)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !d.Fire {
		t.Fatalf("must fire 61 minutes into a 1 hour interval")
	}
	if !strings.Contains(d.Message, "Buy milk") {
		t.Errorf("message should mention the task: %q", d.Message)
	}
	// Anchor advances to the fire instant, not to the scheduled point,
	// so the next threshold is fireAt + 1h.
	if !task.Reminder.LastRemindedAt.Equal(fireAt) {
		t.Errorf("anchor should be the fire instant, got %v", task.Reminder.LastRemindedAt)
	}

	d, err = Evaluate(task, fireAt.Add(59*time.Minute))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if d.Fire {
		t.Errorf("threshold must restart from the fire instant")
	}
}

func TestEvaluateSkipsNonPendingAndBare(t *testing.T) {
	due := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	completed := pendingTask(1, "done", due.Add(-time.Hour), &types.ReminderConfig{
		Type: types.ReminderSpecificTime,
		Time: &due,
	})
	completed.Status = types.StatusCompleted

	if d, err := Evaluate(completed, due.Add(time.Hour)); err != nil || d.Fire {
		t.Errorf("non-pending task must not fire: %v %v", d, err)
	}

	bare := pendingTask(2, "no reminder", due, nil)
	if d, err := Evaluate(bare, due.Add(time.Hour)); err != nil || d.Fire {
		t.Errorf("task without a reminder must not fire: %v %v", d, err)
	}
}

func TestEvaluateMalformedConfig(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	for _, cfg := range []*types.ReminderConfig{
		{Type: types.ReminderSpecificTime},
		{Type: types.ReminderDaily, TimeOfDay: "not a time"},
		{Type: types.ReminderInterval, Hours: 2},
		{Type: "weekly"},
	} {
		task := pendingTask(1, "broken", now.Add(-time.Hour), cfg)
		if _, err := Evaluate(task, now); err == nil {
			t.Errorf("config %+v: expected an error", cfg)
		}
	}
}
