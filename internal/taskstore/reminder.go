package taskstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sivanlab/mazkir/pkg/types"
)

// NewReminderConfig validates reminder details for the given type and
// builds a fresh config. details carries the decoded JSON arguments from
// a tool call, so numeric fields may arrive as float64, json.Number, or
// string. All instants are normalized to UTC.
func NewReminderConfig(typ string, details map[string]any, now time.Time) (*types.ReminderConfig, error) {
	cfg := &types.ReminderConfig{Type: types.ReminderType(typ)}

	switch cfg.Type {
	case types.ReminderSpecificTime:
		raw, ok := details["time"].(string)
		if !ok || raw == "" {
			return nil, fmt.Errorf("%w: specific_time reminder requires a time", types.ErrValidation)
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid time %q: %v", types.ErrValidation, raw, err)
		}
		utc := t.UTC()
		cfg.Time = &utc

	case types.ReminderDaily:
		raw, ok := details["time_of_day"].(string)
		if !ok || raw == "" {
			return nil, fmt.Errorf("%w: daily reminder requires a time_of_day", types.ErrValidation)
		}
		if _, err := time.Parse("15:04", raw); err != nil {
			return nil, fmt.Errorf("%w: time_of_day must be HH:MM, got %q", types.ErrValidation, raw)
		}
		cfg.TimeOfDay = raw

	case types.ReminderInterval:
		hours, err := parseHours(details["hours"])
		if err != nil {
			return nil, err
		}
		cfg.Hours = hours
		anchor := now.UTC()
		if raw, ok := details["start_time"].(string); ok && raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid start_time %q: %v", types.ErrValidation, raw, err)
			}
			utc := t.UTC()
			cfg.StartTime = &utc
			anchor = utc
		}
		cfg.LastRemindedAt = &anchor

	default:
		return nil, fmt.Errorf("%w: unknown reminder type %q", types.ErrValidation, typ)
	}

	return cfg, nil
}

func parseHours(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		if n > 0 {
			return n, nil
		}
	case json.Number:
		f, err := n.Float64()
		if err == nil && f > 0 {
			return f, nil
		}
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err == nil && f > 0 {
			return f, nil
		}
	case nil:
		return 0, fmt.Errorf("%w: interval reminder requires hours", types.ErrValidation)
	}
	return 0, fmt.Errorf("%w: hours must be a positive number, got %v", types.ErrValidation, v)
}

// SetReminder replaces the reminder configuration of an active task.
// Any previous reminder state on the task, including trigger bookkeeping,
// is dropped.
func SetReminder(data *types.UserData, taskID int, cfg *types.ReminderConfig, now time.Time) (*types.Task, error) {
	task, err := Find(data, taskID)
	if err != nil {
		return nil, err
	}
	task.Reminder = cfg
	task.UpdatedAt = now
	return task, nil
}

// ClearReminder removes the reminder configuration from an active task.
func ClearReminder(data *types.UserData, taskID int, now time.Time) (*types.Task, error) {
	task, err := Find(data, taskID)
	if err != nil {
		return nil, err
	}
	task.Reminder = nil
	task.UpdatedAt = now
	return task, nil
}

// ReminderEntry is one row of a reminder listing.
type ReminderEntry struct {
	TaskID      int                   `json:"task_id"`
	Description string                `json:"description"`
	Reminder    *types.ReminderConfig `json:"reminder_settings"`
}

// Reminders lists reminder configurations on active tasks. With a task id
// it returns a single entry for that task (ErrTaskNotFound if absent,
// a nil Reminder if the task has none); with nil it returns every active
// task that has a reminder configured.
func Reminders(data *types.UserData, taskID *int) ([]ReminderEntry, error) {
	if taskID != nil {
		task, err := Find(data, *taskID)
		if err != nil {
			return nil, err
		}
		return []ReminderEntry{{TaskID: task.ID, Description: task.Description, Reminder: task.Reminder}}, nil
	}

	entries := []ReminderEntry{}
	for _, t := range data.Tasks {
		if t.Reminder != nil {
			entries = append(entries, ReminderEntry{TaskID: t.ID, Description: t.Description, Reminder: t.Reminder})
		}
	}
	return entries, nil
}
