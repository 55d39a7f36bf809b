// Package types contains shared data types used across the mazkir project.
package types

import "time"

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
	StatusDeferred  TaskStatus = "deferred"
	StatusDiscarded TaskStatus = "discarded"
)

// ValidStatus reports whether s is a known task status.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusDeferred, StatusDiscarded:
		return true
	}
	return false
}

// Terminal reports whether a transition to s moves the task into the archive.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusDiscarded
}

// StatusChange is one entry in a task's append-only status history.
type StatusChange struct {
	Status    TaskStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
}

// ReminderType selects the reminder policy attached to a task.
type ReminderType string

const (
	ReminderSpecificTime ReminderType = "specific_time" // fire once at an instant
	ReminderDaily        ReminderType = "daily"         // fire at most once per calendar day
	ReminderInterval     ReminderType = "interval"      // fire every N hours
)

// ReminderConfig is a tagged union over Type. Only the fields for the
// active type are populated; installing a new config replaces the whole
// value. All instants are stored in UTC.
type ReminderConfig struct {
	Type ReminderType `json:"type"`

	// specific_time
	Time                  *time.Time `json:"time,omitempty"`
	SpecificTimeTriggered bool       `json:"specific_time_triggered,omitempty"`

	// daily
	TimeOfDay           string `json:"time_of_day,omitempty"`            // "HH:MM", 24-hour
	LastRemindedDailyAt string `json:"last_reminded_daily_at,omitempty"` // "2006-01-02"

	// interval
	Hours          float64    `json:"hours,omitempty"`
	LastRemindedAt *time.Time `json:"last_reminded_at,omitempty"`
	StartTime      *time.Time `json:"start_time,omitempty"`
}

// Task is a unit of user work tracked by the assistant.
type Task struct {
	ID            int             `json:"id"`
	Description   string          `json:"description"`
	Status        TaskStatus      `json:"status"`
	DueDate       string          `json:"due_date,omitempty"` // advisory YYYY-MM-DD, not used by reminders
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	StatusHistory []StatusChange  `json:"status_history"`
	Reminder      *ReminderConfig `json:"reminder_settings,omitempty"`
}

// Preferences holds a user's assistant settings.
type Preferences struct {
	Tone                    string `json:"tone"`
	DailyReminderTime       string `json:"daily_reminder_time,omitempty"`         // "HH:MM" digest time
	LastDailyDigestSentDate string `json:"last_daily_digest_sent_date,omitempty"` // "2006-01-02"
}

// ArchiveLimit caps the number of archived tasks kept per user.
// Oldest entries are evicted first.
const ArchiveLimit = 100

// UserData is one user's complete state. Tasks holds the active tasks in
// creation order; ArchivedTasks holds completed/discarded tasks most
// recently archived first. A task lives in exactly one of the two.
type UserData struct {
	Tasks         []*Task     `json:"tasks"`
	ArchivedTasks []*Task     `json:"archived_tasks"`
	NextTaskID    int         `json:"next_task_id"`
	Preferences   Preferences `json:"preferences"`
}

// Notification is one due-reminder message ready for delivery.
type Notification struct {
	UserID  string
	ChatRef string
	Message string
}

// ScanResult is the outcome of one reminder scan over all users.
type ScanResult struct {
	Notifications []Notification
	Dirty         map[string]bool // user ids whose data changed and need persisting
}

// Clock abstracts the time source so reminder evaluation is testable.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock backed by the system time, in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }
