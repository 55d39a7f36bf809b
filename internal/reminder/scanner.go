package reminder

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sivanlab/mazkir/pkg/types"
)

// digestTaskLimit caps how many tasks a daily digest lists before it
// collapses the rest into a trailing marker.
const digestTaskLimit = 10

// Scan evaluates every user's reminders and digest at the given instant.
// It mutates reminder bookkeeping and digest dates in place, records
// which users changed, and returns the notifications to deliver. A bad
// reminder on one task is logged and skipped so the rest of the scan is
// unaffected. Users are processed in sorted order for deterministic
// output.
func Scan(users map[string]*types.UserData, now time.Time) types.ScanResult {
	now = now.UTC()
	result := types.ScanResult{Dirty: map[string]bool{}}

	userIDs := make([]string, 0, len(users))
	for id := range users {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)

	for _, userID := range userIDs {
		data := users[userID]
		if data == nil {
			continue
		}
		chatRef, deliverable := ChatRef(userID)
		if !deliverable {
			slog.Debug("user has no deliverable chat target, evaluating without delivery", "user", userID)
		}

		for _, task := range data.Tasks {
			decision, err := Evaluate(task, now)
			if err != nil {
				slog.Warn("skipping malformed reminder", "user", userID, "task", task.ID, "error", err)
				continue
			}
			if !decision.Fire {
				continue
			}
			result.Dirty[userID] = true
			slog.Info("reminder fired", "user", userID, "task", task.ID, "type", task.Reminder.Type)
			if deliverable {
				result.Notifications = append(result.Notifications, types.Notification{
					UserID:  userID,
					ChatRef: chatRef,
					Message: decision.Message,
				})
			}
		}

		if msg, fired := evaluateDigest(data, now); fired {
			result.Dirty[userID] = true
			slog.Info("daily digest composed", "user", userID)
			if deliverable {
				result.Notifications = append(result.Notifications, types.Notification{
					UserID:  userID,
					ChatRef: chatRef,
					Message: msg,
				})
			}
		}
	}

	return result
}

// evaluateDigest decides whether the user's daily digest is due now and,
// if so, composes it and stamps today's date so it cannot fire again.
// The date is stamped even when no tasks are pending, otherwise every
// subsequent poll of the day would recheck.
func evaluateDigest(data *types.UserData, now time.Time) (string, bool) {
	pref := data.Preferences.DailyReminderTime
	if pref == "" {
		return "", false
	}
	target, err := time.Parse("15:04", pref)
	if err != nil {
		slog.Warn("skipping digest with bad daily_reminder_time", "value", pref, "error", err)
		return "", false
	}

	today := now.Format(dateLayout)
	if data.Preferences.LastDailyDigestSentDate == today {
		return "", false
	}
	if now.Hour()*60+now.Minute() < target.Hour()*60+target.Minute() {
		return "", false
	}

	data.Preferences.LastDailyDigestSentDate = today

	var pending []*types.Task
	for _, t := range data.Tasks {
		if t.Status == types.StatusPending {
			pending = append(pending, t)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Good %s! ", greeting(now.Hour()))
	if len(pending) == 0 {
		b.WriteString("You have no pending tasks today.")
		return b.String(), true
	}

	b.WriteString("Here's your daily digest of pending tasks:\n")
	lines := make([]string, 0, digestTaskLimit+1)
	for i, t := range pending {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, t.Description))
		if len(lines) >= digestTaskLimit {
			lines = append(lines, "...and more.")
			break
		}
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String(), true
}

func greeting(hour int) string {
	switch {
	case hour < 12:
		return "morning"
	case hour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

// ChatRef extracts the delivery target from a user id. Telegram users
// are identified as "telegram_<chatID>"; anything else (for example the
// CLI user) has no external delivery target.
func ChatRef(userID string) (string, bool) {
	rest, ok := strings.CutPrefix(userID, "telegram_")
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}
