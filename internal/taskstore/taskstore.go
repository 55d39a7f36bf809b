// Package taskstore implements the pure task mutation operations on a
// user's data: creation, status transitions, and archival. All functions
// transform a UserData value in place and perform no I/O; the caller owns
// loading, locking, and saving.
package taskstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/sivanlab/mazkir/pkg/types"
)

// Add creates a new pending task. It fails with ErrValidation when the
// description is empty. The new task is appended to the active list and
// the id counter advances; issued ids are never reused.
func Add(data *types.UserData, description, dueDate string, now time.Time) (*types.Task, error) {
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: task description is required", types.ErrValidation)
	}

	if data.NextTaskID < 1 {
		data.NextTaskID = 1
	}

	task := &types.Task{
		ID:          data.NextTaskID,
		Description: description,
		Status:      types.StatusPending,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
		StatusHistory: []types.StatusChange{
			{Status: types.StatusPending, Timestamp: now},
		},
	}

	data.Tasks = append(data.Tasks, task)
	data.NextTaskID++

	return task, nil
}

// Transition changes the status of an active task. Unknown statuses fail
// with ErrValidation; a task id that does not refer to an active task
// returns ErrTaskNotFound and leaves the data untouched. Transitions to
// completed or discarded immediately archive the task: it moves to the
// front of ArchivedTasks and the archive is trimmed to ArchiveLimit.
// The returned task is the final (possibly archived) snapshot.
func Transition(data *types.UserData, taskID int, status types.TaskStatus, now time.Time) (*types.Task, error) {
	if !types.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", types.ErrValidation, status)
	}

	idx := -1
	for i, t := range data.Tasks {
		if t.ID == taskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: task %d", types.ErrTaskNotFound, taskID)
	}

	task := data.Tasks[idx]
	task.Status = status
	task.UpdatedAt = now
	if status == types.StatusCompleted {
		completedAt := now
		task.CompletedAt = &completedAt
	}
	task.StatusHistory = append(task.StatusHistory, types.StatusChange{
		Status:    status,
		Timestamp: now,
	})

	if status.Terminal() {
		data.Tasks = append(data.Tasks[:idx], data.Tasks[idx+1:]...)
		data.ArchivedTasks = append([]*types.Task{task}, data.ArchivedTasks...)
		if len(data.ArchivedTasks) > types.ArchiveLimit {
			data.ArchivedTasks = data.ArchivedTasks[:types.ArchiveLimit]
		}
	}

	return task, nil
}

// Discard is shorthand for a transition to the discarded status.
func Discard(data *types.UserData, taskID int, now time.Time) (*types.Task, error) {
	return Transition(data, taskID, types.StatusDiscarded, now)
}

// Find returns the active task with the given id, or ErrTaskNotFound.
// Archived tasks are not searched.
func Find(data *types.UserData, taskID int) (*types.Task, error) {
	for _, t := range data.Tasks {
		if t.ID == taskID {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: task %d", types.ErrTaskNotFound, taskID)
}

// DefaultUserData returns the starting state for a user not yet in the store.
func DefaultUserData() *types.UserData {
	return &types.UserData{
		Tasks:         []*types.Task{},
		ArchivedTasks: []*types.Task{},
		NextTaskID:    1,
		Preferences:   types.Preferences{Tone: "neutral"},
	}
}

// Normalize repairs a freshly-loaded UserData in one pass so the rest of
// the code never re-checks optional fields: nil slices become empty,
// missing statuses default to pending, the archive is clamped to its cap,
// and NextTaskID is forced past every id ever issued.
func Normalize(data *types.UserData) {
	if data.Tasks == nil {
		data.Tasks = []*types.Task{}
	}
	if data.ArchivedTasks == nil {
		data.ArchivedTasks = []*types.Task{}
	}
	if data.Preferences.Tone == "" {
		data.Preferences.Tone = "neutral"
	}

	// Scan ids before clamping the archive so evicted ids stay retired.
	maxID := 0
	for _, list := range [][]*types.Task{data.Tasks, data.ArchivedTasks} {
		for _, t := range list {
			if t.Status == "" {
				t.Status = types.StatusPending
			}
			if t.StatusHistory == nil {
				t.StatusHistory = []types.StatusChange{}
			}
			if t.ID > maxID {
				maxID = t.ID
			}
		}
	}
	if data.NextTaskID <= maxID {
		data.NextTaskID = maxID + 1
	}
	if data.NextTaskID < 1 {
		data.NextTaskID = 1
	}
	if len(data.ArchivedTasks) > types.ArchiveLimit {
		data.ArchivedTasks = data.ArchivedTasks[:types.ArchiveLimit]
	}
}
