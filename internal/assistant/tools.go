package assistant

import (
	"encoding/json"
	"fmt"
	"strconv"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sivanlab/mazkir/internal/store"
	"github.com/sivanlab/mazkir/internal/taskstore"
	"github.com/sivanlab/mazkir/pkg/types"
)

// toolDefinitions describes the task tools exposed to the model.
func toolDefinitions() []openai.Tool {
	fn := func(name, description string, params map[string]any) openai.Tool {
		return openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        name,
				Description: description,
				Parameters:  params,
			},
		}
	}

	return []openai.Tool{
		fn("get_tasks", "List the user's active tasks.", map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}),
		fn("add_task", "Add a new task for the user.", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"description": map[string]any{"type": "string", "description": "What the task is."},
				"due_date":    map[string]any{"type": "string", "description": "Optional due date, YYYY-MM-DD."},
			},
			"required": []string{"description"},
		}),
		fn("update_task_status", "Change a task's status. Completed and discarded tasks are archived.", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{"type": "integer"},
				"status":  map[string]any{"type": "string", "enum": []string{"pending", "completed", "deferred", "discarded"}},
			},
			"required": []string{"task_id", "status"},
		}),
		fn("discard_task", "Discard a task without completing it.", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{"type": "integer"},
			},
			"required": []string{"task_id"},
		}),
		fn("set_reminder", "Attach a reminder to a task. Replaces any existing reminder.", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{"type": "integer"},
				"type":    map[string]any{"type": "string", "enum": []string{"specific_time", "daily", "interval"}},
				"time":    map[string]any{"type": "string", "description": "RFC 3339 instant, for specific_time."},
				"time_of_day": map[string]any{
					"type": "string", "description": "HH:MM wall-clock time, for daily.",
				},
				"hours":      map[string]any{"type": "number", "description": "Repeat interval in hours, for interval."},
				"start_time": map[string]any{"type": "string", "description": "Optional RFC 3339 anchor, for interval."},
			},
			"required": []string{"task_id", "type"},
		}),
		fn("get_reminders", "List reminders, for one task or for all tasks.", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{"type": "integer", "description": "Optional. Omit to list all reminders."},
			},
		}),
	}
}

// toolExecutor runs tool calls against the store. Every call returns a
// JSON payload for the model; failures become {"error": ...} payloads so
// the model can explain them to the user instead of the round trip
// aborting.
type toolExecutor struct {
	store *store.Store
	clock types.Clock
}

func (e *toolExecutor) Execute(userID, name, rawArgs string) string {
	var args map[string]any
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return errorPayload(fmt.Sprintf("invalid tool arguments: %v", err))
		}
	}

	result, err := e.dispatch(userID, name, args)
	if err != nil {
		return errorPayload(err.Error())
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return errorPayload(fmt.Sprintf("encoding result: %v", err))
	}
	return string(raw)
}

func (e *toolExecutor) dispatch(userID, name string, args map[string]any) (any, error) {
	now := e.clock.Now()

	switch name {
	case "get_tasks":
		data, err := e.store.LoadUser(userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"tasks": data.Tasks}, nil

	case "add_task":
		description, _ := args["description"].(string)
		dueDate, _ := args["due_date"].(string)
		var task *types.Task
		_, err := e.store.UpdateUser(userID, func(data *types.UserData) error {
			var err error
			task, err = taskstore.Add(data, description, dueDate, now)
			return err
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"task": task}, nil

	case "update_task_status":
		taskID, err := parseTaskID(args["task_id"])
		if err != nil {
			return nil, err
		}
		status, _ := args["status"].(string)
		var task *types.Task
		_, err = e.store.UpdateUser(userID, func(data *types.UserData) error {
			var err error
			task, err = taskstore.Transition(data, taskID, types.TaskStatus(status), now)
			return err
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"task": task}, nil

	case "discard_task":
		taskID, err := parseTaskID(args["task_id"])
		if err != nil {
			return nil, err
		}
		var task *types.Task
		_, err = e.store.UpdateUser(userID, func(data *types.UserData) error {
			var err error
			task, err = taskstore.Discard(data, taskID, now)
			return err
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"task": task}, nil

	case "set_reminder":
		taskID, err := parseTaskID(args["task_id"])
		if err != nil {
			return nil, err
		}
		typ, _ := args["type"].(string)
		cfg, err := taskstore.NewReminderConfig(typ, args, now)
		if err != nil {
			return nil, err
		}
		var task *types.Task
		_, err = e.store.UpdateUser(userID, func(data *types.UserData) error {
			var err error
			task, err = taskstore.SetReminder(data, taskID, cfg, now)
			return err
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"task": task}, nil

	case "get_reminders":
		var taskID *int
		if raw, ok := args["task_id"]; ok && raw != nil {
			id, err := parseTaskID(raw)
			if err != nil {
				return nil, err
			}
			taskID = &id
		}
		data, err := e.store.LoadUser(userID)
		if err != nil {
			return nil, err
		}
		entries, err := taskstore.Reminders(data, taskID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"reminders": entries}, nil

	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

// parseTaskID accepts the id forms a model produces: JSON numbers,
// numeric strings, and json.Number. A non-integer value is a validation
// error, distinct from a well-formed id that matches no task.
func parseTaskID(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	case json.Number:
		if id, err := n.Int64(); err == nil {
			return int(id), nil
		}
	case string:
		if id, err := strconv.Atoi(n); err == nil {
			return id, nil
		}
	case int:
		return n, nil
	}
	return 0, fmt.Errorf("%w: task_id must be an integer, got %v", types.ErrValidation, v)
}

func errorPayload(msg string) string {
	raw, _ := json.Marshal(map[string]string{"error": msg})
	return string(raw)
}
