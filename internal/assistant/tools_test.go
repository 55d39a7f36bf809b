package assistant

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sivanlab/mazkir/internal/store"
	"github.com/sivanlab/mazkir/pkg/types"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func testExecutor(t *testing.T) *toolExecutor {
	t.Helper()
	dir, err := os.MkdirTemp("", "mazkir-assistant-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return &toolExecutor{
		store: store.New(filepath.Join(dir, "users.json")),
		clock: fixedClock{now: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)},
	}
}

func decode(t *testing.T, payload string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		t.Fatalf("tool payload is not JSON: %v\n%s", err, payload)
	}
	return m
}

func TestExecuteAddAndList(t *testing.T) {
	e := testExecutor(t)

	added := decode(t, e.Execute("cli_user", "add_task", `{"description":"buy bread","due_date":"2026-03-20"}`))
	if _, hasErr := added["error"]; hasErr {
		t.Fatalf("add_task failed: %v", added)
	}

	listed := decode(t, e.Execute("cli_user", "get_tasks", `{}`))
	tasks, ok := listed["tasks"].([]any)
	if !ok || len(tasks) != 1 {
		t.Fatalf("expected one task, got %v", listed)
	}
	task := tasks[0].(map[string]any)
	if task["description"] != "buy bread" || task["status"] != "pending" {
		t.Errorf("unexpected task payload: %v", task)
	}
}

func TestExecuteAddValidation(t *testing.T) {
	e := testExecutor(t)

	payload := decode(t, e.Execute("cli_user", "add_task", `{"description":"   "}`))
	msg, ok := payload["error"].(string)
	if !ok || !strings.Contains(msg, "description") {
		t.Errorf("expected a validation error payload, got %v", payload)
	}
}

func TestExecuteUpdateStatusArchives(t *testing.T) {
	e := testExecutor(t)
	e.Execute("cli_user", "add_task", `{"description":"finish essay"}`)

	updated := decode(t, e.Execute("cli_user", "update_task_status", `{"task_id":1,"status":"completed"}`))
	task, ok := updated["task"].(map[string]any)
	if !ok || task["status"] != "completed" {
		t.Fatalf("unexpected payload: %v", updated)
	}

	data, err := e.store.LoadUser("cli_user")
	if err != nil {
		t.Fatalf("LoadUser failed: %v", err)
	}
	if len(data.Tasks) != 0 || len(data.ArchivedTasks) != 1 {
		t.Errorf("completed task should be archived, got %d active %d archived", len(data.Tasks), len(data.ArchivedTasks))
	}
}

func TestExecuteNotFoundIsPayload(t *testing.T) {
	e := testExecutor(t)

	payload := decode(t, e.Execute("cli_user", "discard_task", `{"task_id":99}`))
	msg, ok := payload["error"].(string)
	if !ok || !strings.Contains(msg, "not found") {
		t.Errorf("expected a not-found error payload, got %v", payload)
	}
}

func TestExecuteTaskIDForms(t *testing.T) {
	e := testExecutor(t)
	e.Execute("cli_user", "add_task", `{"description":"flexible ids"}`)

	// Models sometimes send ids as strings.
	payload := decode(t, e.Execute("cli_user", "update_task_status", `{"task_id":"1","status":"deferred"}`))
	task, ok := payload["task"].(map[string]any)
	if !ok || task["status"] != "deferred" {
		t.Errorf("string task_id should be accepted, got %v", payload)
	}

	bad := decode(t, e.Execute("cli_user", "update_task_status", `{"task_id":"first","status":"pending"}`))
	msg, ok := bad["error"].(string)
	if !ok || !strings.Contains(msg, "task_id") {
		t.Errorf("non-integer task_id should be a validation error, got %v", bad)
	}
}

func TestExecuteSetAndGetReminders(t *testing.T) {
	e := testExecutor(t)
	e.Execute("cli_user", "add_task", `{"description":"stretch"}`)

	set := decode(t, e.Execute("cli_user", "set_reminder", `{"task_id":1,"type":"daily","time_of_day":"08:00"}`))
	if _, hasErr := set["error"]; hasErr {
		t.Fatalf("set_reminder failed: %v", set)
	}

	all := decode(t, e.Execute("cli_user", "get_reminders", `{}`))
	reminders, ok := all["reminders"].([]any)
	if !ok || len(reminders) != 1 {
		t.Fatalf("expected one reminder, got %v", all)
	}
	entry := reminders[0].(map[string]any)
	settings := entry["reminder_settings"].(map[string]any)
	if settings["type"] != "daily" || settings["time_of_day"] != "08:00" {
		t.Errorf("unexpected reminder payload: %v", entry)
	}

	badType := decode(t, e.Execute("cli_user", "set_reminder", `{"task_id":1,"type":"weekly"}`))
	if _, hasErr := badType["error"]; !hasErr {
		t.Errorf("unknown reminder type should be an error payload, got %v", badType)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	e := testExecutor(t)

	payload := decode(t, e.Execute("cli_user", "delete_everything", `{}`))
	if _, hasErr := payload["error"]; !hasErr {
		t.Errorf("unknown tool should be an error payload, got %v", payload)
	}
}

func TestExecuteMalformedArguments(t *testing.T) {
	e := testExecutor(t)

	payload := decode(t, e.Execute("cli_user", "add_task", `{"description":`))
	if _, hasErr := payload["error"]; !hasErr {
		t.Errorf("malformed JSON arguments should be an error payload, got %v", payload)
	}
}

func TestSystemPromptIncludesToneAndTasks(t *testing.T) {
	data := &types.UserData{
		Preferences: types.Preferences{Tone: "cheerful"},
		Tasks: []*types.Task{
			{ID: 1, Description: "one", Status: types.StatusPending},
			{ID: 2, Description: "two", Status: types.StatusPending},
			{ID: 3, Description: "three", Status: types.StatusPending},
			{ID: 4, Description: "four", Status: types.StatusPending},
		},
	}

	prompt := systemPrompt(data)
	if !strings.Contains(prompt, "cheerful") {
		t.Errorf("prompt should carry the tone preference: %q", prompt)
	}
	if !strings.Contains(prompt, "one") || strings.Contains(prompt, "four") {
		t.Errorf("prompt should preview only the first tasks: %q", prompt)
	}
}
