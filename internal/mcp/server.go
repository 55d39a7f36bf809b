// Package mcp exposes the task store as MCP tools over stdio, so any
// MCP-capable client can manage tasks and reminders directly.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sivanlab/mazkir/internal/store"
	"github.com/sivanlab/mazkir/internal/taskstore"
	"github.com/sivanlab/mazkir/pkg/types"
)

// defaultUserID is used when a client does not scope its calls to a
// specific user, matching the id the interactive CLI uses.
const defaultUserID = "cli_user"

// Server implements the MCP server over the task store.
type Server struct {
	mcpServer *server.MCPServer
	store     *store.Store
	clock     types.Clock
}

// Config contains server configuration.
type Config struct {
	Store *store.Store
	Clock types.Clock
}

// New creates a new MCP server and registers the task tools.
func New(cfg Config) *Server {
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	s := &Server{
		store: cfg.Store,
		clock: clock,
	}

	mcpServer := server.NewMCPServer(
		"mazkir",
		"0.1.0",
		server.WithLogging(),
	)
	s.registerTools(mcpServer)
	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("task_add",
		mcp.WithDescription("Add a new task"),
		mcp.WithString("description", mcp.Required(), mcp.Description("What the task is")),
		mcp.WithString("due_date", mcp.Description("Optional due date, YYYY-MM-DD")),
		mcp.WithString("user_id", mcp.Description("User to act for (default cli_user)")),
	), s.handleTaskAdd)

	mcpServer.AddTool(mcp.NewTool("task_list",
		mcp.WithDescription("List active tasks, optionally including the archive"),
		mcp.WithBoolean("include_archived", mcp.Description("Also return archived tasks")),
		mcp.WithString("user_id", mcp.Description("User to act for (default cli_user)")),
	), s.handleTaskList)

	mcpServer.AddTool(mcp.NewTool("task_update_status",
		mcp.WithDescription("Change a task's status; completed and discarded tasks are archived"),
		mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task id")),
		mcp.WithString("status", mcp.Required(), mcp.Description("pending, completed, deferred or discarded")),
		mcp.WithString("user_id", mcp.Description("User to act for (default cli_user)")),
	), s.handleTaskUpdateStatus)

	mcpServer.AddTool(mcp.NewTool("task_discard",
		mcp.WithDescription("Discard a task without completing it"),
		mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task id")),
		mcp.WithString("user_id", mcp.Description("User to act for (default cli_user)")),
	), s.handleTaskDiscard)

	mcpServer.AddTool(mcp.NewTool("reminder_set",
		mcp.WithDescription("Attach a reminder to a task, replacing any existing one"),
		mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task id")),
		mcp.WithString("type", mcp.Required(), mcp.Description("specific_time, daily or interval")),
		mcp.WithString("time", mcp.Description("RFC 3339 instant, for specific_time")),
		mcp.WithString("time_of_day", mcp.Description("HH:MM wall-clock time, for daily")),
		mcp.WithNumber("hours", mcp.Description("Repeat interval in hours, for interval")),
		mcp.WithString("start_time", mcp.Description("Optional RFC 3339 anchor, for interval")),
		mcp.WithString("user_id", mcp.Description("User to act for (default cli_user)")),
	), s.handleReminderSet)

	mcpServer.AddTool(mcp.NewTool("reminder_list",
		mcp.WithDescription("List reminders, for one task or for all tasks"),
		mcp.WithNumber("task_id", mcp.Description("Optional task id")),
		mcp.WithString("user_id", mcp.Description("User to act for (default cli_user)")),
	), s.handleReminderList)
}

// ServeStdio runs the server over stdin/stdout until the client hangs up.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func userIDFrom(req mcp.CallToolRequest) string {
	if id := req.GetString("user_id", ""); id != "" {
		return id
	}
	return defaultUserID
}

// toolError maps store errors onto tool results. Validation and
// not-found are expected outcomes the client should see as tool errors;
// anything else is also reported in-band so the session survives.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, types.ErrValidation):
		return mcp.NewToolResultError(err.Error())
	case errors.Is(err, types.ErrTaskNotFound):
		return mcp.NewToolResultError(err.Error())
	default:
		return mcp.NewToolResultError(fmt.Sprintf("internal error: %v", err))
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func (s *Server) handleTaskAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description := req.GetString("description", "")
	dueDate := req.GetString("due_date", "")
	now := s.clock.Now()

	var task *types.Task
	_, err := s.store.UpdateUser(userIDFrom(req), func(data *types.UserData) error {
		var err error
		task, err = taskstore.Add(data, description, dueDate, now)
		return err
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"task": task})
}

func (s *Server) handleTaskList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := s.store.LoadUser(userIDFrom(req))
	if err != nil {
		return toolError(err), nil
	}
	result := map[string]any{"tasks": data.Tasks}
	if req.GetBool("include_archived", false) {
		result["archived_tasks"] = data.ArchivedTasks
	}
	return jsonResult(result)
}

func (s *Server) handleTaskUpdateStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetInt("task_id", 0)
	status := req.GetString("status", "")
	now := s.clock.Now()

	var task *types.Task
	_, err := s.store.UpdateUser(userIDFrom(req), func(data *types.UserData) error {
		var err error
		task, err = taskstore.Transition(data, taskID, types.TaskStatus(status), now)
		return err
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"task": task})
}

func (s *Server) handleTaskDiscard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetInt("task_id", 0)
	now := s.clock.Now()

	var task *types.Task
	_, err := s.store.UpdateUser(userIDFrom(req), func(data *types.UserData) error {
		var err error
		task, err = taskstore.Discard(data, taskID, now)
		return err
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"task": task})
}

func (s *Server) handleReminderSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetInt("task_id", 0)
	typ := req.GetString("type", "")
	now := s.clock.Now()

	details := map[string]any{}
	if v := req.GetString("time", ""); v != "" {
		details["time"] = v
	}
	if v := req.GetString("time_of_day", ""); v != "" {
		details["time_of_day"] = v
	}
	if v := req.GetFloat("hours", 0); v != 0 {
		details["hours"] = v
	}
	if v := req.GetString("start_time", ""); v != "" {
		details["start_time"] = v
	}

	cfg, err := taskstore.NewReminderConfig(typ, details, now)
	if err != nil {
		return toolError(err), nil
	}

	var task *types.Task
	_, err = s.store.UpdateUser(userIDFrom(req), func(data *types.UserData) error {
		var err error
		task, err = taskstore.SetReminder(data, taskID, cfg, now)
		return err
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"task": task})
}

func (s *Server) handleReminderList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := s.store.LoadUser(userIDFrom(req))
	if err != nil {
		return toolError(err), nil
	}

	var taskID *int
	if id := req.GetInt("task_id", 0); id != 0 {
		taskID = &id
	}
	entries, err := taskstore.Reminders(data, taskID)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"reminders": entries})
}
