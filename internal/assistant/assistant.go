// Package assistant wires the task store to an OpenAI-compatible chat
// model. A user message goes through a two-phase round trip: the model
// first decides which task tools to call, the tool results are executed
// against the store, and a second completion turns the results into the
// final reply.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sivanlab/mazkir/internal/store"
	"github.com/sivanlab/mazkir/pkg/types"
)

const DefaultModel = "gpt-4o-mini"

// Config configures the assistant. APIKey falls back to the
// OPENAI_API_KEY environment variable; BaseURL is optional and allows
// pointing at any OpenAI-compatible endpoint.
type Config struct {
	Model   string
	APIKey  string
	BaseURL string
	Store   *store.Store
	Clock   types.Clock
}

// Assistant holds the chat client and the tool executor.
type Assistant struct {
	client *openai.Client
	model  string
	tools  *toolExecutor
}

// New creates an assistant from the config.
func New(cfg Config) *Assistant {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Assistant{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		tools:  &toolExecutor{store: cfg.Store, clock: clock},
	}
}

// Process handles one user message and returns the assistant's reply.
// Tool-level failures (validation, unknown task) are fed back to the
// model as error payloads rather than surfaced as errors here; only
// transport and store failures abort the round trip.
func (a *Assistant) Process(ctx context.Context, userID, input string) (string, error) {
	data, err := a.tools.store.LoadUser(userID)
	if err != nil {
		return "", fmt.Errorf("loading user %s: %w", userID, err)
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(data)},
		{Role: openai.ChatMessageRoleUser, Content: input},
	}

	first, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
		Tools:    toolDefinitions(),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(first.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	choice := first.Choices[0].Message
	if len(choice.ToolCalls) == 0 {
		return choice.Content, nil
	}

	messages = append(messages, choice)
	executed := make([]string, 0, len(choice.ToolCalls))
	for _, call := range choice.ToolCalls {
		slog.Debug("executing tool call", "user", userID, "tool", call.Function.Name)
		result := a.tools.Execute(userID, call.Function.Name, call.Function.Arguments)
		executed = append(executed, call.Function.Name)
		messages = append(messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			ToolCallID: call.ID,
			Content:    result,
		})
	}

	second, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
	})
	if err != nil {
		// The tools already ran and their effects are persisted, so a
		// summary failure degrades to a plain confirmation.
		slog.Warn("summary completion failed, using fallback", "error", err)
		return fmt.Sprintf("Done. (ran: %s)", strings.Join(executed, ", ")), nil
	}
	if len(second.Choices) == 0 {
		return fmt.Sprintf("Done. (ran: %s)", strings.Join(executed, ", ")), nil
	}
	return second.Choices[0].Message.Content, nil
}

// systemPrompt frames the model with the user's tone preference and a
// glimpse of their current tasks.
func systemPrompt(data *types.UserData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are Mazkir, a helpful personal task assistant. Your tone should be %s.", data.Preferences.Tone)
	if len(data.Tasks) > 0 {
		b.WriteString(" The user's current tasks include:")
		for i, t := range data.Tasks {
			if i >= 3 {
				b.WriteString(" ...and more.")
				break
			}
			fmt.Fprintf(&b, " [%d] %s (%s).", t.ID, t.Description, t.Status)
		}
	}
	b.WriteString(" Use the provided tools to manage tasks and reminders.")
	return b.String()
}
