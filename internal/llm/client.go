// Package llm is an OpenAI-compatible chat-completions client. It speaks to
// any endpoint exposing the /chat/completions shape (OpenAI, OpenRouter,
// local servers) and implements both the narrator generator and the archive
// summarizer.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"fableforge/internal/game"
	"fableforge/internal/gm"
	"fableforge/internal/tools"
)

// Config selects the endpoint and models.
type Config struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	Model        string        `yaml:"model"`
	SummaryModel string        `yaml:"summary_model"`
	Temperature  float64       `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = "https://openrouter.ai/api/v1"
	}
	if out.SummaryModel == "" {
		out.SummaryModel = out.Model
	}
	if out.Temperature == 0 {
		out.Temperature = 0.8
	}
	if out.Timeout == 0 {
		out.Timeout = 120 * time.Second
	}
	return out
}

// Client implements gm.Generator and memory.Summarizer against one endpoint.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

var _ gm.Generator = (*Client)(nil)

func New(cfg Config, log *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

// Wire types for the chat-completions shape.

type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type toolDef struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []toolDef     `json:"tools,omitempty"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role      string     `json:"role"`
			Content   string     `json:"content"`
			ToolCalls []toolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate implements gm.Generator.
func (c *Client) Generate(ctx context.Context, msgs []gm.Message, catalog []tools.Descriptor) (*gm.Completion, error) {
	req := chatRequest{
		Model:       c.cfg.Model,
		Messages:    encodeMessages(msgs),
		Tools:       encodeTools(catalog),
		Temperature: c.cfg.Temperature,
	}
	resp, err := c.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, game.GeneratorUnavailable(errors.New("response carried no choices"))
	}
	msg := resp.Choices[0].Message

	out := &gm.Completion{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, game.GeneratorUnavailable(fmt.Errorf("malformed tool arguments for %s: %w", tc.Function.Name, err))
			}
		}
		out.Calls = append(out.Calls, gm.ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}
	return out, nil
}

func encodeMessages(msgs []gm.Message) []chatMessage {
	out := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := chatMessage{Role: m.Role, Content: m.Content, ToolCallID: m.CallID}
		for _, call := range m.ToolCalls {
			args, err := json.Marshal(call.Args)
			if err != nil {
				args = []byte("{}")
			}
			cm.ToolCalls = append(cm.ToolCalls, toolCall{
				ID:       call.ID,
				Type:     "function",
				Function: functionCall{Name: call.Name, Arguments: string(args)},
			})
		}
		out = append(out, cm)
	}
	return out
}

func encodeTools(catalog []tools.Descriptor) []toolDef {
	out := make([]toolDef, 0, len(catalog))
	for _, d := range catalog {
		out = append(out, toolDef{
			Type: "function",
			Function: toolFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Schema,
			},
		})
	}
	return out
}

func (c *Client) complete(ctx context.Context, req chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, game.GeneratorTimeoutf("completion timed out after %s", time.Since(start).Round(time.Millisecond))
		}
		return nil, game.GeneratorUnavailable(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, game.GeneratorUnavailable(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, game.GeneratorUnavailable(fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 300)))
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, game.GeneratorUnavailable(fmt.Errorf("unmarshal response: %w", err))
	}
	c.log.Debug("completion finished",
		"model", req.Model, "elapsed", time.Since(start), "messages", len(req.Messages))
	return &out, nil
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
