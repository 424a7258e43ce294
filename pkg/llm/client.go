package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.anthropic.com"
	defaultMaxTokens            = 1024
	apiVersion                  = "2023-06-01"
	responseBodyReadLimit int64 = 1024
)

var (
	errAPIKeyRequired = errors.New("llm api key is required")
	errModelRequired  = errors.New("llm model is required")
	// ErrNoToolCall is returned when the model answered without calling the forced tool.
	ErrNoToolCall = errors.New("model response did not contain the requested tool call")
)

// Client calls the Messages API. Every request forces a single tool call so the
// model output is a JSON object matching the tool's input schema.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
}

// Option configures optional client behavior.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func NewClient(apiKey, model string, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errModelRequired
	}

	client := &Client{
		apiKey:     key,
		model:      model,
		baseURL:    defaultBaseURL,
		maxTokens:  defaultMaxTokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Tool describes the structured output the model must produce.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolRequest is a single-turn prompt answered through Tool.
type ToolRequest struct {
	System string
	Prompt string
	Tool   Tool
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type toolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type messagesRequest struct {
	Model      string     `json:"model"`
	MaxTokens  int        `json:"max_tokens"`
	System     string     `json:"system,omitempty"`
	Messages   []message  `json:"messages"`
	Tools      []Tool     `json:"tools"`
	ToolChoice toolChoice `json:"tool_choice"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// CallTool sends the request and decodes the tool input into out.
func (c *Client) CallTool(ctx context.Context, req ToolRequest, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "llm client not configured")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "prompt is required")
	}
	if req.Tool.Name == "" || req.Tool.InputSchema == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tool name and schema are required")
	}

	payload, err := json.Marshal(messagesRequest{
		Model:      c.model,
		MaxTokens:  c.maxTokens,
		System:     req.System,
		Messages:   []message{{Role: "user", Content: req.Prompt}},
		Tools:      []Tool{req.Tool},
		ToolChoice: toolChoice{Type: "tool", Name: req.Tool.Name},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal llm request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build llm request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute llm request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "llm request failed")
	}

	var apiResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode llm response")
	}

	for _, block := range apiResp.Content {
		if block.Type != "tool_use" || block.Name != req.Tool.Name {
			continue
		}
		if err := json.Unmarshal(block.Input, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode tool input")
		}
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, ErrNoToolCall, "llm response missing tool call").
		WithDetails(map[string]any{"stop_reason": apiResp.StopReason})
}
