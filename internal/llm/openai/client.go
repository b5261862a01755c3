package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"medscan-backend/internal/llm"
	"medscan-backend/internal/search"
)

const maxTokens = 4096

// Client implements llm.Client using OpenAI Chat Completions with image input.
type Client struct {
	api      *goopenai.Client
	model    string
	searcher search.Searcher
}

// Options configures a Client.
type Options struct {
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
	Searcher search.Searcher
}

// NewClient constructs a new OpenAI client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	cfg := goopenai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{
		api:      goopenai.NewClientWithConfig(cfg),
		model:    strings.TrimSpace(opts.Model),
		searcher: opts.Searcher,
	}, nil
}

// AnalyzeImage sends the prompt and image, resolving web_search tool calls until the model answers.
func (c *Client) AnalyzeImage(ctx context.Context, input llm.ImageInput) (string, error) {
	mimeType := input.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(input.Data)

	messages := []goopenai.ChatCompletionMessage{
		{
			Role: goopenai.ChatMessageRoleUser,
			MultiContent: []goopenai.ChatMessagePart{
				{Type: goopenai.ChatMessagePartTypeText, Text: llm.MedicalImagingPrompt},
				{Type: goopenai.ChatMessagePartTypeImageURL, ImageURL: &goopenai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: goopenai.ImageURLDetailAuto,
				}},
			},
		},
	}

	for round := 0; ; round++ {
		req := c.buildRequest(messages, round < llm.MaxToolRounds)
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return "", fmt.Errorf("openai request timeout: %w", err)
			}
			return "", fmt.Errorf("openai chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("openai response missing choices")
		}
		logUsage(c.model, resp.Usage)

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			content := strings.TrimSpace(msg.Content)
			if content == "" {
				return "", llm.ErrEmptyResponse
			}
			return content, nil
		}
		if round >= llm.MaxToolRounds {
			return "", llm.ErrToolLoop
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			messages = append(messages, goopenai.ChatCompletionMessage{
				Role:       goopenai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Name:       call.Function.Name,
				Content:    c.runTool(ctx, call),
			})
		}
	}
}

func (c *Client) buildRequest(messages []goopenai.ChatCompletionMessage, allowTools bool) goopenai.ChatCompletionRequest {
	req := goopenai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}
	if allowTools && c.searcher != nil {
		req.Tools = []goopenai.Tool{{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        llm.WebSearchTool,
				Description: llm.WebSearchDescription,
				Parameters:  json.RawMessage(llm.WebSearchParameters),
			},
		}}
	}
	// Reasoning models reject max_tokens.
	if isReasoningModel(c.model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}
	return req
}

func (c *Client) runTool(ctx context.Context, call goopenai.ToolCall) string {
	if call.Function.Name != llm.WebSearchTool {
		return "error: unknown tool " + call.Function.Name
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return "error: invalid arguments: " + err.Error()
	}
	return llm.RunWebSearch(ctx, c.searcher, args)
}

func isReasoningModel(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

func logUsage(model string, usage goopenai.Usage) {
	log.Printf("llm response model=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
		model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

var _ llm.Client = (*Client)(nil)
