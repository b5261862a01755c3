package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"medscan-backend/internal/llm"
	"medscan-backend/internal/search"
)

// Client implements llm.Client against the Gemini API.
type Client struct {
	APIKey   string
	Model    string
	Timeout  time.Duration
	Searcher search.Searcher
}

// NewClient validates the credential and returns a Gemini client.
func NewClient(apiKey, model string, timeout time.Duration, searcher search.Searcher) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("gemini: model is required")
	}
	return &Client{APIKey: apiKey, Model: strings.TrimSpace(model), Timeout: timeout, Searcher: searcher}, nil
}

// chatSender is the part of *genai.ChatSession the tool loop needs.
type chatSender interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// AnalyzeImage sends the imaging prompt and image in one chat turn and returns the report text.
func (c *Client) AnalyzeImage(ctx context.Context, input llm.ImageInput) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(c.APIKey))
	if err != nil {
		return "", fmt.Errorf("gemini: new client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(c.Model)
	if m == nil {
		return "", errors.New("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0.2),
	}
	if c.Searcher != nil {
		m.Tools = []*genai.Tool{webSearchTool()}
	}

	mimeType := input.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	parts := []genai.Part{
		genai.Text(llm.MedicalImagingPrompt),
		&genai.Blob{MIMEType: mimeType, Data: input.Data},
	}
	return runChat(ctx, m.StartChat(), c.Searcher, parts)
}

// runChat sends parts and answers web_search calls until the model replies with text.
func runChat(ctx context.Context, cs chatSender, searcher search.Searcher, parts []genai.Part) (string, error) {
	for round := 0; ; round++ {
		resp, err := cs.SendMessage(ctx, parts...)
		if err != nil {
			return "", fmt.Errorf("gemini: generate: %w", err)
		}
		calls := functionCalls(resp)
		if len(calls) == 0 {
			txt := strings.TrimSpace(collectText(resp))
			if txt == "" {
				return "", llm.ErrEmptyResponse
			}
			return txt, nil
		}
		if round >= llm.MaxToolRounds {
			return "", llm.ErrToolLoop
		}

		parts = parts[:0:0]
		for _, call := range calls {
			result := "error: unknown tool " + call.Name
			if call.Name == llm.WebSearchTool {
				result = llm.RunWebSearch(ctx, searcher, call.Args)
			}
			parts = append(parts, genai.FunctionResponse{
				Name:     call.Name,
				Response: map[string]any{"result": result},
			})
		}
	}
}

func webSearchTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        llm.WebSearchTool,
			Description: llm.WebSearchDescription,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"query": {Type: genai.TypeString, Description: "Search query"},
				},
				Required: []string{"query"},
			},
		}},
	}
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var out []genai.FunctionCall
	for _, p := range candidateParts(resp) {
		switch v := p.(type) {
		case genai.FunctionCall:
			out = append(out, v)
		case *genai.FunctionCall:
			if v != nil {
				out = append(out, *v)
			}
		}
	}
	return out
}

func collectText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, p := range candidateParts(resp) {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

func candidateParts(resp *genai.GenerateContentResponse) []genai.Part {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return nil
	}
	return cand.Content.Parts
}

func ptrFloat32(v float32) *float32 { return &v }

var _ llm.Client = (*Client)(nil)
