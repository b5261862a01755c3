package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"

	"medscan-backend/internal/llm"
	"medscan-backend/internal/search"
)

type fakeChat struct {
	responses []*genai.GenerateContentResponse
	sent      [][]genai.Part
	err       error
}

func (f *fakeChat) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.sent = append(f.sent, append([]genai.Part(nil), parts...))
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.sent) - 1
	if idx >= len(f.responses) {
		return nil, errors.New("no more responses")
	}
	return f.responses[idx], nil
}

type stubSearcher struct {
	queries []string
}

func (s *stubSearcher) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	s.queries = append(s.queries, query)
	return []search.Result{{Title: "Fracture guideline", URL: "https://example.org/fx"}}, nil
}

func respond(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

func searchCall(query string) genai.FunctionCall {
	return genai.FunctionCall{Name: llm.WebSearchTool, Args: map[string]any{"query": query}}
}

func TestRunChatAnswersFunctionCalls(t *testing.T) {
	chat := &fakeChat{responses: []*genai.GenerateContentResponse{
		respond(searchCall("distal radius fracture management")),
		respond(genai.Text("### 1. Image Type & Region\n"), genai.Text("Wrist X-ray.")),
	}}
	searcher := &stubSearcher{}

	got, err := runChat(context.Background(), chat, searcher, []genai.Part{genai.Text("prompt")})
	if err != nil {
		t.Fatalf("runChat: %v", err)
	}
	if got != "### 1. Image Type & Region\nWrist X-ray." {
		t.Fatalf("unexpected text: %q", got)
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != "distal radius fracture management" {
		t.Fatalf("unexpected queries: %v", searcher.queries)
	}
	if len(chat.sent) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(chat.sent))
	}
	fr, ok := chat.sent[1][0].(genai.FunctionResponse)
	if !ok {
		t.Fatalf("expected function response, got %T", chat.sent[1][0])
	}
	if fr.Name != llm.WebSearchTool {
		t.Fatalf("unexpected function response name: %s", fr.Name)
	}
	if res, _ := fr.Response["result"].(string); res == "" {
		t.Fatalf("expected search result text")
	}
}

func TestRunChatStopsAfterMaxRounds(t *testing.T) {
	var responses []*genai.GenerateContentResponse
	for i := 0; i <= llm.MaxToolRounds; i++ {
		responses = append(responses, respond(searchCall("again")))
	}
	chat := &fakeChat{responses: responses}

	_, err := runChat(context.Background(), chat, &stubSearcher{}, []genai.Part{genai.Text("prompt")})
	if !errors.Is(err, llm.ErrToolLoop) {
		t.Fatalf("expected ErrToolLoop, got %v", err)
	}
	if len(chat.sent) != llm.MaxToolRounds+1 {
		t.Fatalf("expected %d turns, got %d", llm.MaxToolRounds+1, len(chat.sent))
	}
}

func TestRunChatEmptyResponse(t *testing.T) {
	chat := &fakeChat{responses: []*genai.GenerateContentResponse{{}}}
	_, err := runChat(context.Background(), chat, nil, []genai.Part{genai.Text("prompt")})
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestRunChatPropagatesErrors(t *testing.T) {
	boom := errors.New("quota exceeded")
	chat := &fakeChat{err: boom}
	_, err := runChat(context.Background(), chat, nil, []genai.Part{genai.Text("prompt")})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNewClientValidates(t *testing.T) {
	if _, err := NewClient("", "gemini-2.0-flash", time.Second, nil); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := NewClient("key", " ", time.Second, nil); err == nil {
		t.Fatalf("expected error for empty model")
	}
	c, err := NewClient("key", "gemini-2.0-flash", time.Second, search.Disabled{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Model != "gemini-2.0-flash" {
		t.Fatalf("unexpected model: %s", c.Model)
	}
}
