// Package openaitest runs a fake chat-completions endpoint for handler tests.
package openaitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"maritime-edge/internal/common/openai"
)

// Request is one completion call received by the fake.
type Request struct {
	Model       string           `json:"model"`
	Messages    []openai.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens"`
}

// Prompt returns the last user message.
func (r Request) Prompt() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	body     string
	requests []Request
}

// NewServer answers every completion with content as the assistant message.
func NewServer(t testing.TB, content string) *Server {
	return start(t, http.StatusOK, Completion(content))
}

// NewFailingServer answers every completion with status and a raw body.
func NewFailingServer(t testing.TB, status int, body string) *Server {
	return start(t, status, body)
}

func start(t testing.TB, status int, body string) *Server {
	t.Helper()
	s := &Server{status: status, body: body}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var req Request
	_ = json.Unmarshal(raw, &req)

	s.mu.Lock()
	s.requests = append(s.requests, req)
	status, body := s.status, s.body
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// LLM returns a client pointed at the fake with retries disabled.
func (s *Server) LLM() *openai.Client {
	return openai.NewClient(openai.Config{
		BaseURL: s.URL,
		APIKey:  "sk-test",
		Timeout: 5 * time.Second,
	})
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Completion wraps content in a chat-completions response body.
func Completion(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(body)
}
