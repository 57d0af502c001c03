package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ollamaui/chat"
	"ollamaui/config"
	"ollamaui/providers"
)

// fakeOllama stands in for the inference server
type fakeOllama struct {
	mu     sync.Mutex
	bodies []providers.ChatRequest
	tags   string
	status int
	reply  string
	down   bool
}

func newFakeOllama() *fakeOllama {
	return &fakeOllama{
		tags:  `{"models":[{"name":"deepseek-r1:7b"},{"name":"llama3.2:3b"}]}`,
		reply: `{"message":{"role":"assistant","content":"<think>greet back</think>Hello there!"}}`,
	}
}

func (f *fakeOllama) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		down := f.down
		f.mu.Unlock()
		if down {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		switch r.URL.Path {
		case "/api/tags":
			io.WriteString(w, f.tags)
		case "/api/version":
			io.WriteString(w, `{"version":"0.5.7"}`)
		case "/api/chat":
			var body providers.ChatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.mu.Lock()
			f.bodies = append(f.bodies, body)
			f.mu.Unlock()
			if f.status != 0 {
				w.WriteHeader(f.status)
			}
			io.WriteString(w, f.reply)
		default:
			http.NotFound(w, r)
		}
	}
}

func (f *fakeOllama) received() []providers.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]providers.ChatRequest(nil), f.bodies...)
}

// newTestSetup starts a fake inference server and returns config and responder wired to it
func newTestSetup(t *testing.T, f *fakeOllama) (*config.Config, *chat.Responder) {
	t.Helper()
	upstream := httptest.NewServer(f.handler(t))
	t.Cleanup(upstream.Close)

	cfg := config.Default()
	cfg.Inference.BaseURL = upstream.URL + "/api"
	cfg.Inference.Directive = "You are a test assistant."
	cfg.Inference.Timeout = "5s"
	cfg.Inference.CatalogTimeout = "5s"
	cfg.Inference.HealthInterval = ""
	cfg.DNS.Zone = "chat.example"
	cfg.DNS.Deadline = "5s"

	provider := providers.NewOllamaProvider(providers.OllamaConfig{
		BaseURL:        cfg.Inference.BaseURL,
		ChatTimeout:    5 * time.Second,
		CatalogTimeout: 5 * time.Second,
	})
	responder := chat.NewResponder(provider, chat.Directive{
		Role:    cfg.Inference.DirectiveRole,
		Content: cfg.Inference.Directive,
	})
	return cfg, responder
}
