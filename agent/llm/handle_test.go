package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
)

func newModelsServer(t *testing.T, known string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/models/"+known {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"message":"model not found","type":"invalid_request_error"}}`)
			return
		}
		fmt.Fprintf(w, `{"id":%q,"object":"model","created":1,"owned_by":"Meta"}`, known)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func handleConfig(baseURL, model string, probe bool) Config {
	return Config{
		BaseURL:            baseURL,
		APIKey:             "k",
		Model:              model,
		MaxCompletionToken: 256,
		Temperature:        0.5,
		Timeout:            5 * time.Second,
		Probe:              probe,
	}
}

func TestNewHandleProbeFindsModel(t *testing.T) {
	t.Parallel()

	server, hits := newModelsServer(t, "llama-3.3-70b-versatile")
	h, err := NewHandle(context.Background(), handleConfig(server.URL, "llama-3.3-70b-versatile", true))
	if err != nil {
		t.Fatalf("NewHandle() error = %v", err)
	}
	if h.Name() != "llama-3.3-70b-versatile" || h.Model() == nil {
		t.Fatalf("unexpected handle: name=%q model=%v", h.Name(), h.Model())
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one probe request, got %d", hits.Load())
	}
}

func TestNewHandleProbeMissingModel(t *testing.T) {
	t.Parallel()

	server, _ := newModelsServer(t, "llama-3.3-70b-versatile")
	_, err := NewHandle(context.Background(), handleConfig(server.URL, "no-such-model", true))
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}

func TestNewHandleWithoutProbeSkipsProvider(t *testing.T) {
	t.Parallel()

	server, hits := newModelsServer(t, "llama-3.3-70b-versatile")
	h, err := NewHandle(context.Background(), handleConfig(server.URL, "no-such-model", false))
	if err != nil {
		t.Fatalf("NewHandle() error = %v", err)
	}
	if h.Name() != "no-such-model" {
		t.Fatalf("unexpected name: %q", h.Name())
	}
	if hits.Load() != 0 {
		t.Fatalf("no request expected without probe, got %d", hits.Load())
	}
}

func TestNewHandleRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := handleConfig("https://api.groq.com/openai/v1", "llama-3.3-70b-versatile", false)
	cfg.APIKey = " "
	if _, err := NewHandle(context.Background(), cfg); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
