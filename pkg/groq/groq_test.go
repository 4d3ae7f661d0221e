package groq

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if c := NewClient(Config{APIKey: "  "}); c != nil {
		t.Fatal("expected nil client for empty api key")
	}
}

func TestProbeFindsModel(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"llama-3.3-70b-versatile","object":"model","created":1,"owned_by":"Meta"}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	if err := Probe(context.Background(), client, "llama-3.3-70b-versatile"); err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if gotPath != "/models/llama-3.3-70b-versatile" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer k" {
		t.Fatalf("unexpected authorization header: %q", gotAuth)
	}
}

func TestProbeMissingModel(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"message":"model not found","type":"invalid_request_error"}}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	if err := Probe(context.Background(), client, "missing"); err == nil {
		t.Fatal("expected error for missing model")
	}
}
