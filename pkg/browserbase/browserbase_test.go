package browserbase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

type fakeBrowser struct {
	mu          sync.Mutex
	readyPolls  int
	pageText    string
	navigateErr string
	methods     []string
	apiKey      string
	projectID   string
}

func (f *fakeBrowser) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.methods...)
}

func newFakeBrowserbase(t *testing.T, f *fakeBrowser) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.apiKey = r.Header.Get("X-BB-API-Key")
		f.projectID, _ = body["projectId"].(string)
		f.mu.Unlock()

		wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/devtools"
		fmt.Fprintf(w, `{"id":"sess-1","status":"RUNNING","connectUrl":%q}`, wsURL)
	})

	mux.HandleFunc("/devtools", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		polls := 0
		for {
			var req cdpRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			f.mu.Lock()
			f.methods = append(f.methods, req.Method)
			f.mu.Unlock()

			// An unrelated event must be skipped by the client.
			_ = conn.WriteJSON(map[string]any{"method": "Target.targetCreated", "params": map[string]any{}})

			var result any
			switch req.Method {
			case "Target.createTarget":
				result = map[string]any{"targetId": "target-1"}
			case "Target.attachToTarget":
				result = map[string]any{"sessionId": "page-1"}
			case "Page.navigate":
				if req.SessionID != "page-1" {
					_ = conn.WriteJSON(map[string]any{"id": req.ID, "error": map[string]any{"code": -32000, "message": "no session"}})
					continue
				}
				result = map[string]any{"frameId": "frame-1", "errorText": f.navigateErr}
			case "Runtime.evaluate":
				params, _ := req.Params.(map[string]any)
				expr, _ := params["expression"].(string)
				value := f.pageText
				if expr == "document.readyState" {
					polls++
					value = "loading"
					if polls > f.readyPolls {
						value = "complete"
					}
				}
				result = map[string]any{"result": map[string]any{"type": "string", "value": value}}
			default:
				result = map[string]any{}
			}
			_ = conn.WriteJSON(map[string]any{"id": req.ID, "result": result})
		}
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestFetchPageReturnsVisibleText(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{readyPolls: 1, pageText: "  Hilton Times Square $299/night  "}
	server := newFakeBrowserbase(t, browser)

	client, err := NewClient(Config{APIKey: "bb-key", ProjectID: "proj", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	text, err := client.FetchPage(context.Background(), "https://www.kayak.com/hotels/New-York")
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if text != "Hilton Times Square $299/night" {
		t.Fatalf("unexpected text: %q", text)
	}
	browser.mu.Lock()
	apiKey, projectID := browser.apiKey, browser.projectID
	browser.mu.Unlock()
	if apiKey != "bb-key" || projectID != "proj" {
		t.Fatalf("unexpected session request: key=%q project=%q", apiKey, projectID)
	}

	want := []string{
		"Target.createTarget",
		"Target.attachToTarget",
		"Page.navigate",
		"Runtime.evaluate",
		"Runtime.evaluate",
		"Runtime.evaluate",
	}
	got := browser.recorded()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected cdp calls:\n got %v\nwant %v", got, want)
	}
}

func TestFetchPageTruncates(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{pageText: "ààààà"}
	server := newFakeBrowserbase(t, browser)

	client := MustNew(Config{APIKey: "k", BaseURL: server.URL, MaxPageChars: 3})
	text, err := client.FetchPage(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if text != "ààà" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestFetchPageNavigateError(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{navigateErr: "net::ERR_NAME_NOT_RESOLVED"}
	server := newFakeBrowserbase(t, browser)

	client := MustNew(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.FetchPage(context.Background(), "https://nowhere.invalid")
	if !errors.Is(err, ErrNavigation) || !strings.Contains(err.Error(), "ERR_NAME_NOT_RESOLVED") {
		t.Fatalf("expected navigate error, got %v", err)
	}
}

func TestFetchPageRejectsInvalidURL(t *testing.T) {
	t.Parallel()

	client := MustNew(Config{APIKey: "k"})
	for _, raw := range []string{"", "ftp://x", "not a url", "https://", "www.kayak.com/hotels/New-York", "/hotels/x"} {
		if _, err := client.FetchPage(context.Background(), raw); !errors.Is(err, ErrInvalidPageURL) {
			t.Fatalf("expected ErrInvalidPageURL for %q, got %v", raw, err)
		}
	}
}

func TestCreateSessionStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid api key"}`)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{APIKey: "bad", BaseURL: server.URL})
	_, err := client.CreateSession(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status=401") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestSessionConnectURLFallback(t *testing.T) {
	t.Parallel()

	client := MustNew(Config{APIKey: "key 1"})
	got := client.sessionConnectURL(&Session{ID: "s1"})
	if got != "wss://connect.browserbase.com?apiKey=key+1&sessionId=s1" {
		t.Fatalf("unexpected connect url: %s", got)
	}
}
