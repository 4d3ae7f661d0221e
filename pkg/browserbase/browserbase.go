package browserbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultBaseURL    = "https://api.browserbase.com/v1"
	DefaultConnectURL = "wss://connect.browserbase.com"

	maxResponseSizeBytes = 1 << 20
	readyPollInterval    = 250 * time.Millisecond
)

var (
	ErrMissingAPIKey = errors.New("browserbase api key is required")

	// ErrInvalidPageURL and ErrNavigation describe the requested page, not
	// the browser session.
	ErrInvalidPageURL = errors.New("invalid page url")
	ErrNavigation     = errors.New("page navigation failed")
)

type Config struct {
	APIKey       string        `split_words:"true"`
	ProjectID    string        `split_words:"true"`
	BaseURL      string        `split_words:"true" default:"https://api.browserbase.com/v1"`
	ConnectURL   string        `split_words:"true" default:"wss://connect.browserbase.com"`
	Timeout      time.Duration `split_words:"true" default:"60s"`
	MaxPageChars int           `split_words:"true" default:"20000"`
}

type Client struct {
	baseURL      string
	connectURL   string
	apiKey       string
	projectID    string
	timeout      time.Duration
	maxPageChars int
	httpClient   *http.Client
}

type Session struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	ConnectURL string `json:"connectUrl"`
}

func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid browserbase url: %w", err)
	}

	connectURL := strings.TrimRight(strings.TrimSpace(cfg.ConnectURL), "/")
	if connectURL == "" {
		connectURL = DefaultConnectURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	maxPageChars := cfg.MaxPageChars
	if maxPageChars <= 0 {
		maxPageChars = 20000
	}

	return &Client{
		baseURL:      baseURL,
		connectURL:   connectURL,
		apiKey:       apiKey,
		projectID:    strings.TrimSpace(cfg.ProjectID),
		timeout:      timeout,
		maxPageChars: maxPageChars,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// CreateSession starts a managed browser session.
func (c *Client) CreateSession(ctx context.Context) (*Session, error) {
	body := map[string]any{}
	if c.projectID != "" {
		body["projectId"] = c.projectID
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-BB-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read session response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("create session: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	if strings.TrimSpace(sess.ID) == "" {
		return nil, errors.New("create session: empty session id")
	}
	return &sess, nil
}

// FetchPage loads pageURL in a fresh session and returns the visible text of
// the page, truncated to the configured character limit.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (string, error) {
	target, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return "", fmt.Errorf("%w %q", ErrInvalidPageURL, pageURL)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sess, err := c.CreateSession(ctx)
	if err != nil {
		return "", err
	}

	conn, err := dialCDP(ctx, c.sessionConnectURL(sess))
	if err != nil {
		return "", fmt.Errorf("connect session=%s: %w", sess.ID, err)
	}
	defer conn.Close()

	pageSession, err := conn.openPage(ctx)
	if err != nil {
		return "", err
	}
	if err := conn.navigate(ctx, pageSession, target.String()); err != nil {
		return "", err
	}
	if err := conn.waitReady(ctx, pageSession, readyPollInterval); err != nil {
		return "", err
	}

	text, err := conn.evaluateString(ctx, pageSession, "document.body ? document.body.innerText : ''")
	if err != nil {
		return "", err
	}
	return truncateRunes(strings.TrimSpace(text), c.maxPageChars), nil
}

func (c *Client) sessionConnectURL(sess *Session) string {
	if v := strings.TrimSpace(sess.ConnectURL); v != "" {
		return v
	}
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("sessionId", sess.ID)
	return c.connectURL + "?" + q.Encode()
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
