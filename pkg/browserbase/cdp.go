package browserbase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// cdpConn speaks the Chrome DevTools Protocol over a browser-level websocket.
// Calls are strictly sequential; events are read and discarded.
type cdpConn struct {
	ws     *websocket.Conn
	nextID int64
}

type cdpRequest struct {
	ID        int64  `json:"id"`
	Method    string `json:"method"`
	Params    any    `json:"params,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type cdpResponse struct {
	ID     int64           `json:"id"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *cdpError       `json:"error,omitempty"`
}

type cdpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *cdpError) Error() string {
	return fmt.Sprintf("cdp error %d: %s", e.Code, e.Message)
}

func dialCDP(ctx context.Context, wsURL string) (*cdpConn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	return &cdpConn{ws: ws}, nil
}

func (c *cdpConn) Close() error {
	return c.ws.Close()
}

func (c *cdpConn) call(ctx context.Context, sessionID string, method string, params any, out any) error {
	c.nextID++
	id := c.nextID

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := c.ws.WriteJSON(cdpRequest{ID: id, Method: method, Params: params, SessionID: sessionID}); err != nil {
		return fmt.Errorf("cdp %s: write: %w", method, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cdp %s: %w", method, err)
		}
		if err := c.ws.SetReadDeadline(deadline); err != nil {
			return err
		}

		var resp cdpResponse
		if err := c.ws.ReadJSON(&resp); err != nil {
			return fmt.Errorf("cdp %s: read: %w", method, err)
		}
		if resp.ID != id {
			continue
		}
		if resp.Error != nil {
			return fmt.Errorf("cdp %s: %w", method, resp.Error)
		}
		if out == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("cdp %s: decode result: %w", method, err)
		}
		return nil
	}
}

// openPage creates a blank tab and returns the flattened session id bound to it.
func (c *cdpConn) openPage(ctx context.Context) (string, error) {
	var created struct {
		TargetID string `json:"targetId"`
	}
	if err := c.call(ctx, "", "Target.createTarget", map[string]any{"url": "about:blank"}, &created); err != nil {
		return "", err
	}
	if created.TargetID == "" {
		return "", errors.New("cdp Target.createTarget: empty target id")
	}

	var attached struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.call(ctx, "", "Target.attachToTarget", map[string]any{
		"targetId": created.TargetID,
		"flatten":  true,
	}, &attached); err != nil {
		return "", err
	}
	if attached.SessionID == "" {
		return "", errors.New("cdp Target.attachToTarget: empty session id")
	}
	return attached.SessionID, nil
}

func (c *cdpConn) navigate(ctx context.Context, sessionID string, pageURL string) error {
	var nav struct {
		FrameID   string `json:"frameId"`
		ErrorText string `json:"errorText"`
	}
	if err := c.call(ctx, sessionID, "Page.navigate", map[string]any{"url": pageURL}, &nav); err != nil {
		return err
	}
	if nav.ErrorText != "" {
		return fmt.Errorf("%w: %s: %s", ErrNavigation, pageURL, nav.ErrorText)
	}
	return nil
}

func (c *cdpConn) waitReady(ctx context.Context, sessionID string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		state, err := c.evaluateString(ctx, sessionID, "document.readyState")
		if err != nil {
			return err
		}
		if state == "complete" {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for page load: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *cdpConn) evaluateString(ctx context.Context, sessionID string, expression string) (string, error) {
	var out struct {
		Result struct {
			Type  string `json:"type"`
			Value any    `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails,omitempty"`
	}
	if err := c.call(ctx, sessionID, "Runtime.evaluate", map[string]any{
		"expression":    expression,
		"returnByValue": true,
	}, &out); err != nil {
		return "", err
	}
	if out.ExceptionDetails != nil {
		return "", fmt.Errorf("evaluate %q: %s", expression, out.ExceptionDetails.Text)
	}
	s, _ := out.Result.Value.(string)
	return s, nil
}
