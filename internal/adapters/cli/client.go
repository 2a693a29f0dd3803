package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andrescamacho/artifacts-go/internal/application/orderboard"
	"github.com/andrescamacho/artifacts-go/internal/application/runtime"
)

// DaemonClient talks to a running daemon's control API over HTTP
type DaemonClient struct {
	baseURL string
	http    *http.Client
}

// NewDaemonClient creates a client for the given base URL
func NewDaemonClient(baseURL string) *DaemonClient {
	return &DaemonClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type controlError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *DaemonClient) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var ce controlError
		if json.Unmarshal(data, &ce) == nil && ce.Code != "" {
			return fmt.Errorf("daemon rejected request (%s): %s", ce.Code, ce.Message)
		}
		return fmt.Errorf("daemon responded %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Status fetches the runtime status
func (c *DaemonClient) Status(ctx context.Context) (*runtime.Status, error) {
	var status runtime.Status
	if err := c.do(ctx, http.MethodGet, "/api/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Orders fetches the order board snapshot
func (c *DaemonClient) Orders(ctx context.Context) (*orderboard.Snapshot, error) {
	var snap orderboard.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/orders", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Control posts one of the control operations
func (c *DaemonClient) Control(ctx context.Context, operation string) error {
	return c.do(ctx, http.MethodPost, "/api/control/"+operation, nil)
}
