package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/andrescamacho/artifacts-go/internal/application/common"
	"github.com/andrescamacho/artifacts-go/internal/domain/character"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
	"github.com/andrescamacho/artifacts-go/internal/infrastructure/config"
)

const bankItemsPageSize = 100

// Recorder observes API traffic for the metrics layer. Optional.
type Recorder interface {
	RecordAPIRequest(method, path string, status int, elapsed time.Duration)
}

// Client talks to the game server. It enforces a client-side rate limit and
// retries transient failures with jittered exponential backoff. Cooldown
// handling is the caller's job; the client only surfaces it in the result.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	limiter  *rate.Limiter
	retries  int
	backoff  time.Duration
	recorder Recorder
}

// NewClient creates a client from the API config
func NewClient(cfg config.APIConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit.Requests), cfg.RateLimit.Burst),
		retries: cfg.Retry.MaxAttempts,
		backoff: cfg.Retry.BackoffBase,
	}
}

// SetRecorder installs a traffic observer
func (c *Client) SetRecorder(r Recorder) {
	c.recorder = r
}

type apiErrorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do issues one request with rate limiting and retries, decoding the data
// envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			// Exponential backoff with jitter; game errors never retry.
			wait := c.backoff << (attempt - 1)
			wait += time.Duration(rand.Int63n(int64(c.backoff)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		retry, err := c.once(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("request %s %s failed after %d attempts: %w", method, path, c.retries, lastErr)
}

// once runs a single HTTP exchange. retry reports whether the failure is
// transient.
func (c *Client) once(ctx context.Context, method, path string, payload []byte, out interface{}) (bool, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return true, err
	}
	defer resp.Body.Close()
	if c.recorder != nil {
		c.recorder.RecordAPIRequest(method, path, resp.StatusCode, time.Since(started))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, err
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return true, fmt.Errorf("server responded %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var envelope apiErrorEnvelope
		if jsonErr := json.Unmarshal(data, &envelope); jsonErr == nil && envelope.Error.Code != 0 {
			return false, shared.NewGameAPIError(envelope.Error.Code, envelope.Error.Message)
		}
		return false, shared.NewGameAPIError(resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if out == nil {
		return false, nil
	}
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(wrapper.Data, out); err != nil {
		return false, fmt.Errorf("failed to decode response data: %w", err)
	}
	return false, nil
}

// action posts an action endpoint and folds the envelope into a result
func (c *Client) action(ctx context.Context, name, action string, body interface{}) (*common.ActionResult, error) {
	var dto actionDTO
	path := fmt.Sprintf("/my/%s/action/%s", name, action)
	if err := c.do(ctx, http.MethodPost, path, body, &dto); err != nil {
		return nil, err
	}
	return dto.toResult(), nil
}

func (c *Client) GetCharacter(ctx context.Context, name string) (*character.Record, error) {
	var dto characterDTO
	if err := c.do(ctx, http.MethodGet, "/characters/"+name, nil, &dto); err != nil {
		return nil, err
	}
	return dto.toRecord(), nil
}

func (c *Client) Move(ctx context.Context, name string, x, y int) (*common.ActionResult, error) {
	return c.action(ctx, name, "move", map[string]int{"x": x, "y": y})
}

func (c *Client) Rest(ctx context.Context, name string) (*common.ActionResult, error) {
	return c.action(ctx, name, "rest", nil)
}

func (c *Client) Fight(ctx context.Context, name string) (*common.ActionResult, error) {
	return c.action(ctx, name, "fight", nil)
}

func (c *Client) Gather(ctx context.Context, name string) (*common.ActionResult, error) {
	return c.action(ctx, name, "gathering", nil)
}

func (c *Client) Craft(ctx context.Context, name, itemCode string, quantity int) (*common.ActionResult, error) {
	return c.action(ctx, name, "crafting", map[string]interface{}{"code": itemCode, "quantity": quantity})
}

func (c *Client) UseItem(ctx context.Context, name, itemCode string, quantity int) (*common.ActionResult, error) {
	return c.action(ctx, name, "use", map[string]interface{}{"code": itemCode, "quantity": quantity})
}

func (c *Client) Equip(ctx context.Context, name, itemCode string, slot character.Slot, quantity int) (*common.ActionResult, error) {
	return c.action(ctx, name, "equip", map[string]interface{}{"code": itemCode, "slot": string(slot), "quantity": quantity})
}

func (c *Client) Unequip(ctx context.Context, name string, slot character.Slot, quantity int) (*common.ActionResult, error) {
	return c.action(ctx, name, "unequip", map[string]interface{}{"slot": string(slot), "quantity": quantity})
}

type itemLine struct {
	Code     string `json:"code"`
	Quantity int    `json:"quantity"`
}

func itemLines(items []character.InventorySlot) []itemLine {
	lines := make([]itemLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, itemLine{Code: it.Code, Quantity: it.Quantity})
	}
	return lines
}

func (c *Client) WithdrawBank(ctx context.Context, name string, items []character.InventorySlot) (*common.ActionResult, error) {
	return c.action(ctx, name, "bank/withdraw/item", itemLines(items))
}

func (c *Client) DepositBank(ctx context.Context, name string, items []character.InventorySlot) (*common.ActionResult, error) {
	return c.action(ctx, name, "bank/deposit/item", itemLines(items))
}

func (c *Client) WithdrawGold(ctx context.Context, name string, quantity int) (*common.ActionResult, error) {
	return c.action(ctx, name, "bank/withdraw/gold", map[string]int{"quantity": quantity})
}

func (c *Client) DepositGold(ctx context.Context, name string, quantity int) (*common.ActionResult, error) {
	return c.action(ctx, name, "bank/deposit/gold", map[string]int{"quantity": quantity})
}

func (c *Client) BuyBankExpansion(ctx context.Context, name string) (*common.ActionResult, error) {
	return c.action(ctx, name, "bank/buy_expansion", nil)
}

func (c *Client) GetBankDetails(ctx context.Context) (*common.BankState, error) {
	var dto bankDTO
	if err := c.do(ctx, http.MethodGet, "/my/bank", nil, &dto); err != nil {
		return nil, err
	}
	return &common.BankState{Gold: dto.Gold, NextExpansionCost: dto.NextExpansionCost, Slots: dto.Slots}, nil
}

// GetBankItems walks the paginated bank listing into a single map
func (c *Client) GetBankItems(ctx context.Context) (map[string]int, error) {
	items := make(map[string]int)
	for page := 1; ; page++ {
		var lines []itemLine
		path := fmt.Sprintf("/my/bank/items?page=%d&size=%d", page, bankItemsPageSize)
		if err := c.do(ctx, http.MethodGet, path, nil, &lines); err != nil {
			return nil, err
		}
		for _, line := range lines {
			items[line.Code] += line.Quantity
		}
		if len(lines) < bankItemsPageSize {
			return items, nil
		}
	}
}

func (c *Client) NpcBuy(ctx context.Context, name, itemCode string, quantity int) (*common.ActionResult, error) {
	return c.action(ctx, name, "npc/buy", map[string]interface{}{"code": itemCode, "quantity": quantity})
}

func (c *Client) Recycle(ctx context.Context, name, itemCode string, quantity int) (*common.ActionResult, error) {
	return c.action(ctx, name, "recycling", map[string]interface{}{"code": itemCode, "quantity": quantity})
}

func (c *Client) GeCreateSellOrder(ctx context.Context, name, itemCode string, quantity, price int) (*common.ActionResult, error) {
	return c.action(ctx, name, "grandexchange/sell", map[string]interface{}{"code": itemCode, "quantity": quantity, "price": price})
}

func (c *Client) AcceptTask(ctx context.Context, name string) (*common.ActionResult, error) {
	return c.action(ctx, name, "task/new", nil)
}

func (c *Client) CompleteTask(ctx context.Context, name string) (*common.ActionResult, error) {
	return c.action(ctx, name, "task/complete", nil)
}

func (c *Client) CancelTask(ctx context.Context, name string) (*common.ActionResult, error) {
	return c.action(ctx, name, "task/cancel", nil)
}

func (c *Client) TaskTrade(ctx context.Context, name, itemCode string, quantity int) (*common.ActionResult, error) {
	return c.action(ctx, name, "task/trade", map[string]interface{}{"code": itemCode, "quantity": quantity})
}

func (c *Client) TaskExchange(ctx context.Context, name string) (*common.ActionResult, error) {
	return c.action(ctx, name, "task/exchange", nil)
}

var _ common.APIClient = (*Client)(nil)
