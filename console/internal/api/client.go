package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/console/config"
	"github.com/Astemirdum/equipment-lending/console/internal/model"
	"github.com/Astemirdum/equipment-lending/pkg/circuit_breaker"
)

// Client is the typed portal REST client. Mutations are never retried.
type Client struct {
	log     *zap.Logger
	client  *http.Client
	baseURL string
	cb      circuit_breaker.CircuitBreaker

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithCircuitBreaker(cb circuit_breaker.CircuitBreaker) Option {
	return func(c *Client) {
		c.cb = cb
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

func NewClient(cfg config.API, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		log:     log.Named("api"),
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cb:      circuit_breaker.New(20, 10*time.Second, 0.5, 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do sends one request. Only transport failures and 5xx answers count against
// the breaker; 4xx answers are the caller's problem.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "json.Marshal")
		}
		payload = b
	}

	var apiErr error
	err := c.cb.Call(func() error {
		var body io.Reader = http.NoBody
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if tok := c.bearer(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= http.StatusBadRequest {
			e := fromResponse(resp.StatusCode, data)
			apiErr = e
			if resp.StatusCode >= http.StatusInternalServerError {
				return e
			}
			return nil
		}
		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				apiErr = &Error{Kind: KindTransient, Status: resp.StatusCode, Message: MsgServerUnavailable, Err: err}
			}
		}
		return nil
	})
	switch {
	case errors.Is(err, circuit_breaker.ErrOpenCB):
		c.log.Warn("circuit breaker open", zap.String("path", path))
		return &Error{Kind: KindTransient, Message: MsgServerUnavailable, Err: err}
	case apiErr != nil:
		return apiErr
	case err != nil:
		c.log.Warn("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return &Error{Kind: KindTransient, Message: MsgServerUnavailable, Err: err}
	}
	return nil
}

// SignUp sends the stored token when there is one, so an admin can create
// STAFF and ADMIN accounts.
func (c *Client) SignUp(ctx context.Context, req model.SignUpRequest) (model.TokenResponse, error) {
	var tok model.TokenResponse
	err := c.do(ctx, http.MethodPost, "/users/signup", req, &tok)
	return tok, err
}

func (c *Client) Login(ctx context.Context, email, password string) (model.TokenResponse, error) {
	var tok model.TokenResponse
	err := c.do(ctx, http.MethodPost, "/users/login", model.LoginRequest{Email: email, Password: password}, &tok)
	return tok, err
}

func (c *Client) ListEquipment(ctx context.Context) ([]model.Equipment, error) {
	var items []model.Equipment
	err := c.do(ctx, http.MethodGet, "/equipment", nil, &items)
	return items, err
}

func (c *Client) GetEquipment(ctx context.Context, id int64) (model.Equipment, error) {
	var item model.Equipment
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/equipment/%d", id), nil, &item)
	return item, err
}

func (c *Client) CreateEquipment(ctx context.Context, in model.EquipmentInput) (model.Equipment, error) {
	var item model.Equipment
	err := c.do(ctx, http.MethodPost, "/equipment", in, &item)
	return item, err
}

func (c *Client) UpdateEquipment(ctx context.Context, id int64, in model.EquipmentInput) (model.Equipment, error) {
	var item model.Equipment
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/equipment/%d", id), in, &item)
	return item, err
}

// DeleteEquipment maps integrity failures to the has-history message. A 500 is
// treated the same way since some deployments surface the FK violation raw.
func (c *Client) DeleteEquipment(ctx context.Context, id int64) error {
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/equipment/%d", id), nil, nil)
	var e *Error
	if errors.As(err, &e) && (e.Status == http.StatusConflict || e.Status == http.StatusInternalServerError) {
		return &Error{Kind: KindConflict, Status: e.Status, Message: MsgDeleteHasHistory, Err: e}
	}
	return err
}

func (c *Client) ListPending(ctx context.Context) ([]model.BorrowRequest, error) {
	return c.listRequests(ctx, "/borrow/pending")
}

func (c *Client) ListIssued(ctx context.Context) ([]model.BorrowRequest, error) {
	return c.listRequests(ctx, "/borrow/issued")
}

func (c *Client) ListMine(ctx context.Context) ([]model.BorrowRequest, error) {
	return c.listRequests(ctx, "/borrow/my")
}

func (c *Client) listRequests(ctx context.Context, path string) ([]model.BorrowRequest, error) {
	var items []model.BorrowRequest
	err := c.do(ctx, http.MethodGet, path, nil, &items)
	return items, err
}

func (c *Client) CreateBorrowRequest(ctx context.Context, in model.CreateBorrowRequest) (model.BorrowRequest, error) {
	var br model.BorrowRequest
	err := c.do(ctx, http.MethodPost, "/borrow/request", in, &br)
	return br, err
}

func (c *Client) Approve(ctx context.Context, id int64, comment string) (model.BorrowRequest, error) {
	return c.transition(ctx, id, "approve", &model.ActionRequest{Comment: comment})
}

func (c *Client) Reject(ctx context.Context, id int64, comment string) (model.BorrowRequest, error) {
	return c.transition(ctx, id, "reject", &model.ActionRequest{Comment: comment})
}

func (c *Client) Issue(ctx context.Context, id int64) (model.BorrowRequest, error) {
	return c.transition(ctx, id, "issue", nil)
}

func (c *Client) Return(ctx context.Context, id int64) (model.BorrowRequest, error) {
	return c.transition(ctx, id, "return", nil)
}

func (c *Client) transition(ctx context.Context, id int64, action string, body *model.ActionRequest) (model.BorrowRequest, error) {
	var br model.BorrowRequest
	var in any
	if body != nil {
		in = body
	}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/borrow/%d/%s", id, action), in, &br)
	return br, err
}

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := c.do(ctx, http.MethodGet, "/users", nil, &users)
	return users, err
}

func (c *Client) GetUser(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, &u)
	return u, err
}

func (c *Client) ListOverdue(ctx context.Context) ([]model.Notification, error) {
	var items []model.Notification
	err := c.do(ctx, http.MethodGet, "/notifications/overdue", nil, &items)
	return items, err
}

func (c *Client) CheckOverdue(ctx context.Context) (model.OverdueCheckResult, error) {
	var res model.OverdueCheckResult
	err := c.do(ctx, http.MethodPost, "/notifications/overdue/check", nil, &res)
	return res, err
}
