// Package gateway talks to the chat backend's HTTP API. Each backend
// capability is one method; failures come back as *Error with a Kind.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ivar-client/metrics"
	"ivar-client/models"
)

const tracerName = "ivar-client/gateway"

type Client struct {
	http   *resty.Client
	tracer trace.Tracer
}

type Option func(*Client)

// WithTimeout bounds every request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithTracerProvider records spans on tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// New builds a client for the backend at baseURL (e.g. http://localhost:8080).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Content-Type", "application/json"),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type validator interface {
	Validate() error
}

func (c *Client) CreateUser(ctx context.Context, req models.CreateUserRequest) error {
	return c.send(ctx, "create_user", http.MethodPost, "/api/v1/users", req)
}

func (c *Client) SendFriendRequest(ctx context.Context, req models.SendFriendRequestRequest) error {
	return c.send(ctx, "send_friend_request", http.MethodPost, "/api/v1/friends", req)
}

// UpdateFriendRequest accepts or rejects a pending request.
func (c *Client) UpdateFriendRequest(ctx context.Context, req models.UpdateFriendRequestRequest) error {
	return c.send(ctx, "update_friend_request", http.MethodPut, "/api/v1/friends", req)
}

func (c *Client) RemoveFriend(ctx context.Context, req models.RemoveFriendRequest) error {
	return c.send(ctx, "remove_friend", http.MethodDelete, "/api/v1/friends", req)
}

func (c *Client) CreateServer(ctx context.Context, req models.CreateServerRequest) error {
	return c.send(ctx, "create_server", http.MethodPost, "/api/v1/servers", req)
}

// StoreMessage persists a message outside of the real-time channel.
func (c *Client) StoreMessage(ctx context.Context, msg models.Message) error {
	if err := models.ValidateMessage(msg); err != nil {
		return c.invalid("store_message", err)
	}
	return c.do(ctx, "store_message", http.MethodPost, "/api/v1/messages", func(r *resty.Request) {
		r.SetBody(msg)
	}, nil)
}

// ListPendingRequests returns both incoming and outgoing pending requests for userID.
func (c *Client) ListPendingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	var out envelope[[]models.FriendRequest]
	if err := c.get(ctx, "list_pending_requests", "/api/v1/friends/requests/{userId}", userID, &out); err != nil {
		return []models.FriendRequest{}, err
	}
	if out.Data == nil {
		return []models.FriendRequest{}, nil
	}
	return out.Data, nil
}

func (c *Client) ListFriends(ctx context.Context, userID string) ([]models.User, error) {
	var out envelope[[]models.User]
	if err := c.get(ctx, "list_friends", "/api/v1/friends/{userId}", userID, &out); err != nil {
		return []models.User{}, err
	}
	return usersOrEmpty(out.Data), nil
}

// ListChats returns the peers userID has exchanged direct messages with.
func (c *Client) ListChats(ctx context.Context, userID string) ([]models.User, error) {
	var out envelope[[]models.User]
	if err := c.get(ctx, "list_chats", "/api/v1/chats/{userId}", userID, &out); err != nil {
		return []models.User{}, err
	}
	return usersOrEmpty(out.Data), nil
}

func (c *Client) ListServers(ctx context.Context) ([]models.Server, error) {
	var out envelope[[]models.Server]
	if err := c.do(ctx, "list_servers", http.MethodGet, "/api/v1/servers", nil, &out); err != nil {
		return []models.Server{}, err
	}
	if out.Data == nil {
		return []models.Server{}, nil
	}
	return out.Data, nil
}

// GetChatInfo fetches both participants and the full history for a user pair.
func (c *Client) GetChatInfo(ctx context.Context, req models.ChatInfoRequest) (models.ChatInfo, error) {
	if err := req.Validate(); err != nil {
		return models.ChatInfo{}, c.invalid("get_chat_info", err)
	}
	var out envelope[models.ChatInfo]
	err := c.do(ctx, "get_chat_info", http.MethodPost, "/api/v1/chats/info", func(r *resty.Request) {
		r.SetBody(req)
	}, &out)
	if err != nil {
		return models.ChatInfo{}, err
	}
	return out.Data, nil
}

// CreateInvite asks the backend for an invite code to serverID.
func (c *Client) CreateInvite(ctx context.Context, serverID string) (string, error) {
	if strings.TrimSpace(serverID) == "" {
		return "", c.invalid("create_invite", models.ErrEmptyField)
	}
	var out envelope[string]
	err := c.do(ctx, "create_invite", http.MethodPost, "/api/v1/invites/{serverId}", func(r *resty.Request) {
		r.SetPathParam("serverId", serverID)
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Data, nil
}

func (c *Client) send(ctx context.Context, op, method, path string, body validator) error {
	if err := body.Validate(); err != nil {
		return c.invalid(op, err)
	}
	return c.do(ctx, op, method, path, func(r *resty.Request) {
		r.SetBody(body)
	}, nil)
}

func (c *Client) get(ctx context.Context, op, path, userID string, out any) error {
	if strings.TrimSpace(userID) == "" {
		return c.invalid(op, models.ErrEmptyField)
	}
	return c.do(ctx, op, http.MethodGet, path, func(r *resty.Request) {
		r.SetPathParam("userId", userID)
	}, out)
}

func (c *Client) invalid(op string, err error) error {
	metrics.ObserveGatewayRequest(op, KindValidation.String(), 0)
	log.Printf("gateway: %s rejected before sending: %v", op, err)
	return &Error{Op: op, Kind: KindValidation, Err: err}
}

func (c *Client) do(ctx context.Context, op, method, path string, configure func(*resty.Request), out any) error {
	ctx, span := c.tracer.Start(ctx, "gateway."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	)

	start := time.Now()
	req := c.http.R().SetContext(ctx)
	if configure != nil {
		configure(req)
	}
	resp, err := req.Execute(method, path)

	gerr := classify(op, resp, err)
	if gerr == nil && out != nil && len(resp.Body()) > 0 {
		if uerr := json.Unmarshal(resp.Body(), out); uerr != nil {
			gerr = &Error{Op: op, Kind: KindTransport, Status: resp.StatusCode(), Err: fmt.Errorf("decode response: %w", uerr)}
		}
	}
	if resp != nil {
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))
	}

	if gerr != nil {
		metrics.ObserveGatewayRequest(op, gerr.Kind.String(), time.Since(start))
		span.RecordError(gerr)
		span.SetStatus(codes.Error, gerr.Kind.String())
		log.Printf("gateway: %v", gerr)
		return gerr
	}
	metrics.ObserveGatewayRequest(op, "ok", time.Since(start))
	return nil
}

func usersOrEmpty(users []models.User) []models.User {
	if users == nil {
		return []models.User{}
	}
	return users
}
