// Package gateway is the client side of the registration platform: the
// GraphQL gateway, the user-management service and the country
// configuration service.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"

	vhttp "vitalgen/internal/http"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrRemoteMutationFailed is the sentinel behind every *RemoteError.
var ErrRemoteMutationFailed = errors.New("remote mutation failed")

// GraphQLError is one entry of a GraphQL response's errors list.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// RemoteError is an application-level failure reported by the platform, or a
// reply that lacks the identifier the operation must return.
type RemoteError struct {
	Operation string
	Status    int
	Errors    []GraphQLError
	Body      []byte
}

func (e *RemoteError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("%s: %v (status %d)", e.Operation, ErrRemoteMutationFailed, e.Status)
	}
	msgs := make([]string, len(e.Errors))
	for i, ge := range e.Errors {
		msgs[i] = ge.Message
	}
	return fmt.Sprintf("%s: %v: %s", e.Operation, ErrRemoteMutationFailed, strings.Join(msgs, "; "))
}

func (e *RemoteError) Unwrap() error { return ErrRemoteMutationFailed }

// Caller is the identity a request is made as.
type Caller interface {
	Name() string
	Token() string
}

// Config holds the service endpoints.
type Config struct {
	GatewayURL       string // GraphQL endpoint
	UserMgntURL      string
	CountryConfigURL string
	Password         string // password set when activating created users
}

// Client is the platform client. It is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *vhttp.Client
	fake   *Faker
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for per-call result lines.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient returns a Client. fake supplies synthetic person data.
func NewClient(cfg Config, transport *vhttp.Client, fake *Faker, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		http:   transport,
		fake:   fake,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphqlRequest struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// response is the GraphQL result envelope: data on success, errors otherwise.
// A reply may carry both.
type response struct {
	Data   jsoniter.RawMessage `json:"data"`
	Errors []GraphQLError      `json:"errors"`
}

// graphql posts a query and returns the value at resultPath inside data.
// Errors in the envelope, a non-2xx status and a missing result all become
// *RemoteError. An empty resultPath accepts any data.
func (c *Client) graphql(ctx context.Context, as Caller, op, correlation, query string, vars map[string]any, resultPath string) (gjson.Result, error) {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: encoding request: %w", op, err)
	}
	resp, err := c.http.Do(ctx, vhttp.Request{
		Step:        op,
		Actor:       as.Name(),
		URL:         c.cfg.GatewayURL,
		Token:       as.Token(),
		Correlation: correlation,
		Body:        body,
	})
	if err != nil {
		return gjson.Result{}, err
	}

	var env response
	if err := json.Unmarshal(resp.Body, &env); err != nil && resp.OK() {
		return gjson.Result{}, c.remoteError(op, resp, nil)
	}
	if len(env.Errors) > 0 || !resp.OK() {
		return gjson.Result{}, c.remoteError(op, resp, env.Errors)
	}
	result := gjson.ParseBytes(env.Data)
	if resultPath != "" {
		result = result.Get(resultPath)
	}
	if !result.Exists() || result.Type == gjson.Null {
		return gjson.Result{}, c.remoteError(op, resp, nil)
	}
	c.logger.Debug("graphql call", "step", op, "actor", as.Name(), "took", resp.Duration)
	return result, nil
}

func (c *Client) remoteError(op string, resp *vhttp.Response, errs []GraphQLError) error {
	c.logger.Error("remote call failed", "step", op, "status", resp.StatusCode, "errors", gjson.GetBytes(resp.Body, "errors").Raw)
	return &RemoteError{Operation: op, Status: resp.StatusCode, Errors: errs, Body: resp.Body}
}

// rest posts a JSON body to a non-GraphQL endpoint and returns the reply.
func (c *Client) rest(ctx context.Context, as Caller, op, url, correlation string, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("%s: encoding request: %w", op, err)
		}
	}
	method := "POST"
	if payload == nil {
		method = "GET"
	}
	resp, err := c.http.Do(ctx, vhttp.Request{
		Step:        op,
		Actor:       as.Name(),
		Method:      method,
		URL:         url,
		Token:       as.Token(),
		Correlation: correlation,
		Body:        body,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, c.remoteError(op, resp, nil)
	}
	return resp.Body, nil
}

func correlationID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// isoTime renders t the way the platform stores timestamps.
func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func isoDate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// parseTimestamp accepts RFC 3339 strings and Unix milliseconds, either as a
// number or a numeric string.
func parseTimestamp(v gjson.Result) (time.Time, error) {
	switch v.Type {
	case gjson.Number:
		return time.UnixMilli(v.Int()).UTC(), nil
	case gjson.String:
		s := v.String()
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, nil
		}
		if ms := gjson.Parse(s); ms.Type == gjson.Number {
			return time.UnixMilli(ms.Int()).UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %s", v.Raw)
}
