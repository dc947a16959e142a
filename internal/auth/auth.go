// Package auth obtains bearer tokens from the platform's auth service for
// human users (password, with a verification-code second step) and system
// clients (client credentials).
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"

	vhttp "vitalgen/internal/http"
)

// ErrAuthenticationFailed is returned when no token could be obtained.
var ErrAuthenticationFailed = errors.New("authentication failed")

// Client talks to the auth service.
type Client struct {
	baseURL string
	code    string
	http    *vhttp.Client
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithClock overrides the time source used for correlation ids.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient returns a Client for the auth service at baseURL. code is sent to
// /verifyCode when the service asks for a second factor.
func NewClient(baseURL, code string, transport *vhttp.Client, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		code:    code,
		http:    transport,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token authenticates a user by password. When the service answers with a
// nonce instead of a token, the verification code is exchanged for one.
func (c *Client) Token(ctx context.Context, username, password string) (string, error) {
	body, err := c.post(ctx, username, "/authenticate", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", fmt.Errorf("%w: user %s: %w", ErrAuthenticationFailed, username, err)
	}
	if token := gjson.GetBytes(body, "token").String(); token != "" {
		return token, nil
	}

	body, err = c.post(ctx, username, "/verifyCode", map[string]string{
		"nonce": gjson.GetBytes(body, "nonce").String(),
		"code":  c.code,
	})
	if err != nil {
		return "", fmt.Errorf("%w: user %s: %w", ErrAuthenticationFailed, username, err)
	}
	token := gjson.GetBytes(body, "token").String()
	if token == "" {
		return "", fmt.Errorf("%w: no token for user %s", ErrAuthenticationFailed, username)
	}
	return token, nil
}

// SystemToken authenticates a system client by its credentials.
func (c *Client) SystemToken(ctx context.Context, clientID, secret string) (string, error) {
	body, err := c.post(ctx, clientID, "/authenticateSystemClient", map[string]string{
		"client_id":     clientID,
		"client_secret": secret,
	})
	if err != nil {
		return "", fmt.Errorf("%w: system client %s: %w", ErrAuthenticationFailed, clientID, err)
	}
	token := gjson.GetBytes(body, "token").String()
	if token == "" {
		return "", fmt.Errorf("%w: no token for system client %s", ErrAuthenticationFailed, clientID)
	}
	return token, nil
}

func (c *Client) post(ctx context.Context, principal, path string, payload map[string]string) ([]byte, error) {
	encoded, err := jsoniter.ConfigFastest.Marshal(payload)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(ctx, vhttp.Request{
		Step:        path[1:],
		Actor:       principal,
		URL:         c.baseURL + path,
		Correlation: principal + "-" + strconv.FormatInt(c.now().UnixMilli(), 10),
		Body:        encoded,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &vhttp.StatusError{Step: path[1:], Status: resp.Status, Body: resp.Body}
	}
	return resp.Body, nil
}

// ExpiresAt reads the exp claim of a token without verifying its signature.
func ExpiresAt(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("decoding token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}
