package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vhttp "vitalgen/internal/http"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

type fakeAuth struct {
	twoFactor      bool
	verifyCalls    atomic.Int32
	lastCorrelated atomic.Value
	token          string
}

func (f *fakeAuth) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/authenticate", func(w http.ResponseWriter, r *http.Request) {
		f.lastCorrelated.Store(r.Header.Get("x-correlation"))
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.twoFactor {
			_ = json.NewEncoder(w).Encode(map[string]string{"nonce": "n-1"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": f.token})
	})
	mux.HandleFunc("/verifyCode", func(w http.ResponseWriter, r *http.Request) {
		f.verifyCalls.Add(1)
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["nonce"] != "n-1" || req["code"] != "000000" {
			_ = json.NewEncoder(w).Encode(map[string]string{})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": f.token})
	})
	mux.HandleFunc("/authenticateSystemClient", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["client_id"] != "client-1" || req["client_secret"] != "s3cret" {
			_ = json.NewEncoder(w).Encode(map[string]string{})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": f.token})
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeAuth, code string) *Client {
	t.Helper()
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)
	fixed := time.UnixMilli(1700000000000)
	return NewClient(server.URL, code, vhttp.NewClient(nil, nil), WithClock(func() time.Time { return fixed }))
}

func TestToken_Direct(t *testing.T) {
	f := &fakeAuth{token: "tok"}
	c := newTestClient(t, f, "000000")

	token, err := c.Token(context.Background(), "kalusha.bwalya", "test")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Zero(t, f.verifyCalls.Load())
	assert.Equal(t, "kalusha.bwalya-1700000000000", f.lastCorrelated.Load())
}

func TestToken_VerificationCodeFallback(t *testing.T) {
	f := &fakeAuth{token: "tok", twoFactor: true}
	c := newTestClient(t, f, "000000")

	token, err := c.Token(context.Background(), "kalusha.bwalya", "test")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.EqualValues(t, 1, f.verifyCalls.Load())
}

func TestToken_Failures(t *testing.T) {
	tests := []struct {
		name     string
		password string
		code     string
	}{
		{"wrong password", "nope", "000000"},
		{"wrong verification code", "test", "123456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, &fakeAuth{token: "tok", twoFactor: true}, tt.code)
			_, err := c.Token(context.Background(), "user", tt.password)
			assert.ErrorIs(t, err, ErrAuthenticationFailed)
		})
	}
}

func TestSystemToken(t *testing.T) {
	c := newTestClient(t, &fakeAuth{token: "sys"}, "000000")

	token, err := c.SystemToken(context.Background(), "client-1", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "sys", token)

	_, err = c.SystemToken(context.Background(), "client-1", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestToken_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	c := NewClient(server.URL, "000000", vhttp.NewClient(nil, nil))

	_, err := c.Token(context.Background(), "user", "test")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestExpiresAt(t *testing.T) {
	exp := time.Unix(1700000100, 0)
	got, err := ExpiresAt(signed(t, exp))
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	_, err = ExpiresAt("not-a-jwt")
	assert.Error(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = ExpiresAt(noExp)
	assert.Error(t, err)
}
