package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_DoSetsHeaders(t *testing.T) {
	var got http.Header
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := NewClient(&http.Client{Timeout: 5 * time.Second}, nil)
	resp, err := c.Do(context.Background(), Request{
		Step:        "authenticate",
		URL:         server.URL,
		Token:       "abc",
		Correlation: "authenticate-1",
		Body:        []byte(`{"username":"u"}`),
	})
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, "Bearer abc", got.Get("Authorization"))
	assert.Equal(t, "authenticate-1", got.Get("x-correlation"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"username":"u"}`, string(gotBody))
}

func TestClient_DoReturnsNon2xxWithoutError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad"}]}`))
	}))
	defer server.Close()

	resp, err := NewClient(nil, nil).Do(context.Background(), Request{Step: "graphql", URL: server.URL})
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "bad")
}

func TestClient_DoTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	var buf bytes.Buffer
	_, err := NewClient(nil, NewDebugLogger(&buf)).Do(context.Background(), Request{Step: "graphql", URL: url})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graphql")
	assert.Contains(t, buf.String(), "!!! graphql")
}

func TestClient_DoHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(nil, nil).Do(ctx, Request{Step: "slow", URL: server.URL})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStatusError(t *testing.T) {
	err := &StatusError{Step: "registerSystemClient", Status: "403 Forbidden", Body: []byte("nope")}
	assert.Equal(t, "registerSystemClient: unexpected status 403 Forbidden: nope", err.Error())
}
