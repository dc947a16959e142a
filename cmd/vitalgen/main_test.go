package main

import (
	"context"
	"log/slog"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitalgen/internal/core"
)

func TestWatchSignals_SetsFlagBeforeCancel(t *testing.T) {
	logs := &core.LogBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)

	interrupted := watchSignals(sigCh, cancel, slog.New(slog.NewTextHandler(logs, nil)))
	assert.False(t, interrupted.Load())

	sigCh <- syscall.SIGINT
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		require.FailNow(t, "context not cancelled after signal")
	}
	assert.True(t, interrupted.Load())
	assert.Equal(t, 1, logs.Count("received interrupt signal"))
}

func TestWatchSignals_ClosedChannelIsNotAnInterrupt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal)
	close(sigCh)

	interrupted := watchSignals(sigCh, cancel, slog.New(slog.NewTextHandler(&core.LogBuffer{}, nil)))
	time.Sleep(10 * time.Millisecond)
	assert.False(t, interrupted.Load())
	assert.NoError(t, ctx.Err())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"d1", "Ibombo"}, splitList(" d1, ,Ibombo,"))
	assert.Nil(t, splitList(""))
}
