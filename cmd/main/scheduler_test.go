package main

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Houeta/shopwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingChecker struct {
	calls atomic.Int32
	ran   chan struct{}
}

func (c *countingChecker) CheckForUpdates(context.Context) (*models.ItemDiff, error) {
	if c.calls.Add(1) == 1 {
		close(c.ran)
	}

	return &models.ItemDiff{}, nil
}

type fakePoller struct {
	started, stopped atomic.Bool
}

func (f *fakePoller) Start() { f.started.Store(true) }
func (f *fakePoller) Stop()  { f.stopped.Store(true) }

func TestRunScheduled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chk := &countingChecker{ran: make(chan struct{})}
	poller := &fakePoller{}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- runScheduled(ctx, logger, "@every 1s", chk, poller) }()

	select {
	case <-chk.ran:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled check never ran")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	assert.True(t, poller.started.Load())
	assert.True(t, poller.stopped.Load())
	assert.GreaterOrEqual(t, chk.calls.Load(), int32(1))
}

func TestRunScheduled_InvalidSpec(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := runScheduled(t.Context(), logger, "not a schedule", &countingChecker{ran: make(chan struct{})}, nil)

	require.ErrorContains(t, err, "invalid schedule")
}

func TestSetupLogger(t *testing.T) {
	for _, env := range []string{envLocal, envDev, envProd, "unknown"} {
		assert.NotNil(t, setupLogger(env), env)
	}
}
