package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinYield/internal/domain/models"
	"FinYield/pkg/config"
)

type stubRunner struct {
	calls int
	err   error
}

func (s *stubRunner) Run(context.Context) (*models.RunSummary, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.RunSummary{RunID: "r1", Valued: 3}, nil
}

type stubSyncer struct{ n int }

func (s stubSyncer) Sync(context.Context) (int, error) { return s.n, nil }

type closeCounter struct{ closed int }

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestRunOnceClosesResources(t *testing.T) {
	pub := &closeCounter{}
	runner := &stubRunner{}
	app := New(Deps{Config: &config.Config{}, Runner: runner, Publisher: pub})

	sum, err := app.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r1", sum.RunID)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 1, pub.closed)
}

func TestRunOncePropagatesError(t *testing.T) {
	pub := &closeCounter{}
	app := New(Deps{Config: &config.Config{}, Runner: &stubRunner{err: errors.New("boom")}, Publisher: pub})

	_, err := app.RunOnce(context.Background())
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, pub.closed)
}

func TestSyncIndex(t *testing.T) {
	app := New(Deps{Config: &config.Config{}, Syncer: stubSyncer{n: 70}})
	n, err := app.SyncIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 70, n)
}

func TestServeReturnsOnCancel(t *testing.T) {
	pub := &closeCounter{}
	app := New(Deps{Config: &config.Config{}, Publisher: pub})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.Equal(t, 1, pub.closed)
}
