package main

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"y3sh-bybit-sdk-go/client/websocket"
)

func TestShouldReconnect(t *testing.T) {
	connErr := &websocket.ConnectError{URL: "ws://x", Err: errors.New("refused")}

	assert.True(t, shouldReconnect(websocket.ExitNotStarted, connErr))
	assert.True(t, shouldReconnect(websocket.ExitNotStarted, errors.Trace(connErr)))
	assert.True(t, shouldReconnect(websocket.ExitTransportError, &websocket.TransportError{Op: "receive", Err: errors.New("eof")}))
	assert.True(t, shouldReconnect(websocket.ExitIdleTimeout, nil))
	assert.True(t, shouldReconnect(websocket.ExitRemoteClose, nil))

	assert.False(t, shouldReconnect(websocket.ExitCancelled, nil))
	assert.False(t, shouldReconnect(websocket.ExitDecodeError, &websocket.DecodeError{Err: errors.New("bad")}))
	assert.False(t, shouldReconnect(websocket.ExitHandlerError, errors.New("handler")))
	assert.False(t, shouldReconnect(websocket.ExitNotStarted, websocket.ErrNoTopics))
}

type sessionResult struct {
	reason websocket.ExitReason
	err    error
}

func scriptedSessions(results []sessionResult, calls *int) sessionFunc {
	return func(ctx context.Context) (websocket.ExitReason, error) {
		r := results[*calls]
		*calls++
		return r.reason, r.err
	}
}

func TestRunWithReconnect(t *testing.T) {
	handlerErr := errors.New("handler failed")

	calls := 0
	run := scriptedSessions([]sessionResult{
		{websocket.ExitNotStarted, &websocket.ConnectError{URL: "ws://x", Err: errors.New("refused")}},
		{websocket.ExitTransportError, &websocket.TransportError{Op: "receive", Err: errors.New("eof")}},
		{websocket.ExitIdleTimeout, nil},
		{websocket.ExitRemoteClose, nil},
		{websocket.ExitHandlerError, handlerErr},
	}, &calls)

	err := runWithReconnect(context.Background(), backoff.NewConstantBackOff(time.Millisecond), run)
	assert.Equal(t, handlerErr, errors.Cause(err))
	assert.Equal(t, 5, calls)
}

func TestRunWithReconnectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	run := func(ctx context.Context) (websocket.ExitReason, error) {
		calls++
		cancel()
		return websocket.ExitCancelled, nil
	}

	err := runWithReconnect(ctx, backoff.NewConstantBackOff(time.Millisecond), run)
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunWithReconnectGivesUp(t *testing.T) {
	calls := 0
	run := func(ctx context.Context) (websocket.ExitReason, error) {
		calls++
		return websocket.ExitNotStarted, &websocket.ConnectError{URL: "ws://x", Err: errors.New("refused")}
	}

	err := runWithReconnect(context.Background(), backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2), run)
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestNewBackOff(t *testing.T) {
	b := newBackOff(ReconnectConfig{
		InitialInterval: time.Second,
		MaxInterval:     4 * time.Second,
	})

	assert.Equal(t, time.Duration(0), b.MaxElapsedTime)
	assert.Equal(t, time.Second, b.InitialInterval)

	for i := 0; i < 10; i++ {
		d := b.NextBackOff()
		assert.NotEqual(t, backoff.Stop, d)
		assert.True(t, d <= 6*time.Second, "delay %s", d)
	}
}
