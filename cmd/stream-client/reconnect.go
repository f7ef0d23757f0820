package main

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"y3sh-bybit-sdk-go/client/websocket"
)

// sessionFunc runs a single session from connecting till the loop exits.
type sessionFunc func(ctx context.Context) (websocket.ExitReason, error)

// shouldReconnect returns whether a session which ended like that is worth
// starting again. Decode and handler errors would just happen again.
func shouldReconnect(reason websocket.ExitReason, err error) bool {
	var cerr *websocket.ConnectError
	if stderrors.As(err, &cerr) {
		return true
	}

	switch reason {
	case websocket.ExitTransportError, websocket.ExitIdleTimeout, websocket.ExitRemoteClose:
		return true
	}

	return false
}

func newBackOff(cfg ReconnectConfig) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	b.MaxElapsedTime = cfg.MaxElapsedTime
	b.Reset()
	return b
}

// runWithReconnect keeps running sessions until one ends for good, the
// context is cancelled, or b gives up. The backoff starts over after every
// session which managed to connect.
func runWithReconnect(ctx context.Context, b backoff.BackOff, run sessionFunc) error {
	op := func() error {
		reason, err := run(ctx)

		if ctx.Err() != nil {
			return nil
		}

		var cerr *websocket.ConnectError
		if !stderrors.As(err, &cerr) {
			b.Reset()
		}

		if !shouldReconnect(reason, err) {
			if err != nil {
				return backoff.Permanent(err)
			}
			return nil
		}

		if err == nil {
			err = errors.Errorf("session ended: %s", reason)
		}
		return err
	}

	notify := func(err error, d time.Duration) {
		log.WithError(err).Warnf("Reconnecting in %s", d)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.Trace(err)
	}

	return nil
}
