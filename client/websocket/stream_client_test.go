package websocket

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"y3sh-bybit-sdk-go/common"
)

func TestStreamClient(t *testing.T) {
	withTestServer(t, func(tp *testServerParams) {
		h := newTestHandler[common.TopicEvent]()

		sc, err := NewStreamClient(&StreamClientParams{
			SessionParams: &SessionParams{
				URL:      tp.url,
				Category: common.CategorySpot,
				Logger:   testLogger(),
			},
			OnEvent: h.handle,
		})
		require.NoError(t, err, errors.ErrorStack(err))
		assert.Equal(t, tp.url, sc.URL())
		assert.Equal(t, StateIdle, sc.State())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		require.NoError(t, sc.Connect(ctx))

		done := make(chan runResult, 1)
		go func() {
			reason, err := sc.Run(ctx)
			done <- runResult{reason: reason, err: err}
		}()

		require.NoError(t, sc.SubscribeOrderbook(50, "BTCUSDT", "ETHUSDT"))
		req := waitControl(t, tp, OpSubscribe)
		assert.Equal(t, []string{"orderbook.50.BTCUSDT", "orderbook.50.ETHUSDT"}, req.Args)

		// Depth 500 is not offered for spot; nothing is sent.
		err = sc.SubscribeOrderbook(500, "BTCUSDT")
		assert.Error(t, err)

		require.NoError(t, sc.SubscribeTrade("BTCUSDT"))
		assert.Equal(t, []string{"publicTrade.BTCUSDT"}, waitControl(t, tp, OpSubscribe).Args)

		require.NoError(t, sc.SubscribeTicker("BTCUSDT", "ETHUSDT"))
		assert.Equal(t, []string{"tickers.BTCUSDT", "tickers.ETHUSDT"}, waitControl(t, tp, OpSubscribe).Args)

		require.NoError(t, sc.SubscribeKline(common.KlineMin5, "BTCUSDT"))
		assert.Equal(t, []string{"kline.5.BTCUSDT"}, waitControl(t, tp, OpSubscribe).Args)

		require.NoError(t, sc.SubscribeLiquidation("BTCUSDT"))
		assert.Equal(t, []string{"liquidation.BTCUSDT"}, waitControl(t, tp, OpSubscribe).Args)

		require.NoError(t, sc.Unsubscribe("tickers.ETHUSDT"))
		assert.Equal(t, []string{"tickers.ETHUSDT"}, waitControl(t, tp, OpUnsubscribe).Args)

		// Private topics need the private category.
		assert.Error(t, sc.SubscribePrivate(common.TopicOrder))

		assert.Equal(t, ErrNoTopics, errors.Cause(sc.SubscribeTrade()))

		sendText(tp, `{"topic":"publicTrade.BTCUSDT","type":"snapshot","ts":1672304486868,"data":[{"T":1672304486865,"s":"BTCUSDT","S":"Buy","v":"0.001","p":"16578.50","L":"PlusTick","i":"20f43950-d8dd-5b31-9112-a178eb6023af","BT":false}]}`)

		ev := h.waitEvent(t)
		assert.Equal(t, "publicTrade.BTCUSDT", ev.Topic)
		assert.Equal(t, common.FamilyTrade, ev.Family())
		assert.Equal(t, int64(1672304486868), ev.Time().UnixNano()/1e6)

		require.NoError(t, sc.Close())

		res := waitRun(t, done)
		assert.Equal(t, ExitCancelled, res.reason)
		assert.Nil(t, res.err)
	})
}

func TestStreamClientPrivate(t *testing.T) {
	_, err := NewStreamClient(&StreamClientParams{
		SessionParams: &SessionParams{Category: common.CategoryPrivate},
		OnEvent:       newTestHandler[common.TopicEvent]().handle,
	})
	assert.Equal(t, ErrNoCredentials, errors.Cause(err))

	withTestServer(t, func(tp *testServerParams) {
		h := newTestHandler[common.TopicEvent]()

		sc, err := NewStreamClient(&StreamClientParams{
			SessionParams: &SessionParams{
				URL:         tp.url,
				Category:    common.CategoryPrivate,
				Credentials: NewCredentials("key", "secret"),
				Logger:      testLogger(),
			},
			OnEvent: h.handle,
		})
		require.NoError(t, err)

		require.NoError(t, sc.Connect(context.Background()))

		auth := waitControl(t, tp, OpAuth)
		require.Len(t, auth.Args, 3)
		assert.Equal(t, "key", auth.Args[0])

		require.NoError(t, sc.SubscribePrivate(common.TopicPosition, common.TopicWallet))
		assert.Equal(t, []string{"position", "wallet"}, waitControl(t, tp, OpSubscribe).Args)

		require.NoError(t, sc.Close())
		assert.Equal(t, StateIdle, sc.State())
	})
}

func TestNewStreamClientParams(t *testing.T) {
	_, err := NewStreamClient(&StreamClientParams{
		OnEvent: newTestHandler[common.TopicEvent]().handle,
	})
	assert.Error(t, err)

	_, err = NewStreamClient(&StreamClientParams{
		SessionParams: &SessionParams{Category: common.CategorySpot},
	})
	assert.Error(t, err)

	sc, err := NewStreamClient(&StreamClientParams{
		SessionParams: &SessionParams{Category: common.CategoryOption},
		OnEvent:       newTestHandler[common.TopicEvent]().handle,
	})
	require.NoError(t, err)
	assert.Equal(t, "wss://stream.bybit.com/v5/public/option", sc.URL())
}
