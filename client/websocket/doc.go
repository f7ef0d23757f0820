/*
Package websocket provides a client for the Bybit v5 websocket API. Every
category of the venue (spot, linear, inverse, option, and the private account
feed) is served by its own endpoint; a Session holds a single connection to
one of them.

Bybit Websocket API

View the full websocket api documentation here: https://bybit-exchange.github.io/docs/v5/ws/connect

Sessions

A Session[E] connects, authenticates when it has credentials, sends
subscribe requests, and decodes every data frame into E for a Handler:

	session, err := websocket.NewSession[common.TopicEvent](
		&websocket.SessionParams{
			Category:     common.CategoryLinear,
			IdleTimeout:  time.Minute,
			PingInterval: 20 * time.Second,
		},
		func(ctx context.Context, ev common.TopicEvent) error {
			fmt.Println(ev.Topic, string(ev.Data))
			return nil
		},
	)
	if err != nil {
		log.Fatal(err)
	}

	if err := session.Connect(ctx); err != nil {
		log.Fatal(err)
	}

	if err := session.Subscribe("orderbook.50.ETHUSDT", "publicTrade.ETHUSDT"); err != nil {
		log.Fatal(err)
	}

	reason, err := session.Run(ctx)

Run is the event loop, and it returns why it has stopped. ExitCancelled,
ExitIdleTimeout and ExitRemoteClose are clean: the error is nil and the
session may be connected again. Otherwise the error is a *TransportError, a
*DecodeError, or whatever the handler has returned, and the session is done
for good. Reconnecting is up to the caller, see cmd/stream-client for an
example with exponential backoff.

Stream Client

StreamClient is a Session of common.TopicEvent with helpers building topic
names:

	client, err := websocket.NewStreamClient(&websocket.StreamClientParams{
		SessionParams: &websocket.SessionParams{
			Category: common.CategorySpot,
		},
		OnEvent: func(ctx context.Context, ev common.TopicEvent) error {
			// Handle live data
			return nil
		},
	})

	client.Connect(ctx)
	client.SubscribeOrderbook(50, "BTCUSDT")
	client.SubscribeKline(common.KlineMin1, "BTCUSDT")
	client.Run(ctx)

The private category needs credentials; the auth request is sent right after
connecting:

	SessionParams: &websocket.SessionParams{
		Category:    common.CategoryPrivate,
		Credentials: websocket.NewCredentials("myapikey", "mysecretkey"),
	}

Acknowledgements

Replies to subscribe, auth and ping requests are never given to the handler.
Set SessionParams.OnAck to look at them; a failed subscription doesn't stop
the session.

Concurrency

Handlers are called from the goroutine running Run, one at a time, and the
next frame is not received until the handler returns. Subscribe, Unsubscribe,
Close and State can be called from any goroutine.

Stream Client CLI

Use the command line tool stream-client to subscribe to live feeds from the
command line:

	./stream-client --category linear --sub orderbook.50.ETHUSDT --sub publicTrade.ETHUSDT

*/
package websocket
