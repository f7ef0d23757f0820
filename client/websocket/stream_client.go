package websocket

import (
	"context"

	"github.com/juju/errors"
	"y3sh-bybit-sdk-go/common"
)

// StreamClient is used to connect to one of the venue's feeds and receive its
// events as common.TopicEvent. Typically you will get an instance using
// NewStreamClient(), call Connect(), subscribe to whatever topics you need,
// and then call Run() which will feed the events to OnEvent until it returns.
type StreamClient struct {
	category common.Category

	// We want to ensure that Session's methods aren't available on the
	// StreamClient to avoid confusion, so we give it explicit name.
	session *Session[common.TopicEvent]
}

type StreamClientParams struct {
	SessionParams *SessionParams

	// OnEvent is called for every event received, see Handler.
	OnEvent Handler[common.TopicEvent]
}

// NewStreamClient creates a new StreamClient instance with the given params.
// The endpoint is derived from SessionParams.Category unless an explicit URL
// is given.
func NewStreamClient(params *StreamClientParams) (*StreamClient, error) {
	if params.SessionParams == nil {
		return nil, errors.Errorf("session params are required")
	}
	if params.OnEvent == nil {
		return nil, errors.Errorf("OnEvent is required")
	}

	session, err := NewSession[common.TopicEvent](params.SessionParams, params.OnEvent)
	if err != nil {
		return nil, errors.Trace(err)
	}

	return &StreamClient{
		category: params.SessionParams.Category,
		session:  session,
	}, nil
}

// Connect establishes the connection, and authenticates if the client has
// credentials. See Session.Connect.
func (sc *StreamClient) Connect(ctx context.Context) error {
	return sc.session.Connect(ctx)
}

// Run receives events until the context is cancelled or the connection ends.
// See Session.Run.
func (sc *StreamClient) Run(ctx context.Context) (ExitReason, error) {
	return sc.session.Run(ctx)
}

// Close closes the connection.
func (sc *StreamClient) Close() error {
	return sc.session.Close()
}

func (sc *StreamClient) State() SessionState {
	return sc.session.State()
}

func (sc *StreamClient) URL() string {
	return sc.session.URL()
}

// Subscribe subscribes to raw topics, like "orderbook.50.ETHUSDT".
func (sc *StreamClient) Subscribe(topics ...string) error {
	return errors.Trace(sc.session.Subscribe(topics...))
}

// Unsubscribe unsubscribes from raw topics.
func (sc *StreamClient) Unsubscribe(topics ...string) error {
	return errors.Trace(sc.session.Unsubscribe(topics...))
}

// SubscribeOrderbook subscribes to the orderbook of every given symbol at the
// given depth, which must be one offered by the client's category.
func (sc *StreamClient) SubscribeOrderbook(depth common.OrderbookDepth, symbols ...string) error {
	topics := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		topic, err := common.OrderbookTopic(sc.category, depth, symbol)
		if err != nil {
			return errors.Trace(err)
		}
		topics = append(topics, topic)
	}

	return sc.Subscribe(topics...)
}

func (sc *StreamClient) SubscribeTrade(symbols ...string) error {
	return sc.Subscribe(mapTopics(symbols, common.TradeTopic)...)
}

func (sc *StreamClient) SubscribeTicker(symbols ...string) error {
	return sc.Subscribe(mapTopics(symbols, common.TickerTopic)...)
}

func (sc *StreamClient) SubscribeKline(interval common.KlineInterval, symbols ...string) error {
	topics := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		topic, err := common.KlineTopic(interval, symbol)
		if err != nil {
			return errors.Trace(err)
		}
		topics = append(topics, topic)
	}

	return sc.Subscribe(topics...)
}

func (sc *StreamClient) SubscribeLiquidation(symbols ...string) error {
	return sc.Subscribe(mapTopics(symbols, common.LiquidationTopic)...)
}

// SubscribePrivate subscribes to account topics; only valid for the private
// category.
func (sc *StreamClient) SubscribePrivate(topics ...common.PrivateTopic) error {
	if !sc.category.IsPrivate() {
		return errors.Errorf("private topics need the %s category, got %q", common.CategoryPrivate, sc.category)
	}

	raw := make([]string, 0, len(topics))
	for _, t := range topics {
		raw = append(raw, string(t))
	}

	return sc.Subscribe(raw...)
}

func mapTopics(symbols []string, topic func(symbol string) string) []string {
	topics := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		topics = append(topics, topic(symbol))
	}
	return topics
}
