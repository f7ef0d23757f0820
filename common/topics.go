package common

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
)

// OrderbookDepth is the number of price levels of an orderbook topic.
type OrderbookDepth int

// OrderbookDepths lists the depths each public category offers.
var OrderbookDepths = map[Category][]OrderbookDepth{
	CategorySpot:    {1, 50, 200},
	CategoryLinear:  {1, 50, 200, 500},
	CategoryInverse: {1, 50, 200, 500},
	CategoryOption:  {25, 100},
}

// KlineInterval is a candle interval as spelled in kline topics.
type KlineInterval string

const (
	KlineMin1   KlineInterval = "1"
	KlineMin3   KlineInterval = "3"
	KlineMin5   KlineInterval = "5"
	KlineMin15  KlineInterval = "15"
	KlineMin30  KlineInterval = "30"
	KlineHour1  KlineInterval = "60"
	KlineHour2  KlineInterval = "120"
	KlineHour4  KlineInterval = "240"
	KlineHour6  KlineInterval = "360"
	KlineHour12 KlineInterval = "720"
	KlineDay    KlineInterval = "D"
	KlineWeek   KlineInterval = "W"
	KlineMonth  KlineInterval = "M"
)

var klineIntervals = map[KlineInterval]struct{}{
	KlineMin1: {}, KlineMin3: {}, KlineMin5: {}, KlineMin15: {}, KlineMin30: {},
	KlineHour1: {}, KlineHour2: {}, KlineHour4: {}, KlineHour6: {}, KlineHour12: {},
	KlineDay: {}, KlineWeek: {}, KlineMonth: {},
}

// PrivateTopic is a topic of the private (account) feed.
type PrivateTopic string

const (
	TopicPosition  PrivateTopic = "position"
	TopicExecution PrivateTopic = "execution"
	TopicOrder     PrivateTopic = "order"
	TopicWallet    PrivateTopic = "wallet"
	TopicGreeks    PrivateTopic = "greeks"
)

// Topic families, i.e. the part of the topic before the first dot.
const (
	FamilyOrderbook   = "orderbook"
	FamilyTrade       = "publicTrade"
	FamilyTicker      = "tickers"
	FamilyKline       = "kline"
	FamilyLiquidation = "liquidation"
	FamilyLTKline     = "kline_lt"
	FamilyLTTicker    = "tickers_lt"
	FamilyLTNav       = "lt"
)

// OrderbookTopic returns e.g. "orderbook.50.ETHUSDT". The depth must be one
// the category offers, see OrderbookDepths.
func OrderbookTopic(c Category, depth OrderbookDepth, symbol string) (string, error) {
	if symbol == "" {
		return "", errors.Errorf("symbol is empty")
	}

	for _, d := range OrderbookDepths[c] {
		if d == depth {
			return fmt.Sprintf("%s.%d.%s", FamilyOrderbook, depth, symbol), nil
		}
	}

	return "", errors.Errorf("orderbook depth %d is not available for %s", depth, c)
}

// TradeTopic returns e.g. "publicTrade.ETHUSDT". For options, the symbol is
// the base coin, like "BTC".
func TradeTopic(symbol string) string {
	return FamilyTrade + "." + symbol
}

func TickerTopic(symbol string) string {
	return FamilyTicker + "." + symbol
}

// KlineTopic returns e.g. "kline.1.ETHUSDT".
func KlineTopic(interval KlineInterval, symbol string) (string, error) {
	if _, ok := klineIntervals[interval]; !ok {
		return "", errors.Errorf("unknown kline interval %q", string(interval))
	}

	return fmt.Sprintf("%s.%s.%s", FamilyKline, interval, symbol), nil
}

func LiquidationTopic(symbol string) string {
	return FamilyLiquidation + "." + symbol
}

// LTKlineTopic is the kline topic of a leveraged token, spot only.
func LTKlineTopic(interval KlineInterval, symbol string) (string, error) {
	if _, ok := klineIntervals[interval]; !ok {
		return "", errors.Errorf("unknown kline interval %q", string(interval))
	}

	return fmt.Sprintf("%s.%s.%s", FamilyLTKline, interval, symbol), nil
}

func LTTickerTopic(symbol string) string {
	return FamilyLTTicker + "." + symbol
}

func LTNavTopic(symbol string) string {
	return FamilyLTNav + "." + symbol
}

// TopicFamily returns the topic up to the first dot: "orderbook" for
// "orderbook.50.ETHUSDT", or the whole topic for private ones like "order".
func TopicFamily(topic string) string {
	if i := strings.IndexByte(topic, '.'); i >= 0 {
		return topic[:i]
	}
	return topic
}
