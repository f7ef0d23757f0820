package common

import (
	"strings"

	"github.com/juju/errors"
)

// Category identifies one logical feed of the venue. Each category is served
// by its own websocket endpoint.
type Category string

const (
	CategorySpot    Category = "spot"
	CategoryLinear  Category = "linear"
	CategoryInverse Category = "inverse"
	CategoryOption  Category = "option"
	CategoryPrivate Category = "private"
)

// Categories lists every known category.
var Categories = []Category{
	CategorySpot,
	CategoryLinear,
	CategoryInverse,
	CategoryOption,
	CategoryPrivate,
}

const (
	MainnetStreamHost = "wss://stream.bybit.com"
	TestnetStreamHost = "wss://stream-testnet.bybit.com"
)

var categoryPaths = map[Category]string{
	CategorySpot:    "/v5/public/spot",
	CategoryLinear:  "/v5/public/linear",
	CategoryInverse: "/v5/public/inverse",
	CategoryOption:  "/v5/public/option",
	CategoryPrivate: "/v5/private",
}

// ParseCategory returns the category with the given name, case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := categoryPaths[c]; !ok {
		return "", errors.Errorf("unknown category %q", s)
	}
	return c, nil
}

// IsPrivate returns whether the category carries account events and thus
// needs authentication.
func (c Category) IsPrivate() bool {
	return c == CategoryPrivate
}

// EndpointURL returns the websocket URL of the category's feed, either on
// mainnet or on testnet.
func EndpointURL(c Category, testnet bool) (string, error) {
	path, ok := categoryPaths[c]
	if !ok {
		return "", errors.Errorf("unknown category %q", string(c))
	}

	host := MainnetStreamHost
	if testnet {
		host = TestnetStreamHost
	}

	return host + path, nil
}
