package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointURL(t *testing.T) {
	testCases := []struct {
		category Category
		testnet  bool
		url      string
	}{
		{CategorySpot, false, "wss://stream.bybit.com/v5/public/spot"},
		{CategoryLinear, false, "wss://stream.bybit.com/v5/public/linear"},
		{CategoryInverse, false, "wss://stream.bybit.com/v5/public/inverse"},
		{CategoryOption, true, "wss://stream-testnet.bybit.com/v5/public/option"},
		{CategoryPrivate, false, "wss://stream.bybit.com/v5/private"},
		{CategoryPrivate, true, "wss://stream-testnet.bybit.com/v5/private"},
	}

	for _, tc := range testCases {
		url, err := EndpointURL(tc.category, tc.testnet)
		require.NoError(t, err)
		assert.Equal(t, tc.url, url)
	}

	_, err := EndpointURL(Category("futures"), false)
	assert.Error(t, err)
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		parsed, err := ParseCategory(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	c, err := ParseCategory(" Linear ")
	require.NoError(t, err)
	assert.Equal(t, CategoryLinear, c)
	assert.False(t, c.IsPrivate())
	assert.True(t, CategoryPrivate.IsPrivate())

	_, err = ParseCategory("margin")
	assert.Error(t, err)
}
