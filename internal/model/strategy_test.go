package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRequest(t *testing.T, body string) *BotRequest {
	t.Helper()
	var req BotRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	req.Normalize()
	return &req
}

func TestMarketMakingRequestFromStrings(t *testing.T) {
	req := decodeRequest(t, `{
		"name": "Test Bot",
		"strategy": "pure_market_making",
		"exchange": "binance",
		"baseAsset": "BTC",
		"quoteAsset": "USDT",
		"bidSpread": "0.5",
		"askSpread": "0.5",
		"orderSize": "0.01",
		"orderInterval": "10",
		"minProfitability": "1"
	}`)

	params, errs := req.Validate()
	require.Nil(t, errs)

	mm, ok := params.(MarketMakingParams)
	require.True(t, ok)
	assert.True(t, mm.BidSpread.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, mm.OrderSize.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, 10, mm.OrderInterval)
	assert.Nil(t, mm.OrderAmount)
}

func TestMarketMakingAcceptsNumbers(t *testing.T) {
	req := decodeRequest(t, `{"name":"mm-1","strategy":"pure_market_making","exchange":"binance",
		"baseAsset":"btc","quoteAsset":"usdt","bidSpread":0.2,"askSpread":0.3,"orderSize":1,
		"orderInterval":60,"minProfitability":2}`)

	params, errs := req.Validate()
	require.Nil(t, errs)
	assert.Equal(t, "BTC", req.BaseAsset)
	assert.Equal(t, 60, params.(MarketMakingParams).OrderInterval)
}

func TestMarketMakingFieldErrors(t *testing.T) {
	req := decodeRequest(t, `{"name":"mm","strategy":"pure_market_making","exchange":"binance",
		"baseAsset":"BTC","quoteAsset":"USDT","bidSpread":"6","askSpread":"abc",
		"orderInterval":"1.5","minProfitability":"25"}`)

	_, errs := req.Validate()
	require.NotNil(t, errs)
	assert.Equal(t, "Name must be at least 3 characters", errs["name"])
	assert.Equal(t, "Spread should not exceed 5%", errs["bidSpread"])
	assert.Equal(t, "Please enter a valid number", errs["askSpread"])
	assert.Equal(t, "This field is required", errs["orderSize"])
	assert.Equal(t, "Please enter a whole number", errs["orderInterval"])
	assert.Equal(t, "Profitability target should not exceed 20%", errs["minProfitability"])
}

func TestGridRejectsUpperBelowLower(t *testing.T) {
	req := decodeRequest(t, `{"name":"grid-bot","strategy":"grid_trading","exchange":"binance",
		"baseAsset":"BTC","quoteAsset":"USDT","upperPrice":"100","lowerPrice":"150",
		"gridLevels":"10","gridSpacing":"1","orderSize":"0.1"}`)

	params, errs := req.Validate()
	assert.Nil(t, params)
	require.NotNil(t, errs)
	assert.Equal(t, "Lower price must be less than upper price", errs["lowerPrice"])
	assert.Equal(t, "Upper price must be greater than lower price", errs["upperPrice"])
}

func TestGridValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		msg   string
	}{
		{"zero lower price", `"upperPrice":"100","lowerPrice":"0","gridLevels":"10","gridSpacing":"1","orderSize":"1"`, "lowerPrice", "Price must be greater than 0"},
		{"levels below range", `"upperPrice":"100","lowerPrice":"50","gridLevels":"1","gridSpacing":"1","orderSize":"1"`, "gridLevels", "Value must be at least 2"},
		{"spacing above cap", `"upperPrice":"100","lowerPrice":"50","gridLevels":"5","gridSpacing":"25","orderSize":"1"`, "gridSpacing", "Grid spacing should not exceed 20%"},
		{"spacing below min", `"upperPrice":"100","lowerPrice":"50","gridLevels":"5","gridSpacing":"0.05","orderSize":"1"`, "gridSpacing", "Value must be at least 0.1"},
		{"tiny order size", `"upperPrice":"100","lowerPrice":"50","gridLevels":"5","gridSpacing":"1","orderSize":"0"`, "orderSize", "Value must be at least 0.00000001"},
		{"bad url", `"upperPrice":"100","lowerPrice":"50","gridLevels":"5","gridSpacing":"1","orderSize":"1","externalPriceUrl":"prices"`, "externalPriceUrl", "Please enter a valid URL"},
		{"inverted sizes", `"upperPrice":"100","lowerPrice":"50","gridLevels":"5","gridSpacing":"1","orderSize":"1","minOrderSize":"5","maxOrderSize":"2"`, "maxOrderSize", "Maximum order size must be greater than minimum order size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := decodeRequest(t, `{"name":"grid-bot","strategy":"grid_trading","exchange":"binance","baseAsset":"BTC","quoteAsset":"USDT",`+tt.body+`}`)
			_, errs := req.Validate()
			require.NotNil(t, errs)
			assert.Equal(t, tt.msg, errs[tt.field])
		})
	}
}

func TestArbitrageValidation(t *testing.T) {
	req := decodeRequest(t, `{"name":"arb","strategy":"arbitrage","exchange":"binance","baseAsset":"BTC",
		"quoteAsset":"USDT","secondaryExchange":"binance","minProfitability":"1","slippage":"7",
		"minOrderSize":"2","maxOrderSize":"1"}`)

	_, errs := req.Validate()
	require.NotNil(t, errs)
	assert.Equal(t, "Primary and secondary exchanges must be different", errs["primaryExchange"])
	assert.Equal(t, "Secondary and primary exchanges must be different", errs["secondaryExchange"])
	assert.Equal(t, "Slippage should not exceed 5%", errs["slippage"])
	assert.Equal(t, "Minimum order size must be less than maximum order size", errs["minOrderSize"])
}

func TestArbitrageDefaultsPrimaryExchange(t *testing.T) {
	req := decodeRequest(t, `{"name":"arb","strategy":"arbitrage","exchange":"binance","baseAsset":"BTC",
		"quoteAsset":"USDT","secondaryExchange":"kucoin","minProfitability":"1","slippage":"0.5",
		"minOrderSize":"0.1","maxOrderSize":"1"}`)

	params, errs := req.Validate()
	require.Nil(t, errs)
	assert.Equal(t, "binance", params.(ArbitrageParams).PrimaryExchange)
}

func TestRejectsFieldsOfOtherStrategy(t *testing.T) {
	req := decodeRequest(t, `{"name":"mixed","strategy":"pure_market_making","exchange":"binance",
		"baseAsset":"BTC","quoteAsset":"USDT","bidSpread":"0.5","askSpread":"0.5","orderSize":"1",
		"orderInterval":"10","minProfitability":"1","gridLevels":"5"}`)

	_, errs := req.Validate()
	require.NotNil(t, errs)
	assert.Equal(t, "Not applicable to pure_market_making", errs["gridLevels"])
}

func TestUnknownStrategy(t *testing.T) {
	req := decodeRequest(t, `{"name":"bad","strategy":"scalping","exchange":"binance","baseAsset":"BTC","quoteAsset":"USDT"}`)

	_, errs := req.Validate()
	require.NotNil(t, errs)
	assert.Equal(t, "Please select a valid strategy", errs["strategy"])
}

func TestRequestFromBotRoundTrip(t *testing.T) {
	req := decodeRequest(t, `{"name":"grid-bot","strategy":"grid_trading","exchange":"binance",
		"baseAsset":"BTC","quoteAsset":"USDT","upperPrice":"200","lowerPrice":"150",
		"gridLevels":"10","gridSpacing":"1","orderSize":"0.1","rebalanceInterval":"30"}`)
	params, errs := req.Validate()
	require.Nil(t, errs)

	raw, err := json.Marshal(params)
	require.NoError(t, err)
	bot := &Bot{Name: req.Name, Strategy: StrategyGridTrading, Exchange: "binance", BaseAsset: "BTC", QuoteAsset: "USDT", Config: raw}

	rebuilt, err := RequestFromBot(bot)
	require.NoError(t, err)
	rebuilt.Merge(&BotRequest{LowerPrice: "120"})

	params, errs = rebuilt.Validate()
	require.Nil(t, errs)
	grid := params.(GridTradingParams)
	assert.True(t, grid.LowerPrice.Equal(decimal.NewFromInt(120)))
	require.NotNil(t, grid.RebalanceInterval)
	assert.Equal(t, 30, *grid.RebalanceInterval)
}

func TestMergeDropsParamsOnStrategySwitch(t *testing.T) {
	base := &BotRequest{Name: "switch", Strategy: string(StrategyGridTrading), Exchange: "binance",
		BaseAsset: "BTC", QuoteAsset: "USDT", UpperPrice: "200", LowerPrice: "100"}
	base.Merge(&BotRequest{Strategy: string(StrategyMarketMaking), BidSpread: "0.5"})

	assert.Equal(t, string(StrategyMarketMaking), base.Strategy)
	assert.False(t, base.UpperPrice.IsSet())
	assert.Equal(t, NumericString("0.5"), base.BidSpread)
	assert.Equal(t, "switch", base.Name)
}
