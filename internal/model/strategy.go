package model

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// StrategyParams is the typed configuration for one strategy
type StrategyParams interface {
	Strategy() Strategy
}

// MarketMakingParams configures a pure market making bot
type MarketMakingParams struct {
	BidSpread        decimal.Decimal  `json:"bidSpread"`
	AskSpread        decimal.Decimal  `json:"askSpread"`
	OrderSize        decimal.Decimal  `json:"orderSize"`
	OrderInterval    int              `json:"orderInterval"`
	MinProfitability decimal.Decimal  `json:"minProfitability"`
	MinOrderSize     *decimal.Decimal `json:"minOrderSize,omitempty"`
	MaxOrderSize     *decimal.Decimal `json:"maxOrderSize,omitempty"`
	OrderAmount      *decimal.Decimal `json:"orderAmount,omitempty"`
}

func (MarketMakingParams) Strategy() Strategy { return StrategyMarketMaking }

// ArbitrageParams configures a cross-exchange arbitrage bot
type ArbitrageParams struct {
	PrimaryExchange   string          `json:"primaryExchange"`
	SecondaryExchange string          `json:"secondaryExchange"`
	MinProfitability  decimal.Decimal `json:"minProfitability"`
	Slippage          decimal.Decimal `json:"slippage"`
	MinOrderSize      decimal.Decimal `json:"minOrderSize"`
	MaxOrderSize      decimal.Decimal `json:"maxOrderSize"`
}

func (ArbitrageParams) Strategy() Strategy { return StrategyArbitrage }

// GridTradingParams configures a grid trading bot
type GridTradingParams struct {
	UpperPrice        decimal.Decimal  `json:"upperPrice"`
	LowerPrice        decimal.Decimal  `json:"lowerPrice"`
	GridLevels        int              `json:"gridLevels"`
	GridSpacing       decimal.Decimal  `json:"gridSpacing"`
	OrderSize         decimal.Decimal  `json:"orderSize"`
	RebalanceInterval *int             `json:"rebalanceInterval,omitempty"`
	MinOrderSize      *decimal.Decimal `json:"minOrderSize,omitempty"`
	MaxOrderSize      *decimal.Decimal `json:"maxOrderSize,omitempty"`
	MinProfitability  *decimal.Decimal `json:"minProfitability,omitempty"`
	ExternalPriceURL  string           `json:"externalPriceUrl,omitempty"`
}

func (GridTradingParams) Strategy() Strategy { return StrategyGridTrading }

// DecodeParams decodes a stored config blob into the params type of strategy
func DecodeParams(strategy Strategy, raw json.RawMessage) (StrategyParams, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty config for strategy %s", strategy)
	}
	switch strategy {
	case StrategyMarketMaking:
		var p MarketMakingParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case StrategyArbitrage:
		var p ArbitrageParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case StrategyGridTrading:
		var p GridTradingParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
}

// BotRequest is the flat create/update payload. Numeric fields accept JSON
// strings or numbers. Which of them apply depends on Strategy.
type BotRequest struct {
	Name       string `json:"name"`
	Strategy   string `json:"strategy"`
	Exchange   string `json:"exchange"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`

	// Market making
	BidSpread     NumericString `json:"bidSpread,omitempty"`
	AskSpread     NumericString `json:"askSpread,omitempty"`
	OrderAmount   NumericString `json:"orderAmount,omitempty"`
	OrderInterval NumericString `json:"orderInterval,omitempty"`

	// Shared
	OrderSize        NumericString `json:"orderSize,omitempty"`
	MinOrderSize     NumericString `json:"minOrderSize,omitempty"`
	MaxOrderSize     NumericString `json:"maxOrderSize,omitempty"`
	MinProfitability NumericString `json:"minProfitability,omitempty"`

	// Arbitrage
	PrimaryExchange   string        `json:"primaryExchange,omitempty"`
	SecondaryExchange string        `json:"secondaryExchange,omitempty"`
	Slippage          NumericString `json:"slippage,omitempty"`

	// Grid trading
	UpperPrice        NumericString `json:"upperPrice,omitempty"`
	LowerPrice        NumericString `json:"lowerPrice,omitempty"`
	GridLevels        NumericString `json:"gridLevels,omitempty"`
	GridSpacing       NumericString `json:"gridSpacing,omitempty"`
	RebalanceInterval NumericString `json:"rebalanceInterval,omitempty"`
	ExternalPriceURL  string        `json:"externalPriceUrl,omitempty"`
}

var strategyFields = map[Strategy][]string{
	StrategyMarketMaking: {"bidSpread", "askSpread", "orderSize", "minOrderSize", "maxOrderSize", "orderAmount", "orderInterval", "minProfitability"},
	StrategyArbitrage:    {"primaryExchange", "secondaryExchange", "minProfitability", "slippage", "minOrderSize", "maxOrderSize"},
	StrategyGridTrading:  {"upperPrice", "lowerPrice", "gridLevels", "gridSpacing", "orderSize", "rebalanceInterval", "minOrderSize", "maxOrderSize", "minProfitability", "externalPriceUrl"},
}

// presentFields lists the strategy-specific fields carried by the request
func (r *BotRequest) presentFields() map[string]bool {
	present := map[string]bool{
		"bidSpread":         r.BidSpread.IsSet(),
		"askSpread":         r.AskSpread.IsSet(),
		"orderAmount":       r.OrderAmount.IsSet(),
		"orderInterval":     r.OrderInterval.IsSet(),
		"orderSize":         r.OrderSize.IsSet(),
		"minOrderSize":      r.MinOrderSize.IsSet(),
		"maxOrderSize":      r.MaxOrderSize.IsSet(),
		"minProfitability":  r.MinProfitability.IsSet(),
		"primaryExchange":   r.PrimaryExchange != "",
		"secondaryExchange": r.SecondaryExchange != "",
		"slippage":          r.Slippage.IsSet(),
		"upperPrice":        r.UpperPrice.IsSet(),
		"lowerPrice":        r.LowerPrice.IsSet(),
		"gridLevels":        r.GridLevels.IsSet(),
		"gridSpacing":       r.GridSpacing.IsSet(),
		"rebalanceInterval": r.RebalanceInterval.IsSet(),
		"externalPriceUrl":  r.ExternalPriceURL != "",
	}
	for k, v := range present {
		if !v {
			delete(present, k)
		}
	}
	return present
}

// Normalize trims free-text fields
func (r *BotRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Strategy = strings.TrimSpace(r.Strategy)
	r.Exchange = strings.TrimSpace(r.Exchange)
	r.BaseAsset = strings.ToUpper(strings.TrimSpace(r.BaseAsset))
	r.QuoteAsset = strings.ToUpper(strings.TrimSpace(r.QuoteAsset))
	r.PrimaryExchange = strings.TrimSpace(r.PrimaryExchange)
	r.SecondaryExchange = strings.TrimSpace(r.SecondaryExchange)
	r.ExternalPriceURL = strings.TrimSpace(r.ExternalPriceURL)
}

// Validate checks the request and builds the typed params for its strategy.
// Field errors are keyed by the JSON field name.
func (r *BotRequest) Validate() (StrategyParams, FieldErrors) {
	errs := FieldErrors{}

	switch {
	case r.Name == "":
		errs.Add("name", "Bot name is required")
	case len(r.Name) < 3:
		errs.Add("name", "Name must be at least 3 characters")
	case len(r.Name) > 50:
		errs.Add("name", "Name cannot exceed 50 characters")
	}

	errs.Add("exchange", ValidateText(r.Exchange, true, 0, 64))
	errs.Add("baseAsset", ValidateText(r.BaseAsset, true, 0, 16))
	errs.Add("quoteAsset", ValidateText(r.QuoteAsset, true, 0, 16))

	strategy := Strategy(r.Strategy)
	if !strategy.Valid() {
		if r.Strategy == "" {
			errs.Add("strategy", "This field is required")
		} else {
			errs.Add("strategy", "Please select a valid strategy")
		}
		return nil, errs
	}

	allowed := map[string]bool{}
	for _, f := range strategyFields[strategy] {
		allowed[f] = true
	}
	for f := range r.presentFields() {
		if !allowed[f] {
			errs.Add(f, "Not applicable to "+string(strategy))
		}
	}

	var params StrategyParams
	switch strategy {
	case StrategyMarketMaking:
		params = r.validateMarketMaking(errs)
	case StrategyArbitrage:
		params = r.validateArbitrage(errs)
	case StrategyGridTrading:
		params = r.validateGridTrading(errs)
	}

	if !errs.Empty() {
		return nil, errs
	}
	return params, nil
}

func (r *BotRequest) validateMarketMaking(errs FieldErrors) MarketMakingParams {
	var p MarketMakingParams

	spread := func(field string, v NumericString) decimal.Decimal {
		num, _, msg := ValidateNumber(v, NumberRule{Required: true, Min: Bound("0"), Max: Bound("100")})
		if msg == "" && num.GreaterThan(decimal.NewFromInt(5)) {
			msg = "Spread should not exceed 5%"
		}
		errs.Add(field, msg)
		return num
	}
	p.BidSpread = spread("bidSpread", r.BidSpread)
	p.AskSpread = spread("askSpread", r.AskSpread)

	var msg string
	p.OrderSize, _, msg = ValidateNumber(r.OrderSize, NumberRule{Required: true, Min: Bound("0.00000001")})
	errs.Add("orderSize", msg)

	interval, _, msg := ValidateNumber(r.OrderInterval, NumberRule{Required: true, Integer: true, Min: Bound("1"), Max: Bound("3600")})
	errs.Add("orderInterval", msg)
	p.OrderInterval = int(interval.IntPart())

	p.MinProfitability = validateProfitability(errs, r.MinProfitability)

	p.MinOrderSize = optionalDecimal(errs, "minOrderSize", r.MinOrderSize, NumberRule{Min: Bound("0")})
	p.MaxOrderSize = optionalDecimal(errs, "maxOrderSize", r.MaxOrderSize, NumberRule{Min: Bound("0")})
	p.OrderAmount = optionalDecimal(errs, "orderAmount", r.OrderAmount, NumberRule{Min: Bound("0")})
	return p
}

func (r *BotRequest) validateArbitrage(errs FieldErrors) ArbitrageParams {
	p := ArbitrageParams{
		PrimaryExchange:   r.PrimaryExchange,
		SecondaryExchange: r.SecondaryExchange,
	}
	if p.PrimaryExchange == "" {
		p.PrimaryExchange = r.Exchange
	}

	errs.Add("primaryExchange", ValidateText(p.PrimaryExchange, true, 0, 64))
	errs.Add("secondaryExchange", ValidateText(p.SecondaryExchange, true, 0, 64))
	if p.PrimaryExchange != "" && strings.EqualFold(p.PrimaryExchange, p.SecondaryExchange) {
		errs.Add("primaryExchange", "Primary and secondary exchanges must be different")
		errs.Add("secondaryExchange", "Secondary and primary exchanges must be different")
	}

	p.MinProfitability = validateProfitability(errs, r.MinProfitability)

	slippage, _, msg := ValidateNumber(r.Slippage, NumberRule{Required: true, Min: Bound("0"), Max: Bound("100")})
	if msg == "" && slippage.GreaterThan(decimal.NewFromInt(5)) {
		msg = "Slippage should not exceed 5%"
	}
	errs.Add("slippage", msg)
	p.Slippage = slippage

	rule := NumberRule{Required: true, Min: Bound("0.00000001")}
	minSize, _, minMsg := ValidateNumber(r.MinOrderSize, rule)
	maxSize, _, maxMsg := ValidateNumber(r.MaxOrderSize, rule)
	if minMsg == "" && maxMsg == "" && maxSize.LessThanOrEqual(minSize) {
		maxMsg = "Maximum order size must be greater than minimum order size"
		minMsg = "Minimum order size must be less than maximum order size"
	}
	errs.Add("minOrderSize", minMsg)
	errs.Add("maxOrderSize", maxMsg)
	p.MinOrderSize = minSize
	p.MaxOrderSize = maxSize
	return p
}

func (r *BotRequest) validateGridTrading(errs FieldErrors) GridTradingParams {
	var p GridTradingParams

	priceRule := NumberRule{Required: true, Min: Bound("0")}
	upper, _, upperMsg := ValidateNumber(r.UpperPrice, priceRule)
	lower, _, lowerMsg := ValidateNumber(r.LowerPrice, priceRule)
	if upperMsg == "" && lowerMsg == "" && upper.LessThanOrEqual(lower) {
		upperMsg = "Upper price must be greater than lower price"
		lowerMsg = "Lower price must be less than upper price"
	}
	if upperMsg == "" && !upper.IsPositive() {
		upperMsg = "Price must be greater than 0"
	}
	if lowerMsg == "" && !lower.IsPositive() {
		lowerMsg = "Price must be greater than 0"
	}
	errs.Add("upperPrice", upperMsg)
	errs.Add("lowerPrice", lowerMsg)
	p.UpperPrice = upper
	p.LowerPrice = lower

	levels, _, msg := ValidateNumber(r.GridLevels, NumberRule{Required: true, Integer: true, Min: Bound("2"), Max: Bound("100")})
	errs.Add("gridLevels", msg)
	p.GridLevels = int(levels.IntPart())

	spacing, _, msg := ValidateNumber(r.GridSpacing, NumberRule{Required: true, Min: Bound("0.1"), Max: Bound("100")})
	if msg == "" && spacing.GreaterThan(decimal.NewFromInt(20)) {
		msg = "Grid spacing should not exceed 20%"
	}
	errs.Add("gridSpacing", msg)
	p.GridSpacing = spacing

	p.OrderSize, _, msg = ValidateNumber(r.OrderSize, NumberRule{Required: true, Min: Bound("0.00000001")})
	errs.Add("orderSize", msg)

	if interval, ok, msg := ValidateNumber(r.RebalanceInterval, NumberRule{Integer: true, Min: Bound("1")}); ok {
		errs.Add("rebalanceInterval", msg)
		n := int(interval.IntPart())
		p.RebalanceInterval = &n
	}

	p.MinOrderSize = optionalDecimal(errs, "minOrderSize", r.MinOrderSize, NumberRule{Min: Bound("0")})
	p.MaxOrderSize = optionalDecimal(errs, "maxOrderSize", r.MaxOrderSize, NumberRule{Min: Bound("0")})
	if p.MinOrderSize != nil && p.MaxOrderSize != nil &&
		!errs.Has("minOrderSize") && !errs.Has("maxOrderSize") &&
		p.MaxOrderSize.LessThanOrEqual(*p.MinOrderSize) {
		errs.Add("maxOrderSize", "Maximum order size must be greater than minimum order size")
		errs.Add("minOrderSize", "Minimum order size must be less than maximum order size")
	}

	p.MinProfitability = optionalDecimal(errs, "minProfitability", r.MinProfitability, NumberRule{Min: Bound("0"), Max: Bound("100")})

	if r.ExternalPriceURL != "" {
		u, err := url.ParseRequestURI(r.ExternalPriceURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs.Add("externalPriceUrl", "Please enter a valid URL")
		}
		p.ExternalPriceURL = r.ExternalPriceURL
	}
	return p
}

func validateProfitability(errs FieldErrors, v NumericString) decimal.Decimal {
	num, _, msg := ValidateNumber(v, NumberRule{Required: true, Min: Bound("0"), Max: Bound("100")})
	if msg == "" && num.GreaterThan(decimal.NewFromInt(20)) {
		msg = "Profitability target should not exceed 20%"
	}
	errs.Add("minProfitability", msg)
	return num
}

func optionalDecimal(errs FieldErrors, field string, v NumericString, rule NumberRule) *decimal.Decimal {
	num, ok, msg := ValidateNumber(v, rule)
	errs.Add(field, msg)
	if !ok || msg != "" {
		return nil
	}
	return &num
}

// RequestFromBot rebuilds the flat request for an existing bot so an update
// can be merged over it and re-validated as a whole.
func RequestFromBot(b *Bot) (*BotRequest, error) {
	r := &BotRequest{
		Name:       b.Name,
		Strategy:   string(b.Strategy),
		Exchange:   b.Exchange,
		BaseAsset:  b.BaseAsset,
		QuoteAsset: b.QuoteAsset,
	}
	if len(b.Config) == 0 {
		return r, nil
	}
	params, err := b.Params()
	if err != nil {
		return nil, err
	}

	dec := func(d *decimal.Decimal) NumericString {
		if d == nil {
			return ""
		}
		return NumericFromDecimal(*d)
	}

	switch p := params.(type) {
	case MarketMakingParams:
		r.BidSpread = NumericFromDecimal(p.BidSpread)
		r.AskSpread = NumericFromDecimal(p.AskSpread)
		r.OrderSize = NumericFromDecimal(p.OrderSize)
		r.OrderInterval = NumericFromDecimal(decimal.NewFromInt(int64(p.OrderInterval)))
		r.MinProfitability = NumericFromDecimal(p.MinProfitability)
		r.MinOrderSize = dec(p.MinOrderSize)
		r.MaxOrderSize = dec(p.MaxOrderSize)
		r.OrderAmount = dec(p.OrderAmount)
	case ArbitrageParams:
		r.PrimaryExchange = p.PrimaryExchange
		r.SecondaryExchange = p.SecondaryExchange
		r.MinProfitability = NumericFromDecimal(p.MinProfitability)
		r.Slippage = NumericFromDecimal(p.Slippage)
		r.MinOrderSize = NumericFromDecimal(p.MinOrderSize)
		r.MaxOrderSize = NumericFromDecimal(p.MaxOrderSize)
	case GridTradingParams:
		r.UpperPrice = NumericFromDecimal(p.UpperPrice)
		r.LowerPrice = NumericFromDecimal(p.LowerPrice)
		r.GridLevels = NumericFromDecimal(decimal.NewFromInt(int64(p.GridLevels)))
		r.GridSpacing = NumericFromDecimal(p.GridSpacing)
		r.OrderSize = NumericFromDecimal(p.OrderSize)
		if p.RebalanceInterval != nil {
			r.RebalanceInterval = NumericFromDecimal(decimal.NewFromInt(int64(*p.RebalanceInterval)))
		}
		r.MinOrderSize = dec(p.MinOrderSize)
		r.MaxOrderSize = dec(p.MaxOrderSize)
		r.MinProfitability = dec(p.MinProfitability)
		r.ExternalPriceURL = p.ExternalPriceURL
	}
	return r, nil
}

// Merge overlays the fields set in patch onto r. When patch switches the
// strategy, the previous strategy's parameters are dropped.
func (r *BotRequest) Merge(patch *BotRequest) {
	if patch.Strategy != "" && patch.Strategy != r.Strategy {
		*r = BotRequest{
			Name:       r.Name,
			Exchange:   r.Exchange,
			BaseAsset:  r.BaseAsset,
			QuoteAsset: r.QuoteAsset,
			Strategy:   patch.Strategy,
		}
	}

	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	num := func(dst *NumericString, v NumericString) {
		if v.IsSet() {
			*dst = v
		}
	}

	str(&r.Name, patch.Name)
	str(&r.Exchange, patch.Exchange)
	str(&r.BaseAsset, patch.BaseAsset)
	str(&r.QuoteAsset, patch.QuoteAsset)
	str(&r.PrimaryExchange, patch.PrimaryExchange)
	str(&r.SecondaryExchange, patch.SecondaryExchange)
	str(&r.ExternalPriceURL, patch.ExternalPriceURL)

	num(&r.BidSpread, patch.BidSpread)
	num(&r.AskSpread, patch.AskSpread)
	num(&r.OrderAmount, patch.OrderAmount)
	num(&r.OrderInterval, patch.OrderInterval)
	num(&r.OrderSize, patch.OrderSize)
	num(&r.MinOrderSize, patch.MinOrderSize)
	num(&r.MaxOrderSize, patch.MaxOrderSize)
	num(&r.MinProfitability, patch.MinProfitability)
	num(&r.Slippage, patch.Slippage)
	num(&r.UpperPrice, patch.UpperPrice)
	num(&r.LowerPrice, patch.LowerPrice)
	num(&r.GridLevels, patch.GridLevels)
	num(&r.GridSpacing, patch.GridSpacing)
	num(&r.RebalanceInterval, patch.RebalanceInterval)
}
