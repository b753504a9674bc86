package service

import (
	"context"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"time"

	"hbinterface/backend/internal/config"
	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/util"
	"hbinterface/backend/pkg/logger"
	"hbinterface/backend/pkg/redis"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultBasePrice = 1000.0

// MarketService serves stubbed market data through short-lived redis caches.
// The first value computed for a key is what every caller sees until it expires.
type MarketService struct {
	redis *redis.Client
	cfg   config.MarketConfig
	log   *logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMarketService creates a market service
func NewMarketService(redis *redis.Client, cfg config.MarketConfig, log *logger.Logger) *MarketService {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.TickerTTL <= 0 {
		cfg.TickerTTL = 5 * time.Second
	}
	if cfg.OrderBookTTL <= 0 {
		cfg.OrderBookTTL = 2 * time.Second
	}
	if cfg.TradesTTL <= 0 {
		cfg.TradesTTL = 5 * time.Second
	}
	return &MarketService{
		redis: redis,
		cfg:   cfg,
		log:   log.WithComponent("market"),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Symbols returns the served symbols
func (s *MarketService) Symbols() []string {
	return append([]string(nil), util.SupportedSymbols...)
}

// Ticker returns the cached or freshly generated ticker for symbol
func (s *MarketService) Ticker(ctx context.Context, symbol string) (*model.Ticker, error) {
	symbol, err := s.symbol(symbol)
	if err != nil {
		return nil, err
	}

	var ticker model.Ticker
	err = s.redis.GetOrSetJSON(ctx, redis.TickerKey(symbol), s.cfg.TickerTTL, &ticker, func() (interface{}, error) {
		return s.generateTicker(symbol), nil
	})
	if err != nil {
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to load ticker", err)
	}
	return &ticker, nil
}

// OrderBook returns the cached or freshly generated book for symbol
func (s *MarketService) OrderBook(ctx context.Context, symbol string) (*model.MarketOrderBook, error) {
	symbol, err := s.symbol(symbol)
	if err != nil {
		return nil, err
	}

	var book model.MarketOrderBook
	err = s.redis.GetOrSetJSON(ctx, redis.OrderBookKey(symbol), s.cfg.OrderBookTTL, &book, func() (interface{}, error) {
		return s.generateOrderBook(symbol), nil
	})
	if err != nil {
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to load order book", err)
	}
	return &book, nil
}

// Trades returns the cached or freshly generated recent trades, newest first
func (s *MarketService) Trades(ctx context.Context, symbol string) ([]model.MarketTrade, error) {
	symbol, err := s.symbol(symbol)
	if err != nil {
		return nil, err
	}

	var trades []model.MarketTrade
	err = s.redis.GetOrSetJSON(ctx, redis.TradesKey(symbol), s.cfg.TradesTTL, &trades, func() (interface{}, error) {
		return s.generateTrades(symbol), nil
	})
	if err != nil {
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to load trades", err)
	}
	return trades, nil
}

func (s *MarketService) symbol(raw string) (string, error) {
	base, quote, ok := util.SplitSymbol(raw)
	if !ok {
		return "", util.ErrBadRequest("Invalid symbol")
	}
	return base + "/" + quote, nil
}

func (s *MarketService) basePrice(symbol string) float64 {
	if p, ok := util.BasePrices[symbol]; ok {
		return p
	}
	return defaultBasePrice
}

// jitter returns base scaled by a random factor in [1-spread, 1+spread]
func (s *MarketService) jitter(base, spread float64) float64 {
	s.mu.Lock()
	f := s.rng.Float64()
	s.mu.Unlock()
	return base * (1 + spread*(2*f-1))
}

func (s *MarketService) random() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *MarketService) price(symbol string, v float64) decimal.Decimal {
	return util.RoundToPrecision(util.FromFloat(v), util.PricePrecision(s.basePrice(symbol)))
}

func (s *MarketService) generateTicker(symbol string) *model.Ticker {
	base := s.basePrice(symbol)
	last := s.jitter(base, 0.02)
	high := last * (1 + 0.03*s.random())
	low := last * (1 - 0.03*s.random())

	return &model.Ticker{
		Symbol:    symbol,
		Price:     s.price(symbol, last),
		Volume:    util.RoundToPrecision(util.FromFloat(10000*s.random()), 4),
		High:      s.price(symbol, high),
		Low:       s.price(symbol, low),
		Change:    util.RoundToPrecision(util.FromFloat((last-base)/base*100), 2),
		Timestamp: time.Now().UTC(),
	}
}

func (s *MarketService) generateOrderBook(symbol string) *model.MarketOrderBook {
	mid := s.jitter(s.basePrice(symbol), 0.02)
	step := mid * 0.0005

	book := &model.MarketOrderBook{
		Symbol:    symbol,
		Bids:      make([]model.PriceLevel, 0, util.OrderBookDepth),
		Asks:      make([]model.PriceLevel, 0, util.OrderBookDepth),
		Timestamp: time.Now().UTC(),
	}
	for i := 1; i <= util.OrderBookDepth; i++ {
		offset := step * float64(i)
		book.Bids = append(book.Bids, model.PriceLevel{
			Price:    s.price(symbol, mid-offset),
			Quantity: util.RoundToPrecision(util.FromFloat(10*s.random()), 4),
		})
		book.Asks = append(book.Asks, model.PriceLevel{
			Price:    s.price(symbol, mid+offset),
			Quantity: util.RoundToPrecision(util.FromFloat(10*s.random()), 4),
		})
	}
	return book
}

func (s *MarketService) generateTrades(symbol string) []model.MarketTrade {
	now := time.Now().UTC()
	base := s.basePrice(symbol)

	trades := make([]model.MarketTrade, 0, util.RecentTradesLimit)
	for i := 0; i < util.RecentTradesLimit; i++ {
		side := model.OrderSideBuy
		if s.random() > 0.5 {
			side = model.OrderSideSell
		}
		age := time.Duration(s.random() * float64(time.Hour))
		trades = append(trades, model.MarketTrade{
			ID:        uuid.New().String(),
			Symbol:    symbol,
			Price:     s.price(symbol, s.jitter(base, 0.02)),
			Quantity:  util.RoundToPrecision(util.FromFloat(10*s.random()), 4),
			Side:      side,
			Timestamp: now.Add(-age).Truncate(time.Millisecond),
		})
	}

	sort.Slice(trades, func(i, j int) bool {
		return trades[i].Timestamp.After(trades[j].Timestamp)
	})
	return trades
}
