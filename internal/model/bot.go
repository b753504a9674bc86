package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// BotStatus is the lifecycle state of a bot
type BotStatus string

// Bot status constants
const (
	BotStatusRunning BotStatus = "running"
	BotStatusStopped BotStatus = "stopped"
	BotStatusPaused  BotStatus = "paused"
	BotStatusError   BotStatus = "error"
)

// Valid reports whether s is one of the known statuses
func (s BotStatus) Valid() bool {
	switch s {
	case BotStatusRunning, BotStatusStopped, BotStatusPaused, BotStatusError:
		return true
	}
	return false
}

// Strategy selects which parameter set applies to a bot
type Strategy string

// Strategy constants
const (
	StrategyMarketMaking Strategy = "pure_market_making"
	StrategyArbitrage    Strategy = "arbitrage"
	StrategyGridTrading  Strategy = "grid_trading"
)

// Valid reports whether s is a known strategy
func (s Strategy) Valid() bool {
	switch s {
	case StrategyMarketMaking, StrategyArbitrage, StrategyGridTrading:
		return true
	}
	return false
}

// Performance is the latest performance snapshot reported by the engine
type Performance struct {
	TotalPnL    decimal.Decimal `json:"totalPnL"`
	DailyPnL    decimal.Decimal `json:"dailyPnL"`
	WinRate     decimal.Decimal `json:"winRate"`
	TotalTrades int             `json:"totalTrades"`
}

// RiskMetrics is the latest risk snapshot reported by the engine
type RiskMetrics struct {
	MaxDrawdown  decimal.Decimal `json:"maxDrawdown"`
	SharpeRatio  decimal.Decimal `json:"sharpeRatio"`
	SortinoRatio decimal.Decimal `json:"sortinoRatio"`
}

// Bot represents a configured trading bot
type Bot struct {
	ID          string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string         `json:"userId" gorm:"index;type:varchar(36);not null"`
	Name        string         `json:"name" gorm:"size:50;not null"`
	Strategy    Strategy       `json:"strategy" gorm:"type:varchar(32);not null"`
	Exchange    string         `json:"exchange" gorm:"size:64;not null"`
	BaseAsset   string         `json:"baseAsset" gorm:"size:16;not null"`
	QuoteAsset  string         `json:"quoteAsset" gorm:"size:16;not null"`
	Config      datatypes.JSON `json:"config"`
	Status      BotStatus      `json:"status" gorm:"type:varchar(16);not null;default:stopped"`
	Performance *Performance   `json:"performance,omitempty" gorm:"serializer:json"`
	RiskMetrics *RiskMetrics   `json:"riskMetrics,omitempty" gorm:"serializer:json"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// TableName pins the gorm table name
func (Bot) TableName() string {
	return "bots"
}

// Pair returns the trading pair in BASE/QUOTE form
func (b *Bot) Pair() string {
	return b.BaseAsset + "/" + b.QuoteAsset
}

// Clone returns a deep copy of the bot
func (b *Bot) Clone() *Bot {
	if b == nil {
		return nil
	}
	out := *b
	if b.Config != nil {
		out.Config = append(datatypes.JSON(nil), b.Config...)
	}
	if b.Performance != nil {
		p := *b.Performance
		out.Performance = &p
	}
	if b.RiskMetrics != nil {
		r := *b.RiskMetrics
		out.RiskMetrics = &r
	}
	return &out
}

// Params decodes the stored strategy configuration
func (b *Bot) Params() (StrategyParams, error) {
	return DecodeParams(b.Strategy, json.RawMessage(b.Config))
}

// BotUpdate is an engine-side status push for one bot
type BotUpdate struct {
	ID          string       `json:"id"`
	Status      BotStatus    `json:"status"`
	Performance *Performance `json:"performance,omitempty"`
	RiskMetrics *RiskMetrics `json:"riskMetrics,omitempty"`
	UpdatedAt   *time.Time   `json:"updatedAt,omitempty"`
}
