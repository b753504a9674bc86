package util

// Market stub limits
const (
	// OrderBookDepth is the number of levels served per book side
	OrderBookDepth = 10

	// RecentTradesLimit is the number of trades served per symbol
	RecentTradesLimit = 50

	// MinOrderQuantity is the smallest accepted order quantity
	MinOrderQuantity = "0.00000001"

	// MaxRequestBodyBytes bounds JSON request bodies
	MaxRequestBodyBytes = 1 << 20
)

// SupportedSymbols is the fixed list of market symbols served by the backend
var SupportedSymbols = []string{"BTC/USDT", "ETH/USDT", "BNB/USDT", "SOL/USDT", "ADA/USDT"}

// BasePrices seeds the market stub for each supported symbol
var BasePrices = map[string]float64{
	"BTC/USDT": 50000,
	"ETH/USDT": 3000,
	"BNB/USDT": 400,
	"SOL/USDT": 100,
	"ADA/USDT": 0.5,
}
