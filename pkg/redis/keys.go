package redis

import "fmt"

// Redis key patterns for the application
// Following the pattern: entity:id or entity:id:attribute

// OrdersKey is the hash of a user's orders, field = order id
func OrdersKey(userID string) string {
	return fmt.Sprintf("orders:%s", userID)
}

// Market data cache keys
func TickerKey(symbol string) string {
	return fmt.Sprintf("ticker:%s", symbol)
}

func OrderBookKey(symbol string) string {
	return fmt.Sprintf("orderbook:%s", symbol)
}

func TradesKey(symbol string) string {
	return fmt.Sprintf("trades:%s", symbol)
}

// Token blacklist
func TokenBlacklistKey(tokenID string) string {
	return fmt.Sprintf("token_blacklist:%s", tokenID)
}

// Rate limiting
func RateLimitKey(identifier, action string) string {
	return fmt.Sprintf("rate_limit:%s:%s", action, identifier)
}

// Pub/Sub channels bridging services to WebSocket clients
const (
	ChannelWSBroadcast  = "ws:broadcast"
	ChannelWSUserPrefix = "ws:user:"
)

// WSUserChannel returns a user-specific channel
func WSUserChannel(userID string) string {
	return ChannelWSUserPrefix + userID
}
