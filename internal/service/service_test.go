package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/repository"
	"hbinterface/backend/internal/testutil"
	"hbinterface/backend/pkg/jwt"
	"hbinterface/backend/pkg/logger"
	"hbinterface/backend/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

type fixture struct {
	db    *gorm.DB
	mr    *miniredis.Miniredis
	redis *redis.Client
	jwt   *jwt.JWTManager

	auth     *AuthService
	bots     *BotService
	orders   *OrderService
	market   *MarketService
	apiKeys  *APIKeyService
	users    *UserService
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	log := logger.Nop()
	jwtManager := jwt.NewJWTManager("test-secret", time.Hour)
	notifier := &recordingNotifier{}

	return &fixture{
		db:       db,
		mr:       mr,
		redis:    rdb,
		jwt:      jwtManager,
		auth:     NewAuthService(repository.NewUserRepository(db, rdb), jwtManager, log),
		bots:     NewBotService(repository.NewBotRepository(db), notifier, log),
		orders:   NewOrderService(repository.NewOrderRepository(rdb), notifier, log),
		market:   NewMarketService(rdb, marketTestConfig(), log),
		apiKeys:  NewAPIKeyService(repository.NewAPIKeyRepository(db), nil, testEncryptionKey, log),
		users:    NewUserService(repository.NewUserRepository(db, rdb), log),
		notifier: notifier,
	}
}

// recordingNotifier captures notifications in memory
type recordingNotifier struct {
	mu     sync.Mutex
	bots   []*model.Bot
	orders []*model.Order
}

func (n *recordingNotifier) NotifyBotUpdate(_ context.Context, _ string, bot *model.Bot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bots = append(n.bots, bot.Clone())
}

func (n *recordingNotifier) NotifyOrderUpdate(_ context.Context, _ string, order *model.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	o := *order
	n.orders = append(n.orders, &o)
}

func (n *recordingNotifier) botUpdates() []*model.Bot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*model.Bot(nil), n.bots...)
}

func (n *recordingNotifier) orderUpdates() []*model.Order {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*model.Order(nil), n.orders...)
}

// mockEngine is a testify mock of BotEngine
type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) StartBot(ctx context.Context, botID string) (*model.Bot, error) {
	args := m.Called(ctx, botID)
	bot, _ := args.Get(0).(*model.Bot)
	return bot, args.Error(1)
}

func (m *mockEngine) StopBot(ctx context.Context, botID string) (*model.Bot, error) {
	args := m.Called(ctx, botID)
	bot, _ := args.Get(0).(*model.Bot)
	return bot, args.Error(1)
}

func marketMakingRequest() *model.BotRequest {
	return &model.BotRequest{
		Name:             "Test Bot",
		Strategy:         string(model.StrategyMarketMaking),
		Exchange:         "binance",
		BaseAsset:        "BTC",
		QuoteAsset:       "USDT",
		BidSpread:        "0.5",
		AskSpread:        "0.5",
		OrderSize:        "0.01",
		OrderInterval:    "10",
		MinProfitability: "1",
	}
}
