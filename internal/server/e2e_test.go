package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hbinterface/backend/internal/console"
	"hbinterface/backend/internal/model"
	"hbinterface/backend/pkg/gateway"
	"hbinterface/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// consoleOverSocket connects a bot store to the backend hub the way the
// console does against a live engine.
func consoleOverSocket(t *testing.T, s *testServer, token string) (*console.BotStore, *gateway.Socket) {
	t.Helper()

	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)

	socket := gateway.NewSocket(gateway.Config{
		WSURL:          "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token,
		APIKey:         "console",
		ReconnectDelay: 50 * time.Millisecond,
		AckTimeout:     2 * time.Second,
	}, logger.Nop())
	t.Cleanup(func() { _ = socket.Close() })

	store := console.NewBotStore(nil, socket, logger.Nop())
	t.Cleanup(store.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, socket.Connect(ctx, store.HandleMessage))

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	require.NoError(t, socket.WaitConnected(waitCtx))
	require.Eventually(t, func() bool { return s.deps.Hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	return store, socket
}

func createBot(t *testing.T, s *testServer, token string) *model.Bot {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/bots", token, marketMakingBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var bot model.Bot
	decodeData(t, env, &bot)
	require.Equal(t, model.BotStatusStopped, bot.Status)
	return &bot
}

func TestRESTStartReachesConsole(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "e2e@example.com")
	bot := createBot(t, s, token)

	store, _ := consoleOverSocket(t, s, token)
	require.NoError(t, store.Dispatch(console.AddBot(bot)))

	w, env := s.do(t, http.MethodPost, "/api/bots/"+bot.ID+"/start", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var started model.Bot
	decodeData(t, env, &started)
	assert.Equal(t, model.BotStatusRunning, started.Status)

	require.Eventually(t, func() bool {
		b := store.State().Bot(bot.ID)
		return b != nil && b.Status == model.BotStatusRunning
	}, 3*time.Second, 20*time.Millisecond)
}

func TestConsoleCommandRoundTrip(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "cmd@example.com")
	bot := createBot(t, s, token)

	store, _ := consoleOverSocket(t, s, token)
	require.NoError(t, store.Dispatch(console.SetBots([]*model.Bot{bot})))

	require.NoError(t, store.StartBot(context.Background(), bot.ID))
	assert.Equal(t, model.BotStatusRunning, store.State().Bot(bot.ID).Status)

	w, env := s.do(t, http.MethodGet, "/api/bots/"+bot.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stored model.Bot
	decodeData(t, env, &stored)
	assert.Equal(t, model.BotStatusRunning, stored.Status)

	require.NoError(t, store.StopBot(context.Background(), bot.ID))
	assert.Equal(t, model.BotStatusStopped, store.State().Bot(bot.ID).Status)

	err := store.StartBot(context.Background(), "missing")
	var cmdErr *gateway.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "Bot not found", cmdErr.Reason)
	assert.Contains(t, store.State().Error, "Bot not found")
}
