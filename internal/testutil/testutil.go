// Package testutil builds in-memory stores for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/pkg/database"
	"hbinterface/backend/pkg/logger"
	"hbinterface/backend/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a migrated in-memory sqlite database private to t
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := database.New(database.Config{DSN: dsn, LogLevel: "silent"}, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, model.AllModels()...))

	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// NewRedis starts a miniredis server and returns it with a connected client
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewFromAddr(mr.Addr())
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
