package service_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/nft-marketplace/internal/adapter/registry"
	"github.com/rl1809/nft-marketplace/internal/adapter/storage"
	"github.com/rl1809/nft-marketplace/internal/core/domain"
	"github.com/rl1809/nft-marketplace/internal/core/service"
	"github.com/rl1809/nft-marketplace/internal/port"
	"github.com/rl1809/nft-marketplace/internal/worker"
)

type testEnv struct {
	redis    *redis.Client
	mysql    *sql.DB
	cache    *storage.RedisAdapter
	db       *storage.MySQLAdapter
	registry *registry.RedisRegistry
	cleanup  func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/marketplace?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	mysqlAdapter := storage.NewMySQLAdapter(db)
	require.NoError(t, mysqlAdapter.EnsureSchema(context.Background()))

	return &testEnv{
		redis:    rdb,
		mysql:    db,
		cache:    storage.NewRedisAdapter(rdb),
		db:       mysqlAdapter,
		registry: registry.NewRedisRegistry(rdb),
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

func TestIntegration_ListBuyWithdraw(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	collection := domain.Address("integration-" + uuid.NewString()[:8])
	seller := domain.Address("seller-" + uuid.NewString()[:8])
	market := domain.Address("integration-market")

	// MySQL holds the ledger, Redis the registry and the wallet
	svc := service.NewMarketplaceService(market, env.db, env.registry, env.cache, 100)
	pool := worker.NewPool(svc.GetEventQueue(), []port.EventPublisher{env.db, env.cache}, zerolog.Nop(), nil)
	pool.Start(2)

	require.NoError(t, env.registry.Mint(ctx, collection, 1, seller))
	require.NoError(t, env.registry.Approve(ctx, seller, collection, 1, market))

	require.NoError(t, svc.CreateListing(ctx, collection, 1, 100, seller))
	require.NoError(t, svc.BuyListing(ctx, collection, 1, 100, "integration-buyer"))

	owner, err := env.registry.OwnerOf(ctx, collection, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Address("integration-buyer"), owner)

	amount, err := svc.WithdrawProceeds(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), amount)

	balance, err := env.cache.WalletBalance(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	svc.Close()
	pool.Wait()

	// Verify the event log
	var count int
	env.mysql.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE collection = ?`, string(collection)).Scan(&count)
	assert.Equal(t, 2, count)

	// Cleanup
	env.mysql.ExecContext(ctx, `DELETE FROM events WHERE collection = ?`, string(collection))
	env.mysql.ExecContext(ctx, `DELETE FROM listings WHERE collection = ?`, string(collection))
	env.mysql.ExecContext(ctx, `DELETE FROM proceeds WHERE seller = ?`, string(seller))
}

func TestIntegration_ConcurrentBuyersOnRedis(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	collection := domain.Address("race-" + uuid.NewString()[:8])
	market := domain.Address("integration-market")

	svc := service.NewMarketplaceService(market, env.cache, env.registry, env.cache, 100)
	defer svc.Close()
	go func() {
		for range svc.GetEventQueue() {
		}
	}()

	require.NoError(t, env.registry.Mint(ctx, collection, 1, "race-seller"))
	require.NoError(t, env.registry.SetApprovalForAll(ctx, collection, "race-seller", market, true))
	require.NoError(t, svc.CreateListing(ctx, collection, 1, 10, "race-seller"))

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.BuyListing(ctx, collection, 1, 10, domain.Address("buyer-"+uuid.NewString()))
			if err == nil {
				successCount.Add(1)
			} else if !errors.Is(err, service.ErrNotListed) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount.Load())

	proceeds, err := svc.GetProceeds(ctx, "race-seller")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, proceeds, uint64(10))

	// Cleanup
	env.redis.Del(ctx, "proceeds:race-seller")
}

func TestIntegration_IdempotencyKeyExpires(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	key := "withdraw:" + uuid.NewString()

	ok, err := env.cache.SetIdempotency(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ttl, err := env.redis.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Hour)
}
