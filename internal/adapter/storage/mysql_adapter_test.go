package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
)

func getMySQLAdapter(t *testing.T) (*MySQLAdapter, *sql.DB) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/marketplace?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	adapter := NewMySQLAdapter(db)
	require.NoError(t, adapter.EnsureSchema(context.Background()))
	return adapter, db
}

func TestMySQLListing_RoundTrip(t *testing.T) {
	adapter, db := getMySQLAdapter(t)
	defer db.Close()

	ctx := context.Background()
	key := domain.ListingKey{Collection: "mysql-test", AssetID: 5}

	// Cleanup old rows
	db.ExecContext(ctx, `DELETE FROM listings WHERE collection = ?`, "mysql-test")

	listing, err := adapter.GetListing(ctx, key)
	require.NoError(t, err)
	assert.False(t, listing.Active())

	require.NoError(t, adapter.PutListing(ctx, key, domain.Listing{Price: 100, Seller: "alice"}))
	listing, err = adapter.GetListing(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.Listing{Price: 100, Seller: "alice"}, listing)

	require.NoError(t, adapter.PutListing(ctx, key, domain.Listing{}))
	listing, err = adapter.GetListing(ctx, key)
	require.NoError(t, err)
	assert.False(t, listing.Active())

	// Verify the row is kept as a zero-price sentinel
	var count int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings WHERE collection = ? AND price = 0`, "mysql-test").Scan(&count)
	assert.Equal(t, 1, count)
}

func TestMySQLActiveListings(t *testing.T) {
	adapter, db := getMySQLAdapter(t)
	defer db.Close()

	ctx := context.Background()
	db.ExecContext(ctx, `DELETE FROM listings`)

	require.NoError(t, adapter.PutListing(ctx, domain.ListingKey{Collection: "m", AssetID: 3}, domain.Listing{Price: 3, Seller: "s"}))
	require.NoError(t, adapter.PutListing(ctx, domain.ListingKey{Collection: "m", AssetID: 1}, domain.Listing{Price: 1, Seller: "s"}))
	require.NoError(t, adapter.PutListing(ctx, domain.ListingKey{Collection: "m", AssetID: 2}, domain.Listing{}))

	records, err := adapter.ActiveListings(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint64(1), records[0].Key.AssetID)
	assert.Equal(t, uint64(3), records[1].Key.AssetID)
}

func TestMySQLProceeds(t *testing.T) {
	adapter, db := getMySQLAdapter(t)
	defer db.Close()

	ctx := context.Background()
	db.ExecContext(ctx, `DELETE FROM proceeds WHERE seller = ?`, "mysql-seller")

	amount, err := adapter.GetProceeds(ctx, "mysql-seller")
	require.NoError(t, err)
	assert.Zero(t, amount)

	require.NoError(t, adapter.PutProceeds(ctx, "mysql-seller", 500))
	require.NoError(t, adapter.PutProceeds(ctx, "mysql-seller", 700))
	amount, err = adapter.GetProceeds(ctx, "mysql-seller")
	require.NoError(t, err)
	assert.Equal(t, uint64(700), amount)
}

func TestMySQLSend_RecordsPayout(t *testing.T) {
	adapter, db := getMySQLAdapter(t)
	defer db.Close()

	ctx := context.Background()
	recipient := "mysql-payee-" + uuid.NewString()[:8]

	require.NoError(t, adapter.Send(ctx, domain.Address(recipient), 30))
	require.NoError(t, adapter.Send(ctx, domain.Address(recipient), 12))

	var payouts int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payouts WHERE recipient = ?`, recipient).Scan(&payouts)
	assert.Equal(t, 2, payouts)

	var balance uint64
	db.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE owner = ?`, recipient).Scan(&balance)
	assert.Equal(t, uint64(42), balance)

	// Cleanup
	db.ExecContext(ctx, `DELETE FROM payouts WHERE recipient = ?`, recipient)
	db.ExecContext(ctx, `DELETE FROM wallets WHERE owner = ?`, recipient)
}

func TestMySQLPublish_IgnoresReplay(t *testing.T) {
	adapter, db := getMySQLAdapter(t)
	defer db.Close()

	ctx := context.Background()
	event := domain.Event{
		ID:         uuid.NewString(),
		Type:       domain.EventItemBought,
		Collection: "mysql-events",
		AssetID:    5,
		Seller:     "alice",
		Buyer:      "bob",
		Price:      100,
		OccurredAt: time.Now().UTC(),
	}

	require.NoError(t, adapter.Publish(ctx, event))
	require.NoError(t, adapter.Publish(ctx, event))

	var count int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE id = ?`, event.ID).Scan(&count)
	assert.Equal(t, 1, count)

	// Cleanup
	db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, event.ID)
}
