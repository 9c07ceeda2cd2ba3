package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		collection VARCHAR(128) NOT NULL,
		asset_id BIGINT UNSIGNED NOT NULL,
		price BIGINT UNSIGNED NOT NULL,
		seller VARCHAR(128) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		PRIMARY KEY (collection, asset_id),
		KEY idx_listings_price (price)
	)`,
	`CREATE TABLE IF NOT EXISTS proceeds (
		seller VARCHAR(128) NOT NULL PRIMARY KEY,
		amount BIGINT UNSIGNED NOT NULL,
		updated_at DATETIME(6) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id CHAR(36) NOT NULL PRIMARY KEY,
		type VARCHAR(32) NOT NULL,
		collection VARCHAR(128) NOT NULL,
		asset_id BIGINT UNSIGNED NOT NULL,
		seller VARCHAR(128) NOT NULL,
		buyer VARCHAR(128) NOT NULL,
		price BIGINT UNSIGNED NOT NULL,
		amount BIGINT UNSIGNED NOT NULL,
		occurred_at DATETIME(6) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payouts (
		id CHAR(36) NOT NULL PRIMARY KEY,
		recipient VARCHAR(128) NOT NULL,
		amount BIGINT UNSIGNED NOT NULL,
		created_at DATETIME(6) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS wallets (
		owner VARCHAR(128) NOT NULL PRIMARY KEY,
		balance BIGINT UNSIGNED NOT NULL,
		updated_at DATETIME(6) NOT NULL
	)`,
}

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// EnsureSchema creates the ledger tables if they do not exist.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) GetListing(ctx context.Context, key domain.ListingKey) (domain.Listing, error) {
	var (
		listing domain.Listing
		seller  string
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT price, seller FROM listings
		WHERE collection = ? AND asset_id = ?`, string(key.Collection), key.AssetID,
	).Scan(&listing.Price, &seller)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Listing{}, nil
	}
	if err != nil {
		return domain.Listing{}, fmt.Errorf("query listing: %w", err)
	}

	listing.Seller = domain.Address(seller)
	return listing, nil
}

// PutListing upserts the row; an unlisted key keeps its row with price 0.
func (m *MySQLAdapter) PutListing(ctx context.Context, key domain.ListingKey, listing domain.Listing) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO listings (collection, asset_id, price, seller, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE price = VALUES(price), seller = VALUES(seller), updated_at = VALUES(updated_at)`,
		string(key.Collection), key.AssetID, listing.Price, string(listing.Seller), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert listing: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetProceeds(ctx context.Context, seller domain.Address) (uint64, error) {
	var amount uint64
	err := m.db.QueryRowContext(ctx, `
		SELECT amount FROM proceeds WHERE seller = ?`, string(seller),
	).Scan(&amount)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query proceeds: %w", err)
	}
	return amount, nil
}

func (m *MySQLAdapter) PutProceeds(ctx context.Context, seller domain.Address, amount uint64) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO proceeds (seller, amount, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE amount = VALUES(amount), updated_at = VALUES(updated_at)`,
		string(seller), amount, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert proceeds: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ActiveListings(ctx context.Context) ([]domain.ListingRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT collection, asset_id, price, seller FROM listings
		WHERE price > 0
		ORDER BY collection, asset_id`)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var records []domain.ListingRecord
	for rows.Next() {
		var (
			rec                domain.ListingRecord
			collection, seller string
		)
		if err := rows.Scan(&collection, &rec.Key.AssetID, &rec.Listing.Price, &seller); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		rec.Key.Collection = domain.Address(collection)
		rec.Listing.Seller = domain.Address(seller)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Publish appends the event to the events table. Replays of the same event
// ID are ignored.
func (m *MySQLAdapter) Publish(ctx context.Context, event domain.Event) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT IGNORE INTO events (id, type, collection, asset_id, seller, buyer, price, amount, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, string(event.Type), string(event.Collection), event.AssetID,
		string(event.Seller), string(event.Buyer), event.Price, event.Amount, event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Send records the payout and credits the recipient's wallet in one
// transaction.
func (m *MySQLAdapter) Send(ctx context.Context, to domain.Address, amount uint64) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO payouts (id, recipient, amount, created_at)
		VALUES (?, ?, ?, ?)`,
		uuid.NewString(), string(to), amount, now,
	)
	if err != nil {
		return fmt.Errorf("insert payout: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallets (owner, balance, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE balance = balance + VALUES(balance), updated_at = VALUES(updated_at)`,
		string(to), amount, now,
	)
	if err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}

	return tx.Commit()
}
