package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
)

func TestMemoryStore_UnknownKeysReadAsZero(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	listing, err := store.GetListing(ctx, domain.ListingKey{Collection: "C", AssetID: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.Listing{}, listing)
	assert.False(t, listing.Active())

	amount, err := store.GetProceeds(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, amount)
}

func TestMemoryStore_PutAndClearListing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := domain.ListingKey{Collection: "C", AssetID: 5}

	require.NoError(t, store.PutListing(ctx, key, domain.Listing{Price: 100, Seller: "alice"}))
	listing, err := store.GetListing(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.Listing{Price: 100, Seller: "alice"}, listing)

	require.NoError(t, store.PutListing(ctx, key, domain.Listing{}))
	listing, err = store.GetListing(ctx, key)
	require.NoError(t, err)
	assert.False(t, listing.Active())
	assert.Equal(t, 1, store.listings.Len(), "sentinel stays in the tree")
}

func TestMemoryStore_ActiveListingsOrdered(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	puts := []domain.ListingRecord{
		{Key: domain.ListingKey{Collection: "B", AssetID: 1}, Listing: domain.Listing{Price: 3, Seller: "s"}},
		{Key: domain.ListingKey{Collection: "A", AssetID: 10}, Listing: domain.Listing{Price: 2, Seller: "s"}},
		{Key: domain.ListingKey{Collection: "A", AssetID: 2}, Listing: domain.Listing{Price: 1, Seller: "s"}},
		{Key: domain.ListingKey{Collection: "A", AssetID: 7}, Listing: domain.Listing{}},
	}
	for _, rec := range puts {
		require.NoError(t, store.PutListing(ctx, rec.Key, rec.Listing))
	}

	records, err := store.ActiveListings(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, domain.ListingKey{Collection: "A", AssetID: 2}, records[0].Key)
	assert.Equal(t, domain.ListingKey{Collection: "A", AssetID: 10}, records[1].Key)
	assert.Equal(t, domain.ListingKey{Collection: "B", AssetID: 1}, records[2].Key)
}

func TestMemoryStore_Proceeds(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.PutProceeds(ctx, "alice", 250))
	amount, err := store.GetProceeds(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(250), amount)
}
