package storage

import (
	"context"
	"sync"

	"github.com/google/btree"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
)

const btreeDegree = 32

type listingItem struct {
	key     domain.ListingKey
	listing domain.Listing
}

func (a listingItem) Less(than btree.Item) bool {
	b := than.(listingItem)
	if a.key.Collection != b.key.Collection {
		return a.key.Collection < b.key.Collection
	}
	return a.key.AssetID < b.key.AssetID
}

// MemoryStore keeps the ledger in process. Listings live in a b-tree so
// active listings come back ordered by key.
type MemoryStore struct {
	mu       sync.RWMutex
	listings *btree.BTree
	proceeds map[domain.Address]uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings: btree.New(btreeDegree),
		proceeds: make(map[domain.Address]uint64),
	}
}

func (m *MemoryStore) GetListing(ctx context.Context, key domain.ListingKey) (domain.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item := m.listings.Get(listingItem{key: key})
	if item == nil {
		return domain.Listing{}, nil
	}
	return item.(listingItem).listing, nil
}

// PutListing stores the zero sentinel in place rather than deleting the key.
func (m *MemoryStore) PutListing(ctx context.Context, key domain.ListingKey, listing domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listings.ReplaceOrInsert(listingItem{key: key, listing: listing})
	return nil
}

func (m *MemoryStore) GetProceeds(ctx context.Context, seller domain.Address) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.proceeds[seller], nil
}

func (m *MemoryStore) PutProceeds(ctx context.Context, seller domain.Address, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proceeds[seller] = amount
	return nil
}

func (m *MemoryStore) ActiveListings(ctx context.Context) ([]domain.ListingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []domain.ListingRecord
	m.listings.Ascend(func(i btree.Item) bool {
		item := i.(listingItem)
		if item.listing.Active() {
			records = append(records, domain.ListingRecord{Key: item.key, Listing: item.listing})
		}
		return true
	})
	return records, nil
}
