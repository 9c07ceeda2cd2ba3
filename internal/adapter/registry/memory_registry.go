package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
)

var (
	ErrAssetNotFound  = errors.New("asset not found")
	ErrAssetExists    = errors.New("asset already minted")
	ErrNotAssetHolder = errors.New("from is not the asset holder")
	ErrNotAuthorized  = errors.New("operator not authorized for asset")
)

type operatorKey struct {
	collection domain.Address
	owner      domain.Address
	operator   domain.Address
}

// MemoryRegistry is an in-process asset registry with per-asset and
// operator approvals.
type MemoryRegistry struct {
	mu        sync.Mutex
	owners    map[domain.ListingKey]domain.Address
	approvals map[domain.ListingKey]domain.Address
	operators map[operatorKey]bool
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		owners:    make(map[domain.ListingKey]domain.Address),
		approvals: make(map[domain.ListingKey]domain.Address),
		operators: make(map[operatorKey]bool),
	}
}

func (r *MemoryRegistry) Mint(collection domain.Address, assetID uint64, owner domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.ListingKey{Collection: collection, AssetID: assetID}
	if _, ok := r.owners[key]; ok {
		return fmt.Errorf("%w: %s", ErrAssetExists, key)
	}
	r.owners[key] = owner
	return nil
}

// Approve lets operator move one asset on behalf of its holder.
func (r *MemoryRegistry) Approve(caller, collection domain.Address, assetID uint64, operator domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.ListingKey{Collection: collection, AssetID: assetID}
	owner, ok := r.owners[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, key)
	}
	if owner != caller {
		return fmt.Errorf("%w: %s", ErrNotAssetHolder, key)
	}
	r.approvals[key] = operator
	return nil
}

func (r *MemoryRegistry) SetApprovalForAll(collection, owner, operator domain.Address, approved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := operatorKey{collection: collection, owner: owner, operator: operator}
	if approved {
		r.operators[k] = true
	} else {
		delete(r.operators, k)
	}
}

func (r *MemoryRegistry) OwnerOf(ctx context.Context, collection domain.Address, assetID uint64) (domain.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.ListingKey{Collection: collection, AssetID: assetID}
	owner, ok := r.owners[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrAssetNotFound, key)
	}
	return owner, nil
}

func (r *MemoryRegistry) GetApproved(ctx context.Context, collection domain.Address, assetID uint64) (domain.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.ListingKey{Collection: collection, AssetID: assetID}
	if _, ok := r.owners[key]; !ok {
		return "", fmt.Errorf("%w: %s", ErrAssetNotFound, key)
	}
	return r.approvals[key], nil
}

func (r *MemoryRegistry) IsApprovedForAll(ctx context.Context, collection, owner, operator domain.Address) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.operators[operatorKey{collection: collection, owner: owner, operator: operator}], nil
}

// TransferFrom moves the asset and clears its single-asset approval.
func (r *MemoryRegistry) TransferFrom(ctx context.Context, operator, from, to, collection domain.Address, assetID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.ListingKey{Collection: collection, AssetID: assetID}
	owner, ok := r.owners[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, key)
	}
	if owner != from {
		return fmt.Errorf("%w: %s", ErrNotAssetHolder, key)
	}
	if operator != owner && r.approvals[key] != operator &&
		!r.operators[operatorKey{collection: collection, owner: owner, operator: operator}] {
		return fmt.Errorf("%w: %s", ErrNotAuthorized, key)
	}

	r.owners[key] = to
	delete(r.approvals, key)
	return nil
}
