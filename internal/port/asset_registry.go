package port

import (
	"context"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
)

// AssetRegistry is the external system of record for asset ownership.
// Implementations that call back into the ledger must pass ctx through.
type AssetRegistry interface {
	OwnerOf(ctx context.Context, collection domain.Address, assetID uint64) (domain.Address, error)

	// GetApproved returns the single-asset approved operator, or "" if none
	GetApproved(ctx context.Context, collection domain.Address, assetID uint64) (domain.Address, error)

	IsApprovedForAll(ctx context.Context, collection, owner, operator domain.Address) (bool, error)

	// TransferFrom moves the asset and fails if from is not the holder or
	// operator is not authorized to move it
	TransferFrom(ctx context.Context, operator, from, to, collection domain.Address, assetID uint64) error
}
