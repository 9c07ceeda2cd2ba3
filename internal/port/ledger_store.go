package port

import (
	"context"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
)

// LedgerStore holds the two ledger mappings. Implementations never delete a
// listing key; an unlisted key reads back as the zero Listing.
type LedgerStore interface {
	// GetListing returns the zero Listing if the key was never listed
	GetListing(ctx context.Context, key domain.ListingKey) (domain.Listing, error)

	PutListing(ctx context.Context, key domain.ListingKey, listing domain.Listing) error

	// GetProceeds returns 0 for unknown sellers
	GetProceeds(ctx context.Context, seller domain.Address) (uint64, error)

	PutProceeds(ctx context.Context, seller domain.Address, amount uint64) error

	// ActiveListings returns listings with a positive price ordered by key
	ActiveListings(ctx context.Context) ([]domain.ListingRecord, error)
}
