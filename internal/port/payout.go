package port

import (
	"context"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
)

// Payout releases value held by the ledger to an account.
type Payout interface {
	Send(ctx context.Context, to domain.Address, amount uint64) error
}
