package payment

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
)

// Wallet is an in-process payout sink that accumulates balances per
// account.
type Wallet struct {
	mu       sync.Mutex
	balances map[domain.Address]uint64
}

func NewWallet() *Wallet {
	return &Wallet{balances: make(map[domain.Address]uint64)}
}

func (w *Wallet) Send(ctx context.Context, to domain.Address, amount uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.balances[to] > math.MaxUint64-amount {
		return fmt.Errorf("wallet %s: balance overflow", to)
	}
	w.balances[to] += amount
	return nil
}

func (w *Wallet) Balance(owner domain.Address) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[owner]
}
