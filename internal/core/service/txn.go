package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
	"github.com/rl1809/nft-marketplace/internal/port"
)

type txnKey struct{}

// txn journals the store writes and buffered events of one top-level ledger
// operation. Collaborators that call back into the ledger with the txn's
// context join it instead of taking the lock again.
type txn struct {
	owner  *MarketplaceService
	store  port.LedgerStore
	undo   []func(context.Context) error
	events []domain.Event
}

type txnMark struct {
	undo   int
	events int
}

func txnFromContext(ctx context.Context, owner *MarketplaceService) (*txn, bool) {
	tx, ok := ctx.Value(txnKey{}).(*txn)
	if !ok || tx.owner != owner {
		return nil, false
	}
	return tx, true
}

func (tx *txn) mark() txnMark {
	return txnMark{undo: len(tx.undo), events: len(tx.events)}
}

func (tx *txn) putListing(ctx context.Context, key domain.ListingKey, listing domain.Listing) error {
	prev, err := tx.store.GetListing(ctx, key)
	if err != nil {
		return fmt.Errorf("get listing %s: %w", key, err)
	}
	if err := tx.store.PutListing(ctx, key, listing); err != nil {
		return fmt.Errorf("put listing %s: %w", key, err)
	}
	tx.undo = append(tx.undo, func(ctx context.Context) error {
		return tx.store.PutListing(ctx, key, prev)
	})
	return nil
}

func (tx *txn) putProceeds(ctx context.Context, seller domain.Address, amount uint64) error {
	prev, err := tx.store.GetProceeds(ctx, seller)
	if err != nil {
		return fmt.Errorf("get proceeds %s: %w", seller, err)
	}
	if err := tx.store.PutProceeds(ctx, seller, amount); err != nil {
		return fmt.Errorf("put proceeds %s: %w", seller, err)
	}
	tx.undo = append(tx.undo, func(ctx context.Context) error {
		return tx.store.PutProceeds(ctx, seller, prev)
	})
	return nil
}

func (tx *txn) emit(event domain.Event) {
	tx.events = append(tx.events, event)
}

// revert undoes every write made after m, newest first, and drops the
// events buffered after m.
func (tx *txn) revert(ctx context.Context, m txnMark) error {
	var errs []error
	for i := len(tx.undo) - 1; i >= m.undo; i-- {
		if err := tx.undo[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	tx.undo = tx.undo[:m.undo]
	tx.events = tx.events[:m.events]
	return errors.Join(errs...)
}
