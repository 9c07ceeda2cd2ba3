package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
	"github.com/rl1809/nft-marketplace/internal/metrics"
	"github.com/rl1809/nft-marketplace/internal/port"
)

// MarketplaceService is the listing ledger. Operations are serialized; each
// one validates, commits its own state and only then calls the registry or
// the payout sink. Any failure reverts the whole operation.
type MarketplaceService struct {
	address  domain.Address
	store    port.LedgerStore
	registry port.AssetRegistry
	payout   port.Payout

	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	eventQueue chan domain.Event
}

type Option func(*MarketplaceService)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *MarketplaceService) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *MarketplaceService) { s.metrics = m }
}

// NewMarketplaceService creates the ledger. address is the identity the
// registry must have approved to move listed assets.
func NewMarketplaceService(
	address domain.Address,
	store port.LedgerStore,
	registry port.AssetRegistry,
	payout port.Payout,
	queueSize int,
	opts ...Option,
) *MarketplaceService {
	s := &MarketplaceService{
		address:    address,
		store:      store,
		registry:   registry,
		payout:     payout,
		logger:     zerolog.Nop(),
		metrics:    metrics.NopMetrics(),
		eventQueue: make(chan domain.Event, queueSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MarketplaceService) Address() domain.Address {
	return s.address
}

func (s *MarketplaceService) CreateListing(ctx context.Context, collection domain.Address, assetID, price uint64, caller domain.Address) error {
	key := domain.ListingKey{Collection: collection, AssetID: assetID}

	return s.run(ctx, "create", func(ctx context.Context, tx *txn) error {
		listing, err := s.store.GetListing(ctx, key)
		if err != nil {
			return fmt.Errorf("get listing: %w", err)
		}
		if listing.Active() {
			return alreadyListed(key)
		}

		owner, err := s.registry.OwnerOf(ctx, collection, assetID)
		if err != nil {
			return fmt.Errorf("owner of %s: %w", key, err)
		}
		if owner != caller {
			return ErrNotOwner
		}

		if price == 0 {
			return ErrPriceMustBeAboveZero
		}

		approved, err := s.isApproved(ctx, key, owner)
		if err != nil {
			return err
		}
		if !approved {
			return ErrNotApprovedForMarketplace
		}

		listing = domain.Listing{Price: price, Seller: caller}
		if err := tx.putListing(ctx, key, listing); err != nil {
			return err
		}
		tx.emit(newEvent(domain.EventItemListed, key, func(e *domain.Event) {
			e.Seller = caller
			e.Price = price
		}))
		return nil
	})
}

func (s *MarketplaceService) CancelListing(ctx context.Context, collection domain.Address, assetID uint64, caller domain.Address) error {
	key := domain.ListingKey{Collection: collection, AssetID: assetID}

	return s.run(ctx, "cancel", func(ctx context.Context, tx *txn) error {
		if _, err := s.sellerListing(ctx, key, caller); err != nil {
			return err
		}

		if err := tx.putListing(ctx, key, domain.Listing{}); err != nil {
			return err
		}
		tx.emit(newEvent(domain.EventItemCanceled, key, func(e *domain.Event) {
			e.Seller = caller
		}))
		return nil
	})
}

// UpdateListing changes the price of an active listing. A zero price is
// rejected since it would silently unlist the asset.
func (s *MarketplaceService) UpdateListing(ctx context.Context, collection domain.Address, assetID, newPrice uint64, caller domain.Address) error {
	key := domain.ListingKey{Collection: collection, AssetID: assetID}

	return s.run(ctx, "update", func(ctx context.Context, tx *txn) error {
		listing, err := s.sellerListing(ctx, key, caller)
		if err != nil {
			return err
		}
		if newPrice == 0 {
			return ErrPriceMustBeAboveZero
		}

		listing.Price = newPrice
		if err := tx.putListing(ctx, key, listing); err != nil {
			return err
		}
		tx.emit(newEvent(domain.EventItemListed, key, func(e *domain.Event) {
			e.Seller = caller
			e.Price = newPrice
		}))
		return nil
	})
}

// BuyListing pays for a listed asset. The seller is credited the listing
// price; any excess payment is credited to the buyer's own proceeds.
func (s *MarketplaceService) BuyListing(ctx context.Context, collection domain.Address, assetID, payment uint64, caller domain.Address) error {
	key := domain.ListingKey{Collection: collection, AssetID: assetID}

	var sold uint64
	err := s.run(ctx, "buy", func(ctx context.Context, tx *txn) error {
		listing, err := s.store.GetListing(ctx, key)
		if err != nil {
			return fmt.Errorf("get listing: %w", err)
		}
		if !listing.Active() {
			return notListed(key)
		}
		if payment < listing.Price {
			return &PriceNotMetError{Key: key, Price: listing.Price, Payment: payment}
		}

		if err := tx.putListing(ctx, key, domain.Listing{}); err != nil {
			return err
		}
		if err := s.credit(ctx, tx, listing.Seller, listing.Price); err != nil {
			return err
		}
		if excess := payment - listing.Price; excess > 0 {
			if err := s.credit(ctx, tx, caller, excess); err != nil {
				return err
			}
		}
		tx.emit(newEvent(domain.EventItemBought, key, func(e *domain.Event) {
			e.Seller = listing.Seller
			e.Buyer = caller
			e.Price = listing.Price
		}))

		if err := s.registry.TransferFrom(ctx, s.address, listing.Seller, caller, collection, assetID); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrTransferFailed, key, err)
		}
		sold = listing.Price
		return nil
	})
	if err == nil {
		s.metrics.SalesVolume.Add(float64(sold))
	}
	return err
}

// WithdrawProceeds pays out the caller's whole balance and returns the
// amount sent.
func (s *MarketplaceService) WithdrawProceeds(ctx context.Context, caller domain.Address) (uint64, error) {
	var amount uint64
	err := s.run(ctx, "withdraw", func(ctx context.Context, tx *txn) error {
		balance, err := s.store.GetProceeds(ctx, caller)
		if err != nil {
			return fmt.Errorf("get proceeds: %w", err)
		}
		if balance == 0 {
			return ErrNoProceeds
		}

		if err := tx.putProceeds(ctx, caller, 0); err != nil {
			return err
		}
		tx.emit(newEvent(domain.EventProceedsWithdrawn, domain.ListingKey{}, func(e *domain.Event) {
			e.Seller = caller
			e.Amount = balance
		}))

		if err := s.payout.Send(ctx, caller, balance); err != nil {
			return fmt.Errorf("%w: %w", ErrPayoutFailed, err)
		}
		amount = balance
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.metrics.Withdrawn.Add(float64(amount))
	return amount, nil
}

// GetListing returns the zero Listing when the key is not listed.
func (s *MarketplaceService) GetListing(ctx context.Context, collection domain.Address, assetID uint64) (domain.Listing, error) {
	var listing domain.Listing
	err := s.view(ctx, func(ctx context.Context) error {
		var err error
		listing, err = s.store.GetListing(ctx, domain.ListingKey{Collection: collection, AssetID: assetID})
		return err
	})
	return listing, err
}

func (s *MarketplaceService) GetProceeds(ctx context.Context, seller domain.Address) (uint64, error) {
	var amount uint64
	err := s.view(ctx, func(ctx context.Context) error {
		var err error
		amount, err = s.store.GetProceeds(ctx, seller)
		return err
	})
	return amount, err
}

func (s *MarketplaceService) ActiveListings(ctx context.Context) ([]domain.ListingRecord, error) {
	var records []domain.ListingRecord
	err := s.view(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.store.ActiveListings(ctx)
		return err
	})
	return records, err
}

// GetEventQueue returns the committed events, in commit order.
func (s *MarketplaceService) GetEventQueue() <-chan domain.Event {
	return s.eventQueue
}

func (s *MarketplaceService) Close() {
	close(s.eventQueue)
}

// run executes fn as one all-or-nothing operation. A call made from inside
// another operation (through the registry or payout sink) joins the
// enclosing txn; only its own writes are reverted if it fails.
func (s *MarketplaceService) run(ctx context.Context, op string, fn func(context.Context, *txn) error) error {
	if tx, ok := txnFromContext(ctx, s); ok {
		m := tx.mark()
		err := fn(ctx, tx)
		if err != nil {
			s.rollback(ctx, tx, m, op)
		}
		s.observe(op, err, time.Time{})
		return err
	}

	start := time.Now()
	s.mu.Lock()
	tx := &txn{owner: s, store: s.store}
	err := fn(context.WithValue(ctx, txnKey{}, tx), tx)
	if err != nil {
		s.rollback(ctx, tx, txnMark{}, op)
	}
	s.mu.Unlock()

	s.observe(op, err, start)
	if err != nil {
		return err
	}

	for _, event := range tx.events {
		s.eventQueue <- event
	}
	return nil
}

func (s *MarketplaceService) rollback(ctx context.Context, tx *txn, m txnMark, op string) {
	if err := tx.revert(context.WithoutCancel(ctx), m); err != nil {
		s.logger.Error().Err(err).Str("operation", op).Msg("CRITICAL rollback failed")
	}
}

func (s *MarketplaceService) view(ctx context.Context, fn func(context.Context) error) error {
	if _, ok := txnFromContext(ctx, s); ok {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}

func (s *MarketplaceService) observe(op string, err error, start time.Time) {
	result := "ok"
	switch {
	case IsRejection(err):
		result = "rejected"
		s.logger.Debug().Err(err).Str("operation", op).Msg("operation rejected")
	case err != nil:
		result = "error"
		s.logger.Warn().Err(err).Str("operation", op).Msg("operation failed")
	default:
		s.logger.Info().Str("operation", op).Msg("operation committed")
	}
	s.metrics.Operations.With("operation", op, "result", result).Add(1)
	if !start.IsZero() {
		s.metrics.OperationSeconds.With("operation", op).Observe(time.Since(start).Seconds())
	}
}

// sellerListing loads an active listing and checks caller is its seller.
// Not-listed is reported before not-owner.
func (s *MarketplaceService) sellerListing(ctx context.Context, key domain.ListingKey, caller domain.Address) (domain.Listing, error) {
	listing, err := s.store.GetListing(ctx, key)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("get listing: %w", err)
	}
	if !listing.Active() {
		return domain.Listing{}, notListed(key)
	}
	if listing.Seller != caller {
		return domain.Listing{}, ErrNotOwner
	}
	return listing, nil
}

func (s *MarketplaceService) isApproved(ctx context.Context, key domain.ListingKey, owner domain.Address) (bool, error) {
	approved, err := s.registry.GetApproved(ctx, key.Collection, key.AssetID)
	if err != nil {
		return false, fmt.Errorf("get approved %s: %w", key, err)
	}
	if approved == s.address {
		return true, nil
	}
	ok, err := s.registry.IsApprovedForAll(ctx, key.Collection, owner, s.address)
	if err != nil {
		return false, fmt.Errorf("approved for all %s: %w", key, err)
	}
	return ok, nil
}

func (s *MarketplaceService) credit(ctx context.Context, tx *txn, to domain.Address, amount uint64) error {
	balance, err := s.store.GetProceeds(ctx, to)
	if err != nil {
		return fmt.Errorf("get proceeds: %w", err)
	}
	if balance > math.MaxUint64-amount {
		return fmt.Errorf("%w: %s", ErrProceedsOverflow, to)
	}
	return tx.putProceeds(ctx, to, balance+amount)
}

func newEvent(typ domain.EventType, key domain.ListingKey, fill func(*domain.Event)) domain.Event {
	e := domain.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Collection: key.Collection,
		AssetID:    key.AssetID,
		OccurredAt: time.Now().UTC(),
	}
	fill(&e)
	return e
}

// IsRejection reports whether err is a business rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrPriceMustBeAboveZero, ErrNotOwner, ErrNotApprovedForMarketplace,
		ErrAlreadyListed, ErrNotListed, ErrPriceNotMet, ErrNoProceeds,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
