package service

import (
	"errors"
	"fmt"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
)

var (
	ErrPriceMustBeAboveZero      = errors.New("price must be above zero")
	ErrNotOwner                  = errors.New("not owner")
	ErrNotApprovedForMarketplace = errors.New("not approved for marketplace")
	ErrAlreadyListed             = errors.New("already listed")
	ErrNotListed                 = errors.New("not listed")
	ErrPriceNotMet               = errors.New("price not met")
	ErrNoProceeds                = errors.New("no proceeds")
	ErrProceedsOverflow          = errors.New("proceeds overflow")
	ErrTransferFailed            = errors.New("asset transfer failed")
	ErrPayoutFailed              = errors.New("payout failed")
)

// ListingError reports a listing state conflict on a specific key.
// It unwraps to ErrAlreadyListed or ErrNotListed.
type ListingError struct {
	Err error
	Key domain.ListingKey
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Key)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}

type PriceNotMetError struct {
	Key     domain.ListingKey
	Price   uint64
	Payment uint64
}

func (e *PriceNotMetError) Error() string {
	return fmt.Sprintf("%v: %s requires %d, got %d", ErrPriceNotMet, e.Key, e.Price, e.Payment)
}

func (e *PriceNotMetError) Unwrap() error {
	return ErrPriceNotMet
}

func alreadyListed(key domain.ListingKey) error {
	return &ListingError{Err: ErrAlreadyListed, Key: key}
}

func notListed(key domain.ListingKey) error {
	return &ListingError{Err: ErrNotListed, Key: key}
}
