package handler

import (
	"errors"
	"net/http"

	"github.com/rl1809/nft-marketplace/internal/core/service"
)

var errDuplicateRequest = errors.New("duplicate request")

type errorClass struct {
	target error
	status int
	code   string
}

var errorClasses = []errorClass{
	{errDuplicateRequest, http.StatusConflict, "duplicate_request"},
	{service.ErrPriceMustBeAboveZero, http.StatusBadRequest, "price_must_be_above_zero"},
	{service.ErrNotOwner, http.StatusForbidden, "not_owner"},
	{service.ErrNotApprovedForMarketplace, http.StatusForbidden, "not_approved_for_marketplace"},
	{service.ErrAlreadyListed, http.StatusConflict, "already_listed"},
	{service.ErrNotListed, http.StatusNotFound, "not_listed"},
	{service.ErrPriceNotMet, http.StatusPaymentRequired, "price_not_met"},
	{service.ErrNoProceeds, http.StatusConflict, "no_proceeds"},
	{service.ErrProceedsOverflow, http.StatusUnprocessableEntity, "proceeds_overflow"},
	{service.ErrTransferFailed, http.StatusBadGateway, "transfer_failed"},
	{service.ErrPayoutFailed, http.StatusBadGateway, "payout_failed"},
}

// classify maps a ledger error to an HTTP status, a stable code and a
// message safe to return to callers.
func classify(err error) (int, string, string) {
	for _, c := range errorClasses {
		if errors.Is(err, c.target) {
			msg := err.Error()
			if c.status == http.StatusBadGateway {
				msg = c.target.Error()
			}
			return c.status, c.code, msg
		}
	}
	return http.StatusInternalServerError, "internal", "internal error"
}
