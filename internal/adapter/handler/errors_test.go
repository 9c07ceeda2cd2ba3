package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rl1809/nft-marketplace/internal/core/service"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		code    string
		message string
	}{
		{service.ErrNoProceeds, http.StatusConflict, "no_proceeds", "no proceeds"},
		{fmt.Errorf("%w: registry down", service.ErrTransferFailed), http.StatusBadGateway, "transfer_failed", "asset transfer failed"},
		{fmt.Errorf("%w: bank down", service.ErrPayoutFailed), http.StatusBadGateway, "payout_failed", "payout failed"},
		{errors.New("connection refused"), http.StatusInternalServerError, "internal", "internal error"},
	}

	for _, tt := range tests {
		status, code, message := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code)
		assert.Equal(t, tt.message, message)
	}
}
