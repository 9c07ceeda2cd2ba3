package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
	"github.com/rl1809/nft-marketplace/internal/core/service"
	"github.com/rl1809/nft-marketplace/internal/port"
)

type HTTPHandler struct {
	marketplace *service.MarketplaceService
	cache       port.CacheRepository
	logger      zerolog.Logger
}

// ListingHTTPRequest is the body of every mutating endpoint. Caller is the
// identity established by the authentication layer in front of this API.
type ListingHTTPRequest struct {
	RequestID  string `json:"request_id"`
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
	AssetID    uint64 `json:"asset_id"`
	Price      uint64 `json:"price"`
	Payment    uint64 `json:"payment"`
}

type HTTPResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ListingView struct {
	Collection string `json:"collection"`
	AssetID    uint64 `json:"asset_id"`
	Price      uint64 `json:"price"`
	Seller     string `json:"seller"`
	Active     bool   `json:"active"`
}

type ProceedsView struct {
	Seller string `json:"seller"`
	Amount uint64 `json:"amount"`
}

// NewHTTPHandler builds the JSON API. cache may be nil, in which case
// request IDs are not deduplicated.
func NewHTTPHandler(marketplace *service.MarketplaceService, cache port.CacheRepository, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{marketplace: marketplace, cache: cache, logger: logger}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/listings/create", h.CreateListing)
	mux.HandleFunc("/api/listings/cancel", h.CancelListing)
	mux.HandleFunc("/api/listings/update", h.UpdateListing)
	mux.HandleFunc("/api/listings/buy", h.BuyListing)
	mux.HandleFunc("/api/proceeds/withdraw", h.WithdrawProceeds)
	mux.HandleFunc("/api/listing", h.GetListing)
	mux.HandleFunc("/api/listings", h.ActiveListings)
	mux.HandleFunc("/api/proceeds", h.GetProceeds)
}

func (h *HTTPHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "create", false, func(ctx context.Context, req ListingHTTPRequest) (string, error) {
		err := h.marketplace.CreateListing(ctx, domain.Address(req.Collection), req.AssetID, req.Price, domain.Address(req.Caller))
		return "item listed", err
	})
}

func (h *HTTPHandler) CancelListing(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "cancel", false, func(ctx context.Context, req ListingHTTPRequest) (string, error) {
		err := h.marketplace.CancelListing(ctx, domain.Address(req.Collection), req.AssetID, domain.Address(req.Caller))
		return "listing canceled", err
	})
}

func (h *HTTPHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "update", false, func(ctx context.Context, req ListingHTTPRequest) (string, error) {
		err := h.marketplace.UpdateListing(ctx, domain.Address(req.Collection), req.AssetID, req.Price, domain.Address(req.Caller))
		return "listing updated", err
	})
}

func (h *HTTPHandler) BuyListing(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "buy", true, func(ctx context.Context, req ListingHTTPRequest) (string, error) {
		err := h.marketplace.BuyListing(ctx, domain.Address(req.Collection), req.AssetID, req.Payment, domain.Address(req.Caller))
		return "item bought", err
	})
}

func (h *HTTPHandler) WithdrawProceeds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ListingHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, HTTPResponse{Message: "invalid request body"})
		return
	}
	if req.Caller == "" || req.RequestID == "" {
		writeJSON(w, http.StatusBadRequest, HTTPResponse{Message: "missing required fields"})
		return
	}

	amount, err := h.withIdempotency(r.Context(), "withdraw", req.RequestID, func() (uint64, error) {
		return h.marketplace.WithdrawProceeds(r.Context(), domain.Address(req.Caller))
	})
	if err != nil {
		h.writeError(w, "withdraw", err)
		return
	}

	writeJSON(w, http.StatusOK, HTTPResponse{
		Success: true,
		Message: "proceeds withdrawn",
		Data:    ProceedsView{Seller: req.Caller, Amount: amount},
	})
}

func (h *HTTPHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	collection := r.URL.Query().Get("collection")
	assetID, err := strconv.ParseUint(r.URL.Query().Get("asset_id"), 10, 64)
	if collection == "" || err != nil {
		writeJSON(w, http.StatusBadRequest, HTTPResponse{Message: "collection and numeric asset_id are required"})
		return
	}

	listing, err := h.marketplace.GetListing(r.Context(), domain.Address(collection), assetID)
	if err != nil {
		h.writeError(w, "get_listing", err)
		return
	}

	writeJSON(w, http.StatusOK, HTTPResponse{
		Success: true,
		Message: "ok",
		Data:    listingView(domain.ListingKey{Collection: domain.Address(collection), AssetID: assetID}, listing),
	})
}

func (h *HTTPHandler) ActiveListings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := h.marketplace.ActiveListings(r.Context())
	if err != nil {
		h.writeError(w, "active_listings", err)
		return
	}

	views := make([]ListingView, 0, len(records))
	for _, rec := range records {
		views = append(views, listingView(rec.Key, rec.Listing))
	}
	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Message: "ok", Data: views})
}

func (h *HTTPHandler) GetProceeds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	seller := r.URL.Query().Get("seller")
	if seller == "" {
		writeJSON(w, http.StatusBadRequest, HTTPResponse{Message: "seller is required"})
		return
	}

	amount, err := h.marketplace.GetProceeds(r.Context(), domain.Address(seller))
	if err != nil {
		h.writeError(w, "get_proceeds", err)
		return
	}
	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Message: "ok", Data: ProceedsView{Seller: seller, Amount: amount}})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// mutate decodes and validates a listing request and runs op. Value-moving
// operations require a request ID.
func (h *HTTPHandler) mutate(w http.ResponseWriter, r *http.Request, name string, needsRequestID bool, op func(context.Context, ListingHTTPRequest) (string, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ListingHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, HTTPResponse{Message: "invalid request body"})
		return
	}

	if req.Caller == "" || req.Collection == "" || (needsRequestID && req.RequestID == "") {
		writeJSON(w, http.StatusBadRequest, HTTPResponse{Message: "missing required fields"})
		return
	}

	var message string
	_, err := h.withIdempotency(r.Context(), name, req.RequestID, func() (uint64, error) {
		var err error
		message, err = op(r.Context(), req)
		return 0, err
	})
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Message: message})
}

func (h *HTTPHandler) withIdempotency(ctx context.Context, op, requestID string, fn func() (uint64, error)) (uint64, error) {
	if h.cache != nil && requestID != "" {
		ok, err := h.cache.SetIdempotency(ctx, fmt.Sprintf("idempotency:%s:%s", op, requestID))
		if err != nil {
			return 0, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return 0, errDuplicateRequest
		}
	}
	return fn()
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, op string, err error) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("operation", op).Msg("request failed")
	}
	writeJSON(w, status, HTTPResponse{Success: false, Message: message, Code: code})
}

func listingView(key domain.ListingKey, listing domain.Listing) ListingView {
	return ListingView{
		Collection: string(key.Collection),
		AssetID:    key.AssetID,
		Price:      listing.Price,
		Seller:     string(listing.Seller),
		Active:     listing.Active(),
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
