package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/nft-marketplace/internal/adapter/handler/pb"
	"github.com/rl1809/nft-marketplace/internal/core/domain"
	"github.com/rl1809/nft-marketplace/internal/core/service"
	"github.com/rl1809/nft-marketplace/internal/port"
)

type GRPCHandler struct {
	marketplace *service.MarketplaceService
	cache       port.CacheRepository
	logger      zerolog.Logger
}

var _ pb.MarketplaceServiceServer = (*GRPCHandler)(nil)

func NewGRPCHandler(marketplace *service.MarketplaceService, cache port.CacheRepository, logger zerolog.Logger) *GRPCHandler {
	return &GRPCHandler{marketplace: marketplace, cache: cache, logger: logger}
}

func (h *GRPCHandler) CreateListing(ctx context.Context, req *pb.ListingRequest) (*pb.MutationResponse, error) {
	err := h.marketplace.CreateListing(ctx, domain.Address(req.GetCollection()), req.GetAssetId(), req.Price, domain.Address(req.GetCaller()))
	return h.respond("create", "item listed", 0, err)
}

func (h *GRPCHandler) CancelListing(ctx context.Context, req *pb.ListingRequest) (*pb.MutationResponse, error) {
	err := h.marketplace.CancelListing(ctx, domain.Address(req.GetCollection()), req.GetAssetId(), domain.Address(req.GetCaller()))
	return h.respond("cancel", "listing canceled", 0, err)
}

func (h *GRPCHandler) UpdateListing(ctx context.Context, req *pb.ListingRequest) (*pb.MutationResponse, error) {
	err := h.marketplace.UpdateListing(ctx, domain.Address(req.GetCollection()), req.GetAssetId(), req.Price, domain.Address(req.GetCaller()))
	return h.respond("update", "listing updated", 0, err)
}

func (h *GRPCHandler) BuyListing(ctx context.Context, req *pb.ListingRequest) (*pb.MutationResponse, error) {
	if req.GetRequestId() == "" {
		return nil, status.Error(codes.InvalidArgument, "request_id is required")
	}
	if err := h.dedupe(ctx, "buy", req.GetRequestId()); err != nil {
		return h.respond("buy", "", 0, err)
	}

	err := h.marketplace.BuyListing(ctx, domain.Address(req.GetCollection()), req.GetAssetId(), req.Payment, domain.Address(req.GetCaller()))
	return h.respond("buy", "item bought", 0, err)
}

func (h *GRPCHandler) WithdrawProceeds(ctx context.Context, req *pb.WithdrawRequest) (*pb.MutationResponse, error) {
	if req.RequestId == "" {
		return nil, status.Error(codes.InvalidArgument, "request_id is required")
	}
	if err := h.dedupe(ctx, "withdraw", req.RequestId); err != nil {
		return h.respond("withdraw", "", 0, err)
	}

	amount, err := h.marketplace.WithdrawProceeds(ctx, domain.Address(req.Caller))
	return h.respond("withdraw", "proceeds withdrawn", amount, err)
}

func (h *GRPCHandler) GetListing(ctx context.Context, req *pb.GetListingRequest) (*pb.GetListingResponse, error) {
	listing, err := h.marketplace.GetListing(ctx, domain.Address(req.Collection), req.AssetId)
	if err != nil {
		h.logger.Error().Err(err).Msg("get listing failed")
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &pb.GetListingResponse{
		Price:  listing.Price,
		Seller: string(listing.Seller),
		Active: listing.Active(),
	}, nil
}

func (h *GRPCHandler) GetProceeds(ctx context.Context, req *pb.GetProceedsRequest) (*pb.GetProceedsResponse, error) {
	amount, err := h.marketplace.GetProceeds(ctx, domain.Address(req.Seller))
	if err != nil {
		h.logger.Error().Err(err).Msg("get proceeds failed")
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &pb.GetProceedsResponse{Amount: amount}, nil
}

func (h *GRPCHandler) dedupe(ctx context.Context, op, requestID string) error {
	if h.cache == nil {
		return nil
	}
	ok, err := h.cache.SetIdempotency(ctx, "idempotency:"+op+":"+requestID)
	if err != nil {
		return err
	}
	if !ok {
		return errDuplicateRequest
	}
	return nil
}

// respond reports ledger rejections in the response body, like the HTTP
// API; only unexpected failures become gRPC errors.
func (h *GRPCHandler) respond(op, okMessage string, amount uint64, err error) (*pb.MutationResponse, error) {
	if err == nil {
		return &pb.MutationResponse{Success: true, Message: okMessage, Amount: amount}, nil
	}

	httpStatus, code, message := classify(err)
	if httpStatus == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("operation", op).Msg("rpc failed")
		return nil, status.Error(codes.Internal, message)
	}
	return &pb.MutationResponse{Success: false, Message: message, Code: code}, nil
}
