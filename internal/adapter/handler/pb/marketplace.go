// Package pb defines the marketplace gRPC service. Messages travel as JSON
// through the codec registered in codec.go, so clients must dial with
// grpc.CallContentSubtype(CodecName) (NewMarketplaceClient does this).
package pb

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "marketplace.v1.Marketplace"

type ListingRequest struct {
	RequestId  string `json:"request_id,omitempty"`
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
	AssetId    uint64 `json:"asset_id"`
	Price      uint64 `json:"price,omitempty"`
	Payment    uint64 `json:"payment,omitempty"`
}

func (r *ListingRequest) GetRequestId() string {
	if r == nil {
		return ""
	}
	return r.RequestId
}

func (r *ListingRequest) GetCaller() string {
	if r == nil {
		return ""
	}
	return r.Caller
}

func (r *ListingRequest) GetCollection() string {
	if r == nil {
		return ""
	}
	return r.Collection
}

func (r *ListingRequest) GetAssetId() uint64 {
	if r == nil {
		return 0
	}
	return r.AssetId
}

type WithdrawRequest struct {
	RequestId string `json:"request_id,omitempty"`
	Caller    string `json:"caller"`
}

type MutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Amount  uint64 `json:"amount,omitempty"`
}

type GetListingRequest struct {
	Collection string `json:"collection"`
	AssetId    uint64 `json:"asset_id"`
}

type GetListingResponse struct {
	Price  uint64 `json:"price"`
	Seller string `json:"seller"`
	Active bool   `json:"active"`
}

type GetProceedsRequest struct {
	Seller string `json:"seller"`
}

type GetProceedsResponse struct {
	Amount uint64 `json:"amount"`
}

type MarketplaceServiceServer interface {
	CreateListing(context.Context, *ListingRequest) (*MutationResponse, error)
	CancelListing(context.Context, *ListingRequest) (*MutationResponse, error)
	UpdateListing(context.Context, *ListingRequest) (*MutationResponse, error)
	BuyListing(context.Context, *ListingRequest) (*MutationResponse, error)
	WithdrawProceeds(context.Context, *WithdrawRequest) (*MutationResponse, error)
	GetListing(context.Context, *GetListingRequest) (*GetListingResponse, error)
	GetProceeds(context.Context, *GetProceedsRequest) (*GetProceedsResponse, error)
}

func RegisterMarketplaceServiceServer(s grpc.ServiceRegistrar, srv MarketplaceServiceServer) {
	s.RegisterService(&MarketplaceService_ServiceDesc, srv)
}

// unary adapts a typed server method to grpc.MethodHandler.
func unary[Req any, Resp any](method string, call func(MarketplaceServiceServer, context.Context, *Req) (*Resp, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MarketplaceServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(MarketplaceServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var MarketplaceService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MarketplaceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateListing", Handler: unary("CreateListing", MarketplaceServiceServer.CreateListing)},
		{MethodName: "CancelListing", Handler: unary("CancelListing", MarketplaceServiceServer.CancelListing)},
		{MethodName: "UpdateListing", Handler: unary("UpdateListing", MarketplaceServiceServer.UpdateListing)},
		{MethodName: "BuyListing", Handler: unary("BuyListing", MarketplaceServiceServer.BuyListing)},
		{MethodName: "WithdrawProceeds", Handler: unary("WithdrawProceeds", MarketplaceServiceServer.WithdrawProceeds)},
		{MethodName: "GetListing", Handler: unary("GetListing", MarketplaceServiceServer.GetListing)},
		{MethodName: "GetProceeds", Handler: unary("GetProceeds", MarketplaceServiceServer.GetProceeds)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "marketplace.proto",
}

type MarketplaceServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewMarketplaceClient(cc grpc.ClientConnInterface) *MarketplaceServiceClient {
	return &MarketplaceServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MarketplaceServiceClient) CreateListing(ctx context.Context, in *ListingRequest, opts ...grpc.CallOption) (*MutationResponse, error) {
	return invoke[MutationResponse](ctx, c.cc, "CreateListing", in, opts)
}

func (c *MarketplaceServiceClient) CancelListing(ctx context.Context, in *ListingRequest, opts ...grpc.CallOption) (*MutationResponse, error) {
	return invoke[MutationResponse](ctx, c.cc, "CancelListing", in, opts)
}

func (c *MarketplaceServiceClient) UpdateListing(ctx context.Context, in *ListingRequest, opts ...grpc.CallOption) (*MutationResponse, error) {
	return invoke[MutationResponse](ctx, c.cc, "UpdateListing", in, opts)
}

func (c *MarketplaceServiceClient) BuyListing(ctx context.Context, in *ListingRequest, opts ...grpc.CallOption) (*MutationResponse, error) {
	return invoke[MutationResponse](ctx, c.cc, "BuyListing", in, opts)
}

func (c *MarketplaceServiceClient) WithdrawProceeds(ctx context.Context, in *WithdrawRequest, opts ...grpc.CallOption) (*MutationResponse, error) {
	return invoke[MutationResponse](ctx, c.cc, "WithdrawProceeds", in, opts)
}

func (c *MarketplaceServiceClient) GetListing(ctx context.Context, in *GetListingRequest, opts ...grpc.CallOption) (*GetListingResponse, error) {
	return invoke[GetListingResponse](ctx, c.cc, "GetListing", in, opts)
}

func (c *MarketplaceServiceClient) GetProceeds(ctx context.Context, in *GetProceedsRequest, opts ...grpc.CallOption) (*GetProceedsResponse, error) {
	return invoke[GetProceedsResponse](ctx, c.cc, "GetProceeds", in, opts)
}
