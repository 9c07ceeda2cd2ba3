package handler

import (
	"context"
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/nft-marketplace/internal/adapter/handler/pb"
)

func newGRPCClient(t *testing.T, ts *testServer) *pb.MarketplaceServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	server := grpc.NewServer()
	pb.RegisterMarketplaceServiceServer(server, NewGRPCHandler(ts.svc, ts.cache, zerolog.Nop()))
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return pb.NewMarketplaceClient(conn)
}

func TestGRPC_ListBuyWithdraw(t *testing.T) {
	ts := newTestServer(t)
	client := newGRPCClient(t, ts)
	ctx := context.Background()

	resp, err := client.CreateListing(ctx, &pb.ListingRequest{Caller: "alice", Collection: "C", AssetId: 5, Price: 100})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	listing, err := client.GetListing(ctx, &pb.GetListingRequest{Collection: "C", AssetId: 5})
	require.NoError(t, err)
	assert.Equal(t, uint64(100), listing.Price)
	assert.Equal(t, "alice", listing.Seller)
	assert.True(t, listing.Active)

	resp, err = client.BuyListing(ctx, &pb.ListingRequest{RequestId: "g-buy-1", Caller: "bob", Collection: "C", AssetId: 5, Payment: 100})
	require.NoError(t, err)
	assert.True(t, resp.Success, resp.Message)

	proceeds, err := client.GetProceeds(ctx, &pb.GetProceedsRequest{Seller: "alice"})
	require.NoError(t, err)
	assert.Equal(t, uint64(100), proceeds.Amount)

	resp, err = client.WithdrawProceeds(ctx, &pb.WithdrawRequest{RequestId: "g-wd-1", Caller: "alice"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, uint64(100), resp.Amount)
	assert.Equal(t, uint64(100), ts.wallet.Balance("alice"))
}

func TestGRPC_Rejections(t *testing.T) {
	ts := newTestServer(t)
	client := newGRPCClient(t, ts)
	ctx := context.Background()

	resp, err := client.BuyListing(ctx, &pb.ListingRequest{RequestId: "g-buy-x", Caller: "bob", Collection: "C", AssetId: 9, Payment: 1})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "not_listed", resp.Code)

	resp, err = client.CancelListing(ctx, &pb.ListingRequest{Caller: "alice", Collection: "C", AssetId: 5})
	require.NoError(t, err)
	assert.Equal(t, "not_listed", resp.Code)

	resp, err = client.WithdrawProceeds(ctx, &pb.WithdrawRequest{RequestId: "g-wd-x", Caller: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "no_proceeds", resp.Code)

	_, err = client.BuyListing(ctx, &pb.ListingRequest{Caller: "bob", Collection: "C", AssetId: 5, Payment: 1})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	resp, err = client.WithdrawProceeds(ctx, &pb.WithdrawRequest{RequestId: "g-wd-x", Caller: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "duplicate_request", resp.Code)
}
