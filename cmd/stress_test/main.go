package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/nft-marketplace/internal/adapter/registry"
	"github.com/rl1809/nft-marketplace/internal/adapter/storage"
	"github.com/rl1809/nft-marketplace/internal/core/domain"
	"github.com/rl1809/nft-marketplace/internal/core/service"
)

const (
	redisAddr     = "localhost:6379"
	marketplace   = domain.Address("marketplace")
	seller        = domain.Address("stress-seller")
	price         = 1000
	totalListings = 20
	totalBuyers   = 50
	queueSize     = 1000
)

func main() {
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	collection := domain.Address("stress-" + uuid.NewString()[:8])

	redisAdapter := storage.NewRedisAdapter(rdb)
	reg := registry.NewRedisRegistry(rdb)

	svc := service.NewMarketplaceService(marketplace, redisAdapter, reg, redisAdapter, queueSize)
	defer svc.Close()

	go func() {
		for range svc.GetEventQueue() {
		}
	}()

	for id := uint64(1); id <= totalListings; id++ {
		if err := reg.Mint(ctx, collection, id, seller); err != nil {
			log.Fatalf("failed to mint %d: %v", id, err)
		}
		if err := reg.Approve(ctx, seller, collection, id, marketplace); err != nil {
			log.Fatalf("failed to approve %d: %v", id, err)
		}
		if err := svc.CreateListing(ctx, collection, id, price, seller); err != nil {
			log.Fatalf("failed to list %d: %v", id, err)
		}
	}

	var successCount, notListedCount, otherCount atomic.Int32

	// Every listing is raced by several buyers; only one may win each.
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalBuyers*totalListings/10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			buyer := domain.Address("buyer-" + uuid.NewString())
			assetID := uint64(n%totalListings) + 1

			err := svc.BuyListing(ctx, collection, assetID, price, buyer)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrNotListed):
				notListedCount.Add(1)
			default:
				otherCount.Add(1)
				log.Printf("unexpected error: %v", err)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Listings:         %d\n", totalListings)
	fmt.Printf("Total Requests:   %d\n", totalBuyers*totalListings/10)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Not Listed:       %d\n", notListedCount.Load())
	fmt.Printf("Other Errors:     %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == totalListings {
		fmt.Printf("PASS: Exactly %d purchases succeeded\n", totalListings)
	} else {
		fmt.Printf("FAIL: Expected %d successful purchases, got %d\n", totalListings, success)
	}

	proceeds, err := svc.GetProceeds(ctx, seller)
	if err != nil {
		log.Fatalf("failed to read proceeds: %v", err)
	}
	fmt.Printf("Seller Proceeds:  %d\n", proceeds)

	// Proceeds accumulate across runs for the fixed seller, so withdraw them.
	amount, err := svc.WithdrawProceeds(ctx, seller)
	if err != nil {
		log.Fatalf("failed to withdraw: %v", err)
	}
	if amount >= uint64(price*totalListings) {
		fmt.Println("PASS: Proceeds credited for every sale")
	} else {
		fmt.Printf("FAIL: Expected at least %d proceeds, got %d\n", price*totalListings, amount)
	}

	active, err := svc.ActiveListings(ctx)
	if err != nil {
		log.Fatalf("failed to read listings: %v", err)
	}
	remaining := 0
	for _, rec := range active {
		if rec.Key.Collection == collection {
			remaining++
		}
	}
	if remaining == 0 {
		fmt.Println("PASS: No listing left active")
	} else {
		fmt.Printf("FAIL: %d listings still active\n", remaining)
	}
}
