package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
)

const (
	listingKeyPrefix  = "listing:"
	activeListingsKey = "listings:active"
	proceedsKeyPrefix = "proceeds:"
	walletKeyPrefix   = "wallet:"
	idempotencyKeyTTL = 24 * time.Hour

	// EventsChannel is the pub/sub channel committed events are published on.
	EventsChannel = "marketplace:events"
)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func listingRedisKey(key domain.ListingKey) string {
	return fmt.Sprintf("%s%s:%d", listingKeyPrefix, key.Collection, key.AssetID)
}

// activeMember sorts lexicographically in (collection, assetID) order.
func activeMember(key domain.ListingKey) string {
	return fmt.Sprintf("%s|%020d", key.Collection, key.AssetID)
}

func parseActiveMember(member string) (domain.ListingKey, error) {
	i := strings.LastIndex(member, "|")
	if i < 0 {
		return domain.ListingKey{}, fmt.Errorf("malformed listing member %q", member)
	}
	id, err := strconv.ParseUint(member[i+1:], 10, 64)
	if err != nil {
		return domain.ListingKey{}, fmt.Errorf("malformed listing member %q: %w", member, err)
	}
	return domain.ListingKey{Collection: domain.Address(member[:i]), AssetID: id}, nil
}

func (r *RedisAdapter) GetListing(ctx context.Context, key domain.ListingKey) (domain.Listing, error) {
	fields, err := r.client.HGetAll(ctx, listingRedisKey(key)).Result()
	if err != nil {
		return domain.Listing{}, err
	}
	return parseListing(fields)
}

func parseListing(fields map[string]string) (domain.Listing, error) {
	if len(fields) == 0 {
		return domain.Listing{}, nil
	}
	price, err := strconv.ParseUint(fields["price"], 10, 64)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("parse price: %w", err)
	}
	return domain.Listing{Price: price, Seller: domain.Address(fields["seller"])}, nil
}

// PutListing writes the listing hash and its membership in the active index
// in one MULTI/EXEC. Canceled listings keep their hash with price 0.
func (r *RedisAdapter) PutListing(ctx context.Context, key domain.ListingKey, listing domain.Listing) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, listingRedisKey(key),
			"price", strconv.FormatUint(listing.Price, 10),
			"seller", string(listing.Seller),
		)
		if listing.Active() {
			pipe.ZAdd(ctx, activeListingsKey, redis.Z{Score: 0, Member: activeMember(key)})
		} else {
			pipe.ZRem(ctx, activeListingsKey, activeMember(key))
		}
		return nil
	})
	return err
}

func (r *RedisAdapter) GetProceeds(ctx context.Context, seller domain.Address) (uint64, error) {
	amount, err := r.client.Get(ctx, proceedsKeyPrefix+string(seller)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return amount, err
}

func (r *RedisAdapter) PutProceeds(ctx context.Context, seller domain.Address, amount uint64) error {
	return r.client.Set(ctx, proceedsKeyPrefix+string(seller), strconv.FormatUint(amount, 10), 0).Err()
}

func (r *RedisAdapter) ActiveListings(ctx context.Context) ([]domain.ListingRecord, error) {
	members, err := r.client.ZRange(ctx, activeListingsKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	keys := make([]domain.ListingKey, 0, len(members))
	cmds := make([]*redis.MapStringStringCmd, 0, len(members))
	pipe := r.client.Pipeline()
	for _, member := range members {
		key, err := parseActiveMember(member)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		cmds = append(cmds, pipe.HGetAll(ctx, listingRedisKey(key)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	records := make([]domain.ListingRecord, 0, len(keys))
	for i, cmd := range cmds {
		listing, err := parseListing(cmd.Val())
		if err != nil {
			return nil, err
		}
		if listing.Active() {
			records = append(records, domain.ListingRecord{Key: keys[i], Listing: listing})
		}
	}
	return records, nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// Publish sends the event as JSON on EventsChannel.
func (r *RedisAdapter) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return r.client.Publish(ctx, EventsChannel, payload).Err()
}

// Send credits a withdrawal to the recipient's wallet balance.
func (r *RedisAdapter) Send(ctx context.Context, to domain.Address, amount uint64) error {
	if amount > math.MaxInt64 {
		return fmt.Errorf("amount %d exceeds wallet range", amount)
	}
	return r.client.IncrBy(ctx, walletKeyPrefix+string(to), int64(amount)).Err()
}

func (r *RedisAdapter) WalletBalance(ctx context.Context, owner domain.Address) (int64, error) {
	balance, err := r.client.Get(ctx, walletKeyPrefix+string(owner)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return balance, err
}
