package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/nft-marketplace/internal/core/domain"
)

const registryKeyPrefix = "registry:"

var transferScript = redis.NewScript(`
local owners = KEYS[1]
local approvals = KEYS[2]
local operators = KEYS[3]
local id = ARGV[1]
local operator = ARGV[2]
local from = ARGV[3]
local to = ARGV[4]

local owner = redis.call('HGET', owners, id)
if not owner then
	return -1
end
if owner ~= from then
	return -2
end

if operator ~= owner then
	local approved = redis.call('HGET', approvals, id)
	if approved ~= operator and redis.call('SISMEMBER', operators, operator) == 0 then
		return -3
	end
end

redis.call('HSET', owners, id, to)
redis.call('HDEL', approvals, id)
return 1
`)

var approveScript = redis.NewScript(`
local owner = redis.call('HGET', KEYS[1], ARGV[1])
if not owner then
	return -1
end
if owner ~= ARGV[2] then
	return -2
end
redis.call('HSET', KEYS[2], ARGV[1], ARGV[3])
return 1
`)

// RedisRegistry keeps asset ownership in Redis hashes so several ledger
// processes can share one registry.
type RedisRegistry struct {
	client *redis.Client
}

func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func ownersKey(collection domain.Address) string {
	return registryKeyPrefix + string(collection) + ":owners"
}

func approvalsKey(collection domain.Address) string {
	return registryKeyPrefix + string(collection) + ":approvals"
}

func operatorsKey(collection, owner domain.Address) string {
	return registryKeyPrefix + string(collection) + ":operators:" + string(owner)
}

func scriptError(code int, key domain.ListingKey) error {
	switch code {
	case 1:
		return nil
	case -1:
		return fmt.Errorf("%w: %s", ErrAssetNotFound, key)
	case -2:
		return fmt.Errorf("%w: %s", ErrNotAssetHolder, key)
	case -3:
		return fmt.Errorf("%w: %s", ErrNotAuthorized, key)
	default:
		return fmt.Errorf("registry script returned %d for %s", code, key)
	}
}

func (r *RedisRegistry) Mint(ctx context.Context, collection domain.Address, assetID uint64, owner domain.Address) error {
	ok, err := r.client.HSetNX(ctx, ownersKey(collection), strconv.FormatUint(assetID, 10), string(owner)).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s#%d", ErrAssetExists, collection, assetID)
	}
	return nil
}

func (r *RedisRegistry) Approve(ctx context.Context, caller, collection domain.Address, assetID uint64, operator domain.Address) error {
	key := domain.ListingKey{Collection: collection, AssetID: assetID}
	code, err := approveScript.Run(ctx, r.client,
		[]string{ownersKey(collection), approvalsKey(collection)},
		strconv.FormatUint(assetID, 10), string(caller), string(operator),
	).Int()
	if err != nil {
		return err
	}
	return scriptError(code, key)
}

func (r *RedisRegistry) SetApprovalForAll(ctx context.Context, collection, owner, operator domain.Address, approved bool) error {
	if approved {
		return r.client.SAdd(ctx, operatorsKey(collection, owner), string(operator)).Err()
	}
	return r.client.SRem(ctx, operatorsKey(collection, owner), string(operator)).Err()
}

func (r *RedisRegistry) OwnerOf(ctx context.Context, collection domain.Address, assetID uint64) (domain.Address, error) {
	owner, err := r.client.HGet(ctx, ownersKey(collection), strconv.FormatUint(assetID, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %s#%d", ErrAssetNotFound, collection, assetID)
	}
	if err != nil {
		return "", err
	}
	return domain.Address(owner), nil
}

func (r *RedisRegistry) GetApproved(ctx context.Context, collection domain.Address, assetID uint64) (domain.Address, error) {
	approved, err := r.client.HGet(ctx, approvalsKey(collection), strconv.FormatUint(assetID, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return domain.Address(approved), nil
}

func (r *RedisRegistry) IsApprovedForAll(ctx context.Context, collection, owner, operator domain.Address) (bool, error) {
	return r.client.SIsMember(ctx, operatorsKey(collection, owner), string(operator)).Result()
}

// TransferFrom checks holder and operator and moves the asset in one
// script call.
func (r *RedisRegistry) TransferFrom(ctx context.Context, operator, from, to, collection domain.Address, assetID uint64) error {
	key := domain.ListingKey{Collection: collection, AssetID: assetID}
	code, err := transferScript.Run(ctx, r.client,
		[]string{ownersKey(collection), approvalsKey(collection), operatorsKey(collection, from)},
		strconv.FormatUint(assetID, 10), string(operator), string(from), string(to),
	).Int()
	if err != nil {
		return err
	}
	return scriptError(code, key)
}
