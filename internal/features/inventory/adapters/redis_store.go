package adapters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"fulfillment-engine/internal/core/store"
	"fulfillment-engine/internal/features/inventory/domain"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	productKeyPrefix = "product:"
	codeKeyPrefix    = "product:code:"
	holdKeyPrefix    = "reservation:"

	// holdClosedField marks a reservation record that was committed or rolled back.
	holdClosedField = "~closed"
	// holdTTL bounds how long a reservation record outlives its checkout.
	holdTTL = 24 * time.Hour
)

// reserveScript decrements stock only when enough units remain and records the
// units on the reservation hash in the same step.
// Returns {1, remaining} on success, {0, stock} when short, {-1, 0} when the
// product is missing and {-2, 0} when the reservation is already closed.
var reserveScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[2], ARGV[3]) == 1 then
  return {-2, 0}
end
local stock = redis.call('HGET', KEYS[1], 'stock')
if not stock then
  return {-1, 0}
end
stock = tonumber(stock)
local qty = tonumber(ARGV[1])
if stock < qty then
  return {0, stock}
end
local remaining = redis.call('HINCRBY', KEYS[1], 'stock', -qty)
redis.call('HINCRBY', KEYS[2], ARGV[2], qty)
redis.call('PEXPIRE', KEYS[2], ARGV[4])
return {1, remaining}
`)

// releaseHoldScript returns every unit recorded on the reservation and closes it.
// Product keys are derived from ARGV[1], so the store must be a single node.
// Replies with flat triples: product id, quantity, "1" if released or "0" if the
// product no longer exists.
var releaseHoldScript = redis.NewScript(`
local lines = redis.call('HGETALL', KEYS[1])
local out = {}
for i = 1, #lines, 2 do
  local pid, qty = lines[i], lines[i + 1]
  if pid ~= ARGV[2] then
    local key = ARGV[1] .. pid
    local found = '0'
    if redis.call('EXISTS', key) == 1 then
      redis.call('HINCRBY', key, 'stock', tonumber(qty))
      found = '1'
    end
    table.insert(out, pid)
    table.insert(out, qty)
    table.insert(out, found)
  end
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], ARGV[2], '1')
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return out
`)

// closeHoldScript closes the reservation without touching stock.
var closeHoldScript = redis.NewScript(`
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], ARGV[1], '1')
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// releaseAllScript increments every existing product and returns the 1-based
// positions of keys that did not exist.
var releaseAllScript = redis.NewScript(`
local missing = {}
for i, key in ipairs(KEYS) do
  if redis.call('EXISTS', key) == 1 then
    redis.call('HINCRBY', key, 'stock', tonumber(ARGV[i]))
  else
    table.insert(missing, i)
  end
end
return missing
`)

// RedisProductStore implements ports.ProductStore on Redis hashes.
// Stock lives in the "stock" field of product:<id>; product:code:<code> points to the id.
// reservation:<id> records the units a checkout took, keyed by product id.
type RedisProductStore struct {
	db *store.Redis
}

// NewRedisProductStore creates a new RedisProductStore.
func NewRedisProductStore(db *store.Redis) *RedisProductStore {
	return &RedisProductStore{db: db}
}

func productKey(id string) string {
	return productKeyPrefix + id
}

func holdKey(id string) string {
	return holdKeyPrefix + id
}

// FindByCode resolves the catalog code index and loads the product.
func (s *RedisProductStore) FindByCode(ctx context.Context, code string) (*domain.Product, error) {
	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	id, err := s.db.Client().Get(ctx, codeKeyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up product code %s: %w", code, err)
	}
	return s.load(ctx, id)
}

// FindByID loads the product stored under the internal id.
func (s *RedisProductStore) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	return s.load(ctx, id)
}

func (s *RedisProductStore) load(ctx context.Context, id string) (*domain.Product, error) {
	fields, err := s.db.Client().HGetAll(ctx, productKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrProductNotFound
	}
	return decodeProduct(fields)
}

// DecrementIfAvailable runs the conditional decrement as one server-side step
// and records the units against the reservation.
func (s *RedisProductStore) DecrementIfAvailable(ctx context.Context, holdID, id string, quantity int64) (int64, error) {
	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	res, err := reserveScript.Run(ctx, s.db.Client(),
		[]string{productKey(id), holdKey(holdID)},
		quantity, id, holdClosedField, holdTTL.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("failed to reserve product %s: %w", id, err)
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("unexpected reserve reply for product %s: %v", id, res)
	}

	switch res[0] {
	case 1:
		return res[1], nil
	case 0:
		return 0, &domain.InsufficientStockError{ProductID: id, Requested: quantity, Available: res[1]}
	case -2:
		return 0, fmt.Errorf("reservation %s: %w", holdID, domain.ErrReservationClosed)
	default:
		return 0, domain.ErrProductNotFound
	}
}

// ReleaseHold puts back what the reservation actually took and closes it.
// Calling it again, or after CloseHold, releases nothing.
func (s *RedisProductStore) ReleaseHold(ctx context.Context, holdID string) ([]domain.Allocation, []string, error) {
	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	reply, err := releaseHoldScript.Run(ctx, s.db.Client(),
		[]string{holdKey(holdID)},
		productKeyPrefix, holdClosedField, holdTTL.Milliseconds(),
	).StringSlice()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to release reservation %s: %w", holdID, err)
	}
	if len(reply)%3 != 0 {
		return nil, nil, fmt.Errorf("unexpected release reply for reservation %s: %v", holdID, reply)
	}

	var (
		released []domain.Allocation
		missing  []string
	)
	for i := 0; i < len(reply); i += 3 {
		if reply[i+2] != "1" {
			missing = append(missing, reply[i])
			continue
		}
		qty, err := strconv.ParseInt(reply[i+1], 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid quantity on reservation %s: %w", holdID, err)
		}
		released = append(released, domain.Allocation{ProductID: reply[i], Quantity: qty})
	}
	return released, missing, nil
}

// CloseHold marks the reservation as owned by a stored order.
func (s *RedisProductStore) CloseHold(ctx context.Context, holdID string) error {
	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	err := closeHoldScript.Run(ctx, s.db.Client(),
		[]string{holdKey(holdID)},
		holdClosedField, holdTTL.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to close reservation %s: %w", holdID, err)
	}
	return nil
}

// IncrementAll returns every allocation in one script call.
func (s *RedisProductStore) IncrementAll(ctx context.Context, allocations []domain.Allocation) ([]string, error) {
	if len(allocations) == 0 {
		return nil, nil
	}

	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	keys := make([]string, len(allocations))
	args := make([]interface{}, len(allocations))
	for i, a := range allocations {
		keys[i] = productKey(a.ProductID)
		args[i] = a.Quantity
	}

	positions, err := releaseAllScript.Run(ctx, s.db.Client(), keys, args...).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to release allocations: %w", err)
	}

	var missing []string
	for _, pos := range positions {
		missing = append(missing, allocations[pos-1].ProductID)
	}
	return missing, nil
}

// Save writes the full product record and its catalog code index.
func (s *RedisProductStore) Save(ctx context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}

	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	_, err := s.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, productKey(product.ID), encodeProduct(product))
		if product.Code != "" {
			pipe.Set(ctx, codeKeyPrefix+product.Code, product.ID, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save product %s: %w", product.ID, err)
	}
	return nil
}

func encodeProduct(p *domain.Product) map[string]interface{} {
	active := "0"
	if p.Active {
		active = "1"
	}
	return map[string]interface{}{
		"id":     p.ID,
		"code":   p.Code,
		"name":   p.Name,
		"image":  p.Image,
		"price":  p.Price.String(),
		"stock":  p.Stock,
		"active": active,
	}
}

func decodeProduct(fields map[string]string) (*domain.Product, error) {
	price, err := decimal.NewFromString(fields["price"])
	if err != nil {
		return nil, fmt.Errorf("invalid price for product %s: %w", fields["id"], err)
	}
	stock, err := strconv.ParseInt(fields["stock"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid stock for product %s: %w", fields["id"], err)
	}

	return &domain.Product{
		ID:     fields["id"],
		Code:   fields["code"],
		Name:   fields["name"],
		Image:  fields["image"],
		Price:  price,
		Stock:  stock,
		Active: fields["active"] != "0",
	}, nil
}
