package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fulfillment-engine/internal/core/store"
	"fulfillment-engine/internal/features/orders/domain"

	"github.com/redis/go-redis/v9"
)

const (
	orderKeyPrefix    = "order:"
	numberKeyPrefix   = "order:number:"
	allOrdersKey      = "orders:all"
	statusIndexPrefix = "orders:status:"
	customerIndexKey  = "orders:customer:"
	guestIndexKey     = "orders:guest"
)

// createScript inserts an order and its indexes unless the number or id is taken.
// KEYS: order, number index, all, status index, owner index.
// ARGV: id, data, status, score, number.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
  return 0
end
if redis.call('EXISTS', KEYS[1]) == 1 then
  return -1
end
redis.call('HSET', KEYS[1], 'data', ARGV[2], 'version', 1, 'status', ARGV[3], 'number', ARGV[5])
redis.call('SET', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[4], ARGV[1])
redis.call('ZADD', KEYS[4], ARGV[4], ARGV[1])
redis.call('ZADD', KEYS[5], ARGV[4], ARGV[1])
return 1
`)

// updateScript replaces the order only if version and status are unchanged.
// KEYS: order, old status index, new status index.
// ARGV: expected version, expected status, data, new status, id, score.
// Returns the new version, 0 on conflict, -1 when the order does not exist.
var updateScript = redis.NewScript(`
local cur = redis.call('HMGET', KEYS[1], 'version', 'status')
if not cur[1] then
  return -1
end
if cur[1] ~= ARGV[1] or cur[2] ~= ARGV[2] then
  return 0
end
local v = redis.call('HINCRBY', KEYS[1], 'version', 1)
redis.call('HSET', KEYS[1], 'data', ARGV[3], 'status', ARGV[4])
if KEYS[2] ~= KEYS[3] then
  redis.call('ZREM', KEYS[2], ARGV[5])
  redis.call('ZADD', KEYS[3], ARGV[6], ARGV[5])
end
return v
`)

// RedisOrderRepository implements ports.OrderRepository.
// Orders are JSON documents in order:<id> hashes next to their version and status;
// sorted sets keyed by creation time index them by status and owner.
type RedisOrderRepository struct {
	db *store.Redis
}

// NewRedisOrderRepository creates a new RedisOrderRepository.
func NewRedisOrderRepository(db *store.Redis) *RedisOrderRepository {
	return &RedisOrderRepository{db: db}
}

func orderKey(id string) string {
	return orderKeyPrefix + id
}

func statusKey(s domain.OrderStatus) string {
	return statusIndexPrefix + string(s)
}

func ownerKey(o *domain.Order) string {
	if o.IsGuest || o.CustomerID == "" {
		return guestIndexKey
	}
	return customerIndexKey + o.CustomerID
}

// Create stores a new order with version 1.
func (r *RedisOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	keys := []string{
		orderKey(order.ID),
		numberKeyPrefix + order.OrderNumber,
		allOrdersKey,
		statusKey(order.Status),
		ownerKey(order),
	}
	res, err := createScript.Run(ctx, r.db.Client(), keys,
		order.ID, data, string(order.Status), order.CreatedAt.UnixMilli(), order.OrderNumber,
	).Int64()
	if err != nil {
		return fmt.Errorf("failed to create order %s: %w", order.ID, err)
	}

	switch res {
	case 1:
		order.Version = 1
		return nil
	case 0:
		return domain.ErrDuplicateOrderNumber
	default:
		return fmt.Errorf("order id %s already exists", order.ID)
	}
}

// Get loads an order by internal id, falling back to the order number index.
func (r *RedisOrderRepository) Get(ctx context.Context, ref string) (*domain.Order, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	order, err := r.load(ctx, ref)
	if !errors.Is(err, domain.ErrOrderNotFound) {
		return order, err
	}

	id, err := r.db.Client().Get(ctx, numberKeyPrefix+ref).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up order number %s: %w", ref, err)
	}
	return r.load(ctx, id)
}

func (r *RedisOrderRepository) load(ctx context.Context, id string) (*domain.Order, error) {
	vals, err := r.db.Client().HMGet(ctx, orderKey(id), "data", "version").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	return decodeOrder(id, vals)
}

// Update applies the compare-and-swap described on ports.OrderRepository.
func (r *RedisOrderRepository) Update(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	keys := []string{orderKey(order.ID), statusKey(from), statusKey(order.Status)}
	res, err := updateScript.Run(ctx, r.db.Client(), keys,
		strconv.FormatInt(order.Version, 10), string(from), data, string(order.Status),
		order.ID, order.CreatedAt.UnixMilli(),
	).Int64()
	if err != nil {
		return fmt.Errorf("failed to update order %s: %w", order.ID, err)
	}

	switch {
	case res > 0:
		order.Version = res
		return nil
	case res == 0:
		return domain.ErrVersionConflict
	default:
		return domain.ErrOrderNotFound
	}
}

// List returns one page of orders, newest first.
func (r *RedisOrderRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Order, int64, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	index := allOrdersKey
	inMemoryStatus := false
	switch {
	case filter.CustomerID != "":
		index = customerIndexKey + filter.CustomerID
		inMemoryStatus = filter.Status != ""
	case filter.Status != "":
		index = statusKey(filter.Status)
	}

	start := int64((filter.Page - 1) * filter.Limit)
	stop := start + int64(filter.Limit) - 1

	if filter.Search == "" && !inMemoryStatus {
		total, err := r.db.Client().ZCard(ctx, index).Result()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to count orders: %w", err)
		}
		ids, err := r.db.Client().ZRevRange(ctx, index, start, stop).Result()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list orders: %w", err)
		}
		orders, err := r.loadMany(ctx, ids)
		return orders, total, err
	}

	ids, err := r.db.Client().ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	all, err := r.loadMany(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]domain.Order, 0, len(all))
	for _, o := range all {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if !matchesSearch(&o, filter.Search) {
			continue
		}
		matched = append(matched, o)
	}

	total := int64(len(matched))
	if start >= total {
		return []domain.Order{}, total, nil
	}
	end := min(stop+1, total)
	return matched[start:end], total, nil
}

func (r *RedisOrderRepository) loadMany(ctx context.Context, ids []string) ([]domain.Order, error) {
	if len(ids) == 0 {
		return []domain.Order{}, nil
	}

	cmds := make([]*redis.SliceCmd, len(ids))
	_, err := r.db.Client().Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HMGet(ctx, orderKey(id), "data", "version")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(ids))
	for i, cmd := range cmds {
		order, err := decodeOrder(ids[i], cmd.Val())
		if errors.Is(err, domain.ErrOrderNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

func decodeOrder(id string, vals []interface{}) (*domain.Order, error) {
	if len(vals) != 2 || vals[0] == nil {
		return nil, domain.ErrOrderNotFound
	}

	data, _ := vals[0].(string)
	version, _ := vals[1].(string)

	var order domain.Order
	if err := json.Unmarshal([]byte(data), &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order %s: %w", id, err)
	}
	v, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version for order %s: %w", id, err)
	}
	order.Version = v
	return &order, nil
}

func matchesSearch(o *domain.Order, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(o.OrderNumber), needle) ||
		strings.Contains(strings.ToLower(o.Customer.Name), needle) ||
		strings.Contains(strings.ToLower(o.Customer.Email), needle)
}
