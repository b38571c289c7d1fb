package adapters

import (
	"context"
	"errors"
	"fmt"

	"fulfillment-engine/internal/core/store"
	"fulfillment-engine/internal/features/customers/domain"
)

const customerKeyPrefix = "customer:"

// RedisDirectory reads account profiles stored as customer:<id> hashes.
type RedisDirectory struct {
	db *store.Redis
}

// NewRedisDirectory creates a new RedisDirectory.
func NewRedisDirectory(db *store.Redis) *RedisDirectory {
	return &RedisDirectory{db: db}
}

// FindCustomer loads the profile of the given account.
func (d *RedisDirectory) FindCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	ctx, cancel := d.db.Bound(ctx)
	defer cancel()

	fields, err := d.db.Client().HGetAll(ctx, customerKeyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load customer %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrCustomerNotFound
	}

	return &domain.Customer{
		ID:    id,
		Name:  fields["name"],
		Email: fields["email"],
		Phone: fields["phone"],
	}, nil
}

// Save writes a profile. Used by the seed command.
func (d *RedisDirectory) Save(ctx context.Context, c *domain.Customer) error {
	if c.ID == "" {
		return errors.New("customer id is required")
	}

	ctx, cancel := d.db.Bound(ctx)
	defer cancel()

	err := d.db.Client().HSet(ctx, customerKeyPrefix+c.ID, map[string]interface{}{
		"name":  c.Name,
		"email": c.Email,
		"phone": c.Phone,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to save customer %s: %w", c.ID, err)
	}
	return nil
}
