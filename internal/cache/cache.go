package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"rentals_backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const apartmentKeyPrefix = "apartment:"

// ApartmentCache - read-through кэш одиночных объявлений
type ApartmentCache interface {
	// Get возвращает nil, nil при промахе
	Get(ctx context.Context, id string) (*models.Apartment, error)
	Set(ctx context.Context, apartment *models.Apartment) error
	Delete(ctx context.Context, ids ...string) error
}

// NewRedisClient создает клиента и проверяет соединение
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

type RedisApartmentCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisApartmentCache(client *redis.Client, ttl time.Duration) *RedisApartmentCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisApartmentCache{client: client, ttl: ttl}
}

func (c *RedisApartmentCache) Get(ctx context.Context, id string) (*models.Apartment, error) {
	data, err := c.client.Get(ctx, apartmentKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var apartment models.Apartment
	if err := json.Unmarshal(data, &apartment); err != nil {
		return nil, err
	}
	return &apartment, nil
}

func (c *RedisApartmentCache) Set(ctx context.Context, apartment *models.Apartment) error {
	data, err := json.Marshal(apartment)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, apartmentKeyPrefix+apartment.ID, data, c.ttl).Err()
}

func (c *RedisApartmentCache) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = apartmentKeyPrefix + id
	}
	return c.client.Del(ctx, keys...).Err()
}

// NoopCache используется, когда Redis не настроен
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, id string) (*models.Apartment, error) { return nil, nil }
func (NoopCache) Set(ctx context.Context, apartment *models.Apartment) error    { return nil }
func (NoopCache) Delete(ctx context.Context, ids ...string) error               { return nil }
