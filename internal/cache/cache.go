package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"fertilizer_back_end/internal/models"

	"github.com/redis/go-redis/v9"
)

const ProductCacheTTL = 10 * time.Minute

var ErrCacheMiss = errors.New("cache miss")

// ProductCache garde les documents produits sous product:<id>.
type ProductCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewProductCache(client *redis.Client) *ProductCache {
	return &ProductCache{client: client, baseTTL: ProductCacheTTL}
}

func (c *ProductCache) Get(ctx context.Context, id string) (*models.Product, error) {
	data, err := c.client.Get(ctx, productKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("unmarshal product failed: %w", err)
	}
	return &product, nil
}

func (c *ProductCache) Set(ctx context.Context, product *models.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}

	// Le jitter évite que toutes les entrées expirent ensemble.
	ttl := c.baseTTL + time.Duration(rand.Intn(60))*time.Second
	if err := c.client.Set(ctx, productKey(product.ID.Hex()), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *ProductCache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, productKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func productKey(id string) string {
	return "product:" + id
}

// NopProductCache est utilisé quand Redis n'est pas configuré.
type NopProductCache struct{}

func (NopProductCache) Get(context.Context, string) (*models.Product, error) {
	return nil, ErrCacheMiss
}

func (NopProductCache) Set(context.Context, *models.Product) error { return nil }

func (NopProductCache) Delete(context.Context, string) error { return nil }
