package shop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"fertilizer_back_end/internal/cache"
	"fertilizer_back_end/internal/models"
	"fertilizer_back_end/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Catalog sert les lectures produits (cache Redis puis MongoDB) et tient à
// jour les agrégats de notes.
type Catalog struct {
	products ProductStore
	reviews  ReviewStore
	cache    ProductCache
	search   ProductSearcher
}

func NewCatalog(products ProductStore, reviews ReviewStore, productCache ProductCache, search ProductSearcher) *Catalog {
	if productCache == nil {
		productCache = cache.NopProductCache{}
	}
	return &Catalog{products: products, reviews: reviews, cache: productCache, search: search}
}

func (c *Catalog) List(ctx context.Context, category string) ([]models.Product, error) {
	products, err := c.products.List(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

func (c *Catalog) Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	if p, err := c.cache.Get(ctx, id.Hex()); err == nil {
		return p, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		log.Printf("⚠️ Cache produit indisponible: %v", err)
	}

	p, err := c.products.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("Product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	c.remember(ctx, p)
	return p, nil
}

// Resolve charge les produits référencés, en passant par le cache.
// Les identifiants inconnus sont absents de la map.
func (c *Catalog) Resolve(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Product, error) {
	out := make(map[primitive.ObjectID]*models.Product, len(ids))
	var missing []primitive.ObjectID
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		if p, err := c.cache.Get(ctx, id.Hex()); err == nil {
			out[id] = p
			continue
		}
		out[id] = nil
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		products, err := c.products.FindByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("resolve products: %w", err)
		}
		for i := range products {
			p := &products[i]
			out[p.ID] = p
			c.remember(ctx, p)
		}
	}

	for id, p := range out {
		if p == nil {
			delete(out, id)
		}
	}
	return out, nil
}

// Search interroge l'index Elasticsearch, puis MongoDB si l'index ne répond pas.
func (c *Catalog) Search(ctx context.Context, query string) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationError("Search query is required")
	}

	if c.search != nil {
		ids, err := c.search.Search(ctx, query)
		if err == nil {
			found, err := c.Resolve(ctx, ids)
			if err != nil {
				return nil, err
			}
			products := make([]models.Product, 0, len(ids))
			for _, id := range ids {
				if p, ok := found[id]; ok {
					products = append(products, *p)
				}
			}
			return products, nil
		}
		log.Printf("⚠️ Recherche Elasticsearch indisponible, repli sur MongoDB: %v", err)
	}

	products, err := c.products.SearchText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// RefreshRating recalcule averageRating et reviewCount après une écriture d'avis.
func (c *Catalog) RefreshRating(ctx context.Context, productID primitive.ObjectID) error {
	stats, err := c.reviews.RatingStats(ctx, productID)
	if err != nil {
		return fmt.Errorf("rating stats: %w", err)
	}
	avg := math.Round(stats.AverageRating*10) / 10

	p, err := c.products.UpdateRating(ctx, productID, avg, stats.TotalReviews)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	if err := c.cache.Delete(ctx, productID.Hex()); err != nil {
		log.Printf("⚠️ Invalidation cache produit %s: %v", productID.Hex(), err)
	}
	if c.search != nil {
		if err := c.search.Index(ctx, p); err != nil {
			log.Printf("⚠️ Réindexation produit %s: %v", productID.Hex(), err)
		}
	}
	return nil
}

func (c *Catalog) remember(ctx context.Context, p *models.Product) {
	if err := c.cache.Set(ctx, p); err != nil {
		log.Printf("⚠️ Mise en cache produit %s: %v", p.ID.Hex(), err)
	}
}
