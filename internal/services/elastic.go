package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"fertilizer_back_end/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sony/gobreaker/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const searchSize = 50

// ProductIndex indexe et recherche les produits dans Elasticsearch.
// Les recherches passent par un disjoncteur : après plusieurs échecs
// consécutifs, elles échouent immédiatement et l'appelant se replie sur MongoDB.
type ProductIndex struct {
	client  *elasticsearch.Client
	index   string
	breaker *gobreaker.CircuitBreaker[[]primitive.ObjectID]
}

func NewProductIndex(client *elasticsearch.Client, index string) *ProductIndex {
	breaker := gobreaker.NewCircuitBreaker[[]primitive.ObjectID](gobreaker.Settings{
		Name:        "elasticsearch",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("🔌 Disjoncteur %s: %s → %s", name, from, to)
		},
	})
	return &ProductIndex{client: client, index: index, breaker: breaker}
}

// productDocument est la forme indexée d'un produit.
type productDocument struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	Price         float64 `json:"price"`
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
}

func (i *ProductIndex) Index(ctx context.Context, p *models.Product) error {
	data, err := json.Marshal(productDocument{
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		Price:         p.Price,
		AverageRating: p.AverageRating,
		ReviewCount:   p.ReviewCount,
	})
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: p.ID.Hex(),
		Body:       bytes.NewReader(data),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("erreur envoi Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elastic a refusé %s: %s", p.ID.Hex(), res.Status())
	}
	return nil
}

// IndexAll réindexe un lot de produits, utilisé au chargement du catalogue.
func (i *ProductIndex) IndexAll(ctx context.Context, products []models.Product) error {
	var errs []error
	for k := range products {
		if err := i.Index(ctx, &products[k]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Search renvoie les identifiants des produits trouvés, par pertinence.
func (i *ProductIndex) Search(ctx context.Context, query string) ([]primitive.ObjectID, error) {
	return i.breaker.Execute(func() ([]primitive.ObjectID, error) {
		return i.search(ctx, query)
	})
}

func (i *ProductIndex) search(ctx context.Context, query string) ([]primitive.ObjectID, error) {
	var buf bytes.Buffer
	q := map[string]any{
		"size":    searchSize,
		"_source": false,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^3", "category^2", "description"},
				"fuzziness": "AUTO",
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  &buf,
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		id, err := primitive.ObjectIDFromHex(hit.ID)
		if err != nil {
			log.Printf("⚠️ Document Elastic ignoré, identifiant invalide: %q", hit.ID)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
