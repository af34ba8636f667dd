package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"log"
	"time"

	"fertilizer_back_end/internal/config"
	"fertilizer_back_end/internal/database"
	"fertilizer_back_end/internal/models"
	"fertilizer_back_end/internal/repository"
	"fertilizer_back_end/internal/services"
)

//go:embed products.json
var catalogJSON []byte

func main() {
	force := flag.Bool("force", false, "remplace le catalogue existant")
	flag.Parse()

	config.Load()
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("❌ Configuration invalide: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("❌ MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	store := repository.NewStore(db)
	if err := store.CreateIndexes(ctx); err != nil {
		log.Fatalf("❌ Index MongoDB: %v", err)
	}

	existing, err := store.Products.Count(ctx)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if existing > 0 && !*force {
		log.Printf("ℹ️ %d produits déjà présents, rien à faire (utiliser -force pour remplacer)", existing)
		return
	}
	if existing > 0 {
		if err := store.Products.DeleteAll(ctx); err != nil {
			log.Fatalf("❌ %v", err)
		}
		log.Printf("🧹 %d produits supprimés", existing)
	}

	var products []models.Product
	if err := json.Unmarshal(catalogJSON, &products); err != nil {
		log.Fatalf("❌ Catalogue invalide: %v", err)
	}
	if err := store.Products.InsertMany(ctx, products); err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("✅ %d produits insérés", len(products))

	if cfg.ElasticURL == "" {
		return
	}
	es, err := database.ConnectElastic(cfg.ElasticURL, cfg.ElasticUser, cfg.ElasticPassword)
	if err != nil {
		log.Printf("⚠️ Elasticsearch indisponible, index non construit: %v", err)
		return
	}
	if err := services.NewProductIndex(es, cfg.ElasticIndex).IndexAll(ctx, products); err != nil {
		log.Printf("⚠️ Indexation: %v", err)
		return
	}
	log.Printf("🔎 %d produits indexés dans %s", len(products), cfg.ElasticIndex)
}
