package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fertilizer_back_end/internal/cache"
	"fertilizer_back_end/internal/config"
	"fertilizer_back_end/internal/database"
	"fertilizer_back_end/internal/handlers/product"
	"fertilizer_back_end/internal/handlers/user"
	"fertilizer_back_end/internal/repository"
	"fertilizer_back_end/internal/routes"
	"fertilizer_back_end/internal/services"
	"fertilizer_back_end/internal/shop"
	"fertilizer_back_end/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	// Marge de démarrage au-delà des tentatives MongoDB (MinIO, index, Scylla).
	startupMargin   = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	// Les photos d'avis sont rangées sous ce préfixe dans le bucket.
	reviewImagesPrefix = "reviews"
	maxUploadMemory    = 8 << 20
)

func main() {
	config.Load()
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("❌ Configuration invalide: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), database.MongoConnectBudget()+startupMargin)
	defer cancel()

	// --- MongoDB (obligatoire) ---
	mongoClient, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("❌ MongoDB: %v", err)
	}
	store := repository.NewStore(db)
	if err := store.CreateIndexes(ctx); err != nil {
		log.Fatalf("❌ Index MongoDB: %v", err)
	}

	// --- MinIO (obligatoire) ---
	minioClient, err := database.ConnectMinIO(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
	if err != nil {
		log.Fatalf("❌ MinIO: %v", err)
	}
	files := services.NewMinioStore(minioClient, cfg.MinIOBucket, reviewImagesPrefix)

	// --- Redis (optionnel) ---
	var (
		redisClient  *redis.Client
		productCache shop.ProductCache
		notifier     shop.CartNotifier
		cartNotifier *cache.CartNotifier
	)
	if cfg.RedisHost != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisHost, cfg.RedisPassword)
		if err != nil {
			log.Printf("⚠️ Redis indisponible, cache et limitation désactivés: %v", err)
			redisClient = nil
		} else {
			productCache = cache.NewProductCache(redisClient)
			cartNotifier = cache.NewCartNotifier(redisClient)
			notifier = cartNotifier
		}
	}

	// --- Elasticsearch (optionnel) ---
	var search shop.ProductSearcher
	if cfg.ElasticURL != "" {
		es, err := database.ConnectElastic(cfg.ElasticURL, cfg.ElasticUser, cfg.ElasticPassword)
		if err != nil {
			log.Printf("⚠️ Elasticsearch indisponible, recherche MongoDB: %v", err)
		} else {
			search = services.NewProductIndex(es, cfg.ElasticIndex)
		}
	}

	// --- Kafka (optionnel) ---
	var events shop.EventPublisher
	var producer *services.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = services.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		events = producer
		log.Printf("✅ Kafka: %v (topic %s)", cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	// --- SMTP (optionnel) ---
	var mailer shop.OrderMailer
	if cfg.SMTPHost != "" {
		mailer = utils.NewMailer(utils.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}

	// --- ScyllaDB pour l'audit (optionnel) ---
	var audit utils.Auditor = utils.LogAuditor{}
	if len(cfg.ScyllaHosts) > 0 {
		session, err := database.ConnectScylla(database.ScyllaConfig{
			Hosts:    cfg.ScyllaHosts,
			Keyspace: cfg.ScyllaKeyspace,
			Username: cfg.ScyllaUser,
			Password: cfg.ScyllaPassword,
		})
		if err != nil {
			log.Printf("⚠️ ScyllaDB indisponible, audit dans les logs: %v", err)
		} else {
			defer session.Close()
			auditor := utils.NewScyllaAuditor(session)
			if err := auditor.EnsureSchema(ctx); err != nil {
				log.Printf("⚠️ Schéma audit: %v", err)
			} else {
				audit = auditor
			}
		}
	}

	// --- Services ---
	issuer := utils.NewJWTIssuer(cfg.JWTSecret)
	catalog := shop.NewCatalog(store.Products, store.Reviews, productCache, search)
	orders := shop.NewOrders(store.Orders, store.Users, catalog, events, mailer)
	cart := shop.NewCart(store.Users, catalog, notifier)

	h := routes.Handlers{
		Auth:     user.NewAuthHandler(shop.NewAccounts(store.Users, orders, issuer), audit),
		Cart:     user.NewCartHandler(cart),
		Orders:   user.NewOrderHandler(orders, audit),
		Wishlist: user.NewWishlistHandler(shop.NewWishlist(store.Users, catalog)),
		Products: product.NewProductHandler(catalog),
		Reviews:  product.NewReviewHandler(shop.NewReviews(store.Reviews, store.Users, orders, catalog, files), audit),
		Images:   product.NewImageHandler(files),
	}
	if cartNotifier != nil {
		h.CartSocket = user.NewCartSocket(cart, cartNotifier, cfg.CORSOrigins)
	}

	r := gin.Default()
	r.MaxMultipartMemory = maxUploadMemory
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	routes.RegisterRoutes(r, h, issuer, redisClient)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		log.Println("🚀 Serveur Fertilizer lancé sur le port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Serveur HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Arrêt du serveur...")

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Arrêt HTTP: %v", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("⚠️ Fermeture Kafka: %v", err)
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Printf("⚠️ Déconnexion MongoDB: %v", err)
	}
	log.Println("✅ Serveur arrêté")
}

// corsConfig autorise toutes les origines quand CORS_ORIGINS est vide.
func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
