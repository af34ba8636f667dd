package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Cinq pings MongoDB au démarrage, séparés de 1s, 2s, 4s puis 8s.
const (
	mongoAttempts     = 5
	mongoFirstBackoff = time.Second
	mongoPingTimeout  = 5 * time.Second
)

// MongoConnectBudget est la durée maximale de ConnectMongo quand le
// serveur ne répond jamais : chaque ping attend mongoPingTimeout.
func MongoConnectBudget() time.Duration {
	budget := mongoAttempts * mongoPingTimeout
	backoff := mongoFirstBackoff
	for i := 0; i < mongoAttempts-1; i++ {
		budget += backoff
		backoff *= 2
	}
	return budget
}

// =============================================
// MONGODB
// =============================================

// ConnectMongo ouvre le client MongoDB et réessaie avec un délai
// exponentiel tant que le serveur ne répond pas au ping.
func ConnectMongo(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(mongoPingTimeout).
		SetMaxPoolSize(100).
		SetMinPoolSize(5)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("configuration MongoDB invalide: %w", err)
	}

	if err := retry(ctx, mongoAttempts, mongoFirstBackoff, func() error {
		return client.Ping(ctx, nil)
	}); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("impossible de joindre MongoDB: %w", err)
	}

	log.Printf("✅ Connecté à MongoDB (base %s)", dbName)
	return client, client.Database(dbName), nil
}

func retry(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		log.Printf("⏳ Tentative %d/%d échouée (%v), nouvel essai dans %s", i+1, attempts, err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// =============================================
// ELASTICSEARCH
// =============================================

func ConnectElastic(url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("erreur création client Elasticsearch: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("erreur connexion Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("erreur connexion Elasticsearch: %s", res.Status())
	}

	log.Println("✅ Connecté à Elasticsearch")
	return client, nil
}

// =============================================
// MINIO
// =============================================

// ConnectMinIO ouvre le client et crée le bucket s'il n'existe pas.
func ConnectMinIO(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("erreur connexion MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("erreur vérification bucket MinIO: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("erreur création bucket MinIO: %w", err)
		}
		log.Println("🪣 Bucket créé :", bucket)
	} else {
		log.Println("🪣 Bucket MinIO déjà présent :", bucket)
	}

	log.Println("✅ Connecté à MinIO :", endpoint)
	return client, nil
}

// =============================================
// SCYLLA DB (journal d'audit)
// =============================================

type ScyllaConfig struct {
	Hosts    []string
	Keyspace string
	Username string
	Password string
}

// ConnectScylla ouvre une session sur le keyspace d'audit.
// Les tables sont créées par utils.ScyllaAuditor.
func ConnectScylla(cfg ScyllaConfig) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.NumConns = 4
	cluster.ReconnectInterval = time.Second
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session pour %s: %w", cfg.Keyspace, err)
	}
	log.Printf("✅ Session ScyllaDB ouverte pour keyspace '%s'", cfg.Keyspace)
	return session, nil
}
