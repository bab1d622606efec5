package main

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/events"
	"marketplace/internal/handlers"
	"marketplace/internal/idempotency"
	"marketplace/internal/media"
	"marketplace/internal/orders"
	"marketplace/internal/payment"
	"marketplace/internal/repository"
	"marketplace/internal/repository/memory"
)

func main() {
	config.Load()
	env := config.AppEnv

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store repository.Store
		ping  func(context.Context) error
	)
	switch env.DBDriver {
	case "memory":
		store = memory.New().Store()
		log.Println("[DB] using in-memory store")
	default:
		client, err := database.Connect(env.MongoURI)
		if err != nil {
			log.Fatal(err)
		}
		defer client.Disconnect(context.Background())

		db := client.Database(env.DBName)
		log.Println("MongoDB connected to:", db.Name())

		if err := database.EnsureIndexes(db); err != nil {
			log.Printf("⚠️ index warning: %v", err)
		}
		store = database.NewStore(db)
		ping = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	}

	bucket, err := media.Open(ctx, env.MediaBucketURL, env.MediaPublicURL)
	if err != nil {
		log.Fatal(err)
	}
	defer bucket.Close()

	var idem idempotency.Store = idempotency.NewMemoryStore(env.IdempotencyTTL)
	if env.RedisAddr != "" {
		rdb, err := idempotency.NewRedisClient(ctx, env.RedisAddr)
		if err != nil {
			log.Fatal(err)
		}
		defer rdb.Close()
		idem = idempotency.NewRedisStore(rdb, env.IdempotencyTTL)
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if len(env.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(env.KafkaBrokers)
	}
	defer publisher.Close()

	relay := events.NewRelay(store.Outbox, publisher, env.OutboxPollInterval)
	go relay.Run(ctx)

	svc := orders.NewService(orders.Deps{
		Store:       store,
		Uploader:    bucket,
		Idempotency: idem,
		QR:          payment.NewQRGenerator(env.QRCodeSize, env.QRCodeLevel),
		Currency:    env.Currency,
	})

	r := gin.Default()
	if dir, ok := strings.CutPrefix(env.MediaBucketURL, "file://"); ok {
		r.Static("/public/uploads", dir)
	}

	r.GET("/health", handlers.Health(ping))
	handlers.RegisterOrderRoutes(r, svc, env.JWTSecret)

	go func() {
		if err := r.Run(":" + env.Port); err != nil {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
}
