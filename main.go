package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsrelay/api"
	"newsrelay/common"
	"newsrelay/config"
	"newsrelay/credentials"
	"newsrelay/kafka"
	"newsrelay/media"
	"newsrelay/orchestrator"
	"newsrelay/publisher"
	"newsrelay/rewrite"
	"newsrelay/store"

	"github.com/joho/godotenv"
)

// articleBackend is what both the Postgres and in-memory stores provide.
type articleBackend interface {
	store.ArticleStore
	store.ArticleLister
	store.SettingsStore
}

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	kafkaMode := flag.Bool("kafka", false, "Consume publish requests from Kafka instead of serving HTTP")
	flag.Parse()

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	articles, closeStore := openArticleStore(ctx, cfg.Database)
	defer closeStore()

	settings := openSettingsStore(cfg.Redis, articles)

	registry := credentials.NewRegistry(cfg.Platforms, settings)
	registry.Tokens().Restore(ctx)
	go registry.Tokens().RefreshUntracked(ctx)

	batch := orchestrator.NewBatch(articles, registry, publisher.NewAll(cfg.Platforms))
	if mirror := openMirror(ctx, cfg.S3); mirror != nil {
		batch = batch.WithMirror(mirror)
	}

	scheduler := credentials.NewRefreshScheduler(registry.Tokens())
	if err := scheduler.Start(cfg.RefreshSchedule); err != nil {
		log.Fatalf("❌ Failed to start token refresh: %v", err)
	}
	defer scheduler.Stop()

	if *kafkaMode {
		runConsumer(ctx, cfg.Kafka, batch)
		return
	}

	completer, err := rewrite.NewCompleter(cfg.LLM)
	if err != nil {
		log.Fatalf("❌ Failed to configure language model: %v", err)
	}
	rewriter := rewrite.New(completer, articles)
	if !rewriter.Available() {
		log.Println("⚠️  No language model key set; /api/ai-rewrite will refuse requests")
	}

	origins := []string{"http://localhost:3000"}
	if cfg.FrontendURL != "" {
		origins = append(origins, cfg.FrontendURL)
	}
	router := api.NewRouter(&api.Server{
		Batch:     batch,
		Rewriter:  rewriter,
		Articles:  articles,
		Lister:    articles,
		Platforms: registry,
	}, origins)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Printf("Starting API server on %s", srv.Addr)
		log.Println("API endpoints available:")
		log.Println("  POST   /api/publish/:platform")
		log.Println("  POST   /api/ai-rewrite")
		log.Println("  GET    /api/news")
		log.Println("  GET    /api/news/:id")
		log.Println("  GET    /api/system-prompts")
		log.Println("  POST   /api/system-prompts")
		log.Println("  DELETE /api/system-prompts/:id")
		log.Println("  GET    /api/platforms")
		log.Println("  GET    /api/health")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// openArticleStore uses Postgres when DATABASE_URL is set and an empty
// in-memory store otherwise.
func openArticleStore(ctx context.Context, cfg config.DatabaseConfig) (articleBackend, func()) {
	if cfg.URL == "" {
		log.Println("⚠️  DATABASE_URL not set; using in-memory article store")
		return store.NewMemory(), func() {}
	}

	pg, err := store.OpenPostgres(ctx, cfg.URL, cfg.Table)
	if err != nil {
		log.Fatalf("❌ Failed to open article store: %v", err)
	}
	log.Printf("✅ Connected to Postgres (table %s)", cfg.Table)
	return pg, func() {
		if err := pg.Close(); err != nil {
			log.Printf("Postgres close error: %v", err)
		}
	}
}

// openSettingsStore prefers Redis for token bookkeeping and falls back to the
// article store's settings table.
func openSettingsStore(cfg config.RedisConfig, fallback store.SettingsStore) store.SettingsStore {
	if cfg.Addr == "" {
		return fallback
	}
	rs, err := store.NewRedisSettings(store.RedisConfig{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err != nil {
		log.Printf("⚠️  %v (keeping settings in the article store)", err)
		return fallback
	}
	log.Printf("✅ Token settings stored in Redis at %s", cfg.Addr)
	return rs
}

// openMirror returns nil when no bucket is configured.
func openMirror(ctx context.Context, cfg config.S3Config) *media.Mirror {
	if cfg.Bucket == "" {
		return nil
	}
	s3c, err := common.NewS3(ctx, common.S3Config{
		Region:       cfg.Region,
		Profile:      cfg.Profile,
		UsePathStyle: cfg.UsePathStyle,
	})
	if err != nil {
		log.Printf("Warning: failed to init S3 client: %v (media mirror disabled)", err)
		return nil
	}
	log.Printf("✅ Mirroring images to bucket %q with prefix %q", cfg.Bucket, cfg.Prefix)
	return media.NewMirror(s3c, cfg.Bucket, cfg.Prefix, nil)
}

func runConsumer(ctx context.Context, cfg config.KafkaConfig, batch *orchestrator.Batch) {
	if len(cfg.Brokers) == 0 {
		log.Fatalf("❌ KAFKA_BOOTSTRAP_SERVERS is required in -kafka mode")
	}

	consumer, err := kafka.NewPublishConsumer(cfg.Brokers, cfg.Topic, cfg.GroupID, batch)
	if err != nil {
		log.Fatalf("❌ Failed to create Kafka consumer: %v", err)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			log.Printf("Kafka consumer close error: %v", err)
		}
	}()

	if err := consumer.Start(ctx); err != nil {
		log.Printf("❌ Failed to start Kafka consumer: %v", err)
		return
	}
	log.Printf("📥 Consuming publish requests from %s (group %s)", cfg.Topic, cfg.GroupID)

	<-ctx.Done()
	log.Println("Shutting down consumer...")
}
