package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"payflow_app/internal/gateway"
	"payflow_app/internal/gateway/mercadopago"
	"payflow_app/internal/gateway/midtrans"
	"payflow_app/internal/gateway/mockpay"
	"payflow_app/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
			cache = nil
		}
	}
	if cache != nil {
		defer cache.Close()
	}

	gateway.Register(midtrans.Tag, midtrans.New)
	gateway.Register(mercadopago.Tag, mercadopago.New)
	gateway.Register(mockpay.Tag, mockpay.New)

	resolver := services.NewConfigResolver(db, cache, gateway.DefaultRegistry, defaultConfigID())
	store := services.NewGormStore(db)
	poller := services.NewStatusPoller(db, cache)
	orchestrator := services.NewPaymentOrchestrator(store, resolver, nil, nil, getEnv("APP_URL", "http://localhost:8080"), adapterTimeout())

	log.Println("Status check worker started. Waiting for next tick...")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down worker...")
		cancel()
	}()

	ticker := time.NewTicker(pollInterval())
	defer ticker.Stop()

	// Run once immediately, then tick.
	poller.ProcessDue(ctx, orchestrator)

	for {
		select {
		case <-ticker.C:
			poller.ProcessDue(ctx, orchestrator)
		case <-ctx.Done():
			return
		}
	}
}

func pollInterval() time.Duration {
	seconds, err := strconv.Atoi(os.Getenv("POLL_INTERVAL_SECONDS"))
	if err != nil || seconds <= 0 {
		return time.Minute
	}
	return time.Duration(seconds) * time.Second
}

func defaultConfigID() uint {
	value, err := strconv.ParseUint(os.Getenv("DEFAULT_CONFIG_ID"), 10, 32)
	if err != nil {
		return 0
	}
	return uint(value)
}

func adapterTimeout() time.Duration {
	seconds, err := strconv.Atoi(os.Getenv("ADAPTER_TIMEOUT_SECONDS"))
	if err != nil || seconds <= 0 {
		return services.DefaultAdapterTimeout
	}
	return time.Duration(seconds) * time.Second
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
