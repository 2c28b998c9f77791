package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"payflow_app/internal/gateway"
	"payflow_app/internal/gateway/mercadopago"
	"payflow_app/internal/gateway/midtrans"
	"payflow_app/internal/gateway/mockpay"
	"payflow_app/internal/handlers"
	"payflow_app/internal/middleware"
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

	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Redis is optional; without it the poller dedupes on the database alone
	// and gateway configs are read straight from the database.
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
			cache = nil
		}
	}

	appURL := getEnv("APP_URL", "http://localhost:8080")
	secret := os.Getenv("APP_SECRET")
	if secret == "" {
		log.Fatal("APP_SECRET not set")
	}

	registerGateways()

	resolver := services.NewConfigResolver(db, cache, gateway.DefaultRegistry, defaultConfigID())
	store := services.NewGormStore(db)
	poller := services.NewStatusPoller(db, cache)
	metrics := services.NewMetrics(prometheus.DefaultRegisterer)
	orchestrator := services.NewPaymentOrchestrator(store, resolver, poller, metrics, appURL, adapterTimeout())

	// Create Echo instance
	e := echo.New()
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.HTTPErrorHandler = middleware.CustomErrorHandler

	paymentHandler := handlers.NewPaymentHandler(store, orchestrator, appURL, secret)
	returnHandler := handlers.NewReturnHandler(db, store, orchestrator, resolver, appURL)
	statusHandler := handlers.NewStatusHandler(db, store, orchestrator, secret)

	// Return-URL contract lives on the root path via query parameters.
	e.GET("/", returnHandler.Root)

	e.POST("/payments", paymentHandler.CreatePayment)
	e.GET("/payments/:id", paymentHandler.GetPayment)
	e.POST("/payments/:id/refunds", paymentHandler.CreateRefund)
	e.POST("/payments/status-check", statusHandler.Check)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	port := getEnv("PORT", "8080")
	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}

func registerGateways() {
	gateway.Register(midtrans.Tag, midtrans.New)
	gateway.Register(mercadopago.Tag, mercadopago.New)
	gateway.Register(mockpay.Tag, mockpay.New)
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
