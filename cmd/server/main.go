package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inventory-dashboard/internal/cache"
	"inventory-dashboard/internal/client"
	"inventory-dashboard/internal/config"
	"inventory-dashboard/internal/events"
	"inventory-dashboard/internal/handlers"
	"inventory-dashboard/internal/middleware"
	"inventory-dashboard/internal/services"
	"inventory-dashboard/internal/telemetry"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg := config.LoadConfig()

	slog.Info("Starting Inventory Dashboard", "version", handlers.Version)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize OpenTelemetry telemetry system
	otelTelemetry := telemetry.InitMetrics(ctx, telemetry.Config{
		MeterName: handlers.ServiceName,
		Exporter:  cfg.MetricsExporter,
		Port:      cfg.MetricsPort,
	})
	slog.Info("OpenTelemetry telemetry initialized")

	dashboardTelemetry := telemetry.NewDashboardTelemetry(otelTelemetry.Meter())
	if err := dashboardTelemetry.InitializeTelemetry(ctx); err != nil {
		slog.Error("Failed to initialize dashboard telemetry", "error", err)
		return
	}

	// Backend client and refresh cache
	apiClient := client.NewDashboardClient(client.ClientConfig{
		BaseURL:  cfg.APIBaseURL,
		Timeout:  cfg.Timeout(),
		Recorder: dashboardTelemetry,
	})
	refreshCache := cache.NewRefreshCache(apiClient, cache.Config{
		FreshnessWindow: cfg.FreshnessWindow(),
		Recorder:        dashboardTelemetry,
	})

	// Change signals
	origin := uuid.New().String()
	bus := events.NewBus(events.BusConfig{
		BufferSize: cfg.SignalBuffer(),
		Recorder:   dashboardTelemetry,
	})

	var (
		publisher events.Publisher
		kafkaPub  *events.KafkaPublisher
		relay     *events.KafkaRelay
	)
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		kafkaCfg := events.KafkaConfig{
			Brokers: brokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
			Origin:  origin,
		}
		kafkaPub = events.NewKafkaPublisher(bus, kafkaCfg)
		relay = events.NewKafkaRelay(bus, kafkaCfg)
		publisher = kafkaPub
		go relay.Run(ctx)
	} else {
		slog.Info("KAFKA_BROKERS not set, change signals stay in-process")
	}

	dashboardService := services.NewDashboardService(services.DashboardServiceConfig{
		Backend:   apiClient,
		Cache:     refreshCache,
		Bus:       bus,
		Publisher: publisher,
		Origin:    origin,
	})
	dashboardService.Start()
	slog.Info("Dashboard service initialized successfully", "origin", origin)

	// Initialize handlers
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	uploadHandler := handlers.NewUploadHandler(dashboardService, cfg.MaxUploadBytes())
	eventsHandler := handlers.NewEventsHandler(dashboardService, 0)
	healthHandler := handlers.NewHealthHandler(cfg.APIBaseURL)

	r := mux.NewRouter()
	r.Use(telemetry.NewTelemetryMiddleware(dashboardTelemetry).Middleware)

	// The event stream is long-lived and must not sit behind the request timeout
	r.HandleFunc("/api/dashboard/events", eventsHandler.Stream).Methods("GET")

	api := r.PathPrefix("/api/dashboard").Subrouter()
	api.Use(chimiddleware.Timeout(2 * cfg.Timeout()))

	api.HandleFunc("/inventory", dashboardHandler.GetInventory).Methods("GET")
	api.HandleFunc("/orders", dashboardHandler.GetOrders).Methods("GET")
	api.HandleFunc("/analytics/summary", dashboardHandler.GetSummary).Methods("GET")
	api.HandleFunc("/analytics/categories", dashboardHandler.GetCategories).Methods("GET")
	api.HandleFunc("/analytics/daily-orders", dashboardHandler.GetDailyOrders).Methods("GET")
	api.HandleFunc("/analytics/trends", dashboardHandler.GetTrends).Methods("GET")
	api.HandleFunc("/analytics/low-stock", dashboardHandler.GetLowStock).Methods("GET")
	api.HandleFunc("/status", dashboardHandler.GetStatus).Methods("GET")
	api.HandleFunc("/upload/{resource}", uploadHandler.Upload).Methods("POST")

	r.HandleFunc("/health", healthHandler.Health).Methods("GET")

	// CORS sits outside the router so preflights reach it without a matching route
	var handler http.Handler = r
	handler = middleware.AccessLogMiddleware(handler)
	handler = middleware.CORSMiddleware(cfg.AllowedOriginList())(handler)
	handler = chimiddleware.Recoverer(handler)
	handler = chimiddleware.RealIP(handler)
	handler = chimiddleware.RequestID(handler)

	slog.Debug("Available endpoints",
		"dashboard_endpoints", []string{
			"GET /api/dashboard/inventory?refresh=true",
			"GET /api/dashboard/orders?refresh=true",
			"GET /api/dashboard/analytics/summary",
			"GET /api/dashboard/analytics/categories",
			"GET /api/dashboard/analytics/daily-orders",
			"GET /api/dashboard/analytics/trends",
			"GET /api/dashboard/analytics/low-stock",
			"GET /api/dashboard/status",
			"POST /api/dashboard/upload/{inventory|orders}",
			"GET /api/dashboard/events?resource=<inventory|orders>",
		},
		"system_endpoints", []string{
			"GET /health",
		})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server ready to accept connections", "address", server.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop background work first so open event streams see their channels close
	stop()
	dashboardService.Stop()
	bus.Close()

	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			slog.Error("Error closing Kafka publisher", "error", err)
		}
	}
	if relay != nil {
		if err := relay.Close(); err != nil {
			slog.Error("Error closing Kafka relay", "error", err)
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	otelTelemetry.Close(shutdownCtx)
	slog.Info("Server exited")
}
