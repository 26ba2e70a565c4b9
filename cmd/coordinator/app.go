package coordinator

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"ride-coord/internal/general/config"
	"ride-coord/internal/general/jwt"
	"ride-coord/internal/general/logger"
	"ride-coord/internal/general/postgres"
	"ride-coord/internal/general/rabbitmq"
	"ride-coord/internal/general/websocket"
	"ride-coord/internal/ports"
	"ride-coord/internal/software/coordinator/handler"
	"ride-coord/internal/software/coordinator/service"
)

// Run wires the coordinator and serves HTTP + WebSocket traffic until ctx is
// cancelled. Postgres and RabbitMQ are optional at startup: the in-memory core
// stays authoritative, so losing either only degrades archiving/notifications.
func Run(ctx context.Context, cfgPath string, maxConcurrent int) error {
	// set up the coordinator logger with a static request ID for startup logs
	logger := logger.New("ride-coordinator")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load configuration
	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, map[string]any{"path": cfgPath})
		return err
	}

	// set up the Postgres archive trio; the coordinator runs without it
	var (
		uow       ports.UnitOfWork
		archive   ports.RideArchive
		locations ports.LocationHistoryRepository
	)
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Info(ctx, "archive_disabled", "Postgres unavailable, ride archiving and history disabled", map[string]any{"error": err.Error()})
	} else {
		defer pool.Close()
		uow = postgres.NewUnitOfWork(pool)
		archive = postgres.NewRideArchiveRepo()
		locations = postgres.NewLocationHistoryRepo()
	}

	// set up the JWT manager
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	// set up the coordination core
	svc := service.NewCoordinatorService(logger, service.Options{
		DefaultRadiusKM:     cfg.Coordinator.DefaultRadiusKM,
		LocationMinInterval: cfg.Coordinator.LocationMinInterval.Std(),
		SubscriptionBuffer:  cfg.Coordinator.SubscriptionBufferSize,
	}, uow, archive, locations)

	// connect to RabbitMQ and mirror core events to the broker
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Info(ctx, "broker_disabled", "RabbitMQ unavailable, broker notifications disabled", map[string]any{"error": err.Error()})
	} else {
		defer rmq.Close()
		pub := rabbitmq.NewMQPublisher(rmq)
		svc.RegisterSink(rabbitmq.NewEventSink(pub, logger))
	}

	// the socket gateway is both a connection endpoint and an event sink
	gateway := websocket.NewGateway(logger, jwtManager, svc)
	svc.RegisterSink(gateway)

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	httpHandler := handler.NewCoordinatorHTTPHandler(svc, logger, jwtManager, gateway)
	httpHandler.RegisterRoutes(mux)

	// concurrency limiter (global) — blocks when capacity is full
	limitedHandler := withConcurrencyLimit(maxConcurrent, mux)

	// set up the server configurations
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Coordinator.Port),          // listen on the specified port
		Handler:           limitedHandler,                                    // apply the concurrency limiter to HTTP handler
		ReadHeaderTimeout: 5 * time.Second,                                   // time to read headers
		ReadTimeout:       10 * time.Second,                                  // time to read full request body
		WriteTimeout:      15 * time.Second,                                  // full response write timeout
		IdleTimeout:       60 * time.Second,                                  // keep-alive window
		BaseContext:       func(net.Listener) context.Context { return ctx }, // pass base ctx to all handlers
	}

	// log service start
	logger.Info(ctx, "service_started",
		fmt.Sprintf("Ride Coordinator started on port %d", cfg.Coordinator.Port),
		map[string]any{"port": cfg.Coordinator.Port, "max_concurrent": maxConcurrent},
	)

	// start the server in a background goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// wait for context cancellation or server error
	select {
	case <-ctx.Done():
		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		// server returned a terminal error at startup or during run
		if err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Coordinator.Port})
			return err
		}
		return nil
	}

	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client gave up while waiting for a slot
			http.Error(w, "server busy", http.StatusServiceUnavailable)
		}
	})
}
