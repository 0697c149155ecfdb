package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"task-api/internal/application/service"
	"task-api/internal/application/worker"
	"task-api/internal/domain/event"
	"task-api/internal/domain/repository"
	"task-api/internal/infrastructure/config"
	"task-api/internal/infrastructure/kafka"
	"task-api/internal/infrastructure/postgres"
	"task-api/internal/infrastructure/redis"
	"task-api/internal/infrastructure/repository/cache"
	"task-api/internal/infrastructure/repository/memory"
	pgrepo "task-api/internal/infrastructure/repository/postgres"
	"task-api/internal/infrastructure/telemetry"
	h "task-api/internal/interface/http"
)

// stores bundles the repositories handed to the services together with the
// probes and cleanups of whatever backs them
type stores struct {
	users   repository.UserRepository
	tasks   repository.TaskRepository
	deps    []service.Dependency
	closers []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func main() {
	// Main context with interrupt signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	tel, shutdown, err := telemetry.Setup(ctx, cfg.Otel)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := shutdown(shutdownCtx); err != nil {
			telemetry.Log(context.Background(), telemetry.LevelError, "Error during telemetry shutdown", err)
		}
	}()

	st, err := openStores(ctx, cfg, tel)
	if err != nil {
		telemetry.Log(ctx, telemetry.LevelError, "Failed to initialize storage", err,
			attribute.String("storage", cfg.App.Storage),
		)
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer st.close()

	if cfg.Redis.Enabled {
		if err := withCache(ctx, cfg.Redis, tel, st); err != nil {
			log.Fatalf("Failed to initialize redis cache: %v", err)
		}
	}

	var events event.Publisher = event.NopPublisher{}
	var eventWorker *worker.KafkaWorker
	if cfg.Kafka.Enabled {
		publisher, w, err := startEvents(ctx, cfg.Kafka, tel, st)
		if err != nil {
			log.Fatalf("Failed to initialize kafka: %v", err)
		}
		events, eventWorker = publisher, w
	}

	userService := service.NewUserService(st.users, events, tel)
	taskService := service.NewTaskService(st.tasks, events, tel)
	appService := service.NewAppService(tel, cfg.Otel.ServiceName, cfg.Otel.ServiceVersion, cfg.App.Storage, st.deps...)

	handler := h.NewHandler(userService, taskService, appService, tel, cfg.Otel)

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	go func() {
		fmt.Printf("Server starting on %s\n", cfg.App.Port)
		telemetry.Log(serverCtx, telemetry.LevelInfo, fmt.Sprintf("Starting server on %s", cfg.App.Port), nil,
			attribute.String("storage", cfg.App.Storage),
		)
		if err := handler.StartWithAddr(serverCtx, cfg.App.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if errors.Is(err, syscall.EADDRINUSE) {
				fmt.Fprintf(os.Stderr, "Port %s is already in use. Please choose another port.\n", cfg.App.Port)
				telemetry.Log(serverCtx, telemetry.LevelError, fmt.Sprintf("Port %s is already in use", cfg.App.Port), err)
				os.Exit(1)
			}
			telemetry.Log(serverCtx, telemetry.LevelError, "Server failed to start", err)
			stop()
		}
	}()

	fmt.Println("Server started... Press Ctrl+C to exit.")

	<-ctx.Done()

	fmt.Println("\nShutting down application gracefully...")
	telemetry.Log(serverCtx, telemetry.LevelInfo, "Shutting down application gracefully", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := handler.Stop(shutdownCtx); err != nil {
		telemetry.Log(shutdownCtx, telemetry.LevelError, "Error during server shutdown", err)
	}

	if eventWorker != nil {
		select {
		case <-eventWorker.Done():
		case <-shutdownCtx.Done():
			telemetry.Log(shutdownCtx, telemetry.LevelWarn, "Kafka worker did not stop in time", shutdownCtx.Err())
		}
	}
}

// openStores selects the persistence adapter named by APP_STORAGE
func openStores(ctx context.Context, cfg config.Config, tel *telemetry.Telemetry) (*stores, error) {
	switch cfg.App.Storage {
	case "memory":
		store := memory.NewStore().WithTracer(tel.Tracer)
		return &stores{
			users: store.Users(),
			tasks: store.Tasks(),
		}, nil

	case "postgres", "":
		client, err := postgres.NewClient(ctx, cfg.Postgres, tel)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.AutoMigrate {
			if err := client.AutoMigrate(ctx, pgrepo.Models()...); err != nil {
				_ = client.Close()
				return nil, err
			}
		}
		return &stores{
			users: pgrepo.NewUserRepository(client.DB, tel.Tracer),
			tasks: pgrepo.NewTaskRepository(client.DB, tel.Tracer),
			deps:  []service.Dependency{{Name: "postgres", Check: client.HealthCheck}},
			closers: []func(){func() {
				if err := client.Close(); err != nil {
					telemetry.Log(context.Background(), telemetry.LevelError, "Error closing postgres", err)
				}
			}},
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q (want postgres or memory)", cfg.App.Storage)
	}
}

// withCache puts the redis read-through cache in front of both repositories
func withCache(ctx context.Context, cfg config.RedisConfig, tel *telemetry.Telemetry, st *stores) error {
	client, err := redis.NewClient(ctx, cfg, tel)
	if err != nil {
		return err
	}

	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	st.users = cache.NewUserRepository(st.users, client, ttl)
	st.tasks = cache.NewTaskRepository(st.tasks, client, ttl)
	st.deps = append(st.deps, service.Dependency{Name: "redis", Check: client.HealthCheck})
	st.closers = append(st.closers, func() {
		if err := client.Close(); err != nil {
			telemetry.Log(context.Background(), telemetry.LevelError, "Error closing redis", err)
		}
	})
	return nil
}

// startEvents creates the entity event producer and starts the consumer
// worker that logs what was published
func startEvents(ctx context.Context, cfg config.KafkaConfig, tel *telemetry.Telemetry, st *stores) (*kafka.EventPublisher, *worker.KafkaWorker, error) {
	producer, err := kafka.NewProducer(cfg, tel)
	if err != nil {
		return nil, nil, err
	}
	st.closers = append(st.closers, producer.Close)
	st.deps = append(st.deps, service.Dependency{Name: "kafka", Check: producer.HealthCheck})

	consumer, err := kafka.NewConsumer(cfg, cfg.ConsumerGroup, tel)
	if err != nil {
		return nil, nil, err
	}
	st.closers = append(st.closers, consumer.Close)

	w := worker.NewKafkaWorker(consumer, tel)
	w.Start(ctx)

	return kafka.NewEventPublisher(producer, cfg.Topic, tel), w, nil
}
