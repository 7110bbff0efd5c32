package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"taskStream/internal/broadcast"
	"taskStream/internal/config"
	"taskStream/internal/handlers"
	"taskStream/internal/logger"
	"taskStream/internal/middleware"
	"taskStream/internal/repository/task/inmemory"
	"taskStream/internal/repository/task/postgres"
	"taskStream/internal/repository/task/sqlite"
	"taskStream/internal/service"
	"taskStream/internal/worker"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config     *config.Config
	server     *http.Server
	router     *chi.Mux
	repository service.TaskRepository // интерфейс!
	service    *service.TaskService
	hub        *broadcast.Hub
	dispatcher *worker.Dispatcher
	redis      *redis.Client
	shutdowns  []func() // функции для graceful shutdown

	group  *errgroup.Group
	cancel context.CancelFunc
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

// Init собирает зависимости: логгер, хранилище, публикацию событий, сервис и роутер
func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}

	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.initRepository(ctx); err != nil {
		a.runShutdowns()
		return nil, err
	}

	if err := a.initBroadcast(ctx); err != nil {
		a.runShutdowns()
		return nil, err
	}

	a.service = service.NewTaskService(a.repository, a.dispatcher)
	a.initRouter()

	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           otelhttp.NewHandler(a.router, "task-stream"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// потоки SSE не завершаются сами, закрываем их при начале остановки сервера
	a.server.RegisterOnShutdown(a.hub.Close)

	logger.Info("App: Инициализация завершена",
		zap.String("repository", a.config.Repository.Type),
		zap.String("broadcast", a.config.Broadcast.Driver),
		zap.String("addr", a.server.Addr))

	return a, nil
}

func (a *App) initRepository(ctx context.Context) error {
	cfg := a.config

	switch cfg.Repository.Type {
	case config.RepositoryPostgres:
		if err := postgres.Migrate(cfg.Database.URL); err != nil {
			return fmt.Errorf("миграции postgres: %w", err)
		}
		storage, err := postgres.New(ctx, cfg.Database.URL, postgres.PoolConfig{
			MaxConns:        int32(cfg.Database.MaxConnections),
			MinConns:        int32(cfg.Database.MinConnections),
			MaxConnIdleTime: cfg.Database.IdleTimeout,
		})
		if err != nil {
			return fmt.Errorf("подключение к postgres: %w", err)
		}
		a.repository = storage
		a.shutdowns = append(a.shutdowns, storage.Close)

	case config.RepositorySQLite:
		storage, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return fmt.Errorf("открытие sqlite: %w", err)
		}
		a.repository = storage
		a.shutdowns = append(a.shutdowns, func() {
			if err := storage.Close(); err != nil {
				logger.Error("App: Ошибка закрытия SQLite", err)
			}
		})

	default:
		a.repository = inmemory.NewTaskStorage()
	}

	logger.Info("App: Хранилище задач готово", zap.String("type", cfg.Repository.Type))
	return nil
}

// initBroadcast строит цепочку публикации: драйвер -> фоновый диспетчер -> сервис.
// Хаб для SSE есть всегда, но события в нём появляются только у драйверов local и redis.
func (a *App) initBroadcast(ctx context.Context) error {
	cfg := a.config.Broadcast
	a.hub = broadcast.NewHub(0)

	var driver broadcast.Publisher
	switch cfg.Driver {
	case config.DriverRedis:
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			_ = a.redis.Close()
			return fmt.Errorf("подключение к redis %s: %w", cfg.RedisAddr, err)
		}
		rc := a.redis
		a.shutdowns = append(a.shutdowns, func() {
			if err := rc.Close(); err != nil {
				logger.Error("App: Ошибка закрытия Redis", err)
			}
		})
		driver = broadcast.NewRedisPublisher(a.redis)
	case config.DriverLog:
		driver = broadcast.LogPublisher{}
	case config.DriverNull:
		driver = broadcast.NopPublisher{}
	default:
		driver = a.hub
	}

	a.dispatcher = worker.NewDispatcher(driver, cfg.QueueSize, cfg.Workers)
	return nil
}

func (a *App) initRouter() {
	h := handlers.NewTaskHandler(a.service, a.hub)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RateLimit(a.config.HTTP.RateLimitRPM))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.config.HTTP.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Mount("/tasks", h.Routes())
	r.Get("/health", h.HealthCheck)

	a.router = r
}

// Handler - корневой обработчик без обёртки трассировки
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) Service() *service.TaskService {
	return a.service
}

// Start запускает HTTP сервер, диспетчер событий и ретранслятор Redis в фоне
func (a *App) Start() error {
	if a.server == nil {
		return errors.New("приложение не инициализировано")
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	a.group = g

	g.Go(func() error {
		logger.Info("App: HTTP сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.dispatcher.Run(gctx)
	})

	if a.redis != nil {
		g.Go(func() error {
			return broadcast.Relay(gctx, a.redis, broadcast.ChannelTasks, a.hub)
		})
	}

	return nil
}

// StartBackground запускает только фоновые части без HTTP сервера
func (a *App) StartBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	a.group = g

	g.Go(func() error {
		return a.dispatcher.Run(gctx)
	})
}

// Wait блокируется до завершения фоновых задач и возвращает первую ошибку
func (a *App) Wait() error {
	if a.group == nil {
		return nil
	}
	return a.group.Wait()
}

// Stop останавливает компоненты в обратном порядке: сервер, фоновые задачи, ресурсы
func (a *App) Stop(ctx context.Context) error {
	logger.Info("App: Остановка приложения")

	var errs []error
	if a.server != nil && a.group != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("остановка http сервера: %w", err))
		}
	}

	if a.cancel != nil {
		a.cancel()
	}
	if err := a.Wait(); err != nil {
		errs = append(errs, err)
	}

	if a.hub != nil {
		a.hub.Close()
	}
	a.runShutdowns()
	return errors.Join(errs...)
}

func (a *App) runShutdowns() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}
