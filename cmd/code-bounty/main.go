package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"

	"code-bounty/internal/client"
	"code-bounty/internal/config"
	"code-bounty/internal/handlers"
	"code-bounty/internal/identity"
	"code-bounty/internal/log"
	"code-bounty/internal/scheduler"
	"code-bounty/internal/services"
	"code-bounty/internal/store"
	"code-bounty/internal/ui"
)

// dispatchGrace lets the worker time out before Cloud Tasks abandons the attempt.
const dispatchGrace = 30 * time.Second

// App holds the process-wide backends and the resources that need closing.
type App struct {
	config    *config.Config
	store     store.Store
	identity  *identity.Provider
	jobs      *handlers.JobProcessor
	queue     services.JobQueue
	scheduler *scheduler.Scheduler
	closers   []func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Setup(os.Stdout, cfg.LogLevel, cfg.GinMode == gin.ReleaseMode)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	app, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to start application", "component", "startup", "error", err)
		os.Exit(1)
	}
	defer app.close()

	router := handlers.NewRouter(handlers.RouterConfig{
		Deps: client.Deps{
			Store:    app.store,
			Identity: app.identity,
			Queue:    app.queue,
		},
		Jobs:             app.jobs,
		CloudTasksSecret: cfg.CloudTasksSecret,
	})

	slog.Info("Starting server", "component", "server", "port", cfg.Port, "data_backend", cfg.DataBackend)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "component", "server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...", "component", "server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "component", "server", "error", err)
	}
	if inline, ok := app.queue.(*services.InlineQueue); ok {
		inline.Wait()
	}

	slog.Info("Server exited gracefully", "component", "server")
}

func newApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{config: cfg}

	if err := app.initStore(ctx); err != nil {
		app.close()
		return nil, err
	}
	if err := app.initIdentity(ctx); err != nil {
		app.close()
		return nil, err
	}
	if err := app.initJobs(ctx); err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func (app *App) initStore(ctx context.Context) error {
	cfg := app.config
	if cfg.DataBackend == config.BackendMemory {
		slog.Warn("Using in-memory data backend; data is lost on restart")
		app.store = store.NewMemoryStore()
		return nil
	}

	slog.Info("Connecting to Firestore", "project_id", cfg.FirestoreProjectID, "database_id", cfg.FirestoreDatabaseID)
	firestoreClient, err := firestore.NewClientWithDatabase(ctx, cfg.FirestoreProjectID, cfg.FirestoreDatabaseID)
	if err != nil {
		return fmt.Errorf("failed to create Firestore client: %w", err)
	}
	app.closers = append(app.closers, firestoreClient.Close)
	app.store = services.NewFirestoreService(firestoreClient)
	return nil
}

func (app *App) initIdentity(ctx context.Context) error {
	cfg := app.config

	tokens, err := identity.NewTokenIssuer(cfg.AuthTokenSecret, cfg.AuthTokenIssuer, cfg.AuthTokenTTL)
	if err != nil {
		return err
	}

	var (
		limiter identity.AttemptLimiter
		revoker identity.Revoker
		pruners = map[string]scheduler.Pruner{}
	)
	if cfg.RedisURL != "" {
		rdb, err := identity.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, rdb.Close)
		limiter = identity.NewRedisLimiter(rdb, cfg.SignInMaxFailures, cfg.SignInFailureWindow)
		revoker = identity.NewRedisRevoker(rdb)
		slog.Info("Using Redis for sign-in limits and token revocation")
	} else {
		memLimiter := identity.NewMemoryLimiter(cfg.SignInMaxFailures, cfg.SignInFailureWindow)
		memRevoker := identity.NewMemoryRevoker()
		limiter, revoker = memLimiter, memRevoker
		pruners["signin_limiter"] = memLimiter
		pruners["token_revocations"] = memRevoker
	}

	if len(pruners) > 0 {
		sched, err := scheduler.New(cfg.RevocationPrunePeriod, pruners)
		if err != nil {
			return err
		}
		sched.Start()
		app.scheduler = sched
		app.closers = append(app.closers, sched.Shutdown)
	}

	app.identity = identity.NewProvider(
		app.store,
		identity.NewPasswordHasher(cfg.BcryptCost),
		tokens,
		limiter,
		revoker,
		identity.ProviderConfig{MinPasswordLength: cfg.MinPasswordLength},
	)
	return nil
}

func (app *App) initJobs(ctx context.Context) error {
	cfg := app.config

	var announcer services.BountyAnnouncer
	if cfg.SlackEnabled() {
		announcer = services.NewSlackService(
			slack.New(cfg.SlackBotToken),
			cfg.SlackBountyChannel,
			ui.NewBountyMessageBuilder(cfg.PublicBaseURL),
		)
	}
	jobService := services.NewJobService(app.store, announcer, services.NewGitHubService(cfg.GitHubToken))
	app.jobs = handlers.NewJobProcessor(jobService, cfg.CloudTasksMaxAttempts, cfg.JobProcessingTimeout)

	if !cfg.EnableAsyncProcessing {
		app.queue = services.NewInlineQueue(app.jobs, cfg.JobProcessingTimeout)
		return nil
	}

	cloudTasks, err := services.NewCloudTasksService(ctx, services.CloudTasksConfig{
		ProjectID:        cfg.GoogleCloudProject,
		Location:         cfg.GCPRegion,
		QueueName:        cfg.CloudTasksQueue,
		WorkerURL:        cfg.JobWorkerURL,
		Secret:           cfg.CloudTasksSecret,
		DispatchDeadline: cfg.JobProcessingTimeout + dispatchGrace,
	})
	if err != nil {
		return err
	}
	app.closers = append(app.closers, cloudTasks.Close)
	app.queue = cloudTasks
	return nil
}

// close releases resources in reverse order of acquisition.
func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			slog.Error("Error during shutdown", "component", "shutdown", "error", err)
		}
	}
	app.closers = nil
}
