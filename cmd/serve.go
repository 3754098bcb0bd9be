package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/seand52/socialDev/internal/api"
	"github.com/seand52/socialDev/internal/auth"
	"github.com/seand52/socialDev/internal/config"
	"github.com/seand52/socialDev/internal/db"
	"github.com/seand52/socialDev/internal/events"
	"github.com/seand52/socialDev/internal/jobs"
	"github.com/seand52/socialDev/internal/repository"
	"github.com/seand52/socialDev/internal/service"
	"github.com/seand52/socialDev/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not migrate the database on startup")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewConfig(envFile)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting application", zap.String("version", version))

	if !skipMigrations {
		if err = db.Migrate(ctx, cfg.Postgres); err != nil {
			log.Error("failed to migrate database", zap.Error(err))
			return err
		}
	}

	pool, err := db.OpenPool(ctx, cfg.Postgres)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		return err
	}
	defer pool.Close()

	log.Info("database connection established")

	redisClient, err := events.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", zap.Error(err))
		return err
	}
	defer func() { _ = redisClient.Close() }()

	transactor := db.NewPgxTransactor(pool)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	userRepo := repository.NewPgxUserRepository(pool)
	projectRepo := repository.NewPgxProjectRepository(pool)
	collaboratorRepo := repository.NewPgxCollaboratorRepository(pool)
	savedRepo := repository.NewPgxSavedProjectRepository(pool)
	meetingRepo := repository.NewPgxMeetingRepository(pool)
	conversationRepo := repository.NewPgxConversationRepository(pool)

	user := service.NewUserService(transactor).
		WithUserRepo(userRepo).
		WithSavedProjectRepo(savedRepo).
		WithTokenIssuer(tokens)
	project := service.NewProjectService(transactor).
		WithUserRepo(userRepo).
		WithProjectRepo(projectRepo).
		WithCollaboratorRepo(collaboratorRepo).
		WithSavedProjectRepo(savedRepo).
		WithMeetingRepo(meetingRepo)
	meeting := service.NewMeetingService(transactor).
		WithUserRepo(userRepo).
		WithProjectRepo(projectRepo).
		WithMeetingRepo(meetingRepo)
	message := service.NewMessageService(transactor).
		WithUserRepo(userRepo).
		WithConversationRepo(conversationRepo).
		WithPublisher(events.NewRedisPublisher(redisClient))

	scheduler := jobs.NewScheduler(log, cfg.Postgres.QueryTimeout)
	if err = scheduler.AddMeetingPruning(cfg.Jobs.MeetingPruneSchedule, cfg.Jobs.MeetingRetention, meeting); err != nil {
		log.Error("failed to schedule jobs", zap.Error(err))
		return err
	}
	scheduler.Start()

	healthChecker, err := api.NewHealthChecker(version,
		api.PingCheck("postgres", cfg.Postgres.QueryTimeout, pool),
		api.PingCheck("redis", cfg.Postgres.QueryTimeout, api.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})),
	)
	if err != nil {
		log.Error("failed to create health checker", zap.Error(err))
		return err
	}

	e := echo.New()
	e.HideBanner = true

	handler := api.NewHandler(log).
		WithHealthChecker(healthChecker).
		WithMetrics(api.NewMetrics()).
		WithTokenVerifier(tokens).
		WithRequestTimeout(cfg.HTTP.RequestTimeout).
		WithAuthRateLimit(cfg.HTTP.AuthRateLimit, cfg.HTTP.AuthRateBurst).
		WithUserService(user).
		WithProjectService(project).
		WithMeetingService(meeting).
		WithMessageService(message)

	handler.RegisterRoutes(e)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", cfg.ServerAddr()))
		if err := e.Start(cfg.ServerAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errCh:
		if err != nil {
			log.Error("server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if serr := e.Shutdown(shutdownCtx); serr != nil {
		log.Error("failed to shut down server", zap.Error(serr))
	}

	return err
}
