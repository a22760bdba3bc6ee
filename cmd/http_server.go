package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/audit"
	auditPostgres "github.com/frahmantamala/gameserver-admin/internal/audit/postgres"
	"github.com/frahmantamala/gameserver-admin/internal/auth"
	authPostgres "github.com/frahmantamala/gameserver-admin/internal/auth/postgres"
	"github.com/frahmantamala/gameserver-admin/internal/backup"
	backupPostgres "github.com/frahmantamala/gameserver-admin/internal/backup/postgres"
	"github.com/frahmantamala/gameserver-admin/internal/broadcast"
	"github.com/frahmantamala/gameserver-admin/internal/core/events"
	"github.com/frahmantamala/gameserver-admin/internal/database"
	"github.com/frahmantamala/gameserver-admin/internal/gameconfig"
	"github.com/frahmantamala/gameserver-admin/internal/hoststats"
	"github.com/frahmantamala/gameserver-admin/internal/identity"
	"github.com/frahmantamala/gameserver-admin/internal/notify"
	notifyPostgres "github.com/frahmantamala/gameserver-admin/internal/notify/postgres"
	"github.com/frahmantamala/gameserver-admin/internal/storage"
	"github.com/frahmantamala/gameserver-admin/internal/supervisor"
	"github.com/frahmantamala/gameserver-admin/internal/transport"
	"github.com/frahmantamala/gameserver-admin/internal/transport/middleware"
	"github.com/frahmantamala/gameserver-admin/internal/transport/rest"
	"github.com/frahmantamala/gameserver-admin/internal/user"
	userPostgres "github.com/frahmantamala/gameserver-admin/internal/user/postgres"
	"github.com/frahmantamala/gameserver-admin/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

// sessionPurgeInterval is how often expired sessions are deleted.
const sessionPurgeInterval = time.Hour

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP API, the status stream and the webhook delivery pool`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *database.DB
	Router   *chi.Mux
	Logger   *slog.Logger
	Pool     *notify.Pool
	Bus      *events.EventBus
	Auth     *auth.Service
	Users    *user.Service
	Handlers rest.Handlers
}

func startHTTPServer() {
	cfg, err := loadConfig(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	setupLogger(cfg)

	deps, err := initializeDependencies(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	lg := deps.Logger

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if err := bootstrapOwner(ctx, deps); err != nil {
		lg.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	go purgeSessions(ctx, deps.Auth, lg)

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	lg.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down...", "signal", sig)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error("Server shutdown error", "error", err)
	}
	if err := deps.Bus.Wait(shutdownCtx); err != nil {
		lg.Warn("Event handlers still running at shutdown", "error", err)
	}
	deps.Pool.Shutdown()
	if err := deps.DB.Close(); err != nil {
		lg.Error("Database close error", "error", err)
	}

	lg.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	rest.RegisterAllRoutes(deps.Router, deps.Handlers, middleware.SplitOrigins(deps.Config.Server.AllowedOrigins), deps.Logger)
}

func initializeDependencies(cfg *internal.Config) (*Dependencies, error) {
	lg := logger.LoggerWrapper()
	ctx := context.Background()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.Migrate(ctx, db, false); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	base := transport.NewBaseHandler(lg)
	bus := events.NewEventBus(lg)

	// audit
	auditService := audit.NewService(auditPostgres.NewAuditRepository(db.Gorm, db.SQLX), lg)

	// notifications
	pool := notify.NewPool(notify.PoolConfig{
		Workers:   cfg.Notify.Workers,
		QueueSize: cfg.Notify.QueueSize,
		Timeout:   cfg.Notify.Timeout,
	}, nil, lg)
	webhookRepo := notifyPostgres.NewWebhookRepository(db.Gorm)
	notify.NewDispatcher(webhookRepo, webhookRepo, pool, notify.Style{
		ThumbnailURL: cfg.Notify.ThumbnailURL,
		FooterText:   cfg.Notify.FooterText,
	}, lg).Register(bus)
	notifyService := notify.NewService(webhookRepo, auditService, lg)

	// operators and sessions
	authRepo := authPostgres.NewRepository(db.Gorm)
	authService := auth.NewService(authRepo, authRepo, auditService, cfg.Security.SessionTTL, lg)
	tickets, err := auth.NewTicketIssuer(cfg.Security.StreamSecret, cfg.Security.StreamTicketTTL)
	if err != nil {
		return nil, err
	}
	if cfg.Security.StreamSecret == "" {
		lg.Warn("stream_secret not set, stream tickets will not survive a restart")
	}
	resolver := identity.NewResolver(cfg.Notify.Identity.APIBase, cfg.Notify.Identity.BotToken, cfg.Notify.Timeout, lg)
	userService := user.NewService(userPostgres.NewUserRepository(db.Gorm), authService, resolver, auditService, cfg.Security.BCryptCost, lg)

	// game server
	sup, err := newSupervisor(cfg.Game, auditService, bus, lg)
	if err != nil {
		return nil, err
	}
	var host supervisor.HostCollector
	if collector, err := hoststats.NewCollector("", "/"); err != nil {
		lg.Warn("host metrics disabled", "error", err)
	} else {
		host = collector
	}
	reporter := supervisor.NewReporter(sup, host, lg)
	configService := gameconfig.NewService(cfg.Game.ConfigFile, auditService, lg)

	// backups
	var mirror backup.Mirror
	if cfg.Backup.Mirror.Enabled {
		m, err := newBackupMirror(ctx, cfg.Backup.Mirror, lg)
		if err != nil {
			return nil, err
		}
		mirror = m
	}
	backupService := backup.NewService(backup.Config{
		BackupDir: cfg.Backup.Dir,
		SavesDir:  cfg.Game.SavesDir,
	}, backupPostgres.NewBackupRepository(db.Gorm), sup, mirror, auditService, bus, lg)

	stream := broadcast.New(base, reporter, tickets, cfg.Status.Interval, middleware.SplitOrigins(cfg.Server.AllowedOrigins))

	return &Dependencies{
		Config: cfg,
		DB:     db,
		Router: chi.NewRouter(),
		Logger: lg,
		Pool:   pool,
		Bus:    bus,
		Auth:   authService,
		Users:  userService,
		Handlers: rest.Handlers{
			Health:     rest.NewHealthHandler(db.SQLX, db.Dialect),
			Auth:       auth.NewHandler(base, authService, tickets, cfg.Security.CookieSecure),
			RBAC:       auth.NewRBACAuthorization(lg),
			User:       user.NewHandler(base, userService),
			Supervisor: supervisor.NewHandler(base, sup, reporter),
			Config:     gameconfig.NewHandler(base, configService),
			Backup:     backup.NewHandler(base, backupService),
			Audit:      audit.NewHandler(base, auditService),
			Webhook:    notify.NewHandler(base, notifyService),
			Stream:     stream,
		},
	}, nil
}

func newSupervisor(game internal.GameConfig, recorder audit.Recorder, bus *events.EventBus, lg *slog.Logger) (*supervisor.Supervisor, error) {
	probe, err := supervisor.NewProcProbe("", game.Signature)
	if err != nil {
		return nil, fmt.Errorf("failed to open process table: %w", err)
	}

	// Without a launcher the executable is run directly from the server dir.
	command, args := game.Launcher, append([]string{game.Executable}, game.Args...)
	if command == "" {
		command, args = filepath.Join(game.Dir, game.Executable), game.Args
	}
	launcher := &supervisor.ExecLauncher{
		Dir:     game.Dir,
		Command: command,
		Args:    args,
		Env:     game.Env,
		LogFile: game.LogFile,
		Logger:  lg,
	}

	return supervisor.New(supervisor.ConfigFromGame(game), probe, launcher, supervisor.SignalTerminator{}, recorder, bus, lg), nil
}

func newBackupMirror(ctx context.Context, cfg internal.MirrorConfig, lg *slog.Logger) (*storage.Mirror, error) {
	client, err := storage.NewMinioClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure backup mirror: %w", err)
	}

	// An unreachable bucket at startup is not fatal; uploads log their own failures.
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.EnsureBucket(ctx); err != nil {
		lg.Warn("backup mirror bucket check failed", "bucket", cfg.Bucket, "error", err)
	}
	lg.Info("backup mirror enabled", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return storage.NewMirror(client, cfg.Prefix, lg), nil
}

func bootstrapOwner(ctx context.Context, deps *Dependencies) error {
	result, err := deps.Users.Bootstrap(ctx, deps.Config.Bootstrap.Username, deps.Config.Bootstrap.Password)
	if err != nil {
		return err
	}
	if result.GeneratedPassword != "" {
		// stderr only, never the log sink
		fmt.Fprintf(os.Stderr, "\n  initial owner %q created with password: %s\n  change it after the first login\n\n",
			result.Username, result.GeneratedPassword)
	}
	return nil
}

func purgeSessions(ctx context.Context, svc *auth.Service, lg *slog.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpired(ctx)
			if err != nil {
				lg.Warn("session purge failed", "error", err)
				continue
			}
			if n > 0 {
				lg.Info("expired sessions purged", "count", n)
			}
		}
	}
}
