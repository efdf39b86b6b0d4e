// Command entfiles serves the course file API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/entfiles/internal/api/handlers"
	"github.com/koustreak/entfiles/internal/auth"
	"github.com/koustreak/entfiles/internal/config"
	"github.com/koustreak/entfiles/internal/database"
	"github.com/koustreak/entfiles/internal/database/mysql"
	"github.com/koustreak/entfiles/internal/database/postgres"
	"github.com/koustreak/entfiles/internal/filestore"
	"github.com/koustreak/entfiles/internal/filestore/memory"
	"github.com/koustreak/entfiles/internal/filestore/minio"
	"github.com/koustreak/entfiles/internal/logger"
	"github.com/koustreak/entfiles/internal/repository"
	"github.com/koustreak/entfiles/internal/server"
	"github.com/koustreak/entfiles/internal/service"
)

func main() {
	configFile := flag.String("config", os.Getenv("ENTFILES_CONFIG"), "path to a YAML config file")
	envFile := flag.String("env-file", "", "path to a dotenv file (default .env when present)")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.With().
		Str("version", config.Version).
		Int("port", cfg.Server.Port).
		Str("database", string(cfg.Database.Driver)).
		Str("storage", string(cfg.Storage.Provider)).
		Logger().
		Info("entfiles starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.ErrorWith("entfiles stopped with error", err, nil)
		os.Exit(1)
	}
	log.Info("entfiles stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	db, err := openDatabase(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info("database schema ready")

	store, err := openStore(ctx, &cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureBucket(ctx, cfg.Storage.Bucket); err != nil {
		return err
	}
	log.With().Str("bucket", cfg.Storage.Bucket).Logger().Info("bucket ready")

	gate, err := auth.NewGate(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	users := repository.NewUsers(db, cfg.Database.QueryTimeout)
	files := repository.NewFiles(db, cfg.Database.QueryTimeout)
	opts := service.Options{
		Bucket:       cfg.Storage.Bucket,
		SignedURLTTL: cfg.Upload.SignedURLTTL,
		StagingDir:   cfg.Upload.StagingDir,
	}

	api := handlers.NewAPIHandler(
		service.NewAuthService(users, hasher, gate, log),
		service.NewUploadService(store, files, opts, log),
		service.NewFileService(store, files, opts, log),
		int64(cfg.Upload.MaxSize),
		log,
	)
	health := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"database": db,
		"schema":   repository.NewSchemaCheck(db),
		"storage":  store,
	}, 0)

	router := server.NewRouter(server.Routes{
		API:         api,
		Health:      health,
		Gate:        gate,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, log)

	return server.New(cfg, router, log).Run(ctx)
}

func openDatabase(ctx context.Context, cfg *database.Config) (database.DB, error) {
	switch cfg.Driver {
	case database.DriverMySQL:
		return mysql.New(ctx, cfg)
	case database.DriverPostgres:
		return postgres.New(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openStore(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
	switch cfg.Provider {
	case filestore.ProviderMinIO:
		return minio.New(ctx, cfg)
	case filestore.ProviderMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported storage provider %q", cfg.Provider)
	}
}
