package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/AryanC19/Greeno-BE/internal/config"
	"github.com/AryanC19/Greeno-BE/internal/domain/assistant"
	"github.com/AryanC19/Greeno-BE/internal/domain/careplan"
	"github.com/AryanC19/Greeno-BE/internal/domain/doctor"
	"github.com/AryanC19/Greeno-BE/internal/extract"
	"github.com/AryanC19/Greeno-BE/internal/platform/blobstore"
	"github.com/AryanC19/Greeno-BE/internal/platform/db"
	"github.com/AryanC19/Greeno-BE/internal/platform/llm"
	"github.com/AryanC19/Greeno-BE/internal/platform/middleware"
	"github.com/AryanC19/Greeno-BE/internal/platform/mongodb"
	"github.com/AryanC19/Greeno-BE/internal/platform/notification"
	"github.com/AryanC19/Greeno-BE/internal/platform/pdftext"
	"github.com/AryanC19/Greeno-BE/internal/platform/telemetry"
	"github.com/AryanC19/Greeno-BE/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "careplan-server",
		Short: "Care plan API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(parseCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the care plan API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrationFS(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	return migrations.FS
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run PostgreSQL migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrationFS(dir)).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationFS(dir)).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%03d  %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(statusCmd)
	return cmd
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Extract a care plan from a PDF (or .txt) file and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patient, _ := cmd.Flags().GetString("patient")
			return parseFile(cmd.Context(), args[0], patient, cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("patient", "1", "Patient id the extracted plan is bound to")
	return cmd
}

func parseFile(ctx context.Context, path, patientID string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var pages pdftext.PageExtractor = pdftext.New()
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		pages = pdftext.Static{string(content)}
	}

	cp, err := extract.NewBuilder(pages).Extract(ctx, content, patientID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(cp)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	var out io.Writer = os.Stdout
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	if cfg.LogFile != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		})
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// stores holds the repositories selected by STORE_DRIVER.
type stores struct {
	plans   careplan.Repository
	doctors doctor.Repository
	health  map[string]echo.HandlerFunc
	close   func()
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		logger.Info().Msg("connected to postgres")
		return postgresStores(pool), nil

	case config.StoreMongo:
		database, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := careplan.EnsureCarePlanIndexes(ctx, database); err != nil {
			return nil, fmt.Errorf("care plan indexes: %w", err)
		}
		if err := doctor.EnsureDoctorIndexes(ctx, database); err != nil {
			return nil, fmt.Errorf("doctor indexes: %w", err)
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongodb")
		return mongoStores(database), nil

	default:
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		return &stores{
			plans:   careplan.NewMemoryRepo(),
			doctors: doctor.NewMemoryRepo(),
			health:  map[string]echo.HandlerFunc{},
			close:   func() {},
		}, nil
	}
}

func postgresStores(pool *pgxpool.Pool) *stores {
	return &stores{
		plans:   careplan.NewPGRepo(pool),
		doctors: doctor.NewPGRepo(pool),
		health:  map[string]echo.HandlerFunc{"/health/db": db.HealthHandler(pool)},
		close:   pool.Close,
	}
}

func mongoStores(database *mongo.Database) *stores {
	return &stores{
		plans:   careplan.NewMongoRepo(database),
		doctors: doctor.NewMongoRepo(database),
		health:  map[string]echo.HandlerFunc{"/health/mongo": mongodb.HealthHandler(database)},
		close: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongodb.Disconnect(ctx, database)
		},
	}
}

type app struct {
	echo     *echo.Echo
	notifier *careplan.ReminderNotifier
}

func newApp(cfg *config.Config, logger zerolog.Logger, st *stores) (*app, error) {
	// Notifications
	senders := []notification.Sender{notification.NewLogSender(logger)}
	if cfg.ReminderWebhookURL != "" {
		wh, err := notification.NewWebhookSender(cfg.ReminderWebhookURL, cfg.ReminderWebhookSecret)
		if err != nil {
			return nil, fmt.Errorf("reminder webhook: %w", err)
		}
		senders = append(senders, wh)
	}
	notifications := notification.NewManager(notification.NewTemplateEngine(), senders...)

	// Source documents
	var blobs blobstore.Store = blobstore.NewInMemoryStore()
	if cfg.BlobDir != "" {
		disk, err := blobstore.NewDiskStore(cfg.BlobDir)
		if err != nil {
			return nil, fmt.Errorf("blob store: %w", err)
		}
		blobs = disk
	}

	doctorSvc := doctor.NewService(st.doctors)
	planSvc := careplan.NewService(st.plans, extract.NewBuilder(pdftext.New()),
		careplan.WithBlobStore(blobs),
		careplan.WithSlotFinder(doctorSvc, cfg.AutoAssignSlots),
		careplan.WithNotifier(notifications),
		careplan.WithLogger(logger),
	)

	var (
		classifier assistant.Classifier = assistant.OfflineClassifier{}
		answerer   assistant.Answerer   = assistant.StaticAnswerer{}
	)
	if cfg.LLMEnabled() {
		client := llm.New(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
		classifier = assistant.NewLLMClassifier(client)
		answerer = assistant.NewLLMAnswerer(client)
	} else {
		logger.Warn().Msg("LLM_API_KEY not set, chat runs without a language model")
	}
	chatSvc := assistant.NewService(planSvc,
		assistant.NewResolver(classifier, logger),
		assistant.NewDispatcher(planSvc, logger),
		answerer,
		logger,
	)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	metrics := telemetry.New()
	e.Use(middleware.Recovery(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader, middleware.PatientIDHeader},
	}))
	e.Use(middleware.BodyLimit("1M", cfg.UploadLimit))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"store":   cfg.StoreDriver,
		})
	})
	for path, h := range st.health {
		e.GET(path, h)
	}
	e.GET("/metrics", metrics.Handler())

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.PatientScope(cfg.DefaultPatientID))
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	careplan.NewHandler(planSvc).RegisterRoutes(apiV1)
	doctor.NewHandler(doctorSvc).RegisterRoutes(apiV1)
	assistant.NewHandler(chatSvc).RegisterRoutes(apiV1)
	notification.NewHandler(notifications).RegisterRoutes(apiV1)

	notifier := careplan.NewReminderNotifier(planSvc, notifications, cfg.DefaultPatientID, cfg.ReminderInterval, logger)
	return &app{echo: e, notifier: notifier}, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Env,
			Release:     "careplan-server@" + version,
		}); err != nil {
			logger.Error().Err(err).Msg("sentry init failed")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.close()

	a, err := newApp(cfg, logger, st)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	go a.notifier.Run(ctx)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := a.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
