package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/gatelog/internal/config"
	"github.com/quocanhngo/gatelog/internal/handler"
	"github.com/quocanhngo/gatelog/internal/middleware"
	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/internal/repository"
	"github.com/quocanhngo/gatelog/internal/service"
	"github.com/quocanhngo/gatelog/internal/ws"
	"github.com/quocanhngo/gatelog/migrations"
	"github.com/quocanhngo/gatelog/pkg/auth"
	"github.com/quocanhngo/gatelog/pkg/logger"
	"github.com/quocanhngo/gatelog/pkg/mailer"
	"github.com/quocanhngo/gatelog/pkg/plate"
	"github.com/quocanhngo/gatelog/pkg/storage"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           Gatelog API
// @version         1.0
// @description     OTP sign-in and vehicle entry logging with live updates over WebSocket.

// @contact.name   Gatelog Support
// @contact.email  support@gatelog.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name token

func main() {
	migrateDown := flag.Bool("migrate-down", false, "roll back the last migration and exit")
	flag.Parse()

	// ==================== Load Config ====================
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	zlog.Info("starting gatelog api", zap.String("env", cfg.App.Env))

	if *migrateDown {
		if err := migrations.Rollback(cfg.DB.URL(), zlog); err != nil {
			zlog.Fatal("rollback failed", zap.Error(err))
		}
		return
	}

	// ==================== Database (PostgreSQL) ====================
	gormLevel := gormlogger.Info
	if cfg.App.IsProduction() {
		gormLevel = gormlogger.Warn
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormLevel),
		TranslateError: true,
	})
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	zlog.Info("connected to postgres")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL(), zlog); err != nil {
		zlog.Warn("migration failed, falling back to gorm automigrate", zap.Error(err))
		if err := db.AutoMigrate(
			&model.User{},
			&model.OTPRecord{},
			&model.Entry{},
			&model.AccessRequest{},
		); err != nil {
			zlog.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rdb.Ping(ctx).Err(); err != nil {
		zlog.Fatal("failed to connect to redis", zap.Error(err))
	}
	zlog.Info("connected to redis", zap.String("addr", cfg.Redis.Addr()))

	// ==================== Object Storage ====================
	store, err := newStorage(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to init storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}

	// ==================== Email (SMTP / Mailpit) ====================
	mailClient, err := mailer.New(mailer.Config{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		Username:   cfg.SMTP.Username,
		Password:   cfg.SMTP.Password,
		Encryption: cfg.SMTP.Encryption,
		From:       cfg.SMTP.From,
		FromName:   cfg.SMTP.FromName,
	}, zlog)
	if err != nil {
		zlog.Fatal("failed to init mailer", zap.Error(err))
	}

	// ==================== Plate Recognition ====================
	var recognizer service.PlateRecognizer
	if cfg.Plate.APIURL != "" {
		recognizer = plate.NewClient(plate.Config{
			URL:        cfg.Plate.APIURL,
			Timeout:    cfg.Plate.Timeout,
			MaxRetries: cfg.Plate.MaxRetries,
		})
	} else {
		zlog.Warn("PLATE_API_URL not set, uploads will be stored as UNKNOWN")
	}

	// ==================== Initialize Layers ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	blacklist := auth.NewRedisBlacklist(rdb)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	accessRepo := repository.NewAccessRequestRepository(db)

	// WebSocket Hub (Redis Pub/Sub fans events out across instances)
	hub := ws.NewHub(rdb, zlog)
	go hub.Run(ctx)

	// Services
	otpService := service.NewOTPService(otpRepo, zlog)
	authService := service.NewAuthService(userRepo, otpService, jwtManager, mailClient, blacklist, zlog)
	entryService := service.NewEntryService(entryRepo, store, recognizer, hub, cfg.Storage.SignedURLTTL, zlog)
	accessService := service.NewAccessService(accessRepo, userRepo, zlog)
	contactService := service.NewContactService(mailClient, cfg.Contact.Recipient, zlog)

	// ==================== Scheduled Jobs ====================
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.OTP.PurgeSchedule, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := otpService.PurgeStale(jobCtx); err != nil {
			zlog.Error("otp purge failed", zap.Error(err))
		}
	}); err != nil {
		zlog.Fatal("invalid OTP_PURGE_SCHEDULE", zap.String("schedule", cfg.OTP.PurgeSchedule), zap.Error(err))
	}
	scheduler.Start()

	publicLimit, err := middleware.RateLimit(cfg.Limit.Public)
	if err != nil {
		zlog.Fatal("invalid RATE_LIMIT_PUBLIC", zap.Error(err))
	}

	// ==================== Gin Router ====================
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	cookie := middleware.CookieOptions{Secure: cfg.App.IsProduction()}
	router := handler.NewRouter(handler.Handlers{
		Auth:          handler.NewAuthHandler(authService, cookie, cfg.JWT.Expiry, zlog),
		Entry:         handler.NewEntryHandler(entryService, zlog),
		Device:        handler.NewDeviceHandler(entryService, zlog),
		AccessRequest: handler.NewAccessRequestHandler(accessService, zlog),
		Contact:       handler.NewContactHandler(contactService),
		WS:            handler.NewWSHandler(hub, cfg.CORS.Origins, zlog),
	}, handler.RouterConfig{
		JWT:         jwtManager,
		Blacklist:   blacklist,
		Cookie:      cookie,
		CORSOrigins: cfg.CORS.Origins,
		DeviceKey:   cfg.Device.APIKey,
		PublicLimit: publicLimit,
		SwaggerJSON: "./docs/swagger.json",
		Logger:      zlog,
	})

	if cfg.Device.APIKey == "" {
		zlog.Warn("DEVICE_API_KEY not set, camera uploads are unauthenticated")
	}

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	zlog.Info("gatelog api listening",
		zap.String("addr", "http://0.0.0.0:"+cfg.App.Port),
		zap.String("docs", "/swagger/index.html"),
		zap.String("ws", "/ws"),
	)

	<-ctx.Done()
	zlog.Info("shutting down server")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	<-scheduler.Stop().Done()
	if err := rdb.Close(); err != nil {
		zlog.Warn("failed to close redis", zap.Error(err))
	}
	zlog.Info("server exited gracefully")
}

// newStorage picks the object store from STORAGE_DRIVER
func newStorage(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case "s3":
		return storage.NewS3(ctx, storage.S3Config{
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			Bucket:       cfg.S3.Bucket,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
	case "minio", "":
		return storage.NewMinIO(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		}, zlog)
	default:
		return nil, errors.New("unknown storage driver " + cfg.Storage.Driver)
	}
}
