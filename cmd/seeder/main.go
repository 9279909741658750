package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/quocanhngo/gatelog/internal/config"
	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/internal/repository"
	"github.com/quocanhngo/gatelog/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Sign-in is OTP only and requires an existing account, so the first
// admin has to be created out of band.
func main() {
	email := flag.String("email", "admin@gatelog.local", "admin email")
	name := flag.String("name", "Gate Admin", "admin full name")
	demo := flag.Bool("demo", false, "also create one operator and one viewer")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	zlog, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}

	users := repository.NewUserRepository(db)
	ctx := context.Background()

	seeds := []model.User{{FullName: *name, Email: *email, Role: model.RoleAdmin}}
	if *demo {
		seeds = append(seeds,
			model.User{FullName: "Gate Operator", Email: "operator@gatelog.local", Role: model.RoleOperator},
			model.User{FullName: "Gate Viewer", Email: "viewer@gatelog.local", Role: model.RoleViewer},
		)
	}

	for i := range seeds {
		u := &seeds[i]
		if err := users.Create(ctx, u); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				zlog.Info("user already exists", zap.String("email", u.Email))
				continue
			}
			zlog.Fatal("failed to create user", zap.String("email", u.Email), zap.Error(err))
		}
		zlog.Info("created user", zap.String("email", u.Email), zap.String("role", string(u.Role)))
	}

	fmt.Println("seeding completed, sign in with an OTP sent to", model.NormalizeEmail(*email))
}
