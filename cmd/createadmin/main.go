// Command createadmin bootstraps the first admin account. Later staff
// accounts are created through POST /v1/admin/staff.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/edu-platform/internal/auth"
	"github.com/iliyamo/edu-platform/internal/config"
	"github.com/iliyamo/edu-platform/internal/database"
	"github.com/iliyamo/edu-platform/internal/mail"
	"github.com/iliyamo/edu-platform/internal/model"
	"github.com/iliyamo/edu-platform/internal/repository"
)

func main() {
	name := flag.String("name", "Administrator", "display name")
	email := flag.String("email", "", "login email (required)")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "password, defaults to $ADMIN_PASSWORD")
	kind := flag.String("role", string(model.KindAdmin), "admin or teacher")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	svc := auth.NewService(auth.Config{
		Secret:     cfg.JWTSecret,
		BcryptCost: cfg.BcryptCost,
	}, repository.NewAccountRepo(db), repository.NewTokenRepo(db),
		repository.NewBlacklistStore(rdb, cfg.Session.RedisPrefix),
		repository.NewResetCodeStore(rdb, cfg.Session.RedisPrefix).WithMaxAttempts(cfg.Session.ResetAttempts),
		mail.NewMailer(cfg.Mail))

	a, err := svc.CreateStaff(ctx, auth.StaffInput{Kind: *kind, Name: *name, Email: *email, Password: *password})
	if err != nil {
		log.Fatalf("create %s: %v", *kind, err)
	}
	log.Infof("created %s %s (id=%d, code=%s)", a.Kind, a.Email, a.ID, a.UniqueCode)
}
