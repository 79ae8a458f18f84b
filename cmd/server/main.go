package main // entry point for the consultation booking server

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/iliyamo/consultation-booking/internal/booking"
	"github.com/iliyamo/consultation-booking/internal/config"
	"github.com/iliyamo/consultation-booking/internal/database"
	"github.com/iliyamo/consultation-booking/internal/handler"
	"github.com/iliyamo/consultation-booking/internal/logger"
	"github.com/iliyamo/consultation-booking/internal/metrics"
	"github.com/iliyamo/consultation-booking/internal/queue"
	"github.com/iliyamo/consultation-booking/internal/repository"
	"github.com/iliyamo/consultation-booking/internal/router"
	"github.com/iliyamo/consultation-booking/internal/scheduler"
	"github.com/iliyamo/consultation-booking/internal/session"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	zlog := logger.New(cfg.Env)
	defer func() { _ = zlog.Sync() }()

	db, err := database.Open(database.DSN(cfg.DSNParams()))
	if err != nil {
		zlog.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		zlog.Fatal("database migration failed", zap.Error(err))
	}

	// Redis is optional: without it the rate limiter and the response
	// cache become pass-throughs.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	timetable := repository.NewTimetableRepo(db)
	credits := repository.NewCreditRepo(db)
	chats := repository.NewChatRepo(db)
	messages := repository.NewMessageRepo(db)
	reviews := repository.NewReviewRepo(db)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	bookingSvc := booking.NewService(booking.NewStore(timetable, credits), zlog, collector)
	gatekeeper := session.NewGatekeeper(timetable, chats, messages, reviews, zlog, collector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shiftScheduler := scheduler.NewScheduler(timetable, zlog)
	shiftScheduler.Start(ctx)
	defer shiftScheduler.Stop()

	go queue.StartConsumer(zlog)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, users, tokens),
		Timetable: handler.NewTimetableHandler(users, bookingSvc),
		Chat:      handler.NewChatHandler(gatekeeper),
		Reviews:   handler.NewReviewHandler(reviews),
		Credits:   handler.NewCreditHandler(credits),
		Metrics:   metrics.Handler(registry),
	}, cfg, rdb)

	addr := ":" + cfg.Port
	zlog.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
