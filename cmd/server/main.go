package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/hellocng/deepstack/internal/config"
	"github.com/hellocng/deepstack/internal/database"
	"github.com/hellocng/deepstack/internal/handler"
	"github.com/hellocng/deepstack/internal/live"
	"github.com/hellocng/deepstack/internal/middleware"
	"github.com/hellocng/deepstack/internal/queue"
	"github.com/hellocng/deepstack/internal/repository"
	"github.com/hellocng/deepstack/internal/router"
	"github.com/hellocng/deepstack/internal/seating"
	"github.com/hellocng/deepstack/internal/waitlist"
)

func main() {
	// .env is a development convenience; deployments set the real
	// environment.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}

	cfg := config.Load()
	policy := config.LoadWaitlistPolicy()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the rate limiter and the live update fan-out.  Both
	// degrade gracefully, so a nil client is not fatal.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and live updates disabled")
	}

	// Repositories
	entries := repository.NewWaitlistRepo(db)
	games := repository.NewGameRepo(db)
	rooms := repository.NewRoomRepo(db)
	tables := repository.NewTableRepo(db)
	tableSessions := repository.NewTableSessionRepo(db)
	playerSessions := repository.NewPlayerSessionRepo(db)
	players := repository.NewPlayerRepo(db)
	staff := repository.NewStaffRepo(db)

	// Queue core and the seat coordinator on top of it
	positions := waitlist.NewPositionManager(entries, policy.RebalanceEpsilon)
	lifecycle := waitlist.NewLifecycleManager(entries)
	sweeper := waitlist.NewSweeper(entries, lifecycle, policy.SweepInterval, policy.CheckInWindow, policy.NotifyWindow)
	defer sweeper.Stop()
	coordinator := seating.NewCoordinator(tables, tableSessions, playerSessions, entries, games, lifecycle, positions)

	// Live updates: the hub serves this instance's websocket clients, the
	// relay feeds it from the per-room Redis channels so updates reach
	// clients no matter which instance served the write.
	hub := live.NewHub()
	go hub.Run()
	var livePub *live.Publisher
	if rdb != nil {
		livePub = live.NewPublisher(rdb)
		go live.NewRelay(rdb, hub).Run(context.Background())
	}

	// The notify consumer drains waitlist.notified and keeps reconnecting
	// across broker outages.
	go func() {
		if err := queue.StartNotifyConsumer(); err != nil {
			log.Printf("notify-consumer: stopped: %v", err)
		}
	}()

	e := echo.New()
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	authH := handler.NewAuthHandler(cfg, staff)
	waitlistH := handler.NewWaitlistHandler(entries, games, rooms, players, positions, lifecycle, policy, livePub)
	sweeperH := handler.NewSweeperHandler(sweeper, rooms)
	liveH := handler.NewLiveHandler(hub, rooms)
	seatingH := handler.NewSeatingHandler(coordinator, tables, tableSessions, games, livePub)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterWaitlist(e, waitlistH, sweeperH, liveH, cfg.JWTSecret, limiter)
	router.RegisterSeating(e, seatingH, cfg.JWTSecret, limiter)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
