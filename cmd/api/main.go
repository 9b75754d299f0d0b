package main

import (
	"context"
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	server "bnbooking/internal/adapters/http_server"
	"bnbooking/internal/adapters/observability"
	redisad "bnbooking/internal/adapters/redis"
	"bnbooking/internal/adapters/treasury"
	"bnbooking/internal/app"
	"bnbooking/internal/domain"
	"bnbooking/internal/shared"
	mysqljournal "bnbooking/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	feeRate, err := decimal.NewFromString(cfg.FeeRate)
	if err != nil {
		log.Fatal().Err(err).Str("rate", cfg.FeeRate).Msg("bad FEE_RATE")
	}

	// event journal
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	journal := mysqljournal.NewJournal(db, cfg.Workers)
	if err := journal.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("journal migrate failed")
	}
	defer journal.Close()

	// deps
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	bank := treasury.New()
	admin := domain.Address(cfg.AdminAddr)

	svc := app.NewBookingService(app.Params{
		Treasury: bank,
		Events:   app.MultiSink{observability.NewEventLogger(log.Logger), journal},
		Cache:    cache,
		Escrow:   domain.Address(cfg.EscrowAddr),
		IsAdmin:  func(a domain.Address) bool { return a == admin },
		Fee:      domain.FeePolicy{Rate: feeRate, Receiver: domain.Address(cfg.FeeReceiver)},
	})
	q := app.NewQueryService(svc, cache, cfg.CacheTTL)

	// http
	srv := server.New(cfg.RateRPS)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Svc: svc, Q: q, Bank: bank}, []byte(cfg.JWTSecret))

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
