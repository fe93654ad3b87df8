package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/webseries-catalog/internal/config"
	"github.com/iliyamo/webseries-catalog/internal/database"
	"github.com/iliyamo/webseries-catalog/internal/logging"
	"github.com/iliyamo/webseries-catalog/internal/repository"
	"github.com/iliyamo/webseries-catalog/internal/router"
	"github.com/iliyamo/webseries-catalog/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.Log, os.Stdout)

	db, err := database.Open(database.Options{
		User:            cfg.DB.User,
		Pass:            cfg.DB.Pass,
		Host:            cfg.DB.Host,
		Port:            cfg.DB.Port,
		Name:            cfg.DB.Name,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("migrate schema")
		}
	}

	// Redis is optional: without it the limiters and the cache pass through.
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.WithField("addr", cfg.Redis.Address()).Warn("redis unavailable, rate limiting and cache disabled")
	} else {
		defer rdb.Close()
	}

	var pub service.Publisher = service.NopPublisher{}
	if cfg.Broker.URL != "" {
		amqpPub := service.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Queue)
		defer amqpPub.Close()
		pub = amqpPub
	}

	store := repository.NewSQLStore(db)
	gate := service.NewGate(store)
	e := router.New(router.Deps{
		Config: cfg,
		Log:    log,
		Redis:  rdb,
		DB:     db,
		Gate:   gate,
		Auth: service.NewAuthService(store, service.AuthOptions{
			Secret:     cfg.Auth.JWTSecret,
			TokenTTL:   cfg.Auth.TokenTTL,
			BcryptCost: cfg.Auth.BcryptCost,
		}, pub, log),
		Catalog: service.NewCatalogService(store, pub, log),
		Engage:  service.NewEngagementService(store, gate, pub, log),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
