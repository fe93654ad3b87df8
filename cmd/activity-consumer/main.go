// Command activity-consumer drains the catalog activity queue into an
// append-only log file.
package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/webseries-catalog/internal/config"
	"github.com/iliyamo/webseries-catalog/internal/logging"
	"github.com/iliyamo/webseries-catalog/internal/queue"
)

type consumerConfig struct {
	Broker  config.BrokerConfig
	Log     config.LogConfig
	LogPath string `env:"ACTIVITY_LOG_PATH"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.WithError(err).Fatal("load .env")
	}
	var cfg consumerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		logrus.WithError(err).Fatal("read config")
	}
	log := logging.New(cfg.Log, os.Stdout)
	if cfg.Broker.URL == "" {
		log.Fatal("RABBITMQ_URL is required")
	}
	path := cfg.LogPath
	if path == "" {
		path = queue.DefaultLogPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := queue.NewActivityLog(path)
	log.WithFields(logrus.Fields{"queue": cfg.Broker.Queue, "file": path}).Info("consuming activity")
	if err := queue.StartActivityConsumer(ctx, cfg.Broker.URL, cfg.Broker.Queue, sink.Handle, log); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("consumer stopped")
	}
}
