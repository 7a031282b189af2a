package config

import (
	"flag"
	"os"

	"github.com/joho/godotenv"

	handlerConfig "github.com/vpopov/shipman/internal/handler/config"
	loggerConfig "github.com/vpopov/shipman/internal/logger/config"
	notifyConfig "github.com/vpopov/shipman/internal/notify/config"
	storeConfig "github.com/vpopov/shipman/internal/store/config"
)

type Config struct {
	Handler handlerConfig.Config
	Store   storeConfig.Config
	Notify  notifyConfig.Config
	Logger  loggerConfig.Config
}

func GetConfig() Config {
	// Локальный .env, если есть
	_ = godotenv.Load()

	var cfg Config

	flag.StringVar(&cfg.Handler.ServerAddr, "a", getEnv("RUN_ADDRESS", ":8080"), "server address")
	flag.StringVar(&cfg.Store.DBPath, "d", getEnv("DATABASE_PATH", "shipman.db"), "sqlite database path")
	flag.StringVar(&cfg.Logger.LogLevel, "l", getEnv("LOG_LEVEL", "info"), "log level")
	flag.StringVar(&cfg.Notify.BaseURL, "b", getEnv("BASE_URL", "http://localhost:8080/"), "base url for detail links")
	flag.StringVar(&cfg.Notify.WebhookURL, "w", getEnv("NOTIFY_WEBHOOK_URL", ""), "notification webhook url")
	flag.Parse()

	return cfg
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
