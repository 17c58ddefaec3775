package config

import (
	"os"
	"strings"

	"acumen/internal/engine"
)

// Config carries process-level settings. Adaptivity tuning ships with
// its defaults; deployments override infrastructure endpoints through
// the environment.
type Config struct {
	MongoURI  string
	MongoDB   string
	RedisAddr string
	HTTPPort  string
	LogMode   string

	Engine engine.Params
}

func Load() *Config {
	return &Config{
		MongoURI:  getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:   getEnv("MONGO_DB", "acumen"),
		RedisAddr: normalizeRedisAddr(getEnv("REDIS_URI", "localhost:6379")),
		HTTPPort:  getEnv("PORT", "8080"),
		LogMode:   getEnv("APP_ENV", "development"),
		Engine:    engine.DefaultParams(),
	}
}

// normalizeRedisAddr strips an optional redis:// scheme so the address
// can be handed straight to the client.
func normalizeRedisAddr(addr string) string {
	return strings.TrimPrefix(addr, "redis://")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
