package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	AppEnv                string
	AllowedOrigin         string
	DatabaseURL           string
	DBMaxOpenConns        int
	DBMaxIdleConns        int
	RunMigrations         bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	CostCacheTTLSeconds   int
	AuthSecret            string
	AuthRequired          bool
	AccessTokenTTLMinutes int
	KioskMode             bool
	KioskIntervalMinutes  int
	StockAllowNegative    bool
	SKUMaxAttempts        int
}

// Load reads an optional .env file and then the environment. Variables that
// are already set win over the file.
func Load() Config {
	_ = godotenv.Load()
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AppEnv:                getEnv("APP_ENV", "development"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		DBMaxOpenConns:        getPositiveInt("DB_MAX_OPEN_CONNS", 30),
		DBMaxIdleConns:        getPositiveInt("DB_MAX_IDLE_CONNS", 8),
		RunMigrations:         getBool("RUN_MIGRATIONS", true),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		CostCacheTTLSeconds:   getPositiveInt("COST_CACHE_TTL_SECONDS", 300),
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AuthRequired:          getBool("AUTH_REQUIRED", false),
		AccessTokenTTLMinutes: getPositiveInt("ACCESS_TOKEN_TTL_MINUTES", 480),
		KioskMode:             getBool("KIOSK_MODE", false),
		KioskIntervalMinutes:  getPositiveInt("KIOSK_RESET_INTERVAL_MINUTES", 15),
		StockAllowNegative:    getBool("STOCK_ALLOW_NEGATIVE", true),
		SKUMaxAttempts:        getPositiveInt("SKU_MAX_ATTEMPTS", 10),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) Production() bool {
	return c.AppEnv == "production"
}

func (c Config) CostCacheTTL() time.Duration {
	return time.Duration(c.CostCacheTTLSeconds) * time.Second
}

func (c Config) KioskInterval() time.Duration {
	return time.Duration(c.KioskIntervalMinutes) * time.Minute
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

// getPositiveInt falls back when the value is missing, malformed or below 1.
func getPositiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(getEnv(key, strconv.FormatBool(fallback))))
	if err != nil {
		return fallback
	}
	return b
}
