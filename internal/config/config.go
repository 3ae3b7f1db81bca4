package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// login/register rate limiting
	AuthRateLimit  int
	AuthRateWindow time.Duration

	CORSOrigins []string

	OTLPEndpoint string

	// optional seed admin account
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

func Load() Config {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 8080)
	dbURL := buildDBURL()

	return Config{
		Env:   env,
		Port:  port,
		DBURL: dbURL,

		JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),
		AccessTTL:  getEnvDuration("ACCESS_TTL", 15*time.Minute),
		RefreshTTL: getEnvDuration("REFRESH_TTL", 7*24*time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AuthRateLimit:  getEnvInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow: getEnvDuration("AUTH_RATE_WINDOW", 1*time.Minute),

		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
	}
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "qcheck")
	pass := getEnv("DB_PASSWORD", "qcheck")
	name := getEnv("DB_NAME", "qcheck")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return d
	}
	return fallback
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)

		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
