package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTP     HTTPConfig
	Redis    RedisConfig
	DB       DBConfig
	Auth     AuthConfig
	POS      POSConfig
	Kafka    KafkaConfig
	LogLevel string
}

type HTTPConfig struct {
	Port        string
	CORSOrigins []string
}

type DBConfig struct {
	DSN string
}

type AuthConfig struct {
	JWTSecret      []byte
	TokenTTL       time.Duration
	LoginRateLimit string
}

type POSConfig struct {
	GRPCAddr          string
	StoreName         string
	Timezone          string
	LowStockThreshold int
	CartTTL           time.Duration
	HealthInterval    time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	lowStock, err := strconv.Atoi(getEnv("LOW_STOCK_THRESHOLD", "10"))
	if err != nil || lowStock < 0 {
		lowStock = 10
	}

	return Config{
		HTTP: HTTPConfig{
			Port:        getEnv("HTTP_PORT", "8080"),
			CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "*")),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		DB: DBConfig{
			DSN: getEnv("POS_DSN", ""),
		},
		Auth: AuthConfig{
			JWTSecret:      []byte(getEnv("JWT_SECRET", "")),
			TokenTTL:       getDuration("TOKEN_TTL", 24*time.Hour),
			LoginRateLimit: getEnv("LOGIN_RATE_LIMIT", "10-M"),
		},
		POS: POSConfig{
			GRPCAddr:          getEnv("POS_GRPC_ADDR", "localhost:50053"),
			StoreName:         getEnv("STORE_NAME", "School Supplies POS"),
			Timezone:          getEnv("APP_TIMEZONE", "Asia/Manila"),
			LowStockThreshold: lowStock,
			CartTTL:           getDuration("CART_TTL", 12*time.Hour),
			HealthInterval:    getDuration("HEALTH_INTERVAL", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitCSV(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "pos.orders"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// MustNonEmpty stops the process when a required setting is missing.
func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("Invalid duration for %s=%q, using %s", key, v, defaultValue)
		return defaultValue
	}
	return d
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
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
