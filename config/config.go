package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	CSVPath   string
	FetchMode string
	BaseURL   string
	ChromeBin string

	FetchTimeout time.Duration
	MaxRetries   int

	MaxConcurrency    int
	ParallelThreshold int

	ImagePoolFile string
	CSVOutputPath string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	HTTPAddr        string
	RateLimitRPS    float64
	RateLimitBurst  int
	HistoryCacheTTL time.Duration

	LogLevel string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		CSVPath:   getEnv("CSV_PATH", "./api/RFP.csv"),
		FetchMode: getEnv("FETCH_MODE", "file"),
		BaseURL:   getEnv("BASE_URL", "http://localhost:8000"),
		ChromeBin: getEnv("CHROME_BIN", ""),

		FetchTimeout: time.Duration(getEnvInt("FETCH_TIMEOUT_MS", 30000)) * time.Millisecond,
		MaxRetries:   getEnvInt("MAX_RETRIES", 3),

		MaxConcurrency:    getEnvInt("MAX_CONCURRENCY", 4),
		ParallelThreshold: getEnvInt("PARALLEL_THRESHOLD", 20000),

		ImagePoolFile: getEnv("IMAGE_POOL_FILE", ""),
		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/listings.csv"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "resale"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "resale123"),
		PostgresDB:       getEnv("POSTGRES_DB", "resale_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		RateLimitRPS:    getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 40),
		HistoryCacheTTL: time.Duration(getEnvInt("HISTORY_CACHE_TTL_SEC", 600)) * time.Second,

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}
