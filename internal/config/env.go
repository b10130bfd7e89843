package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        string

	AIAPIKey   string
	EmbedModel string
	EmbedDim   int
	GenModel   string

	ChunkSize        int
	ChunkOverlap     int
	TopK             int
	EmbedConcurrency int
	EmbedBatchSize   int
	EmbedRPS         float64
	EmbedPolicy      string // "abort" or "skip" on embedding failure during ingest
	FetchTimeoutSecs int

	JWTSecret        string
	UnidocLicenseKey string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
}

// LoadConfig loads the environment variables and returns config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8600"),

		AIAPIKey:   getEnv("GEMINI_API_KEY", ""),
		EmbedModel: getEnv("EMBED_MODEL", "embedding-001"),
		EmbedDim:   getEnvInt("EMBED_DIM", 768),
		GenModel:   getEnv("GEN_MODEL", "gemini-2.5-pro"),

		ChunkSize:        getEnvInt("CHUNK_SIZE", 800),
		ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", 100),
		TopK:             getEnvInt("TOP_K", 5),
		EmbedConcurrency: getEnvInt("EMBED_CONCURRENCY", 4),
		EmbedBatchSize:   getEnvInt("EMBED_BATCH_SIZE", 16),
		EmbedRPS:         getEnvFloat("EMBED_RPS", 0),
		EmbedPolicy:      getEnv("EMBED_FAILURE_POLICY", "abort"),
		FetchTimeoutSecs: getEnvInt("FETCH_TIMEOUT_SECONDS", 30),

		JWTSecret:        getEnv("JWT_SECRET_KEY", ""),
		UnidocLicenseKey: getEnv("UNIDOC_LICENSE_KEY", ""),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", ""),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET_KEY not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a number, using default %g", key, v, def)
		return def
	}
	return f
}
