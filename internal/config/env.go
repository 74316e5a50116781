package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	LogMode string

	DatabaseDriver string
	DatabaseURL    string
	SslCertPath    string

	JWTSecret string
	JWTTTL    time.Duration

	StorageBackend string
	UploadDir      string
	AwsAccessKey   string
	AwsSecretKey   string
	AwsRegion      string
	BucketName     string

	SummarizerURL string
	DetectorURL   string
	OCRURL        string
	OCRBackend    string
	PollTimeout   time.Duration

	IngestWorkers   int
	IngestQueueSize int
	BreakerEnabled  bool

	BreakerMinRequests int
	BreakerOpenTimeout time.Duration

	AIAPIKey string
	GenModel string

	CORSOrigins    []string
	MetricsEnabled bool
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	return &Config{
		Port:    getEnv("PORT", "8080"),
		LogMode: getEnv("LOG_MODE", "development"),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "pgx"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		SslCertPath:    getEnv("SSL_CERT_PATH", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		UploadDir:      getEnv("UPLOAD_DIR", "./data/uploads"),
		AwsAccessKey:   getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:   getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:      getEnv("AWS_REGION", "us-east-2"),
		BucketName:     getEnv("BUCKET_NAME", "lumen-uploads"),

		SummarizerURL: getEnv("SUMMARIZER_URL", "http://localhost:5000/summarize"),
		DetectorURL:   getEnv("DETECTOR_URL", "http://localhost:5002"),
		OCRURL:        getEnv("OCR_URL", "http://localhost:5003/process_file"),
		OCRBackend:    getEnv("OCR_BACKEND", "http"),
		PollTimeout:   getEnvDuration("POLL_TIMEOUT", 30*time.Second),

		IngestWorkers:   getEnvInt("INGEST_WORKERS", 4),
		IngestQueueSize: getEnvInt("INGEST_QUEUE_SIZE", 64),
		BreakerEnabled:  getEnvBool("BREAKER_ENABLED", true),

		BreakerMinRequests: getEnvInt("BREAKER_MIN_REQUESTS", 5),
		BreakerOpenTimeout: getEnvDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),

		AIAPIKey: getEnv("GEMINI_API_KEY", ""),
		GenModel: getEnv("GEN_MODEL", "gemini-1.5-flash"),

		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL not set"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET not set"))
	}
	switch c.DatabaseDriver {
	case "pgx", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q not supported", c.DatabaseDriver))
	}
	switch c.StorageBackend {
	case "local":
		if c.UploadDir == "" {
			errs = append(errs, errors.New("UPLOAD_DIR not set"))
		}
	case "s3":
		if c.AwsAccessKey == "" || c.AwsSecretKey == "" {
			errs = append(errs, errors.New("AWS credentials not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND %q not supported", c.StorageBackend))
	}
	switch c.OCRBackend {
	case "http", "docconv":
	default:
		errs = append(errs, fmt.Errorf("OCR_BACKEND %q not supported", c.OCRBackend))
	}
	if c.IngestWorkers <= 0 {
		errs = append(errs, errors.New("INGEST_WORKERS must be positive"))
	}
	return errors.Join(errs...)
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
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
