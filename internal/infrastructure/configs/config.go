package configs

import (
	"fmt"
	"time"

	"github.com/hilthontt/civicreport/internal/infrastructure/env"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Environment string            `koanf:"environment"`
	Store       string            `koanf:"store"`
	HTTP        HTTPConfig        `koanf:"http"`
	RateLimiter RateLimiterConfig `koanf:"rateLimiter"`
	Logger      LoggerConfig      `koanf:"logger"`
	Mongo       MongoConfig       `koanf:"mongo"`
	Redis       RedisConfig       `koanf:"redis"`
	RabbitMQ    RabbitMQConfig    `koanf:"rabbitmq"`
	Auth        AuthConfig        `koanf:"auth"`
	Submission  SubmissionConfig  `koanf:"submission"`
	Media       MediaConfig       `koanf:"media"`
	Classifier  ClassifierConfig  `koanf:"classifier"`
	Geo         GeoConfig         `koanf:"geo"`
	Jobs        JobsConfig        `koanf:"jobs"`
	Tracing     TracingConfig     `koanf:"tracing"`
	Sentry      SentryConfig      `koanf:"sentry"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	AllowedHeaders []string      `koanf:"allowed_headers"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	MaxUploadBytes int64         `koanf:"max_upload_bytes"`
}

type RateLimiterConfig struct {
	MaxRatePerSecond int           `koanf:"maxRatePerSecond"`
	MaxBurst         int           `koanf:"maxBurst"`
	CacheTTL         time.Duration `koanf:"cacheTTL"`
	SourceHeaderKey  string        `koanf:"sourceHeaderKey"`
}

type LoggerConfig struct {
	FilePath string `koanf:"file_path"`
	Encoding string `koanf:"encoding"`
	Level    string `koanf:"level"`
	Logger   string `koanf:"logger"`
}

type MongoConfig struct {
	URI               string        `koanf:"uri"`
	Database          string        `koanf:"database"`
	ConnectionTimeout time.Duration `koanf:"connection_timeout"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type RabbitMQConfig struct {
	URI string `koanf:"uri"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	Issuer    string `koanf:"issuer"`
}

type SubmissionConfig struct {
	DailyLimit        int           `koanf:"daily_limit"`
	EnrichmentTimeout time.Duration `koanf:"enrichment_timeout"`
	DefaultPriority   string        `koanf:"default_priority"`
}

type MediaConfig struct {
	Provider   string           `koanf:"provider"`
	Local      LocalMediaConfig `koanf:"local"`
	Cloudinary CloudinaryConfig `koanf:"cloudinary"`
	S3         S3Config         `koanf:"s3"`
}

type LocalMediaConfig struct {
	Dir       string `koanf:"dir"`
	PublicURL string `koanf:"public_url"`
}

type CloudinaryConfig struct {
	CloudName    string `koanf:"cloud_name"`
	UploadPreset string `koanf:"upload_preset"`
	BaseURL      string `koanf:"base_url"`
}

type S3Config struct {
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	Prefix    string `koanf:"prefix"`
	PublicURL string `koanf:"public_url"`
}

type ClassifierConfig struct {
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	APIKey   string `koanf:"api_key"`
	BaseURL  string `koanf:"base_url"`
}

type GeoConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url"`
}

type JobsConfig struct {
	OverdueSchedule  string        `koanf:"overdue_schedule"`
	OverdueThreshold time.Duration `koanf:"overdue_threshold"`
}

type TracingConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`
}

type SentryConfig struct {
	DSN string `koanf:"dsn"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store {
	case "mongo", "memory":
	default:
		return fmt.Errorf("invalid store %q: supported stores: [mongo, memory]", c.Store)
	}
	switch c.Logger.Logger {
	case "zap", "zerolog":
	default:
		return fmt.Errorf("invalid logger %q: supported loggers: [zap, zerolog]", c.Logger.Logger)
	}
	switch c.Media.Provider {
	case "none", "local", "cloudinary", "s3":
	default:
		return fmt.Errorf("invalid media provider %q: supported providers: [none, local, cloudinary, s3]", c.Media.Provider)
	}
	switch c.Classifier.Provider {
	case "none", "anthropic", "openai":
	default:
		return fmt.Errorf("invalid classifier provider %q: supported providers: [none, anthropic, openai]", c.Classifier.Provider)
	}
	if c.Submission.DailyLimit < 0 {
		return fmt.Errorf("submission.daily_limit must not be negative")
	}
	if c.Submission.EnrichmentTimeout <= 0 {
		return fmt.Errorf("submission.enrichment_timeout must be positive")
	}
	return nil
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "environment", "development")
	setDefault(k, "store", "mongo")

	// HTTP defaults
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})
	setDefault(k, "http.allowed_headers", []string{"Content-Type", "Authorization"})
	setDefault(k, "http.max_upload_bytes", 20<<20)

	// Rate limiter defaults
	setDefault(k, "rateLimiter.maxRatePerSecond", 10)
	setDefault(k, "rateLimiter.maxBurst", 20)
	setDefault(k, "rateLimiter.cacheTTL", 5*time.Minute)
	setDefault(k, "rateLimiter.sourceHeaderKey", "X-Forwarded-For")

	setDefault(k, "logger.file_path", "./logs/")
	setDefault(k, "logger.encoding", "json")
	setDefault(k, "logger.level", "debug")
	setDefault(k, "logger.logger", "zap")

	setDefault(k, "mongo.uri", "mongodb://localhost:27017")
	setDefault(k, "mongo.database", "civicreport")
	setDefault(k, "mongo.connection_timeout", 20*time.Second)

	setDefault(k, "auth.issuer", "civicreport")

	setDefault(k, "submission.daily_limit", 10)
	setDefault(k, "submission.enrichment_timeout", 10*time.Second)
	setDefault(k, "submission.default_priority", "Not Specified")

	setDefault(k, "media.provider", "none")
	setDefault(k, "media.local.dir", "./uploads")
	setDefault(k, "media.local.public_url", "http://localhost:8080")
	setDefault(k, "media.cloudinary.base_url", "https://api.cloudinary.com")
	setDefault(k, "classifier.provider", "none")
	setDefault(k, "classifier.model", "claude-3-5-haiku-latest")
	setDefault(k, "geo.base_url", "https://ipapi.co")

	setDefault(k, "jobs.overdue_schedule", "@every 15m")
	setDefault(k, "jobs.overdue_threshold", 48*time.Hour)

	setDefault(k, "tracing.endpoint", "http://jaeger:4318/v1/traces")
}

func applyEnvOverrides(k *koanf.Koanf) {
	if environment := env.GetString("ENVIRONMENT", ""); environment != "" {
		k.Set("environment", environment)
	}
	if store := env.GetString("STORE", ""); store != "" {
		k.Set("store", store)
	}

	// HTTP config from env
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if readTimeout := env.GetInt("HTTP_READ_TIMEOUT_SECONDS", 0); readTimeout > 0 {
		k.Set("http.read_timeout", time.Duration(readTimeout)*time.Second)
	}
	if writeTimeout := env.GetInt("HTTP_WRITE_TIMEOUT_SECONDS", 0); writeTimeout > 0 {
		k.Set("http.write_timeout", time.Duration(writeTimeout)*time.Second)
	}
	if origins := env.GetList("HTTP_ALLOWED_ORIGINS", nil); len(origins) > 0 {
		k.Set("http.allowed_origins", origins)
	}

	// Rate limiter config from env
	if maxRate := env.GetInt("RATE_LIMIT_MAX_RATE_PER_SECOND", 0); maxRate > 0 {
		k.Set("rateLimiter.maxRatePerSecond", maxRate)
	}
	if maxBurst := env.GetInt("RATE_LIMIT_MAX_BURST", 0); maxBurst > 0 {
		k.Set("rateLimiter.maxBurst", maxBurst)
	}
	if cacheTTL := env.GetInt("RATE_LIMIT_CACHE_TTL_MINUTES", 0); cacheTTL > 0 {
		k.Set("rateLimiter.cacheTTL", time.Duration(cacheTTL)*time.Minute)
	}
	if sourceKey := env.GetString("RATE_LIMIT_SOURCE_HEADER_KEY", ""); sourceKey != "" {
		k.Set("rateLimiter.sourceHeaderKey", sourceKey)
	}

	// Logger config from env
	if path := env.GetString("LOGGER_FILE_PATH", ""); path != "" {
		k.Set("logger.file_path", path)
	}
	if encoding := env.GetString("LOGGER_ENCODING", ""); encoding != "" {
		k.Set("logger.encoding", encoding)
	}
	if level := env.GetString("LOGGER_LEVEL", ""); level != "" {
		k.Set("logger.level", level)
	}
	if logger := env.GetString("LOGGER_LOGGER", ""); logger != "" {
		k.Set("logger.logger", logger)
	}

	// Backing services
	if uri := env.GetString("MONGODB_URI", ""); uri != "" {
		k.Set("mongo.uri", uri)
	}
	if database := env.GetString("MONGODB_DATABASE", ""); database != "" {
		k.Set("mongo.database", database)
	}
	if addr := env.GetString("REDIS_ADDR", ""); addr != "" {
		k.Set("redis.addr", addr)
	}
	if password := env.GetString("REDIS_PASSWORD", ""); password != "" {
		k.Set("redis.password", password)
	}
	if uri := env.GetString("RABBITMQ_URI", ""); uri != "" {
		k.Set("rabbitmq.uri", uri)
	}

	// Secrets
	if secret := env.GetString("JWT_SECRET", ""); secret != "" {
		k.Set("auth.jwt_secret", secret)
	}
	if key := env.GetString("CLASSIFIER_API_KEY", ""); key != "" {
		k.Set("classifier.api_key", key)
	}
	if provider := env.GetString("CLASSIFIER_PROVIDER", ""); provider != "" {
		k.Set("classifier.provider", provider)
	}
	if provider := env.GetString("MEDIA_PROVIDER", ""); provider != "" {
		k.Set("media.provider", provider)
	}
	if cloud := env.GetString("CLOUDINARY_CLOUD_NAME", ""); cloud != "" {
		k.Set("media.cloudinary.cloud_name", cloud)
	}
	if preset := env.GetString("CLOUDINARY_UPLOAD_PRESET", ""); preset != "" {
		k.Set("media.cloudinary.upload_preset", preset)
	}
	if bucket := env.GetString("S3_BUCKET", ""); bucket != "" {
		k.Set("media.s3.bucket", bucket)
	}
	if dsn := env.GetString("SENTRY_DSN", ""); dsn != "" {
		k.Set("sentry.dsn", dsn)
	}
	if endpoint := env.GetString("OTEL_EXPORTER_OTLP_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.endpoint", endpoint)
		k.Set("tracing.enabled", true)
	}

	if limit := env.GetInt("SUBMISSION_DAILY_LIMIT", -1); limit >= 0 {
		k.Set("submission.daily_limit", limit)
	}
	if timeout := env.GetInt("ENRICHMENT_TIMEOUT_SECONDS", 0); timeout > 0 {
		k.Set("submission.enrichment_timeout", time.Duration(timeout)*time.Second)
	}

	k.Set("geo.enabled", env.GetBool("GEO_ENABLED", k.Bool("geo.enabled")))
	k.Set("tracing.enabled", env.GetBool("TRACING_ENABLED", k.Bool("tracing.enabled")))

	// Jobs
	if schedule := env.GetString("OVERDUE_SCHEDULE", ""); schedule != "" {
		k.Set("jobs.overdue_schedule", schedule)
	}
	if threshold := env.GetDuration("OVERDUE_THRESHOLD", 0); threshold > 0 {
		k.Set("jobs.overdue_threshold", threshold)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
