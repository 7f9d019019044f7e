package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"augur/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	ErrorTracking ErrorTrackingConfig
	Engine        EngineConfig
	Model         ModelConfig
	Tracker       TrackerConfig
	Learner       LearnerConfig
	Workers       WorkerConfig
	Metrics       MetricsConfig
}

type AppConfig struct {
	Name     string   `envconfig:"APP_NAME" default:"augur"`
	Env      string   `envconfig:"APP_ENV" default:"development"`
	LogLevel string   `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool     `envconfig:"DEBUG" default:"false"`
	Symbols  []string `envconfig:"SYMBOLS" default:"BTCUSDT"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"market"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" required:"true"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"augur"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

type EngineConfig struct {
	BarCount         int     `envconfig:"ENGINE_BAR_COUNT" default:"250"`
	WeightSMC        float64 `envconfig:"ENGINE_WEIGHT_SMC" default:"0.40"`
	WeightIndicators float64 `envconfig:"ENGINE_WEIGHT_INDICATORS" default:"0.25"`
	WeightML         float64 `envconfig:"ENGINE_WEIGHT_ML" default:"0.20"`
	WeightConfluence float64 `envconfig:"ENGINE_WEIGHT_CONFLUENCE" default:"0.15"`
	ThresholdBase    float64 `envconfig:"ENGINE_THRESHOLD_BASE" default:"0.35"`
	ThresholdMin     float64 `envconfig:"ENGINE_THRESHOLD_MIN" default:"0.25"`
	ThresholdMax     float64 `envconfig:"ENGINE_THRESHOLD_MAX" default:"0.50"`
}

type ModelConfig struct {
	Path         string `envconfig:"MODEL_PATH"`
	Version      string `envconfig:"MODEL_VERSION" default:"ensemble-v1"`
	TrainCommand string `envconfig:"MODEL_TRAIN_COMMAND"`
	WorkDir      string `envconfig:"MODEL_WORK_DIR" default:"/var/lib/augur/models"`
}

type TrackerConfig struct {
	DeadBand     float64 `envconfig:"TRACKER_DEAD_BAND" default:"0.0005"`
	PendingBatch int     `envconfig:"TRACKER_PENDING_BATCH" default:"500"`
}

type LearnerConfig struct {
	RetrainInterval        time.Duration `envconfig:"LEARNER_RETRAIN_INTERVAL" default:"24h"`
	AccuracyFloor          float64       `envconfig:"LEARNER_ACCURACY_FLOOR" default:"0.70"`
	AccuracyWindow         time.Duration `envconfig:"LEARNER_ACCURACY_WINDOW" default:"168h"`
	MinVerifiedForAccuracy int           `envconfig:"LEARNER_MIN_VERIFIED_FOR_ACCURACY" default:"50"`
	NewSamplesThreshold    int           `envconfig:"LEARNER_NEW_SAMPLES_THRESHOLD" default:"200"`
	MinTrainingSamples     int           `envconfig:"LEARNER_MIN_TRAINING_SAMPLES" default:"100"`
}

// WorkerConfig contains intervals for all background workers.
type WorkerConfig struct {
	EvaluationInterval   time.Duration `envconfig:"WORKER_EVALUATION_INTERVAL" default:"1m"`
	VerificationInterval time.Duration `envconfig:"WORKER_VERIFICATION_INTERVAL" default:"5m"`
	RetrainCheckInterval time.Duration `envconfig:"WORKER_RETRAIN_CHECK_INTERVAL" default:"15m"`

	// EvaluationRate caps engine evaluations per second across symbols.
	EvaluationRate float64 `envconfig:"WORKER_EVALUATION_RATE" default:"2"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Addr    string `envconfig:"METRICS_ADDR" default:":9090"`
}

// Load reads configuration from environment variables. It first tries
// to load a .env file, which is useful for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fails fast on settings envconfig cannot check on its own.
func (c *Config) Validate() error {
	if len(c.App.Symbols) == 0 {
		return errors.NewValidationError("SYMBOLS", "at least one symbol required", c.App.Symbols)
	}
	if c.Learner.AccuracyFloor <= 0 || c.Learner.AccuracyFloor >= 1 {
		return errors.NewValidationError("LEARNER_ACCURACY_FLOOR", "must be in (0,1)", c.Learner.AccuracyFloor)
	}
	if c.Tracker.DeadBand <= 0 {
		return errors.NewValidationError("TRACKER_DEAD_BAND", "must be positive", c.Tracker.DeadBand)
	}
	return nil
}
