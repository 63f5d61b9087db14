// internal/config/config.go
package config

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Drive    DriveConfig
	Engine   EngineConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
	OpsAddr        string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the keyword/value connection string understood by both lib/pq
// and pgx.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	ForecastTTLSeconds int
}

// StorageConfig points at the S3-compatible bucket used for run reports and
// catalog workbooks.
type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsJSON string
	FolderPath      string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.New()
		setDefaults(v)

		// Read from environment variables
		v.AutomaticEnv()

		instance = fromViper(v)
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("OPS_ADDR", ":9090")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "replenish")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_FORECAST_TTL_SECONDS", 3600)
	v.SetDefault("STORAGE_ENABLED", false)
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("STORAGE_BUCKET", "replenishment")
	v.SetDefault("DRIVE_FOLDER_PATH", "")

	def := DefaultEngineConfig()
	v.SetDefault("ENGINE_TREND_EPSILON_RATIO", def.TrendEpsilonRatio)
	v.SetDefault("ENGINE_HIGH_CONFIDENCE_CV", def.HighConfidenceCV)
	v.SetDefault("ENGINE_LOW_CONFIDENCE_CV", def.LowConfidenceCV)
	v.SetDefault("ENGINE_FORECAST_HORIZON_DAYS", def.ForecastHorizonDays)
	v.SetDefault("ENGINE_HISTORY_DAYS", def.HistoryDays)
	v.SetDefault("ENGINE_COVER_EPSILON", def.CoverEpsilon)
	v.SetDefault("ENGINE_CRITICAL_COVER_RATIO", def.CriticalCoverRatio)
	v.SetDefault("ENGINE_HIGH_COVER_RATIO", def.HighCoverRatio)
	v.SetDefault("ENGINE_MEDIUM_COVER_RATIO", def.MediumCoverRatio)
	v.SetDefault("ENGINE_TARGET_WEEKS_OF_SUPPLY", def.TargetWeeksOfSupply)
	v.SetDefault("ENGINE_EOQ_SETUP_COST", def.EOQSetupCost)
	v.SetDefault("ENGINE_EOQ_HOLDING_RATE", def.EOQHoldingRate)
	v.SetDefault("ENGINE_DEFAULT_TAX_RATE", def.DefaultTaxRate.String())
	v.SetDefault("ENGINE_APPROVAL_TOTAL_THRESHOLD", def.ApprovalTotalThreshold.String())
	v.SetDefault("ENGINE_CRITICAL_LINE_THRESHOLD", def.CriticalLineThreshold.String())
	v.SetDefault("ENGINE_MAX_EARLY_DELIVERY_DAYS", def.MaxEarlyDeliveryDays)
	v.SetDefault("ENGINE_MIN_ORDERS_FOR_LEAD_TIME", def.MinOrdersForLeadTime)
	v.SetDefault("ENGINE_UNRELIABLE_SCORE_THRESHOLD", def.UnreliableScoreThreshold)
	v.SetDefault("ENGINE_UNRELIABLE_LEAD_PADDING", def.UnreliableLeadPadding)
	v.SetDefault("ENGINE_WORKER_COUNT", def.WorkerCount)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			OpsAddr:        v.GetString("OPS_ADDR"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:            v.GetBool("CACHE_ENABLED"),
			RedisURL:           v.GetString("REDIS_URL"),
			RedisHost:          v.GetString("REDIS_HOST"),
			RedisPort:          v.GetString("REDIS_PORT"),
			RedisPassword:      v.GetString("REDIS_PASSWORD"),
			RedisDB:            v.GetInt("REDIS_DB"),
			ForecastTTLSeconds: v.GetInt("CACHE_FORECAST_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   v.GetBool("STORAGE_ENABLED"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
		},
		Drive: DriveConfig{
			CredentialsJSON: v.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			FolderPath:      v.GetString("DRIVE_FOLDER_PATH"),
		},
		Engine: engineFromViper(v),
	}
}
