package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	N8N      N8NConfig      `mapstructure:"n8n"`
	AI       AIConfig       `mapstructure:"ai"`
	Uploads  UploadsConfig  `mapstructure:"uploads"`
	Project  ProjectConfig  `mapstructure:"project"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, "Asia/Dubai")
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type JWTConfig struct {
	Secret            string        `mapstructure:"secret"`
	AccessTokenExpire time.Duration `mapstructure:"access_token_expire"`
	Issuer            string        `mapstructure:"issuer"`
}

type SMTPConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// N8NConfig wires the document-extraction workflow. APIKey authenticates our
// outbound triggers, InboundAPIKey the workflow's calls back into /api/n8n.
type N8NConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	WebhookPath    string        `mapstructure:"webhook_path"`
	APIKey         string        `mapstructure:"api_key"`
	InboundAPIKey  string        `mapstructure:"inbound_api_key"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
	PDFTimeout     time.Duration `mapstructure:"pdf_timeout"`
}

type AIConfig struct {
	AutoApplyThreshold float64 `mapstructure:"auto_apply_threshold"`
	ReviewThreshold    float64 `mapstructure:"review_threshold"`
	FuzzyMatchMinimum  float64 `mapstructure:"fuzzy_match_minimum"`
}

type UploadsConfig struct {
	Dir         string   `mapstructure:"dir"`
	MaxSizeMB   int64    `mapstructure:"max_size_mb"`
	AllowedExts []string `mapstructure:"allowed_exts"`
}

func (c UploadsConfig) MaxSizeBytes() int64 {
	return c.MaxSizeMB << 20
}

type ProjectConfig struct {
	Currency      string  `mapstructure:"currency"`
	Timezone      string  `mapstructure:"timezone"`
	VATPercentage float64 `mapstructure:"vat_percentage"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "matdash")
	v.SetDefault("database.dbname", "matdash")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("jwt.access_token_expire", "24h")
	v.SetDefault("jwt.issuer", "matdash")

	v.SetDefault("smtp.port", 587)

	v.SetDefault("n8n.webhook_path", "/webhook/document-extraction")
	v.SetDefault("n8n.webhook_timeout", "10s")
	v.SetDefault("n8n.pdf_timeout", "30s")

	v.SetDefault("ai.auto_apply_threshold", 90.0)
	v.SetDefault("ai.review_threshold", 60.0)
	v.SetDefault("ai.fuzzy_match_minimum", 0.85)

	v.SetDefault("uploads.dir", "static/uploads")
	v.SetDefault("uploads.max_size_mb", 10)
	v.SetDefault("uploads.allowed_exts", []string{"pdf", "png", "jpg", "jpeg", "doc", "docx", "xls", "xlsx"})

	v.SetDefault("project.currency", "AED")
	v.SetDefault("project.timezone", "Asia/Dubai")
	v.SetDefault("project.vat_percentage", 5.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Database
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// SMTP
	v.BindEnv("smtp.host", "SMTP_HOST")
	v.BindEnv("smtp.port", "SMTP_PORT")
	v.BindEnv("smtp.username", "SMTP_USERNAME")
	v.BindEnv("smtp.password", "SMTP_PASSWORD")
	v.BindEnv("smtp.from", "SMTP_FROM")

	// n8n
	v.BindEnv("n8n.base_url", "N8N_BASE_URL")
	v.BindEnv("n8n.webhook_path", "N8N_WEBHOOK_PATH")
	v.BindEnv("n8n.api_key", "N8N_API_KEY")
	v.BindEnv("n8n.inbound_api_key", "N8N_INBOUND_API_KEY")

	// AI thresholds
	v.BindEnv("ai.auto_apply_threshold", "AI_AUTO_APPLY_THRESHOLD")
	v.BindEnv("ai.review_threshold", "AI_REVIEW_THRESHOLD")

	// Uploads
	v.BindEnv("uploads.dir", "UPLOAD_DIR")
	v.BindEnv("uploads.max_size_mb", "UPLOAD_MAX_SIZE_MB")
}

// GetEnvOrDefault returns the environment value or a fallback.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
