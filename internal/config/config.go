package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                 string        `mapstructure:"PORT"`
	Env                  string        `mapstructure:"ENV"`
	DBPath               string        `mapstructure:"DB_PATH"`
	DBPoolSize           int           `mapstructure:"DB_POOL_SIZE"`
	DBBusyTimeoutMS      int           `mapstructure:"DB_BUSY_TIMEOUT_MS"`
	CacheTTL             time.Duration `mapstructure:"CACHE_TTL"`
	CacheMaxEntries      int           `mapstructure:"CACHE_MAX_ENTRIES"`
	CacheSweepInterval   time.Duration `mapstructure:"CACHE_SWEEP_INTERVAL"`
	JWTSecret            string        `mapstructure:"JWT_SECRET"`
	JWTTTL               time.Duration `mapstructure:"JWT_TTL"`
	BcryptCost           int           `mapstructure:"BCRYPT_COST"`
	ReauthWindow         time.Duration `mapstructure:"REAUTH_WINDOW"`
	RateLimitWindow      time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
	RateLimitMax         int           `mapstructure:"RATE_LIMIT_MAX"`
	CORSOrigins          []string      `mapstructure:"CORS_ORIGINS"`
	BodyLimit            string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout       time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BackupDir            string        `mapstructure:"BACKUP_DIR"`
	BackupKeep           int           `mapstructure:"BACKUP_KEEP"`
	BackupInterval       time.Duration `mapstructure:"BACKUP_INTERVAL"`
	BackupS3Bucket       string        `mapstructure:"BACKUP_S3_BUCKET"`
	BackupS3Prefix       string        `mapstructure:"BACKUP_S3_PREFIX"`
	BackupS3Endpoint     string        `mapstructure:"BACKUP_S3_ENDPOINT"`
	MaintenanceInterval  time.Duration `mapstructure:"MAINTENANCE_INTERVAL"`
	AccessLogRetention   time.Duration `mapstructure:"ACCESS_LOG_RETENTION"`
	DeletionLogRetention time.Duration `mapstructure:"DELETION_LOG_RETENTION"`
	DefaultAdminPassword string        `mapstructure:"DEFAULT_ADMIN_PASSWORD"`
	TLSEnabled           bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile          string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile           string        `mapstructure:"TLS_KEY_FILE"`
}

var keys = []string{
	"PORT", "ENV", "DB_PATH", "DB_POOL_SIZE", "DB_BUSY_TIMEOUT_MS",
	"CACHE_TTL", "CACHE_MAX_ENTRIES", "CACHE_SWEEP_INTERVAL",
	"JWT_SECRET", "JWT_TTL", "BCRYPT_COST", "REAUTH_WINDOW",
	"RATE_LIMIT_WINDOW", "RATE_LIMIT_MAX", "CORS_ORIGINS", "BODY_LIMIT",
	"REQUEST_TIMEOUT", "BACKUP_DIR", "BACKUP_KEEP", "BACKUP_INTERVAL",
	"BACKUP_S3_BUCKET", "BACKUP_S3_PREFIX", "BACKUP_S3_ENDPOINT",
	"MAINTENANCE_INTERVAL", "ACCESS_LOG_RETENTION", "DELETION_LOG_RETENTION",
	"DEFAULT_ADMIN_PASSWORD", "TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

// devJWTSecret signs tokens in development when JWT_SECRET is unset.
const devJWTSecret = "aih-dev-secret-do-not-use-in-production"

func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_PATH", "./db/aih.db")
	v.SetDefault("DB_POOL_SIZE", 25)
	v.SetDefault("DB_BUSY_TIMEOUT_MS", 120000)
	v.SetDefault("CACHE_TTL", "15m")
	v.SetDefault("CACHE_MAX_ENTRIES", 20000)
	v.SetDefault("CACHE_SWEEP_INTERVAL", "2m")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("REAUTH_WINDOW", "5m")
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("RATE_LIMIT_MAX", 2000)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5000")
	v.SetDefault("BODY_LIMIT", "10M")
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("BACKUP_DIR", "./backups")
	v.SetDefault("BACKUP_KEEP", 7)
	v.SetDefault("BACKUP_INTERVAL", "24h")
	v.SetDefault("MAINTENANCE_INTERVAL", "24h")
	v.SetDefault("ACCESS_LOG_RETENTION", "1440h")
	v.SetDefault("DELETION_LOG_RETENTION", "43800h")

	// Unmarshal only sees env vars that are bound.
	for _, k := range keys {
		v.BindEnv(k)
	}

	// The .env file is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if cfg.IsDev() {
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = devJWTSecret
		}
		if cfg.DefaultAdminPassword == "" {
			cfg.DefaultAdminPassword = "admin"
		}
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: a fixed JWT secret and the default admin password may be in use.")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret of at least 32 bytes is required and the development secret
// is refused.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
		}
		if c.JWTSecret == devJWTSecret {
			return fmt.Errorf("JWT_SECRET must not be the development secret when ENV=%q", c.Env)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.JWTSecret))
		}
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.DBPoolSize < 1 {
		return fmt.Errorf("DB_POOL_SIZE must be at least 1, got %d", c.DBPoolSize)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.RateLimitMax < 1 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	}
	if c.BackupKeep < 1 {
		return fmt.Errorf("BACKUP_KEEP must be at least 1, got %d", c.BackupKeep)
	}

	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
