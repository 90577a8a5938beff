package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Cron          CronConfig
	Audit         AuditConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"RENTWORKS_APP_ENV" required:"true"`
	Port         string   `envconfig:"RENTWORKS_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"RENTWORKS_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"RENTWORKS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"RENTWORKS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RENTWORKS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RENTWORKS_DB_DSN"`
	Driver string `envconfig:"RENTWORKS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RENTWORKS_DB_HOST"`
	LegacyPort     int    `envconfig:"RENTWORKS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RENTWORKS_DB_USER"`
	LegacyPassword string `envconfig:"RENTWORKS_DB_PASSWORD"`
	LegacyName     string `envconfig:"RENTWORKS_DB_NAME"`
	LegacySSLMode  string `envconfig:"RENTWORKS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RENTWORKS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RENTWORKS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RENTWORKS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RENTWORKS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RENTWORKS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RENTWORKS_REDIS_ADDR"`
	Password     string        `envconfig:"RENTWORKS_REDIS_PASSWORD"`
	DB           int           `envconfig:"RENTWORKS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RENTWORKS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RENTWORKS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RENTWORKS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RENTWORKS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RENTWORKS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"RENTWORKS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"RENTWORKS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"RENTWORKS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"RENTWORKS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RENTWORKS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RENTWORKS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RENTWORKS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RENTWORKS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RENTWORKS_ARGON_KEY_LEN" default:"32"`
	MinLength        int `envconfig:"RENTWORKS_PASSWORD_MIN_LENGTH" default:"8"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"RENTWORKS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"RENTWORKS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"RENTWORKS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RENTWORKS_AUTO_MIGRATE" default:"false"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"RENTWORKS_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"RENTWORKS_CRON_LOCK_TTL" default:"25h"`
}

type AuditConfig struct {
	RetentionDays int `envconfig:"RENTWORKS_AUDIT_RETENTION_DAYS" default:"365"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
