package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	JWTSecret           string
	AccessTokenTTL      time.Duration
	RefreshTokenTTLDays int
	RefreshSecretBytes  int
	CookieName          string
	CookiePath          string
	CookieSecure        bool
}

type RateLimitConfig struct {
	Enabled    bool
	MaxLogin   int
	MaxRefresh int
	Cooldown   time.Duration
}

type JobsConfig struct {
	PurgeEnabled bool
	PurgeSpec    string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Security         SecurityConfig
	RateLimit        RateLimitConfig
	Jobs             JobsConfig
	AllowCORSOrigins []string
}

// RefreshTokenTTL is the refresh credential lifetime derived from the
// configured day count.
func (c SecurityConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLDays) * 24 * time.Hour
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("BOOKREVIEW")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.accesstokenttl", "15m")
	v.SetDefault("security.refreshtokenttldays", 30)
	v.SetDefault("security.refreshsecretbytes", 64)
	v.SetDefault("security.cookiename", "refresh_token")
	v.SetDefault("security.cookiepath", "/api/v1/auth/refresh")
	v.SetDefault("security.cookiesecure", false)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.maxlogin", 10)
	v.SetDefault("ratelimit.maxrefresh", 30)
	v.SetDefault("ratelimit.cooldown", "15m")

	v.SetDefault("jobs.purgeenabled", true)
	v.SetDefault("jobs.purgespec", "0 0 3 * * *") // daily at 03:00
}
