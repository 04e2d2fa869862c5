package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Email   EmailConfig   `mapstructure:"email"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// TrustedProxy makes client addresses come from X-Forwarded-For and friends.
	TrustedProxy bool `mapstructure:"trusted_proxy"`
}

type DBConfig struct {
	Source string `mapstructure:"source"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type AuthConfig struct {
	WelcomeEmail  string        `mapstructure:"welcome_email"`
	ResetTTL      time.Duration `mapstructure:"reset_ttl"`
	ClaimGrant    int           `mapstructure:"claim_grant"`
	ClaimCooldown time.Duration `mapstructure:"claim_cooldown"`
	DrawCost      int           `mapstructure:"draw_cost"`
	RateLimit     int           `mapstructure:"rate_limit"`
	RateWindow    time.Duration `mapstructure:"rate_window"`
}

type CatalogConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	PageSize int           `mapstructure:"page_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

type EmailConfig struct {
	PostmarkToken string `mapstructure:"postmark_token"`
	From          string `mapstructure:"from"`
	BaseURL       string `mapstructure:"base_url"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.trusted_proxy", false)
	v.SetDefault("db.source", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", 7*24*time.Hour)
	v.SetDefault("auth.welcome_email", "welcome@demo.local")
	v.SetDefault("auth.reset_ttl", time.Hour)
	v.SetDefault("auth.claim_grant", 5)
	v.SetDefault("auth.claim_cooldown", 24*time.Hour)
	v.SetDefault("auth.draw_cost", 1)
	v.SetDefault("auth.rate_limit", 20)
	v.SetDefault("auth.rate_window", time.Minute)
	v.SetDefault("catalog.base_url", "https://api.pokemontcg.io/v2")
	v.SetDefault("catalog.api_key", "")
	v.SetDefault("catalog.page_size", 250)
	v.SetDefault("catalog.timeout", 5*time.Second)
	v.SetDefault("catalog.cache_ttl", 10*time.Minute)
	v.SetDefault("redis.addr", "")
	v.SetDefault("email.postmark_token", "")
	v.SetDefault("email.from", "")
	v.SetDefault("email.base_url", "http://localhost:5173")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("log.level", "info")
}

func Load() (*Config, error) {
	v := viper.New()
	v.AddConfigPath("./configs")
	v.AddConfigPath("/configs")
	v.SetConfigName("settings")
	v.SetConfigType("yml")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Env values arrive as one comma separated string.
	cfg.CORS.AllowedOrigins = splitList(strings.Join(cfg.CORS.AllowedOrigins, ","))

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DB.Source == "" {
		errs = append(errs, errors.New("db.source is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Auth.ClaimGrant <= 0 {
		errs = append(errs, errors.New("auth.claim_grant must be positive"))
	}
	if c.Catalog.PageSize <= 0 {
		errs = append(errs, errors.New("catalog.page_size must be positive"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
