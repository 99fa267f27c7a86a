package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"identity-server/shared/utils"
)

// Config holds the gateway configuration. The JWT secret comes from
// /run/secrets, everything else from config.yml or the environment.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`

	// Prefix-to-upstream routing table, e.g. "/auth" to "http://auth-service:8081".
	Routes []RouteConfig `yaml:"routes"`

	// Path prefixes served without authentication.
	PublicPaths []string `yaml:"public_paths" env:"PUBLIC_PATHS" env-default:"/auth/login,/auth/register,/auth/verify-otp,/auth/resend-otp,/auth/refresh,/oauth2/token,/health,/metrics"`

	// Secret field, read from /run/secrets.
	JWTSecret string
}

type ServerConfig struct {
	Port string `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	Env  string `yaml:"env" env:"ENV" env-default:"development"`
}

type RedisConfig struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	DB   int    `yaml:"db" env:"REDIS_DB" env-default:"1"`
	// Secret field, read from /run/secrets when present.
	Password string
}

type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	Limit   int64         `yaml:"limit" env:"RATE_LIMIT_LIMIT" env-default:"100"`
	Window  time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"1m"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type RouteConfig struct {
	Prefix   string `yaml:"prefix"`
	Upstream string `yaml:"upstream"`
}

// PublicPathList normalizes the configured public prefixes.
func (c *Config) PublicPathList() []string {
	var paths []string
	for _, p := range c.PublicPaths {
		for _, part := range strings.Split(p, ",") {
			if part = strings.TrimSpace(part); part != "" {
				paths = append(paths, part)
			}
		}
	}
	return paths
}

// LoadConfig reads config.yml (falling back to the environment) and the
// secret files.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yml"
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Printf("Warning: could not read config file '%s': %v. Falling back to environment.", configPath, err)
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	secret, err := utils.ReadSecret("jwt_secret")
	if err != nil {
		return nil, err
	}
	cfg.JWTSecret = secret

	if redisPass, err := utils.ReadSecret("redis_password"); err == nil {
		cfg.Redis.Password = redisPass
	}

	log.Printf("Configuration loaded. Routes: %d, rate limit enabled: %v", len(cfg.Routes), cfg.RateLimit.Enabled)
	return &cfg, nil
}
