// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultDemoPassword = "Demo1234!"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT" validate:"required,numeric"`
	Env            string `mapstructure:"APP_ENV" validate:"required"`
	DBDriver       string `mapstructure:"DB_DRIVER" validate:"oneof=postgres sqlite"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	SQLitePath     string `mapstructure:"SQLITE_PATH" validate:"required_if=DBDriver sqlite"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	SessionCookieName   string `mapstructure:"SESSION_COOKIE_NAME" validate:"required"`
	SessionTTLMinutes   int    `mapstructure:"SESSION_TTL_MINUTES" validate:"gt=0"`
	SessionCookieSecure bool   `mapstructure:"SESSION_COOKIE_SECURE"`
	CSRFEnabled         bool   `mapstructure:"CSRF_ENABLED"`
	BcryptCost          int    `mapstructure:"BCRYPT_COST" validate:"gte=4,lte=31"`

	DemoEnabled  bool   `mapstructure:"DEMO_ENABLED"`
	DemoUsername string `mapstructure:"DEMO_USERNAME" validate:"required_if=DemoEnabled true,max=50"`
	DemoPassword string `mapstructure:"DEMO_PASSWORD"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER" validate:"omitempty,oneof=stdout otlp"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// SessionTTL returns the configured session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return IsProductionEnv(c.Env)
}

// IsProductionEnv reports whether an APP_ENV value names production. It is
// shared with code that runs before the config is loaded.
func IsProductionEnv(env string) bool {
	env = strings.TrimSpace(env)
	return env == "production" || env == "prod"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8375")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "kinship")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "kinship.db")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("FEATURE_FLAGS", "")
	v.SetDefault("SESSION_COOKIE_NAME", "kinship_session")
	v.SetDefault("SESSION_TTL_MINUTES", 60*24)
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("CSRF_ENABLED", true)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("DEMO_ENABLED", false)
	v.SetDefault("DEMO_USERNAME", "demo")
	v.SetDefault("DEMO_PASSWORD", defaultDemoPassword)
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()
	setDefaults(v)

	// The base config file is optional.
	_ = v.ReadInConfig()

	env := strings.TrimSpace(v.GetString("APP_ENV"))
	if env != "development" && env != "test" && env != "" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config.%s.yml: %w", env, err)
			}
			log.Printf("No profile-specific configuration for %s; using environment", env)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))
	config.DBDriver = strings.ToLower(strings.TrimSpace(config.DBDriver))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

var validate = validator.New()

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q validation", fe.Field(), fe.Tag())
		}
		return err
	}

	if c.IsProduction() {
		if c.DBDriver == "postgres" && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBDriver == "postgres" && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
			return errors.New("DB_SSLMODE must not be 'disable' in production")
		}
		if !c.SessionCookieSecure {
			return errors.New("SESSION_COOKIE_SECURE must be enabled in production")
		}
		if c.DemoEnabled && c.DemoPassword == defaultDemoPassword {
			return errors.New("DEMO_PASSWORD must be changed from the default value in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if !c.CSRFEnabled {
		log.Println("WARNING: CSRF protection is disabled.")
	}

	return nil
}
