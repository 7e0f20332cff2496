package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

var Module = fx.Provide(
	NewConfig,
)

type (
	Config struct {
		Host            string `mapstructure:"HOST"`
		Port            string `mapstructure:"PORT"`
		Env             string `mapstructure:"ENV"`
		SupabaseURL     string `mapstructure:"SUPABASE_URL"`
		SupabaseAnonKey string `mapstructure:"SUPABASE_ANON_KEY"`
		CookieSecure    bool   `mapstructure:"COOKIE_SECURE"`
	}

	EmulatorConfig struct {
		Host         string        `mapstructure:"HOST"`
		Port         string        `mapstructure:"PORT"`
		Env          string        `mapstructure:"ENV"`
		DBDriver     string        `mapstructure:"DB_DRIVER"`
		DSN          string        `mapstructure:"DSN"`
		JWTSecret    string        `mapstructure:"JWT_SECRET"`
		AnonKey      string        `mapstructure:"ANON_KEY"`
		TokenTTL     time.Duration `mapstructure:"TOKEN_TTL"`
		SeedEmail    string        `mapstructure:"SEED_EMAIL"`
		SeedPassword string        `mapstructure:"SEED_PASSWORD"`
	}
)

func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PERSONAL_HUB")

	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_ANON_KEY", "")
	v.SetDefault("COOKIE_SECURE", false)

	envs := []string{"HOST", "PORT", "ENV", "COOKIE_SECURE"}
	for _, key := range envs {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	// the service credentials are usually exported without the app prefix
	if err := v.BindEnv("SUPABASE_URL", "PERSONAL_HUB_SUPABASE_URL", "SUPABASE_URL"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("SUPABASE_ANON_KEY", "PERSONAL_HUB_SUPABASE_ANON_KEY", "SUPABASE_ANON_KEY"); err != nil {
		return nil, err
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

func NewEmulatorConfig() (*EmulatorConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("PERSONAL_HUB_EMULATOR")

	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "54321")
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("DB_DRIVER", DBDriverSQLite)
	v.SetDefault("DSN", "emulator.db")
	v.SetDefault("JWT_SECRET", "super-secret-jwt-token-with-at-least-32-characters-long")
	v.SetDefault("ANON_KEY", "anon-key")
	v.SetDefault("TOKEN_TTL", time.Hour)
	v.SetDefault("SEED_EMAIL", "")
	v.SetDefault("SEED_PASSWORD", "")

	envs := []string{"HOST", "PORT", "ENV", "DB_DRIVER", "DSN", "JWT_SECRET", "ANON_KEY", "TOKEN_TTL", "SEED_EMAIL", "SEED_PASSWORD"}
	for _, key := range envs {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	cfg := EmulatorConfig{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validateEmulator(&cfg); err != nil {
		return nil, errors.Wrap(err, "emulator config validation failed")
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if err := validateEnv(cfg.Env); err != nil {
		return err
	}
	if cfg.SupabaseURL == "" {
		return errors.New("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return errors.New("SUPABASE_ANON_KEY is required")
	}
	return nil
}

func validateEmulator(cfg *EmulatorConfig) error {
	if err := validateEnv(cfg.Env); err != nil {
		return err
	}
	if cfg.DBDriver != DBDriverSQLite && cfg.DBDriver != DBDriverPostgres {
		return errors.New(fmt.Sprintf("DB driver is invalid: %s", cfg.DBDriver))
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT secret is required")
	}
	if (cfg.SeedEmail == "") != (cfg.SeedPassword == "") {
		return errors.New("seed email and seed password must be set together")
	}
	return nil
}

func validateEnv(env string) error {
	validEnvs := []string{EnvDevelopment, EnvProduction}
	for _, validValue := range validEnvs {
		if env == validValue {
			return nil
		}
	}
	return errors.New(fmt.Sprintf("env is invalid: %s", env))
}
