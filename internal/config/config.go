package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type AppConfig struct {
	API      *APIConfig      `mapstructure:"api"`
	Gin      *GinConfig      `mapstructure:"gin"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
}

type APIConfig struct {
	Environment        string   `mapstructure:"environment"`
	Port               string   `mapstructure:"port"`
	BaseURL            string   `mapstructure:"base_url"`
	JWTSigningKey      string   `mapstructure:"jwt_signing_key"`
	AllowedCORSDomains []string `mapstructure:"allowed_cors_domains"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.environment", "development")
	v.SetDefault("api.port", "8080")
	v.SetDefault("gin.mode", "debug")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.ssl_mode", "disable")

	return v
}

func Load(path string) (*AppConfig, error) {
	_, conf, err := load(path)
	return conf, err
}

func load(path string) (*viper.Viper, *AppConfig, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}
	if conf.API.JWTSigningKey == "" {
		return nil, nil, fmt.Errorf("api.jwt_signing_key is required")
	}

	return v, conf, nil
}

// Watch loads the config and calls onChange with a fresh copy every time the
// file changes. Reloads that fail to parse are passed to onError.
func Watch(path string, onChange func(fsnotify.Event, *AppConfig), onError func(error)) (*AppConfig, error) {
	v, conf, err := load(path)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		reloaded := &AppConfig{}
		if err := v.Unmarshal(reloaded); err != nil {
			onError(fmt.Errorf("v.Unmarshal -> %w", err))
			return
		}
		onChange(e, reloaded)
	})
	v.WatchConfig()

	return conf, nil
}
