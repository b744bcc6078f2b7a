package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	SettingsCacheTTL      time.Duration
	AuthSecret            string
	AccessTokenTTLMinutes int
	DefaultMarkupPercent  decimal.Decimal
}

var defaults = map[string]any{
	"PORT":                       "8080",
	"ALLOWED_ORIGIN":             "http://127.0.0.1:3000",
	"DATABASE_URL":               "",
	"REDIS_ADDR":                 "",
	"REDIS_PASSWORD":             "",
	"REDIS_DB":                   0,
	"SETTINGS_CACHE_TTL_SECONDS": 60,
	"AUTH_SECRET":                "",
	"ACCESS_TOKEN_TTL_MINUTES":   480,
	"DEFAULT_MARKUP_PERCENT":     "10",
}

// Load reads configuration from the environment, an optional .env file and
// an optional config.yaml in the working directory. Environment wins.
func Load() Config {
	// .env is optional outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Printf("[config] ignoring config.yaml: %v", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) Config {
	cacheTTL := v.GetInt("SETTINGS_CACHE_TTL_SECONDS")
	if cacheTTL < 1 {
		cacheTTL = 60
	}
	tokenTTL := v.GetInt("ACCESS_TOKEN_TTL_MINUTES")
	if tokenTTL < 1 {
		tokenTTL = 480
	}
	markup, err := decimal.NewFromString(strings.TrimSpace(v.GetString("DEFAULT_MARKUP_PERCENT")))
	if err != nil || markup.IsNegative() {
		log.Printf("[config] invalid DEFAULT_MARKUP_PERCENT %q, using 10", v.GetString("DEFAULT_MARKUP_PERCENT"))
		markup = decimal.NewFromInt(10)
	}

	return Config{
		Port:                  v.GetString("PORT"),
		AllowedOrigin:         v.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:           strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisAddr:             strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		RedisDB:               v.GetInt("REDIS_DB"),
		SettingsCacheTTL:      time.Duration(cacheTTL) * time.Second,
		AuthSecret:            strings.TrimSpace(v.GetString("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		DefaultMarkupPercent:  markup,
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}
