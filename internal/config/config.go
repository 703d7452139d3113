package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds every setting the process reads at startup.
type Config struct {
	AppPort string

	DatabaseDriver string
	DatabaseDSN    string
	StoreTimeout   time.Duration

	JWTSecret string
	TokenTTL  time.Duration

	// APIKey guards /api/*. An empty key rejects every request unless
	// APIKeyDisabled is set.
	APIKey         string
	APIKeyHeader   string
	APIKeyDisabled bool

	// RabbitMQURL enables order events when set.
	RabbitMQURL string

	ShippingSurcharge decimal.Decimal
	SnowflakeNode     int64
	SeedProducts      bool

	LogLevel string
	LogDev   bool
	LogFile  string
}

// DevJWTSecret is the signing secret used when JWT_SECRET is unset.
const DevJWTSecret = "dev_jwt_secret"

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "storefront.db")
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("JWT_SECRET", DevJWTSecret)
	v.SetDefault("TOKEN_TTL", "1h")
	v.SetDefault("API_KEY", "")
	v.SetDefault("API_KEY_HEADER", "X-API-Key")
	v.SetDefault("API_KEY_DISABLED", false)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("SHIPPING_SURCHARGE", "500")
	v.SetDefault("SNOWFLAKE_NODE", 1)
	v.SetDefault("SEED_PRODUCTS", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEV", false)
	v.SetDefault("LOG_FILE", "")
}

// Load reads an optional .env file, then defaults and environment overrides.
// The returned bool reports whether a .env file was loaded.
func Load(v *viper.Viper, envFiles ...string) (Config, bool, error) {
	loaded := godotenv.Load(envFiles...) == nil

	SetDefaults(v)
	v.AutomaticEnv()

	surcharge, err := decimal.NewFromString(v.GetString("SHIPPING_SURCHARGE"))
	if err != nil {
		return Config{}, loaded, err
	}

	return Config{
		AppPort:           v.GetString("APP_PORT"),
		DatabaseDriver:    v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:       v.GetString("DATABASE_DSN"),
		StoreTimeout:      v.GetDuration("STORE_TIMEOUT"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		TokenTTL:          v.GetDuration("TOKEN_TTL"),
		APIKey:            v.GetString("API_KEY"),
		APIKeyHeader:      v.GetString("API_KEY_HEADER"),
		APIKeyDisabled:    v.GetBool("API_KEY_DISABLED"),
		RabbitMQURL:       v.GetString("RABBITMQ_URL"),
		ShippingSurcharge: surcharge,
		SnowflakeNode:     v.GetInt64("SNOWFLAKE_NODE"),
		SeedProducts:      v.GetBool("SEED_PRODUCTS"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogDev:            v.GetBool("LOG_DEV"),
		LogFile:           v.GetString("LOG_FILE"),
	}, loaded, nil
}

// Warnings lists settings that are unsafe outside development.
func (c Config) Warnings() []string {
	var out []string
	if c.APIKey == "" && !c.APIKeyDisabled {
		out = append(out, "API_KEY is not set: every /api request will be rejected")
	}
	if c.APIKeyDisabled {
		out = append(out, "API_KEY_DISABLED is set: /api is open without a shared secret")
	}
	if c.JWTSecret == DevJWTSecret && !c.LogDev {
		out = append(out, "JWT_SECRET is not set: tokens are signed with the development secret")
	}
	return out
}
