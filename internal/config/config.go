package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Checkout CheckoutConfig
	Stripe   StripeConfig
	PayPal   PayPalConfig
	Auth     AuthConfig
	Webhook  WebhookConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type CheckoutConfig struct {
	SessionTTL            time.Duration
	FreeShippingThreshold float64
	Currency              string
}

type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
}

type PayPalConfig struct {
	ClientID      string
	Secret        string
	WebhookSecret string
}

type AuthConfig struct {
	TokenSecret string
}

type WebhookConfig struct {
	RatePerMinute int
	RateBurst     int
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 3306)
	viper.SetDefault("DB_USER", "palantir")
	viper.SetDefault("DB_PASSWORD", "secret")
	viper.SetDefault("DB_NAME", "storefront")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("CHECKOUT_SESSION_TTL", "24h")
	viper.SetDefault("CHECKOUT_FREE_SHIPPING_THRESHOLD", 150.00)
	viper.SetDefault("CHECKOUT_CURRENCY", "usd")
	viper.SetDefault("STRIPE_SECRET_KEY", "")
	viper.SetDefault("STRIPE_PUBLISHABLE_KEY", "")
	viper.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	viper.SetDefault("PAYPAL_CLIENT_ID", "")
	viper.SetDefault("PAYPAL_SECRET", "")
	viper.SetDefault("PAYPAL_WEBHOOK_SECRET", "")
	viper.SetDefault("AUTH_TOKEN_SECRET", "")
	viper.SetDefault("WEBHOOK_RATE_PER_MINUTE", 120)
	viper.SetDefault("WEBHOOK_RATE_BURST", 30)
	viper.SetDefault("LOG_LEVEL", "info")

	connMaxLifetime, err := time.ParseDuration(viper.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, err
	}

	sessionTTL, err := time.ParseDuration(viper.GetString("CHECKOUT_SESSION_TTL"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Checkout: CheckoutConfig{
			SessionTTL:            sessionTTL,
			FreeShippingThreshold: viper.GetFloat64("CHECKOUT_FREE_SHIPPING_THRESHOLD"),
			Currency:              viper.GetString("CHECKOUT_CURRENCY"),
		},
		Stripe: StripeConfig{
			SecretKey:      viper.GetString("STRIPE_SECRET_KEY"),
			PublishableKey: viper.GetString("STRIPE_PUBLISHABLE_KEY"),
			WebhookSecret:  viper.GetString("STRIPE_WEBHOOK_SECRET"),
		},
		PayPal: PayPalConfig{
			ClientID:      viper.GetString("PAYPAL_CLIENT_ID"),
			Secret:        viper.GetString("PAYPAL_SECRET"),
			WebhookSecret: viper.GetString("PAYPAL_WEBHOOK_SECRET"),
		},
		Auth: AuthConfig{
			TokenSecret: viper.GetString("AUTH_TOKEN_SECRET"),
		},
		Webhook: WebhookConfig{
			RatePerMinute: viper.GetInt("WEBHOOK_RATE_PER_MINUTE"),
			RateBurst:     viper.GetInt("WEBHOOK_RATE_BURST"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	return cfg, nil
}
