package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

type Config struct {
	Server         ServerConfig
	DatabaseURL    string
	AMQPURL        string
	RedisURL       string
	SMTP           SMTPConfig
	Stripe         StripeConfig
	Calendly       CalendlyConfig
	CalCom         CalComConfig
	Outbound       time.Duration
	DefaultTenant  string
	AllowedOrigins []string

	// BookingRateLimit caps agent booking requests per client IP per minute.
	BookingRateLimit int
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type StripeConfig struct {
	WebhookSecret string
	Tolerance     time.Duration
	Prices        map[entity.Plan]entity.PlanPrices
}

type CalendlyConfig struct {
	WebhookSecret string
}

type CalComConfig struct {
	APIURL        string
	EncryptionKey string
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (s *SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

// PlanCatalog builds the price lookup. Plans with no prices configured are
// left out, which keeps local setups without Stripe bootable.
func (c *StripeConfig) PlanCatalog() (*entity.PlanCatalog, error) {
	prices := make(map[entity.Plan]entity.PlanPrices, len(c.Prices))
	for plan, pp := range c.Prices {
		if pp.Monthly == "" && pp.Annual == "" {
			continue
		}
		prices[plan] = pp
	}
	return entity.NewPlanCatalog(prices)
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300)
	v.SetDefault("CAL_COM_API_URL", "https://api.cal.com/v1")
	v.SetDefault("OUTBOUND_TIMEOUT_SECONDS", 10)
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("BOOKING_RATE_LIMIT_PER_MINUTE", 30)

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
			Env:  v.GetString("SERVER_ENV"),
		},
		DatabaseURL: v.GetString("DATABASE_URL"),
		AMQPURL:     v.GetString("AMQP_URL"),
		RedisURL:    v.GetString("REDIS_URL"),
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		Stripe: StripeConfig{
			WebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
			Tolerance:     time.Duration(v.GetInt("STRIPE_WEBHOOK_TOLERANCE_SECONDS")) * time.Second,
			Prices: map[entity.Plan]entity.PlanPrices{
				entity.PlanStarter:      planPrices(v, "STARTER"),
				entity.PlanProfessional: planPrices(v, "PROFESSIONAL"),
				entity.PlanBusiness:     planPrices(v, "BUSINESS"),
			},
		},
		Calendly: CalendlyConfig{
			WebhookSecret: v.GetString("CALENDLY_WEBHOOK_SECRET"),
		},
		CalCom: CalComConfig{
			APIURL:        strings.TrimRight(v.GetString("CAL_COM_API_URL"), "/"),
			EncryptionKey: v.GetString("CAL_COM_ENCRYPTION_KEY"),
		},
		Outbound:       time.Duration(v.GetInt("OUTBOUND_TIMEOUT_SECONDS")) * time.Second,
		DefaultTenant:  v.GetString("DEFAULT_TENANT_ID"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),

		BookingRateLimit: v.GetInt("BOOKING_RATE_LIMIT_PER_MINUTE"),
	}

	return cfg, nil
}

func planPrices(v *viper.Viper, tier string) entity.PlanPrices {
	return entity.PlanPrices{
		Monthly: v.GetString("STRIPE_PRICE_" + tier + "_MONTHLY"),
		Annual:  v.GetString("STRIPE_PRICE_" + tier + "_ANNUAL"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
