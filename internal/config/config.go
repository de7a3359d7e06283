package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every configurable surface of the service.
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Payment PaymentConfig
	Email   EmailConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		AI:      ai,
		Payment: loadPaymentConfig(),
		Email:   loadEmailConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	LogLevel       string
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	addr := port
	if !strings.Contains(port, ":") {
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		addr = ":" + port
	}

	origins := []string{"*"}
	if raw := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); raw != "" {
		origins = origins[:0]
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return ServerConfig{
		Addr:           addr,
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		AllowedOrigins: origins,
	}, nil
}

// AIConfig describes the remote text-generation endpoint.
type AIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Enabled reports whether remote generation credentials are present.
// When false the intake flow runs entirely on scripted replies.
func (c AIConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadAIConfig() (AIConfig, error) {
	timeoutSeconds := 20
	if override, err := parseOptionalIntEnv("RESOLVER_TIMEOUT_SECONDS"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AIConfig{}, fmt.Errorf("RESOLVER_TIMEOUT_SECONDS must be positive, got %d", *override)
		}
		timeoutSeconds = *override
	}

	return AIConfig{
		APIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		Model:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		BaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// PaymentConfig describes the payment processor integration.
type PaymentConfig struct {
	SecretKey     string
	WebhookSecret string
}

// Enabled reports whether checkout creation can be offered.
func (c PaymentConfig) Enabled() bool {
	return c.SecretKey != ""
}

// WebhooksEnabled reports whether inbound webhook events can be verified.
func (c PaymentConfig) WebhooksEnabled() bool {
	return c.WebhookSecret != ""
}

func loadPaymentConfig() PaymentConfig {
	return PaymentConfig{
		SecretKey:     strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		WebhookSecret: strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET")),
	}
}

// EmailConfig describes outbound notification delivery.
type EmailConfig struct {
	NotifyAddress  string
	FromAddress    string
	ResendAPIKey   string
	SendgridAPIKey string
}

// Enabled reports whether at least one delivery provider is configured.
func (c EmailConfig) Enabled() bool {
	return c.ResendAPIKey != "" || c.SendgridAPIKey != ""
}

func loadEmailConfig() EmailConfig {
	return EmailConfig{
		NotifyAddress:  getEnvOrDefault("NOTIFY_EMAIL", "hello@northpeak-analytics.com"),
		FromAddress:    getEnvOrDefault("FROM_EMAIL", "no-reply@northpeak-analytics.com"),
		ResendAPIKey:   strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		SendgridAPIKey: strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
