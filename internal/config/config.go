package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ShopifyConfig holds the app credentials and billing prices.
type ShopifyConfig struct {
	APIKey        string
	APISecret     string
	WebhookSecret string
	Scopes        []string
	RedirectURI   string
	MonthlyPrice  float64
	AnnualPrice   float64
}

// Config is the full server configuration, read from the environment.
type Config struct {
	Port          string
	AppURL        string
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	Shopify       ShopifyConfig
}

// Load reads configuration from the environment. SHOPIFY_API_KEY and
// SHOPIFY_API_SECRET are required; everything else has a development
// default. Call godotenv.Load first if a .env file should be honored.
func Load() (*Config, error) {
	apiKey := os.Getenv("SHOPIFY_API_KEY")
	apiSecret := os.Getenv("SHOPIFY_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("SHOPIFY_API_KEY and SHOPIFY_API_SECRET are required")
	}

	appURL := getenv("APP_URL", "http://localhost:8080")

	cfg := &Config{
		Port:          getenv("PORT", "8080"),
		AppURL:        appURL,
		MongoURI:      getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getenv("MONGODB_DATABASE", "convertly"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		Shopify: ShopifyConfig{
			APIKey:        apiKey,
			APISecret:     apiSecret,
			WebhookSecret: getenv("SHOPIFY_WEBHOOK_SECRET", apiSecret),
			Scopes:        splitScopes(getenv("SHOPIFY_SCOPES", "write_application_charges,read_application_charges,read_orders")),
			RedirectURI:   getenv("SHOPIFY_REDIRECT_URI", appURL+"/auth/callback"),
			MonthlyPrice:  getfloat("MONTHLY_PRICE", 29.00),
			AnnualPrice:   getfloat("ANNUAL_PRICE", 290.00),
		},
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getfloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func splitScopes(raw string) []string {
	var scopes []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
