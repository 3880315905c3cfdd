package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Discord configuration
	DiscordBotToken  string
	ThanksChannelID  string   // fallback channel when the bot can't reply in place
	DeniedChannelIDs []string // channels the bot never posts in
	CoinEmojis       []string

	// Coin configuration
	MaxCoinReceivers int
	CacheMaxEntries  int
	EventTimeout     time.Duration

	// Users service configuration
	UsersServiceURL    string
	UsersServiceAPIKey string

	// Azure Storage configuration
	StorageAccount   string
	StorageContainer string

	// Schedule configuration
	CacheSnapshotSchedule string
	ReportSchedule        string // "daily" or "weekly"

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Admin API
	AdminAPIToken string
}

// DefaultCoinEmojis are the reactions that count as giving a coin
var DefaultCoinEmojis = []string{
	"🪙", "coin", "👍", "🙌", "🚀", "🙏", "🎉", "💯", "⭐", "🌟", "🤝",
	"❤️", "💙", "💜", "💚", "💛", "🧡", "🤍", "🖤",
	"vaporlove", "vaporheart",
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		DiscordBotToken:  getEnv("DISCORD_BOT_TOKEN", ""),
		ThanksChannelID:  getEnv("THANKS_CHANNEL_ID", ""),
		DeniedChannelIDs: getSliceEnv("DENIED_CHANNEL_IDS", nil),
		CoinEmojis:       getSliceEnv("COIN_EMOJIS", DefaultCoinEmojis),

		MaxCoinReceivers: getIntEnv("MAX_COIN_RECEIVERS", 10),
		CacheMaxEntries:  getIntEnv("CACHE_MAX_ENTRIES", 200),
		EventTimeout:     getDurationEnv("EVENT_TIMEOUT", 30*time.Second),

		UsersServiceURL:    getEnv("USERS_SERVICE_URL", ""),
		UsersServiceAPIKey: getEnv("USERS_SERVICE_API_KEY", ""),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "penny"),

		CacheSnapshotSchedule: getEnv("CACHE_SNAPSHOT_SCHEDULE", "0 */15 * * * *"),
		ReportSchedule:        getEnv("REPORT_SCHEDULE", "weekly"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		AdminAPIToken: getEnv("ADMIN_API_TOKEN", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DiscordBotToken == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}

	if c.UsersServiceURL == "" {
		return fmt.Errorf("USERS_SERVICE_URL is required")
	}

	if c.ReportSchedule != "daily" && c.ReportSchedule != "weekly" {
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.MaxCoinReceivers <= 0 {
		return fmt.Errorf("MAX_COIN_RECEIVERS must be positive")
	}

	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// IsDeniedChannel reports whether the bot must never post in the channel
func (c *Config) IsDeniedChannel(channelID string) bool {
	for _, id := range c.DeniedChannelIDs {
		if id == channelID {
			return true
		}
	}
	return false
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items
	}
	return defaultValue
}
