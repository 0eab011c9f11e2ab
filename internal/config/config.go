package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	WhatsApp   WhatsAppConfig   `yaml:"whatsapp"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Session    SessionConfig    `yaml:"session"`
	Booking    BookingConfig    `yaml:"booking"`
	API        APIConfig        `yaml:"api"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Resources  []models.Resource `yaml:"resources"`
	Services   []models.Service  `yaml:"services"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	Timezone    string `yaml:"timezone"`
}

type WhatsAppConfig struct {
	AccessToken   string `yaml:"access_token"`
	PhoneNumberID string `yaml:"phone_number_id"`
	VerifyToken   string `yaml:"verify_token"`
	BaseURL       string `yaml:"base_url"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type BookingConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryBaseDelay    time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay     time.Duration `yaml:"retry_max_delay"`
	MaxAdvanceDays    int           `yaml:"max_advance_days"`
	WorkdayStart      string        `yaml:"workday_start"`
	WorkdayEnd        string        `yaml:"workday_end"`
	SearchDays        int           `yaml:"search_days"`
	RateLimitMessages int           `yaml:"rate_limit_messages"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
}

type APIConfig struct {
	Port      int                `yaml:"port"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
	StoragePath   string        `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	HealthCheckPort   int  `yaml:"health_check_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env не обязателен: в контейнере переменные приходят из окружения
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.WhatsApp.AccessToken == "" || c.WhatsApp.AccessToken == "YOUR_ACCESS_TOKEN_HERE" {
		return errors.New("whatsapp access token is required")
	}
	if c.WhatsApp.PhoneNumberID == "" {
		return errors.New("whatsapp phone number id is required")
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if err := ValidateResources(c.Resources); err != nil {
		return err
	}
	return ValidateServices(c.Services)
}

func ValidateResources(resources []models.Resource) error {
	seen := make(map[string]bool)
	for _, r := range resources {
		if r.ID == "" {
			return fmt.Errorf("resource %q has empty ID", r.DisplayName)
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate resource ID found: %s", r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}

func ValidateServices(services []models.Service) error {
	seen := make(map[string]bool)
	for _, s := range services {
		if s.ID == "" {
			return fmt.Errorf("service %q has empty ID", s.Name)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate service ID found: %s", s.ID)
		}
		if s.DurationMinutes <= 0 {
			return fmt.Errorf("service %s has non-positive duration", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "booking-engine"
	}
	if c.App.Timezone == "" {
		c.App.Timezone = "UTC"
	}
	if c.WhatsApp.BaseURL == "" {
		c.WhatsApp.BaseURL = "https://graph.facebook.com/v19.0"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = models.DefaultSessionTTL
	}
	if c.Session.SweepInterval == 0 {
		c.Session.SweepInterval = models.DefaultSessionSweepInterval
	}
	if c.Booking.RetryAttempts == 0 {
		c.Booking.RetryAttempts = models.DefaultRetryAttempts
	}
	if c.Booking.RetryBaseDelay == 0 {
		c.Booking.RetryBaseDelay = models.DefaultRetryBaseDelay
	}
	if c.Booking.RetryMaxDelay == 0 {
		c.Booking.RetryMaxDelay = 5 * time.Second
	}
	if c.Booking.MaxAdvanceDays == 0 {
		c.Booking.MaxAdvanceDays = 90
	}
	if c.Booking.WorkdayStart == "" {
		c.Booking.WorkdayStart = "09:00"
	}
	if c.Booking.WorkdayEnd == "" {
		c.Booking.WorkdayEnd = "18:00"
	}
	if c.Booking.SearchDays == 0 {
		c.Booking.SearchDays = 3
	}
	if c.Booking.RateLimitMessages == 0 {
		c.Booking.RateLimitMessages = models.RateLimitMessages
	}
	if c.Booking.RateLimitWindow == 0 {
		c.Booking.RateLimitWindow = models.RateLimitWindow
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 5
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 10
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Backup.Interval == 0 {
		c.Backup.Interval = 24 * time.Hour
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 14
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
