package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Provider   ProviderConfig
	Thresholds ThresholdConfig
	HTTP       HTTPConfig
	Schedule   ScheduleConfig
	SMTP       SMTPConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers     []string
	TopicAlerts string
}

// ProviderConfig holds the OpenWeatherMap connection settings. An empty
// APIKey gates the collection trigger.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Lang    string
	Timeout time.Duration
}

func (p ProviderConfig) APIKeyConfigured() bool {
	return strings.TrimSpace(p.APIKey) != "" && p.APIKey != "demo_key"
}

// ThresholdConfig holds the alert rule thresholds and the expected number
// of observations per city per day.
type ThresholdConfig struct {
	HeatWave             float64
	ColdWave             float64
	HeavyRain            float64
	AbnormalTempChange   float64
	ExpectedDailyRecords int
	DedupWindow          time.Duration
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ScheduleConfig holds cron specs for the three periodic job triggers.
type ScheduleConfig struct {
	CollectionSpec string
	StatisticsSpec string
	AlertsSpec     string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "weather_user"),
			Password: getEnv("DB_PASSWORD", "weather_pass"),
			DBName:   getEnv("DB_NAME", "weather_batch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:     strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicAlerts: getEnv("KAFKA_TOPIC_ALERTS", "weather.alerts"),
		},
		Provider: ProviderConfig{
			APIKey:  getEnv("PROVIDER_API_KEY", ""),
			BaseURL: getEnv("PROVIDER_BASE_URL", "https://api.openweathermap.org/data/2.5/weather"),
			Lang:    getEnv("PROVIDER_LANG", "kr"),
			Timeout: getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),
		},
		Thresholds: ThresholdConfig{
			HeatWave:             getEnvAsFloat("THRESHOLD_HEAT_WAVE", 35.0),
			ColdWave:             getEnvAsFloat("THRESHOLD_COLD_WAVE", -10.0),
			HeavyRain:            getEnvAsFloat("THRESHOLD_HEAVY_RAIN", 50.0),
			AbnormalTempChange:   getEnvAsFloat("THRESHOLD_ABNORMAL_TEMP_CHANGE", 20.0),
			ExpectedDailyRecords: getEnvAsInt("EXPECTED_DAILY_RECORDS", 24),
			DedupWindow:          getEnvAsDuration("ALERT_DEDUP_WINDOW", time.Hour),
		},
		HTTP: HTTPConfig{
			Port:         getEnv("HTTP_PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvAsDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		},
		Schedule: ScheduleConfig{
			CollectionSpec: getEnv("SCHEDULE_COLLECTION", "0 * * * *"),
			StatisticsSpec: getEnv("SCHEDULE_STATISTICS", "10 0 * * *"),
			AlertsSpec:     getEnv("SCHEDULE_ALERTS", "15 * * * *"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "weather-batch@example.com"),
			To:       getEnv("SMTP_TO", "ops@example.com"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
