package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/config"

	"github.com/sandeepkv93/salahd/internal/model"
)

const (
	EnvConfigPath     = "SALAHD_CONFIG"
	DefaultConfigPath = "./config/salahd.yaml"
	DefaultEnvFile    = ".env"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Database      DatabaseConfig             `yaml:"database"`
	Location      LocationConfig             `yaml:"location"`
	Notifications model.NotificationSettings `yaml:"notifications"`
	Source        SourceConfig               `yaml:"source"`
	MQTT          MQTTConfig                 `yaml:"mqtt"`
	Backup        BackupConfig               `yaml:"backup"`
	Metrics       MetricsConfig              `yaml:"metrics"`
	Logging       LoggingConfig              `yaml:"logging"`
	Scheduler     SchedulerConfig            `yaml:"scheduler"`
	Stats         StatsConfig                `yaml:"stats"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LocationConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Timezone  string  `yaml:"timezone"`
}

type SourceConfig struct {
	BaseURL string        `yaml:"base_url"`
	Method  int           `yaml:"method"`
	Timeout time.Duration `yaml:"timeout"`
	Offline bool          `yaml:"offline"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
}

type BackupConfig struct {
	RedisURL  string `yaml:"redis_url"`
	Namespace string `yaml:"namespace"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type SchedulerConfig struct {
	Buffer            int           `yaml:"buffer"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	DesktopNotify     bool          `yaml:"desktop_notify"`
}

type StatsConfig struct {
	StreakPolicy string `yaml:"streak_policy"`
}

func Default() Config {
	return Config{
		Database:      DatabaseConfig{Path: "salahd.db"},
		Location:      LocationConfig{Latitude: 21.4225, Longitude: 39.8262, Timezone: "Local"},
		Notifications: model.DefaultNotificationSettings(),
		Source: SourceConfig{
			BaseURL: "https://api.aladhan.com/v1",
			Method:  2,
			Timeout: 10 * time.Second,
		},
		MQTT:      MQTTConfig{ClientID: "salahd", TopicPrefix: "salahd/notifications", QoS: 1},
		Backup:    BackupConfig{Namespace: "salahd"},
		Logging:   LoggingConfig{Level: "info", Format: "json", File: "salahd.log"},
		Scheduler: SchedulerConfig{Buffer: 64, ReconcileInterval: 15 * time.Minute, DesktopNotify: true},
		Stats:     StatsConfig{StreakPolicy: "today-grace"},
	}
}

// Load reads .env, then the YAML file named by SALAHD_CONFIG (or the
// default path), then environment overrides.
func Load() (Config, error) {
	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", DefaultEnvFile, err)
	}
	return LoadFrom(getEnv(EnvConfigPath, DefaultConfigPath))
}

func LoadFrom(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		provider, err := config.NewYAML(config.File(path), config.Expand(os.LookupEnv))
		if err != nil {
			return Config{}, fmt.Errorf("create config provider: %w", err)
		}
		if err := provider.Get(config.Root).Populate(&cfg); err != nil {
			return Config{}, fmt.Errorf("populate config: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("stat %s: %w", path, err)
	}

	cfg.overrideFromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) overrideFromEnv() {
	if v, ok := getEnvString("SALAHD_DB_PATH"); ok {
		c.Database.Path = v
	}
	if v, ok := getEnvFloat("SALAHD_LATITUDE"); ok {
		c.Location.Latitude = v
	}
	if v, ok := getEnvFloat("SALAHD_LONGITUDE"); ok {
		c.Location.Longitude = v
	}
	if v, ok := getEnvString("SALAHD_TIMEZONE"); ok {
		c.Location.Timezone = v
	}
	if v, ok := getEnvBool("SALAHD_NOTIFICATIONS_ENABLED"); ok {
		c.Notifications.Enabled = v
	}
	if v, ok := getEnvInt("SALAHD_MINUTES_BEFORE"); ok && v >= 0 {
		c.Notifications.MinutesBefore = v
	}
	if v, ok := getEnvInt("SALAHD_REMINDER_INTERVAL"); ok && v > 0 {
		c.Notifications.ReminderInterval = v
	}
	if v, ok := getEnvString("SALAHD_SOURCE_URL"); ok {
		c.Source.BaseURL = v
	}
	if v, ok := getEnvInt("SALAHD_SOURCE_METHOD"); ok && v >= 0 {
		c.Source.Method = v
	}
	if v, ok := getEnvDuration("SALAHD_SOURCE_TIMEOUT"); ok && v > 0 {
		c.Source.Timeout = v
	}
	if v, ok := getEnvBool("SALAHD_OFFLINE"); ok {
		c.Source.Offline = v
	}
	if v, ok := getEnvString("SALAHD_MQTT_BROKER"); ok {
		c.MQTT.Broker = v
	}
	if v, ok := getEnvString("SALAHD_MQTT_CLIENT_ID"); ok {
		c.MQTT.ClientID = v
	}
	if v, ok := getEnvString("SALAHD_MQTT_TOPIC_PREFIX"); ok {
		c.MQTT.TopicPrefix = v
	}
	if v, ok := getEnvString("SALAHD_REDIS_URL"); ok {
		c.Backup.RedisURL = v
	}
	if v, ok := getEnvString("SALAHD_METRICS_ADDR"); ok {
		c.Metrics.Addr = v
	}
	if v, ok := getEnvString("SALAHD_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := getEnvString("SALAHD_LOG_FORMAT"); ok {
		c.Logging.Format = v
	}
	if v, ok := getEnvString("SALAHD_LOG_FILE"); ok {
		c.Logging.File = v
	}
	if v, ok := getEnvInt("SALAHD_SCHEDULER_BUFFER"); ok && v > 0 {
		c.Scheduler.Buffer = v
	}
	if v, ok := getEnvDuration("SALAHD_RECONCILE_INTERVAL"); ok && v > 0 {
		c.Scheduler.ReconcileInterval = v
	}
	if v, ok := getEnvBool("SALAHD_DESKTOP_NOTIFICATIONS"); ok {
		c.Scheduler.DesktopNotify = v
	}
	if v, ok := getEnvString("SALAHD_STREAK_POLICY"); ok {
		c.Stats.StreakPolicy = v
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("%w: database path is required", ErrInvalidConfig)
	}
	if err := c.Place().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Zone(); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Location.Timezone, err)
	}
	if err := c.Notifications.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("%w: mqtt qos must be 0, 1 or 2", ErrInvalidConfig)
	}
	if c.Scheduler.Buffer <= 0 || c.Scheduler.ReconcileInterval <= 0 {
		return fmt.Errorf("%w: scheduler buffer and reconcile interval must be positive", ErrInvalidConfig)
	}
	if c.Scheduler.ReconcileInterval >= model.ReminderWindow {
		return fmt.Errorf("%w: reconcile interval must be shorter than %s", ErrInvalidConfig, model.ReminderWindow)
	}
	return nil
}

func (c Config) Place() model.Location {
	return model.Location{Latitude: c.Location.Latitude, Longitude: c.Location.Longitude}
}

func (c Config) Zone() (*time.Location, error) {
	switch strings.TrimSpace(c.Location.Timezone) {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Location.Timezone)
	}
}

func getEnv(name, fallback string) string {
	if v, ok := getEnvString(name); ok {
		return v
	}
	return fallback
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	return raw, raw != ""
}

func getEnvInt(name string) (int, bool) {
	raw, ok := getEnvString(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvFloat(name string) (float64, bool) {
	raw, ok := getEnvString(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvDuration(name string) (time.Duration, bool) {
	raw, ok := getEnvString(name)
	if !ok {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw, ok := getEnvString(name)
	if !ok {
		return false, false
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
