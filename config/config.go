package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/angas/skyphase/logging"
	"github.com/angas/skyphase/types"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type AppConfigApi struct {
	Address string
	Port    int16
}

type AppConfigDatabase struct {
	Path string
	// How many days fetch history should be stored in database before it gets purged
	DataRetentionDays *int `mapstructure:"data_retention_days"`
	// How many days daily backup files should be stored before they gets deleted
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
}

func (d AppConfigDatabase) GetDataRetentionDays() int {
	if d.DataRetentionDays == nil {
		return 30
	}
	return *d.DataRetentionDays
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	if d.BackupRetentionDays == nil {
		return 14
	}
	return *d.BackupRetentionDays
}

type AppConfigDevice struct {
	// "none" (permission denied), "static" or "ip", default: "none"
	Mode      *string `mapstructure:"mode"`
	Latitude  float64 // Used in "static" mode (WGS84)
	Longitude float64 // Used in "static" mode (WGS84)
}

func (d AppConfigDevice) GetMode() string {
	if d.Mode == nil || *d.Mode == "" {
		return "none"
	}
	return strings.ToLower(*d.Mode)
}

type AppConfigLocation struct {
	// City used when the device position is unavailable, default: "San Francisco"
	FallbackCity *string         `mapstructure:"fallback_city"`
	Device       AppConfigDevice `mapstructure:"device"`
}

func (l AppConfigLocation) GetFallbackCity() string {
	if l.FallbackCity == nil || strings.TrimSpace(*l.FallbackCity) == "" {
		return "San Francisco"
	}
	return *l.FallbackCity
}

type AppConfigUnits struct {
	// "celsius" or "fahrenheit", default: "celsius"
	Temperature *string `mapstructure:"temperature"`
	// "kmh" or "mph", default: "kmh"
	Wind *string `mapstructure:"wind"`
}

func (u AppConfigUnits) GetTemperature() types.TempUnit {
	if u.Temperature == nil {
		return types.Celsius
	}
	if unit, err := types.ParseTempUnit(*u.Temperature); err == nil {
		return unit
	}
	return types.Celsius
}

func (u AppConfigUnits) GetWind() types.WindUnit {
	if u.Wind == nil {
		return types.Kmh
	}
	if unit, err := types.ParseWindUnit(*u.Wind); err == nil {
		return unit
	}
	return types.Kmh
}

type AppConfigProvider struct {
	ForecastUrl  *string `mapstructure:"forecast_url"`
	GeocodingUrl *string `mapstructure:"geocoding_url"`
	IpLookupUrl  *string `mapstructure:"ip_lookup_url"`
	// Timeout per upstream request in seconds, default: 10
	Timeout *int `mapstructure:"timeout"`
	// Retries on transport errors, 429 and 5xx, default: 2
	RetryCount *int `mapstructure:"retry_count"`
	// Consecutive failures before an upstream is considered down, default: 5
	BreakerThreshold *uint32 `mapstructure:"breaker_threshold"`
}

func (p AppConfigProvider) GetForecastUrl() string {
	return stringOrDefault(p.ForecastUrl, "https://api.open-meteo.com")
}

func (p AppConfigProvider) GetGeocodingUrl() string {
	return stringOrDefault(p.GeocodingUrl, "https://geocoding-api.open-meteo.com")
}

func (p AppConfigProvider) GetIpLookupUrl() string {
	return stringOrDefault(p.IpLookupUrl, "http://ip-api.com")
}

func (p AppConfigProvider) GetTimeout() time.Duration {
	if p.Timeout == nil || *p.Timeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(*p.Timeout) * time.Second
}

func (p AppConfigProvider) GetRetryCount() int {
	if p.RetryCount == nil || *p.RetryCount < 0 {
		return 2
	}
	return *p.RetryCount
}

func (p AppConfigProvider) GetBreakerThreshold() uint32 {
	if p.BreakerThreshold == nil || *p.BreakerThreshold == 0 {
		return 5
	}
	return *p.BreakerThreshold
}

type AppConfigRefresh struct {
	// Cron spec for the automatic refresh, default: every 15 minutes
	RunAt *string `mapstructure:"run_at"`
	// Upper bound for one refresh cycle in seconds, default: 30
	Timeout *int `mapstructure:"timeout"`
}

func (r AppConfigRefresh) GetRunAt() string {
	return stringOrDefault(r.RunAt, "*/15 * * * *")
}

func (r AppConfigRefresh) GetTimeout() time.Duration {
	if r.Timeout == nil || *r.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(*r.Timeout) * time.Second
}

type AppConfigMqtt struct {
	Enabled  bool
	Host     string
	Port     int16
	Username string
	Password string
	// Topic for the published state, default: "skyphase/state"
	Topic *string `mapstructure:"topic"`
}

func (m AppConfigMqtt) GetTopic() string {
	return stringOrDefault(m.Topic, "skyphase/state")
}

type AppConfigLogging struct {
	// Min log level for database : "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for database console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	return logging.LevelFromString(l.DbLevel)
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	return logging.AttrFormatFromString(l.DbAttrsFormat)
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

type AppConfig struct {
	Api      AppConfigApi
	Database AppConfigDatabase
	Location AppConfigLocation `mapstructure:"location"`
	Units    AppConfigUnits    `mapstructure:"units"`
	Provider AppConfigProvider `mapstructure:"provider"`
	Refresh  AppConfigRefresh  `mapstructure:"refresh"`
	Mqtt     AppConfigMqtt     `mapstructure:"mqtt"`
	Logging  AppConfigLogging  `mapstructure:"logging"`
}

type Loader struct {
	v *viper.Viper
}

// Load reads the config file at path, or config/config.yaml when path is empty.
// Environment variables override file values, e.g. API_PORT for api.port.
func Load(path string) (*AppConfig, *Loader, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Env overrides only apply to keys viper knows about.
	v.SetDefault("api.address", "")
	v.SetDefault("api.port", 8080)
	v.SetDefault("database.path", "skyphase.db")
	v.SetDefault("location.fallback_city", "San Francisco")
	v.SetDefault("location.device.mode", "none")
	v.SetDefault("units.temperature", string(types.Celsius))
	v.SetDefault("units.wind", string(types.Kmh))
	v.SetDefault("refresh.run_at", "*/15 * * * *")
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.host", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("unable to read config file: %w", err)
	}

	c, err := unmarshal(v)
	if err != nil {
		return nil, nil, err
	}
	return c, &Loader{v: v}, nil
}

// WatchUnits calls fn with the units section whenever the config file changes.
func (l *Loader) WatchUnits(logger *slog.Logger, fn func(AppConfigUnits)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		c, err := unmarshal(l.v)
		if err != nil {
			logger.Warn("ignoring changed config file", slog.String("file", e.Name), slog.Any("error", err))
			return
		}
		logger.Info("config file changed", slog.String("file", e.Name))
		fn(c.Units)
	})
	l.v.WatchConfig()
}

func unmarshal(v *viper.Viper) (*AppConfig, error) {
	var c AppConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}
	return &c, nil
}

func stringOrDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
