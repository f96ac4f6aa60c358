package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ReadyPlayerEmma/looplace/internal/tasks/nback"
	"github.com/ReadyPlayerEmma/looplace/internal/tasks/pvt"
)

// Conf holds the application configuration, making it accessible globally.
var Conf *Config

// Config struct is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	PVT       PVTConfig       `mapstructure:"pvt"`
	NBack     NBackConfig     `mapstructure:"nback"`
	Readiness ReadinessConfig `mapstructure:"readiness"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port        string `mapstructure:"port"`
	CatalogPath string `mapstructure:"catalog_path"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// PVTConfig holds the vigilance task parameters.
type PVTConfig struct {
	TargetTrials      int `mapstructure:"target_trials"`
	MinITIMs          int `mapstructure:"min_iti_ms"`
	MaxITIMs          int `mapstructure:"max_iti_ms"`
	MaxResponseMs     int `mapstructure:"max_response_ms"`
	MinReactionTrials int `mapstructure:"min_reaction_trials"`
}

// Engine converts the section into the engine's config type.
func (c PVTConfig) Engine() pvt.Config {
	return pvt.Config{
		TargetTrials:      c.TargetTrials,
		MinITIMs:          c.MinITIMs,
		MaxITIMs:          c.MaxITIMs,
		MaxResponseMs:     c.MaxResponseMs,
		MinReactionTrials: c.MinReactionTrials,
	}
}

// NBackConfig holds the 2-back task parameters.
type NBackConfig struct {
	TotalTrials             int     `mapstructure:"total_trials"`
	PracticeTrials          int     `mapstructure:"practice_trials"`
	TargetRatio             float64 `mapstructure:"target_ratio"`
	StimulusMs              int     `mapstructure:"stimulus_ms"`
	InterstimulusIntervalMs int     `mapstructure:"interstimulus_interval_ms"`
	LeadInMs                int     `mapstructure:"lead_in_ms"`
	ResponseWindowMs        int     `mapstructure:"response_window_ms"`
	Seed                    uint64  `mapstructure:"seed"`
}

// Engine converts the section into the engine's config type.
func (c NBackConfig) Engine() nback.Config {
	return nback.Config{
		TotalTrials:             c.TotalTrials,
		PracticeTrials:          c.PracticeTrials,
		TargetRatio:             c.TargetRatio,
		StimulusMs:              c.StimulusMs,
		InterstimulusIntervalMs: c.InterstimulusIntervalMs,
		LeadInMs:                c.LeadInMs,
		ResponseWindowMs:        c.ResponseWindowMs,
		Seed:                    c.Seed,
	}
}

// ReadinessConfig holds the cooldown advisory intervals.
type ReadinessConfig struct {
	PVTIntervalHours   float64 `mapstructure:"pvt_interval_hours"`
	NBackIntervalHours float64 `mapstructure:"nback_interval_hours"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.catalog_path", "config/tasks.yaml")

	// Database defaults
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "looplace-db")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	// PVT defaults
	v.SetDefault("pvt.target_trials", 30)
	v.SetDefault("pvt.min_iti_ms", 2000)
	v.SetDefault("pvt.max_iti_ms", 10000)
	v.SetDefault("pvt.max_response_ms", 10000)
	v.SetDefault("pvt.min_reaction_trials", 20)

	// 2-back defaults
	v.SetDefault("nback.total_trials", 60)
	v.SetDefault("nback.practice_trials", 12)
	v.SetDefault("nback.target_ratio", 0.3)
	v.SetDefault("nback.stimulus_ms", 500)
	v.SetDefault("nback.interstimulus_interval_ms", 2500)
	v.SetDefault("nback.lead_in_ms", 750)
	v.SetDefault("nback.response_window_ms", 3000)
	v.SetDefault("nback.seed", 1)

	// Readiness advisory defaults
	v.SetDefault("readiness.pvt_interval_hours", 4)
	v.SetDefault("readiness.nback_interval_hours", 72)
}

// Init initializes the configuration with Viper.
func Init(projectRoot string, log *zap.Logger) error {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config") // Name of config file (without extension)
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("LOOPLACE") // e.g., LOOPLACE_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the initial configuration from the file.
	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal the config into our global Conf variable
	if err := v.Unmarshal(&Conf); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// Set up a watch for configuration changes for hot-reloading
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		if err := v.Unmarshal(&Conf); err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
		}
	})

	log.Info("Configuration loaded successfully")
	return nil
}
