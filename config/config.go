package config

import (
	logger "github.com/Bparsons0904/goLogger"

	"github.com/spf13/viper"
)

const (
	DefaultUploadMaxBytes       = 64 * 1024 * 1024
	DefaultHistoryRetentionDays = 30
)

type Config struct {
	GeneralVersion       string `mapstructure:"GENERAL_VERSION"`
	Environment          string `mapstructure:"ENVIRONMENT"`
	ServerPort           int    `mapstructure:"SERVER_PORT"`
	DatabaseHost         string `mapstructure:"DB_HOST"`
	DatabasePort         int    `mapstructure:"DB_PORT"`
	DatabaseName         string `mapstructure:"DB_NAME"`
	DatabaseUser         string `mapstructure:"DB_USER"`
	DatabasePassword     string `mapstructure:"DB_PASSWORD"`
	DatabaseCacheAddress string `mapstructure:"DB_CACHE_ADDRESS"`
	DatabaseCachePort    int    `mapstructure:"DB_CACHE_PORT"`
	DatabaseCacheReset   int    `mapstructure:"DB_CACHE_RESET"`
	CorsAllowOrigins     string `mapstructure:"CORS_ALLOW_ORIGINS"`
	JWTSecret            string `mapstructure:"JWT_SECRET"`
	UploadMaxBytes       int    `mapstructure:"UPLOAD_MAX_BYTES"`
	HistoryRetentionDays int    `mapstructure:"HISTORY_RETENTION_DAYS"`
	SchedulerEnabled     bool   `mapstructure:"SCHEDULER_ENABLED"`
}

var ConfigInstance Config

var envVars = []string{
	"GENERAL_VERSION", "ENVIRONMENT", "SERVER_PORT", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD",
	"DB_CACHE_ADDRESS", "DB_CACHE_PORT", "DB_CACHE_RESET",
	"CORS_ALLOW_ORIGINS", "JWT_SECRET",
	"UPLOAD_MAX_BYTES", "HISTORY_RETENTION_DAYS", "SCHEDULER_ENABLED",
}

func New() (Config, error) {
	log := logger.New("config").Function("New")
	log.Info("Initializing config")

	viper.AutomaticEnv()

	for _, env := range envVars {
		if err := viper.BindEnv(env); err != nil {
			log.Warn("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	viper.SetDefault("UPLOAD_MAX_BYTES", DefaultUploadMaxBytes)
	viper.SetDefault("HISTORY_RETENTION_DAYS", DefaultHistoryRetentionDays)
	viper.SetDefault("DB_CACHE_RESET", -1)
	viper.SetDefault("CORS_ALLOW_ORIGINS", "*")

	if viper.IsSet("SERVER_PORT") {
		log.Info("Environment variables detected, skipping file loading")
	} else {
		log.Info("Environment variables not found, attempting to load from files")

		viper.SetConfigFile(".env")
		viper.SetConfigType("env")

		if err := viper.ReadInConfig(); err != nil {
			log.Warn("Could not find .env file", "error", err)
		} else {
			log.Info("Loaded .env file")
		}

		viper.SetConfigFile(".env.local")
		if err := viper.MergeInConfig(); err != nil {
			log.Debug("No .env.local file found", "error", err)
		} else {
			log.Info("Loaded .env.local overrides")
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, log.Err("Fatal error: could not unmarshal config", err)
	}

	if err := validateConfig(config, log); err != nil {
		return Config{}, err
	}

	log.Info("Successfully initialized config",
		"environment", config.Environment,
		"port", config.ServerPort,
		"database", config.DatabaseEnabled(),
		"cache", config.CacheEnabled(),
		"auth", config.AuthEnabled(),
	)

	ConfigInstance = config
	return config, nil
}

func GetConfig() Config {
	return ConfigInstance
}

func (c Config) DatabaseEnabled() bool {
	return c.DatabaseHost != ""
}

func (c Config) CacheEnabled() bool {
	return c.DatabaseCacheAddress != "" && c.DatabaseCachePort != 0
}

func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func validateConfig(config Config, log logger.Logger) error {
	if config.ServerPort <= 0 {
		return log.Error(
			"Fatal error: invalid server port",
			"port", config.ServerPort,
		)
	}

	if config.UploadMaxBytes <= 0 {
		return log.Error(
			"Fatal error: invalid upload size limit",
			"uploadMaxBytes", config.UploadMaxBytes,
		)
	}

	if config.HistoryRetentionDays <= 0 {
		return log.Error(
			"Fatal error: invalid history retention",
			"historyRetentionDays", config.HistoryRetentionDays,
		)
	}

	if config.DatabaseEnabled() {
		if config.DatabaseName == "" || config.DatabaseUser == "" {
			return log.ErrMsg("Fatal error: DB_NAME and DB_USER required when DB_HOST is set")
		}
	}

	if config.SchedulerEnabled && !config.DatabaseEnabled() {
		return log.ErrMsg("Fatal error: SCHEDULER_ENABLED requires DB_HOST")
	}

	return nil
}
