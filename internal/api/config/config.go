package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg
func LoadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file not found: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	Cfg = &cfg

	return nil
}

// applyDefaults 为刷新策略相关配置补齐默认值
func applyDefaults(cfg *Config) {
	if cfg.Refresh.QueuePacingMs <= 0 {
		cfg.Refresh.QueuePacingMs = 500
	}
	if cfg.Refresh.BatchPacingMs <= 0 {
		cfg.Refresh.BatchPacingMs = 2000
	}
	if cfg.Refresh.BatchMax <= 0 {
		cfg.Refresh.BatchMax = 20
	}
	if cfg.Refresh.RetentionDays <= 0 {
		cfg.Refresh.RetentionDays = 90
	}
	if cfg.Scraper.Apify.PollIntervalSec <= 0 {
		cfg.Scraper.Apify.PollIntervalSec = 5
	}
	if cfg.Scraper.Apify.PollMaxAttempts <= 0 {
		cfg.Scraper.Apify.PollMaxAttempts = 60
	}
}
