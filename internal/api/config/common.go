package config

// Config 配置主体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DB       DBConfig       `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logstash LogstashConfig `mapstructure:"logstash"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// LogstashConfig 日志远程上报配置
type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

// ScraperConfig 抓取服务配置，provider 可选 apify / internal
type ScraperConfig struct {
	Provider string              `mapstructure:"provider"`
	Apify    ApifyConfig         `mapstructure:"apify"`
	Internal InternalScrapeConfig `mapstructure:"internal"`
}

// ApifyConfig Apify Actor 配置
type ApifyConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	Token           string `mapstructure:"token"`
	ActorID         string `mapstructure:"actor_id"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec"`
	PollMaxAttempts int    `mapstructure:"poll_max_attempts"`
}

// InternalScrapeConfig 自建抓取代理配置
type InternalScrapeConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

// RefreshConfig 刷新调度配置
type RefreshConfig struct {
	QueuePacingMs int `mapstructure:"queue_pacing_ms"`
	BatchPacingMs int `mapstructure:"batch_pacing_ms"`
	BatchMax      int `mapstructure:"batch_max"`
	RetentionDays int `mapstructure:"retention_days"`
}
