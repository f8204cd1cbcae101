package scraper

import (
	"Reelwatch/internal/api/config"
	"context"
	"fmt"
)

// Fetcher 抓取服务的统一入口。两种实现（Apify Actor 与自建代理）可互换，
// 由配置决定使用哪一个，调度逻辑不感知差异
type Fetcher interface {
	FetchReel(ctx context.Context, url string) (*ReelData, error)
}

const (
	ProviderApify    = "apify"
	ProviderInternal = "internal"
)

// New 根据配置选择抓取实现
func New(cfg *config.ScraperConfig) (Fetcher, error) {
	switch cfg.Provider {
	case ProviderApify:
		return NewApifyClient(&cfg.Apify), nil
	case ProviderInternal:
		return NewInternalClient(&cfg.Internal), nil
	default:
		return nil, fmt.Errorf("unknown scraper provider: %s", cfg.Provider)
	}
}
