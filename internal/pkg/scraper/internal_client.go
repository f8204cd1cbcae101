package scraper

import (
	"Reelwatch/internal/api/config"
	"Reelwatch/internal/pkg/util"
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// InternalClient 调用自建抓取代理，单次同步请求返回完整数据
type InternalClient struct {
	httpClient *resty.Client
}

func NewInternalClient(cfg *config.InternalScrapeConfig) *InternalClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(timeout) * time.Second).
		SetHeader("Content-Type", "application/json")

	return &InternalClient{httpClient: client}
}

type internalScrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Shortcode  string `json:"shortcode"`
		Engagement struct {
			LikeCount    *int `json:"like_count"`
			CommentCount *int `json:"comment_count"`
			PlayCount    *int `json:"play_count"`
			ViewCount    *int `json:"view_count"`
			VideoView    *int `json:"video_view_count"`
		} `json:"engagement"`
		User struct {
			Username string `json:"username"`
			FullName string `json:"full_name"`
		} `json:"user"`
		Caption       string  `json:"caption"`
		Timestamp     int64   `json:"timestamp"`
		VideoDuration float64 `json:"video_duration"`
	} `json:"data"`
}

func (s *InternalClient) FetchReel(ctx context.Context, url string) (*ReelData, error) {
	var result internalScrapeResponse
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetQueryParam("url", url).
		SetResult(&result).
		Post("/scrape")
	if err != nil {
		return nil, errors.Wrap(err, "internal scrape api unreachable")
	}
	if resp.IsError() {
		return nil, errors.Errorf("internal scrape api error: %s %s", resp.Status(), resp.String())
	}
	if !result.Success {
		if result.Error != "" {
			return nil, errors.Errorf("internal scrape api returned error: %s", result.Error)
		}
		return nil, errors.Errorf("internal scrape api returned error for %s", url)
	}

	data := &result.Data

	shortcode := data.Shortcode
	if shortcode == "" {
		shortcode = util.ExtractShortcode(url)
	}

	var takenAt *time.Time
	if data.Timestamp > 0 {
		t := time.Unix(data.Timestamp, 0).UTC()
		takenAt = &t
	}

	// play_count 同时填充两个口径，与旧的导入链路保持一致
	return &ReelData{
		Shortcode:      shortcode,
		Permalink:      "https://www.instagram.com/p/" + shortcode + "/",
		OwnerUsername:  data.User.Username,
		OwnerFullName:  data.User.FullName,
		Caption:        data.Caption,
		VideoPlayCount: CoalesceCount(data.Engagement.PlayCount),
		VideoViewCount: CoalesceCount(data.Engagement.PlayCount, data.Engagement.VideoView, data.Engagement.ViewCount),
		LikesCount:     data.Engagement.LikeCount,
		CommentsCount:  data.Engagement.CommentCount,
		VideoDuration:  int(data.VideoDuration),
		TakenAt:        takenAt,
	}, nil
}
