package scraper

import (
	"Reelwatch/internal/api/config"
	"Reelwatch/internal/pkg/util"
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ApifyClient 通过 Apify Actor 抓取。流程为：发起 actor run，
// 轮询 run 状态到终态，再拉取 dataset items
type ApifyClient struct {
	httpClient      *resty.Client
	token           string
	actorID         string
	pollInterval    time.Duration
	pollMaxAttempts int
}

func NewApifyClient(cfg *config.ApifyConfig) *ApifyClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.apify.com"
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &ApifyClient{
		httpClient:      client,
		token:           cfg.Token,
		actorID:         cfg.ActorID,
		pollInterval:    time.Duration(cfg.PollIntervalSec) * time.Second,
		pollMaxAttempts: cfg.PollMaxAttempts,
	}
}

type apifyRunEnvelope struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
}

// apifyItem 兼容 Apify 数据集里 camelCase 与 snake_case 两代字段命名
type apifyItem struct {
	ID             string          `json:"id"`
	ShortCode      string          `json:"shortCode"`
	Code           string          `json:"code"`
	URL            string          `json:"url"`
	InputURL       string          `json:"inputUrl"`
	Caption        json.RawMessage `json:"caption"`
	OwnerUsername  string          `json:"ownerUsername"`
	OwnerFullName  string          `json:"ownerFullName"`
	LikesCount     *int            `json:"likesCount"`
	LikeCount      *int            `json:"like_count"`
	CommentsCount  *int            `json:"commentsCount"`
	CommentCount   *int            `json:"comment_count"`
	VideoViewCount *int            `json:"videoViewCount"`
	VideoViewAlt   *int            `json:"videoviewcount"`
	VideoPlayCount *int            `json:"videoPlayCount"`
	VideoPlayAlt   *int            `json:"videoplaycount"`
	PlayCount      *int            `json:"play_count"`
	VideoDuration  float64         `json:"videoDuration"`
	VideoDurAlt    float64         `json:"video_duration"`
	Timestamp      string          `json:"timestamp"`
	TakenAtAlt     string          `json:"taken_at"`
	User           *struct {
		Username string `json:"username"`
		FullName string `json:"full_name"`
	} `json:"user"`
	Error            string `json:"error"`
	ErrorDescription string `json:"errorDescription"`
}

func (s *ApifyClient) FetchReel(ctx context.Context, url string) (*ReelData, error) {
	datasetID, err := s.runActor(ctx, url)
	if err != nil {
		return nil, err
	}

	items, err := s.fetchDatasetItems(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.Errorf("apify dataset is empty for %s", url)
	}

	return s.transformItem(&items[0], url), nil
}

// runActor 发起 actor run 并轮询至完成，返回 dataset id
func (s *ApifyClient) runActor(ctx context.Context, url string) (string, error) {
	var run apifyRunEnvelope
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetQueryParam("token", s.token).
		SetBody(map[string]interface{}{
			"startUrls": []map[string]string{{"url": util.NormalizeURL(url)}},
		}).
		SetResult(&run).
		Post(fmt.Sprintf("/v2/acts/%s/runs", s.actorID))
	if err != nil {
		return "", errors.Wrap(err, "failed to start apify actor run")
	}
	if resp.IsError() {
		return "", errors.Errorf("failed to start apify actor run: %s", resp.String())
	}
	if run.Data.ID == "" || run.Data.DefaultDatasetID == "" {
		return "", errors.New("apify run response missing run id or dataset id")
	}

	status := run.Data.Status
	for attempt := 0; !isTerminalRunStatus(status); attempt++ {
		if attempt >= s.pollMaxAttempts {
			return "", errors.Errorf("apify run %s did not finish after %d polls", run.Data.ID, attempt)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.pollInterval):
		}

		var statusEnvelope apifyRunEnvelope
		resp, err = s.httpClient.R().
			SetContext(ctx).
			SetQueryParam("token", s.token).
			SetResult(&statusEnvelope).
			Get(fmt.Sprintf("/v2/actor-runs/%s", run.Data.ID))
		if err != nil {
			return "", errors.Wrap(err, "failed to check apify run status")
		}
		if resp.IsError() {
			return "", errors.Errorf("failed to check apify run status: %s", resp.Status())
		}
		status = statusEnvelope.Data.Status
		log.DebugContext(ctx, "apify run polled", "run_id", run.Data.ID, "status", status, "attempt", attempt+1)
	}

	if status != "SUCCEEDED" {
		return "", errors.Errorf("apify actor run %s, run id: %s", strings.ToLower(status), run.Data.ID)
	}
	return run.Data.DefaultDatasetID, nil
}

func (s *ApifyClient) fetchDatasetItems(ctx context.Context, datasetID string) ([]apifyItem, error) {
	var items []apifyItem
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetQueryParam("token", s.token).
		SetQueryParam("format", "json").
		SetResult(&items).
		Get(fmt.Sprintf("/v2/datasets/%s/items", datasetID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch apify dataset items")
	}
	if resp.IsError() {
		return nil, errors.Errorf("failed to fetch apify dataset items: %s", resp.Status())
	}
	return items, nil
}

// transformItem 将数据集条目规整为统一格式。错误形态的条目（受限页等）
// 视为已归档，计数全部显式置 0
func (s *ApifyClient) transformItem(item *apifyItem, inputURL string) *ReelData {
	archived := item.Error != "" || item.ErrorDescription != ""

	shortcode := item.ShortCode
	if shortcode == "" {
		shortcode = item.Code
	}
	if shortcode == "" {
		shortcode = util.ExtractShortcode(item.URL)
	}
	if shortcode == "" {
		shortcode = util.ExtractShortcode(item.InputURL)
	}
	if shortcode == "" {
		shortcode = util.ExtractShortcode(inputURL)
	}

	permalink := util.NormalizeURL(item.URL)
	if permalink == "" {
		permalink = util.NormalizeURL(inputURL)
	}

	ownerUsername := item.OwnerUsername
	ownerFullName := item.OwnerFullName
	if item.User != nil {
		if item.User.Username != "" {
			ownerUsername = item.User.Username
		}
		if item.User.FullName != "" {
			ownerFullName = item.User.FullName
		}
	}

	duration := item.VideoDuration
	if duration == 0 {
		duration = item.VideoDurAlt
	}

	data := &ReelData{
		Shortcode:      shortcode,
		Permalink:      permalink,
		OwnerUsername:  ownerUsername,
		OwnerFullName:  ownerFullName,
		Caption:        decodeCaption(item.Caption),
		VideoPlayCount: CoalesceCount(item.VideoPlayCount, item.VideoPlayAlt, item.PlayCount),
		VideoViewCount: CoalesceCount(item.VideoViewCount, item.VideoViewAlt),
		LikesCount:     CoalesceCount(item.LikesCount, item.LikeCount),
		CommentsCount:  CoalesceCount(item.CommentsCount, item.CommentCount),
		VideoDuration:  int(duration),
		TakenAt:        parseTimestamp(item.Timestamp, item.TakenAtAlt),
		Archived:       archived,
	}

	if archived {
		zero := 0
		data.VideoPlayCount = &zero
		data.VideoViewCount = &zero
		data.LikesCount = &zero
		data.CommentsCount = &zero
	}

	return data
}

// decodeCaption 标题字段可能是纯字符串，也可能是 {text: ...} 对象
func decodeCaption(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var wrapped struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return wrapped.Text
	}
	return ""
}

func parseTimestamp(values ...string) *time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t
		}
	}
	return nil
}

func isTerminalRunStatus(status string) bool {
	switch status {
	case "SUCCEEDED", "FAILED", "ABORTED", "TIMED-OUT":
		return true
	}
	return false
}
