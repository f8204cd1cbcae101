package util

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

var shortcodeRegex = regexp.MustCompile(`/(?:p|reel)/([A-Za-z0-9_-]+)`)

// ExtractShortcode 从各种格式的 Instagram 链接中提取 shortcode
func ExtractShortcode(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	match := shortcodeRegex.FindStringSubmatch(rawURL)
	if len(match) > 1 {
		return match[1]
	}
	return ""
}

// NormalizeURL 去除查询参数、锚点和末尾斜杠
func NormalizeURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		rawURL = strings.SplitN(rawURL, "?", 2)[0]
		rawURL = strings.SplitN(rawURL, "#", 2)[0]
		return strings.TrimRight(rawURL, "/")
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/")
}

// PtrInt 用于将 int 转换为 *int
func PtrInt(i int) *int {
	return &i
}

// PtrTime 用于将 time.Time 转换为 *time.Time
func PtrTime(t time.Time) *time.Time {
	return &t
}
