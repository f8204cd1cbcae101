package service

import (
	"regexp"
)

// 上游接口的报错里经常带"等多少秒再试"之类的提示。单条刷新没有任何
// 时间限制，这类措辞一律替换掉，避免误导用户等待
var timeRelatedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)wait\s+\d+\s*(seconds?|minutes?|hours?)`),
	regexp.MustCompile(`(?i)try\s+again\s+(in|after)\s+\d+`),
	regexp.MustCompile(`(?i)cooldown`),
	regexp.MustCompile(`(?i)rate\s*limit[^,.;]*\d+\s*(seconds?|minutes?|hours?)`),
	regexp.MustCompile(`(?i)retry\s+after\s+\d+`),
}

// FormatErrorMessage 清理错误信息中的时间性建议
func FormatErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	cleaned := err.Error()
	for _, pattern := range timeRelatedPatterns {
		cleaned = pattern.ReplaceAllString(cleaned, "retry now")
	}
	return cleaned
}
