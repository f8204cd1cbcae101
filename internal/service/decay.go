package service

import (
	"time"
)

// CalculateDecayPriority 根据发布时间计算衰减权重，越新的内容刷新优先级越高。
// 返回值只会是 {100, 80, 60, 40, 20, 10} 之一
func CalculateDecayPriority(takenAt, now time.Time) int {
	daysOld := int(now.Sub(takenAt).Hours() / 24)

	switch {
	case daysOld <= 7:
		return 100
	case daysOld <= 14:
		return 80
	case daysOld <= 30:
		return 60
	case daysOld <= 60:
		return 40
	case daysOld <= 90:
		return 20
	}
	return 10
}
