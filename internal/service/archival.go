package service

import (
	"Reelwatch/internal/pkg/consts"
	"strings"
)

// ApplyArchivalState 根据归档状态迁移标题前缀。重复调用不会叠加前缀，
// 解除归档时恢复原始标题
func ApplyArchivalState(caption string, isArchived bool) string {
	if isArchived {
		if strings.HasPrefix(caption, consts.ArchivedCaptionPrefix) {
			return caption
		}
		return consts.ArchivedCaptionPrefix + caption
	}
	return strings.TrimPrefix(caption, consts.ArchivedCaptionPrefix)
}
