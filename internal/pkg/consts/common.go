package consts

const (
	// ReelURLPrefix 根据 shortcode 重建标准链接时使用
	ReelURLPrefix = "https://www.instagram.com/reel/"

	// ArchivedCaptionPrefix 已归档内容的标题前缀
	ArchivedCaptionPrefix = "[Archived] "
)

const (
	// DefaultDecayPriority 发布时间未知时的兜底衰减权重
	DefaultDecayPriority = 50

	// ZeroViewsBoost 零播放内容在候选排序中的基础加分
	ZeroViewsBoost = 10000
)
