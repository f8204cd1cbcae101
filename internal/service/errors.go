package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	InternalServerError = 500
)

var (
	ErrParamInvalid          = errors.New("参数错误")
	ErrReelNotFound          = errors.New("内容不存在")
	ErrReelMissingIdentifier = errors.New("内容缺少可用的链接或 shortcode")
	ErrReelAlreadyQueued     = errors.New("该内容已在刷新队列中")
	ErrBatchInProgress       = errors.New("批量刷新正在进行中")
	ErrSnapshotRangeInvalid  = errors.New("时间区间无效")
	UnExpectedError          = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:          BadRequest,
	ErrReelNotFound:          NotFound,
	ErrReelMissingIdentifier: BadRequest,
	ErrReelAlreadyQueued:     BadRequest,
	ErrBatchInProgress:       BadRequest,
	ErrSnapshotRangeInvalid:  BadRequest,
	UnExpectedError:          InternalServerError,
}
